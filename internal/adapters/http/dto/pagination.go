package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// Page sizes for GET /api/v1/quotes.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

var (
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrNoCursor marks a request for the first page.
	ErrNoCursor = errors.New("no cursor provided")
)

// PaginationRequest is the paging part of a list query.
type PaginationRequest struct {
	// Cursor is the NextCursor of the previous page. Clients treat it as opaque.
	Cursor string `form:"cursor" json:"cursor"`
	Limit  int    `form:"limit"  json:"limit"  validate:"omitempty,gte=1,lte=200"`
}

// GetLimit is Limit clamped to MaxLimit, or DefaultLimit when unset.
func (p *PaginationRequest) GetLimit() int {
	if p.Limit > 0 {
		return min(p.Limit, MaxLimit)
	}

	return DefaultLimit
}

// Offset is the index of the first quote on the requested page.
func (p *PaginationRequest) Offset() (int, error) {
	switch c, err := DecodeCursor(p.Cursor); {
	case errors.Is(err, ErrNoCursor):
		return 0, nil
	case err != nil:
		return 0, err
	default:
		return c.Offset, nil
	}
}

// PaginatedResponse is one page of a list. Total counts every match across
// all pages; NextCursor is omitted on the last one.
type PaginatedResponse[T any] struct {
	Items      []T    `json:"items"`
	Total      int    `json:"total"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// Paginate cuts the page [offset, offset+limit) out of the full ordered
// result. An offset past the end gives an empty last page.
func Paginate[T any](items []T, offset, limit int) *PaginatedResponse[T] {
	from := min(max(offset, 0), len(items))
	to := min(from+limit, len(items))

	page := &PaginatedResponse[T]{
		Items: make([]T, 0, to-from),
		Total: len(items),
	}
	page.Items = append(page.Items, items[from:to]...)

	if to < len(items) {
		page.HasMore = true
		page.NextCursor = EncodeCursor(&CursorData{Offset: to})
	}

	return page
}

// CursorData is what a cursor encodes. Quotes are only appended between
// reloads, so an offset keeps pointing at the same quote while paging.
type CursorData struct {
	Offset int `json:"o"`
}

// EncodeCursor renders data as URL-safe base64 JSON.
func EncodeCursor(data *CursorData) string {
	if data == nil {
		return ""
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}

	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor reverses EncodeCursor. An empty string is ErrNoCursor; any
// malformed or negative cursor is ErrInvalidCursor.
func DecodeCursor(encoded string) (*CursorData, error) {
	if encoded == "" {
		return nil, ErrNoCursor
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	data := new(CursorData)
	if err := json.Unmarshal(raw, data); err != nil || data.Offset < 0 {
		return nil, ErrInvalidCursor
	}

	return data, nil
}

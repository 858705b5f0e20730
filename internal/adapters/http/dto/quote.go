package dto

import (
	"time"

	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

// QuoteRequest is the body of POST /api/v1/quotes.
type QuoteRequest struct {
	Text     string `json:"text"     validate:"notempty,max=2000"`
	Category string `json:"category" validate:"notempty,max=100"`
}

// QuoteResponse is a quote on the wire, matching the stored record shape.
type QuoteResponse struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// NewQuoteResponse converts a domain quote.
func NewQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{Text: q.Text, Category: q.Category}
}

// NewQuoteResponses converts a slice of domain quotes; the result is never nil.
func NewQuoteResponses(qs []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, len(qs))
	for i, q := range qs {
		out[i] = NewQuoteResponse(q)
	}

	return out
}

// ListQuotesRequest is the query of GET /api/v1/quotes.
type ListQuotesRequest struct {
	PaginationRequest

	// Category narrows the list; empty or "all" lists everything.
	Category string `form:"category" json:"category" validate:"max=100"`
}

// SubmissionResponse reports the remote submission of an added quote.
type SubmissionResponse struct {
	Synced  bool   `json:"synced"`
	Message string `json:"message"`
}

// AddQuoteResponse is the 201 body of POST /api/v1/quotes.
type AddQuoteResponse struct {
	Quote      QuoteResponse      `json:"quote"`
	Submission SubmissionResponse `json:"submission"`
}

// NewAddQuoteResponse converts an app.AddResult.
func NewAddQuoteResponse(r app.AddResult) AddQuoteResponse {
	return AddQuoteResponse{
		Quote:      NewQuoteResponse(r.Quote),
		Submission: SubmissionResponse{Synced: r.Submission.Synced, Message: r.Submission.Message},
	}
}

// CategoriesResponse is the category dropdown.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Selected   string   `json:"selected"`
}

// NewCategoriesResponse converts an app.CategoryView.
func NewCategoriesResponse(v app.CategoryView) CategoriesResponse {
	categories := v.Categories
	if categories == nil {
		categories = []string{}
	}

	return CategoriesResponse{Categories: categories, Selected: v.Selected}
}

// FilterRequest is the body of PUT /api/v1/filter.
type FilterRequest struct {
	Category string `json:"category" validate:"notempty,max=100"`
}

// FilterResponse reports the selected category filter.
type FilterResponse struct {
	Category string `json:"category"`
}

// ImportResponse is the body of a successful import.
type ImportResponse struct {
	Imported int    `json:"imported"`
	Message  string `json:"message"`
}

// SyncResultResponse is the body of POST /api/v1/sync.
type SyncResultResponse struct {
	Outcome string          `json:"outcome"`
	Fetched int             `json:"fetched"`
	Added   []QuoteResponse `json:"added"`
	Status  string          `json:"status"`
}

// NewSyncResultResponse converts an app.SyncResult and the status text that followed it.
func NewSyncResultResponse(r *app.SyncResult, status string) SyncResultResponse {
	return SyncResultResponse{
		Outcome: string(r.Outcome),
		Fetched: r.Fetched,
		Added:   NewQuoteResponses(r.Added),
		Status:  status,
	}
}

// SyncStatusResponse is the body of GET /api/v1/sync/status.
type SyncStatusResponse struct {
	Text                string     `json:"text"`
	LastRun             *time.Time `json:"lastRun,omitempty"`
	LastOutcome         string     `json:"lastOutcome,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	InFlight            bool       `json:"inFlight"`
	TotalAdded          int        `json:"totalAdded"`
}

// NewSyncStatusResponse converts an app.SyncStatus.
func NewSyncStatusResponse(s app.SyncStatus) SyncStatusResponse {
	resp := SyncStatusResponse{
		Text:                s.Text,
		LastOutcome:         string(s.LastOutcome),
		LastError:           s.LastError,
		ConsecutiveFailures: s.ConsecutiveFailures,
		InFlight:            s.InFlight,
		TotalAdded:          s.TotalAdded,
	}

	if !s.LastRun.IsZero() {
		lastRun := s.LastRun
		resp.LastRun = &lastRun
	}

	return resp
}

// NotificationResponse is a notification on the wire.
type NotificationResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	Color     string    `json:"color"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewNotificationResponses converts notifications; the result is never nil.
func NewNotificationResponses(ns []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, len(ns))
	for i, n := range ns {
		out[i] = NotificationResponse{
			ID:        n.ID,
			Message:   n.Message,
			Kind:      string(n.Kind),
			Color:     n.Color,
			ExpiresAt: n.ExpiresAt,
		}
	}

	return out
}

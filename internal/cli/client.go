package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
)

const (
	apiPrefix      = "/api/v1"
	defaultTimeout = 15 * time.Second
	listPageSize   = dto.MaxLimit
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client calls the quotebook API on behalf of one session.
type Client struct {
	http      *clients.Client
	baseURL   string
	sessionID string
}

// NewClient creates a client for the profile's server and session.
// Requests are not retried: add, import and sync are not idempotent.
func NewClient(p Profile, logger *slog.Logger) (*Client, error) {
	base := strings.TrimSuffix(p.ServerURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", p.ServerURL, err)
	}

	hc, err := clients.New(&clients.Config{
		BaseURL:     base,
		ServiceName: "quotebook",
		Timeout:     defaultTimeout,
		Retry:       config.RetryConfig{MaxAttempts: 1},
		Circuit:     config.CircuitBreakerConfig{MaxFailures: 3, Timeout: 10 * time.Second, HalfOpenLimit: 1},
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return &Client{http: hc, baseURL: base, sessionID: p.SessionID}, nil
}

// SessionID returns the session the client speaks for.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Next asks for the next random quote under the saved filter.
func (c *Client) Next(ctx context.Context) (dto.QuoteResponse, error) {
	var q dto.QuoteResponse
	err := c.call(ctx, http.MethodGet, "/quotes/random", nil, "", &q)

	return q, err
}

// Last returns the quote last shown to this session.
func (c *Client) Last(ctx context.Context) (dto.QuoteResponse, error) {
	var q dto.QuoteResponse
	err := c.call(ctx, http.MethodGet, "/quotes/last", nil, "", &q)

	return q, err
}

// List returns every quote, following pagination. An empty category lists all.
func (c *Client) List(ctx context.Context, category string) ([]dto.QuoteResponse, error) {
	quotes := []dto.QuoteResponse{}
	cursor := ""

	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(listPageSize))

		if category != "" {
			q.Set("category", category)
		}

		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var page dto.PaginatedResponse[dto.QuoteResponse]
		if err := c.call(ctx, http.MethodGet, "/quotes?"+q.Encode(), nil, "", &page); err != nil {
			return nil, err
		}

		quotes = append(quotes, page.Items...)

		if !page.HasMore || page.NextCursor == "" {
			return quotes, nil
		}

		cursor = page.NextCursor
	}
}

// Add submits a new quote.
func (c *Client) Add(ctx context.Context, text, category string) (dto.AddQuoteResponse, error) {
	var resp dto.AddQuoteResponse
	err := c.callJSON(ctx, http.MethodPost, "/quotes", dto.QuoteRequest{Text: text, Category: category}, &resp)

	return resp, err
}

// Categories returns the category options and the selected filter.
func (c *Client) Categories(ctx context.Context) (dto.CategoriesResponse, error) {
	var resp dto.CategoriesResponse
	err := c.call(ctx, http.MethodGet, "/categories", nil, "", &resp)

	return resp, err
}

// Filter returns the selected category filter.
func (c *Client) Filter(ctx context.Context) (string, error) {
	var resp dto.FilterResponse
	err := c.call(ctx, http.MethodGet, "/filter", nil, "", &resp)

	return resp.Category, err
}

// SetFilter changes the selected category filter.
func (c *Client) SetFilter(ctx context.Context, category string) (string, error) {
	var resp dto.FilterResponse
	err := c.callJSON(ctx, http.MethodPut, "/filter", dto.FilterRequest{Category: category}, &resp)

	return resp.Category, err
}

// Export returns the exported quotes.json document.
func (c *Client) Export(ctx context.Context) ([]byte, error) {
	var raw bytes.Buffer
	err := c.call(ctx, http.MethodGet, "/quotes/export", nil, "", &raw)

	return raw.Bytes(), err
}

// Import uploads a quotes.json document.
func (c *Client) Import(ctx context.Context, r io.Reader) (dto.ImportResponse, error) {
	var resp dto.ImportResponse
	err := c.call(ctx, http.MethodPost, "/quotes/import", r, "application/json", &resp)

	return resp, err
}

// Sync runs a reconciliation with the remote now.
func (c *Client) Sync(ctx context.Context) (dto.SyncResultResponse, error) {
	var resp dto.SyncResultResponse
	err := c.call(ctx, http.MethodPost, "/sync", nil, "", &resp)

	return resp, err
}

// SyncStatus returns the reconciler's status.
func (c *Client) SyncStatus(ctx context.Context) (dto.SyncStatusResponse, error) {
	var resp dto.SyncStatusResponse
	err := c.call(ctx, http.MethodGet, "/sync/status", nil, "", &resp)

	return resp, err
}

// Notifications returns the active notifications, newest first.
func (c *Client) Notifications(ctx context.Context) ([]dto.NotificationResponse, error) {
	resp := []dto.NotificationResponse{}
	err := c.call(ctx, http.MethodGet, "/notifications", nil, "", &resp)

	return resp, err
}

func (c *Client) callJSON(ctx context.Context, method, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	return c.call(ctx, method, path, bytes.NewReader(data), "application/json", out)
}

// call sends one request. A *bytes.Buffer out receives the raw body; anything
// else is JSON-decoded.
func (c *Client) call(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if body == nil {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(middleware.DefaultSessionHeader, c.sessionID)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		// 5xx bodies are consumed by the retry loop; keep the status at least.
		var statusErr *clients.StatusError
		if errors.As(err, &statusErr) {
			return &APIError{Status: statusErr.StatusCode, Message: http.StatusText(statusErr.StatusCode)}
		}

		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if raw, ok := out.(*bytes.Buffer); ok {
		_, err := raw.ReadFrom(resp.Body)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}

	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var body dto.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
		apiErr.Details = body.Error.Details
	}

	return apiErr
}

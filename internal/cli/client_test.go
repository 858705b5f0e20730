package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
)

const testSession = "session-1"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testSession, r.Header.Get("X-Session-ID"))
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Profile{ServerURL: srv.URL + "/", SessionID: testSession}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(Profile{ServerURL: "not a url"}, nil)

	require.Error(t, err)
}

func TestClient_Next(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/quotes/random", r.URL.Path)
		writeJSON(t, w, http.StatusOK, dto.QuoteResponse{Text: "Keep going.", Category: "Motivation"})
	})

	q, err := c.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Keep going.", q.Text)
	assert.Equal(t, "Motivation", q.Category)
}

func TestClient_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusNotFound, dto.NewErrorResponse(dto.ErrorCodeNotFound, "no quote has been shown yet"))
	})

	_, err := c.Last(context.Background())

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "NOT_FOUND: no quote has been shown yet", err.Error())
}

func TestClient_ServerErrorKeepsStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusBadGateway, dto.NewErrorResponse(dto.ErrorCodeNetwork, "remote down"))
	})

	_, err := c.Sync(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestClient_ListFollowsCursor(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "Success", r.URL.Query().Get("category"))

		if r.URL.Query().Get("cursor") == "" {
			writeJSON(t, w, http.StatusOK, dto.PaginatedResponse[dto.QuoteResponse]{
				Items:      []dto.QuoteResponse{{Text: "a", Category: "Success"}},
				Total:      2,
				HasMore:    true,
				NextCursor: "next",
			})
			return
		}

		assert.Equal(t, "next", r.URL.Query().Get("cursor"))
		writeJSON(t, w, http.StatusOK, dto.PaginatedResponse[dto.QuoteResponse]{
			Items: []dto.QuoteResponse{{Text: "b", Category: "Success"}},
			Total: 2,
		})
	})

	quotes, err := c.List(context.Background(), "Success")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []dto.QuoteResponse{{Text: "a", Category: "Success"}, {Text: "b", Category: "Success"}}, quotes)
}

func TestClient_Add(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req dto.QuoteRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, dto.QuoteRequest{Text: "New", Category: "Tests"}, req)

		writeJSON(t, w, http.StatusCreated, dto.AddQuoteResponse{
			Quote:      dto.QuoteResponse{Text: "New", Category: "Tests"},
			Submission: dto.SubmissionResponse{Synced: true, Message: "Quote synced with server!"},
		})
	})

	resp, err := c.Add(context.Background(), "New", "Tests")

	require.NoError(t, err)
	assert.True(t, resp.Submission.Synced)
}

func TestClient_SetFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/filter", r.URL.Path)
		writeJSON(t, w, http.StatusOK, dto.FilterResponse{Category: "Success"})
	})

	got, err := c.SetFilter(context.Background(), "Success")

	require.NoError(t, err)
	assert.Equal(t, "Success", got)
}

func TestClient_ExportReturnsRawDocument(t *testing.T) {
	doc := "[\n  {\n    \"text\": \"a\",\n    \"category\": \"b\"\n  }\n]"
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, doc)
	})

	data, err := c.Export(context.Background())

	require.NoError(t, err)
	assert.Equal(t, doc, string(data))
}

func TestClient_ImportSendsBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "[]", string(body))
		writeJSON(t, w, http.StatusOK, dto.ImportResponse{Imported: 0, Message: "Quotes imported successfully!"})
	})

	resp, err := c.Import(context.Background(), strings.NewReader("[]"))

	require.NoError(t, err)
	assert.Equal(t, "Quotes imported successfully!", resp.Message)
}

func TestClient_Notifications(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, []dto.NotificationResponse{{Message: "Synced", Color: "green"}})
	})

	got, err := c.Notifications(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "green", got[0].Color)
}

package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

const (
	// importFormField is the multipart field holding an uploaded quotes file.
	importFormField = "file"

	// manualSyncTimeout bounds a sync started over HTTP.
	manualSyncTimeout = time.Minute
)

// QuoteHandler exposes the quote widget over HTTP.
type QuoteHandler struct {
	service *app.QuoteService
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(service *app.QuoteService) *QuoteHandler {
	if service == nil {
		panic("QuoteHandler: service is required")
	}

	return &QuoteHandler{service: service}
}

// ListQuotes handles GET /api/v1/quotes.
// The optional category query narrows the list; results are paged.
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var req dto.ListQuotesRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	offset, err := req.Offset()
	if err != nil {
		dto.RespondWithCode(c, dto.ErrorCodeBadRequest, "invalid cursor")
		return
	}

	category := req.Category
	if category == domain.AllCategories {
		category = ""
	}

	quotes := dto.NewQuoteResponses(h.service.Quotes(c.Request.Context(), category))
	c.JSON(http.StatusOK, dto.Paginate(quotes, offset, req.GetLimit()))
}

// AddQuote handles POST /api/v1/quotes.
// The quote is stored before it is submitted to the remote, so the response
// is 201 even when the submission failed; the body says which.
func (h *QuoteHandler) AddQuote(c *gin.Context) {
	var req dto.QuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.service.AddQuote(c.Request.Context(), req.Text, req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewAddQuoteResponse(result))
}

// NextQuote handles GET /api/v1/quotes/random.
func (h *QuoteHandler) NextQuote(c *gin.Context) {
	q, err := h.service.NextQuote(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(q))
}

// LastQuote handles GET /api/v1/quotes/last.
func (h *QuoteHandler) LastQuote(c *gin.Context) {
	q, err := h.service.LastQuote(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(q))
}

// ExportQuotes handles GET /api/v1/quotes/export as a file download.
func (h *QuoteHandler) ExportQuotes(c *gin.Context) {
	data, err := h.service.Export(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": app.ExportFileName}))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// ImportQuotes handles POST /api/v1/quotes/import. The body is either the
// raw JSON array or a multipart form with the file under "file".
func (h *QuoteHandler) ImportQuotes(c *gin.Context) {
	body, closeBody, err := importBody(c)
	if err != nil {
		dto.RespondWithCode(c, dto.ErrorCodeBadRequest, err.Error())
		return
	}
	defer closeBody()

	n, err := h.service.Import(c.Request.Context(), body)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ImportResponse{Imported: n, Message: domain.MsgImportSucceeded})
}

func importBody(c *gin.Context) (io.Reader, func(), error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return c.Request.Body, func() {}, nil
	}

	fh, err := c.FormFile(importFormField)
	if err != nil {
		return nil, nil, errors.New(`multipart import needs a "file" field`)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, errors.New("uploaded file could not be opened")
	}

	return f, func() { _ = f.Close() }, nil
}

// Categories handles GET /api/v1/categories.
func (h *QuoteHandler) Categories(c *gin.Context) {
	view, err := h.service.Categories(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewCategoriesResponse(view))
}

// GetFilter handles GET /api/v1/filter.
func (h *QuoteHandler) GetFilter(c *gin.Context) {
	category, err := h.service.Filter(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FilterResponse{Category: category})
}

// SetFilter handles PUT /api/v1/filter.
func (h *QuoteHandler) SetFilter(c *gin.Context) {
	var req dto.FilterRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.service.SetFilter(c.Request.Context(), req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FilterResponse{Category: category})
}

// Sync handles POST /api/v1/sync. The run outlives the request: a client
// hanging up or the request timeout must not be recorded as a failed sync.
func (h *QuoteHandler) Sync(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), manualSyncTimeout)
	defer cancel()

	result, err := h.service.Sync(ctx)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSyncResultResponse(result, h.service.SyncStatus(ctx).Text))
}

// SyncStatus handles GET /api/v1/sync/status.
func (h *QuoteHandler) SyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSyncStatusResponse(h.service.SyncStatus(c.Request.Context())))
}

// Notifications handles GET /api/v1/notifications.
func (h *QuoteHandler) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewNotificationResponses(h.service.Notifications(c.Request.Context())))
}

func respondBindError(c *gin.Context, err error) {
	if dto.IsValidationError(err) {
		dto.RespondWithValidationErrors(c, dto.ValidationErrors(err))
		return
	}

	dto.RespondWithCode(c, dto.ErrorCodeBadRequest, "request body or query could not be parsed")
}

// RegisterQuoteRoutes registers the widget routes on rg.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.ListQuotes)
	quotes.POST("", h.AddQuote)
	quotes.GET("/random", h.NextQuote)
	quotes.GET("/last", h.LastQuote)
	quotes.GET("/export", h.ExportQuotes)
	quotes.POST("/import", h.ImportQuotes)

	rg.GET("/categories", h.Categories)
	rg.GET("/filter", h.GetFilter)
	rg.PUT("/filter", h.SetFilter)
	rg.POST("/sync", h.Sync)
	rg.GET("/sync/status", h.SyncStatus)
	rg.GET("/notifications", h.Notifications)
}

// Package dto holds the JSON shapes of the quote API and the mapping from
// domain errors to error responses.
package dto

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Details maps a rejected field to why, for validation failures.
	Details map[string]string `json:"details,omitempty"`
}

// Machine readable codes carried in ErrorDetail.Code.
const (
	ErrorCodeNotFound    = "NOT_FOUND"
	ErrorCodeConflict    = "CONFLICT"
	ErrorCodeValidation  = "VALIDATION_ERROR"
	ErrorCodeFormat      = "FORMAT_ERROR"
	ErrorCodeNetwork     = "NETWORK_ERROR"
	ErrorCodeUnavailable = "SERVICE_UNAVAILABLE"
	ErrorCodeInternal    = "INTERNAL_ERROR"
	ErrorCodeTimeout     = "TIMEOUT"
	ErrorCodeBadRequest  = "BAD_REQUEST"
)

const (
	// contextKeyTraceID is a gin context key consulted when no span is active.
	contextKeyTraceID = "trace_id"
	headerRequestID   = "X-Request-ID"

	internalMessage = "an internal error occurred"
)

var codeStatus = map[string]int{
	ErrorCodeNotFound:    http.StatusNotFound,
	ErrorCodeConflict:    http.StatusConflict,
	ErrorCodeValidation:  http.StatusBadRequest,
	ErrorCodeFormat:      http.StatusBadRequest,
	ErrorCodeBadRequest:  http.StatusBadRequest,
	ErrorCodeNetwork:     http.StatusBadGateway,
	ErrorCodeUnavailable: http.StatusServiceUnavailable,
	ErrorCodeTimeout:     http.StatusGatewayTimeout,
}

// errorKinds is checked in order. Format precedes validation because a
// rejected import element carries its validation failure as the cause.
var errorKinds = []struct {
	sentinel error
	code     string
	detail   func(error) error
}{
	{domain.ErrFormat, ErrorCodeFormat, find[*domain.FormatError]},
	{domain.ErrValidation, ErrorCodeValidation, find[*domain.ValidationError]},
	{domain.ErrNetwork, ErrorCodeNetwork, find[*domain.NetworkError]},
	{domain.ErrNotFound, ErrorCodeNotFound, find[*domain.NotFoundError]},
	{domain.ErrConflict, ErrorCodeConflict, find[*domain.ConflictError]},
	{domain.ErrUnavailable, ErrorCodeUnavailable, find[*domain.UnavailableError]},
}

// find returns the first T in err's chain, or nil.
func find[T error](err error) error {
	var target T
	if errors.As(err, &target) {
		return target
	}

	return nil
}

func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

func NewErrorResponseWithDetails(code, message string, details map[string]string) *ErrorResponse {
	resp := NewErrorResponse(code, message)
	resp.Error.Details = details

	return resp
}

func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}

// HTTPStatusFromCode gives the status an error code is served with. Unknown
// codes are 500.
func HTTPStatusFromCode(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// MapDomainError turns err into a status and response body. The message is
// the typed domain error's text when the chain has one, so wrapping context
// added by services stays out of user-facing output. Errors of no known kind
// become a generic 500.
func MapDomainError(err error) (int, *ErrorResponse) {
	if err == nil {
		return http.StatusOK, nil
	}

	for _, kind := range errorKinds {
		if !errors.Is(err, kind.sentinel) {
			continue
		}

		msg := err.Error()
		if typed := kind.detail(err); typed != nil {
			msg = typed.Error()
		}

		resp := NewErrorResponse(kind.code, msg)

		var ve *domain.ValidationError
		if kind.code == ErrorCodeValidation && errors.As(err, &ve) && ve.Field != "" {
			resp.Error.Details = map[string]string{ve.Field: ve.Message}
		}

		return HTTPStatusFromCode(kind.code), resp
	}

	return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, internalMessage)
}

// GetTraceID picks the id a client quotes when reporting an error: the
// active span's trace id, else a "trace_id" gin value, else X-Request-ID.
func GetTraceID(c *gin.Context) string {
	if c.Request != nil {
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			return sc.TraceID().String()
		}
	}

	if v, ok := c.Get(contextKeyTraceID); ok {
		id, _ := v.(string)
		return id
	}

	if c.Request == nil {
		return ""
	}

	return c.Request.Header.Get(headerRequestID)
}

// HandleError writes err's mapped response. 500s are logged in full since
// the client only sees the generic message.
func HandleError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	resp.TraceID = GetTraceID(c)

	if status == http.StatusInternalServerError {
		ctx := c.Request.Context()
		logging.FromContext(ctx).ErrorContext(ctx, "unmapped error",
			"error", err.Error(),
			"trace_id", resp.TraceID,
		)
	}

	c.JSON(status, resp)
}

// AbortWithError is HandleError for middleware: it stops the chain.
func AbortWithError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	c.AbortWithStatusJSON(status, resp.WithTraceID(GetTraceID(c)))
}

// RespondWithCode reports a failure that never became a domain error, such
// as a body that is not JSON.
func RespondWithCode(c *gin.Context, code, message string) {
	c.JSON(HTTPStatusFromCode(code), NewErrorResponse(code, message).WithTraceID(GetTraceID(c)))
}

// RespondWithValidationErrors writes a 400 listing each rejected field.
func RespondWithValidationErrors(c *gin.Context, fieldErrors map[string]string) {
	resp := NewErrorResponseWithDetails(ErrorCodeValidation, "request validation failed", fieldErrors)
	c.JSON(http.StatusBadRequest, resp.WithTraceID(GetTraceID(c)))
}

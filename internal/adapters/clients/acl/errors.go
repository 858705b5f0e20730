package acl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

// maxErrorBody bounds how much of a rejected response is read for a message.
const maxErrorBody = 4 << 10

// upstreamError accepts both {"error":{"message":...}} and {"message":...}.
type upstreamError struct {
	Nested struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// upstreamMessage extracts a human readable reason from a rejected response,
// or "" when the body carries none.
func upstreamMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	var ue upstreamError
	if err := json.NewDecoder(io.LimitReader(body, maxErrorBody)).Decode(&ue); err != nil {
		return ""
	}

	if ue.Nested.Message != "" {
		return ue.Nested.Message
	}

	return ue.Message
}

// toNetworkError folds a failed exchange into a domain.NetworkError. It
// returns nil for a 2xx response with no client error.
func toNetworkError(op string, resp *http.Response, err error) error {
	if err != nil {
		var statusErr *clients.StatusError
		switch {
		case errors.As(err, &statusErr):
			return domain.NewNetworkError(op, statusErr.StatusCode, err)
		case errors.Is(err, clients.ErrCircuitOpen):
			return domain.NewNetworkError(op, 0, fmt.Errorf("remote temporarily disabled: %w", err))
		default:
			return domain.NewNetworkError(op, 0, err)
		}
	}

	if resp == nil {
		return domain.NewNetworkError(op, 0, errors.New("no response received"))
	}

	if resp.StatusCode/100 == 2 {
		return nil
	}

	var cause error
	if msg := upstreamMessage(resp.Body); msg != "" {
		cause = errors.New(msg)
	}

	return domain.NewNetworkError(op, resp.StatusCode, cause)
}

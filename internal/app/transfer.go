package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

// ExportFileName is the suggested name for exported collections.
const ExportFileName = "quotes.json"

// ErrUnreadable marks an import payload that could not be read or parsed at
// all, as opposed to valid JSON of the wrong shape.
var ErrUnreadable = errors.New("payload unreadable")

// EncodeQuotes renders quotes as a two-space indented JSON array of
// {text, category} objects.
func EncodeQuotes(quotes []domain.Quote) ([]byte, error) {
	data, err := json.MarshalIndent(toRecords(quotes), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding quotes: %w", err)
	}

	return data, nil
}

// DecodeQuotes parses an import payload. Anything other than an array of
// objects with non-blank text and category is a domain.FormatError.
func DecodeQuotes(data []byte) ([]domain.Quote, error) {
	if !json.Valid(data) {
		return nil, domain.NewFormatError("payload is not valid JSON", ErrUnreadable)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil || elements == nil {
		return nil, domain.NewFormatError("expected a JSON array of quotes", err)
	}

	quotes := make([]domain.Quote, 0, len(elements))

	for i, el := range elements {
		if !bytes.HasPrefix(bytes.TrimSpace(el), []byte("{")) {
			return nil, domain.NewFormatError(fmt.Sprintf("element %d is not an object", i), nil)
		}

		var r quoteRecord
		if err := json.Unmarshal(el, &r); err != nil {
			return nil, domain.NewFormatError(fmt.Sprintf("element %d is malformed", i), err)
		}

		q, err := domain.NewQuote(r.Text, r.Category)
		if err != nil {
			return nil, domain.NewFormatError(fmt.Sprintf("element %d is incomplete", i), err)
		}

		quotes = append(quotes, q)
	}

	return quotes, nil
}

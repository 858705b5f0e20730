package acl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// errSkip drops a post from the batch without failing the fetch.
var errSkip = errors.New("skip post")

// decodeBody decodes a JSON body into T and closes it.
func decodeBody[T any](body io.ReadCloser) (T, error) {
	var out T
	if body == nil {
		return out, errors.New("empty response")
	}
	defer func() { _ = body.Close() }()

	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return out, fmt.Errorf("decoding response: %w", err)
	}

	return out, nil
}

// translateAll maps external items to domain values, keeping order. Items
// whose translation returns errSkip are left out; any other error aborts.
func translateAll[E, D any](items []E, translate func(*E) (D, error)) ([]D, error) {
	out := make([]D, 0, len(items))

	for i := range items {
		d, err := translate(&items[i])
		switch {
		case errors.Is(err, errSkip):
			continue
		case err != nil:
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		out = append(out, d)
	}

	return out, nil
}

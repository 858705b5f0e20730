package domain

import "strings"

// AllCategories is the filter value meaning no category restriction.
const AllCategories = "all"

// Quote is a single quote record. Text alone identifies a quote for
// deduplication purposes; two quotes with the same text are duplicates
// regardless of category.
// This is a domain entity - it has no knowledge of external systems.
type Quote struct {
	// Text is the body of the quote.
	Text string

	// Category groups quotes for filtering.
	Category string
}

// NewQuote builds a quote from user input, trimming surrounding whitespace
// and rejecting blank fields.
func NewQuote(text, category string) (Quote, error) {
	q := Quote{Text: strings.TrimSpace(text), Category: strings.TrimSpace(category)}
	if err := q.Validate(); err != nil {
		return Quote{}, err
	}

	return q, nil
}

// Validate checks the presence invariants every stored quote satisfies.
func (q Quote) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return NewValidationError("text", "quote text is required")
	}

	if strings.TrimSpace(q.Category) == "" {
		return NewValidationError("category", "quote category is required")
	}

	return nil
}

// Matches reports whether the quote passes the given category filter.
func (q Quote) Matches(filter string) bool {
	return filter == AllCategories || q.Category == filter
}

// DefaultQuotes returns the built-in collection used when nothing has been
// stored yet.
func DefaultQuotes() []Quote {
	return []Quote{
		{Text: "The only way to do great work is to love what you do.", Category: "Motivation"},
		{Text: "Success is not final, failure is not fatal: it is the courage to continue that counts.", Category: "Success"},
		{Text: "Do what you can, with what you have, where you are.", Category: "Inspiration"},
	}
}

// Package filter narrows an accumulated quote list by a live search term.
package filter

import (
	"strings"

	"github.com/timmy/crafto/internal/domain"
)

// Field selects which quote attribute a term is matched against.
type Field int

const (
	Text Field = iota
	Author
)

// Apply returns the quotes whose selected fields contain term, ignoring case, in
// their original order. The term is matched as given, spaces included; only the
// empty term matches everything. With no fields given, only Text is searched.
// The result never aliases quotes.
func Apply(quotes []domain.Quote, term string, fields ...Field) []domain.Quote {
	needle := strings.ToLower(term)
	out := make([]domain.Quote, 0, len(quotes))
	if needle == "" {
		return append(out, quotes...)
	}
	if len(fields) == 0 {
		fields = []Field{Text}
	}

	for _, q := range quotes {
		if matches(q, needle, fields) {
			out = append(out, q)
		}
	}
	return out
}

// Fields returns the field set for the configured variant.
func Fields(searchAuthor bool) []Field {
	if searchAuthor {
		return []Field{Text, Author}
	}
	return []Field{Text}
}

func matches(q domain.Quote, needle string, fields []Field) bool {
	for _, f := range fields {
		var haystack string
		switch f {
		case Author:
			haystack = q.Username
		default:
			haystack = q.Text
		}
		if strings.Contains(strings.ToLower(haystack), needle) {
			return true
		}
	}
	return false
}

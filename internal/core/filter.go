package core

import (
	"regexp"
	"strings"

	"github.com/JonMunkholm/tcgen/internal/schema"
)

// Filter selects records by matching a case-insensitive pattern against every
// displayable cell. The zero Filter matches everything.
type Filter struct {
	query string
	re    *regexp.Regexp
}

// Query returns the pattern the filter was built from. Empty for the identity filter.
func (f Filter) Query() string { return f.query }

// IsIdentity reports whether the filter keeps every row.
func (f Filter) IsIdentity() bool { return f.re == nil }

// Match reports whether any cell of rec matches.
func (f Filter) Match(rec schema.StoredRecord) bool {
	if f.re == nil {
		return true
	}
	for _, cell := range rec.Cells() {
		if f.re.MatchString(cell) {
			return true
		}
	}
	return false
}

// Select returns the matching records in their original order.
func (f Filter) Select(rows []schema.StoredRecord) []schema.StoredRecord {
	out := make([]schema.StoredRecord, 0, len(rows))
	for _, r := range rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Equal reports whether two filters were built from the same pattern.
func (f Filter) Equal(other Filter) bool {
	return f.query == other.query && (f.re == nil) == (other.re == nil)
}

// ApplyFilter builds the filter for query. An empty query yields the identity
// filter. A query that is not a valid regular expression leaves previous in
// place; a plain substring is always a valid pattern.
func ApplyFilter(query string, previous Filter) Filter {
	if strings.TrimSpace(query) == "" {
		return Filter{}
	}
	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		return previous
	}
	return Filter{query: query, re: re}
}

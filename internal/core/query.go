package core

import (
	"slices"
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	SortDate        SortKey = "date"
	SortAmount      SortKey = "amount"
	SortDescription SortKey = "description"
	SortCategory    SortKey = "category"

	Asc  SortDir = "asc"
	Desc SortDir = "desc"

	// FilterAll disables the type or category filter.
	FilterAll = "all"
)

type (
	SortKey string
	SortDir string

	// Query is the table view: sort order, search and filters.
	Query struct {
		SortKey        SortKey `json:"sortKey"`
		SortDir        SortDir `json:"sortDir"`
		Search         string  `json:"search"`
		CaseSensitive  bool    `json:"caseSensitive"`
		FilterType     string  `json:"filterType"`
		FilterCategory string  `json:"filterCategory"`
	}
)

// DefaultQuery is newest first with no search or filter.
func DefaultQuery() Query {
	return Query{
		SortKey:        SortDate,
		SortDir:        Desc,
		FilterType:     FilterAll,
		FilterCategory: FilterAll,
	}
}

// ParseSortKey maps unknown keys to SortDate.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortDate, SortAmount, SortDescription, SortCategory:
		return k
	}
	return SortDate
}

// ParseSortDir maps anything but "asc" to Desc.
func ParseSortDir(s string) SortDir {
	if SortDir(strings.ToLower(strings.TrimSpace(s))) == Asc {
		return Asc
	}
	return Desc
}

// ToggleSort returns the direction to use when the user picks key: the same
// key sorted ascending flips to descending, anything else starts ascending.
func ToggleSort(cur Query, key SortKey) SortDir {
	if cur.SortKey == key && cur.SortDir == Asc {
		return Desc
	}
	return Asc
}

// Normalize fills empty fields with their defaults.
func (q Query) Normalize() Query {
	q.SortKey = ParseSortKey(string(q.SortKey))
	q.SortDir = ParseSortDir(string(q.SortDir))
	if q.FilterType == "" {
		q.FilterType = FilterAll
	}
	if q.FilterCategory == "" {
		q.FilterCategory = FilterAll
	}
	return q
}

// Matcher compiles the search of q. An invalid pattern is searched literally;
// an empty one yields nil.
func (q Query) Matcher() *regexp2.Regexp {
	if q.Search == "" {
		return nil
	}
	if re := CompileSearch(q.Search, q.CaseSensitive); re != nil {
		return re
	}
	return LiteralSearch(q.Search, q.CaseSensitive)
}

// Apply filters and sorts txs according to q. The input is not modified.
func Apply(txs []Transaction, q Query) []Transaction {
	return ApplyWith(txs, q, q.Matcher())
}

// ApplyWith is Apply with a precompiled search matcher.
func ApplyWith(txs []Transaction, q Query, re *regexp2.Regexp) []Transaction {
	q = q.Normalize()
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if q.FilterType != FilterAll && string(t.Type) != q.FilterType {
			continue
		}
		if q.FilterCategory != FilterAll && t.Category != q.FilterCategory {
			continue
		}
		if re != nil && !MatchesSearch(t, re) {
			continue
		}
		out = append(out, t)
	}

	cmp := comparator(q.SortKey)
	slices.SortStableFunc(out, func(a, b Transaction) int {
		c := cmp(a, b)
		if q.SortDir == Desc {
			return -c
		}
		return c
	})
	return out
}

// MatchesSearch reports whether re matches the description, category, date or
// amount of t.
func MatchesSearch(t Transaction, re *regexp2.Regexp) bool {
	for _, field := range []string{t.Description, t.Category, t.Date.String(), t.Amount.String()} {
		if ok, err := re.MatchString(field); err == nil && ok {
			return true
		}
	}
	return false
}

func comparator(key SortKey) func(a, b Transaction) int {
	switch key {
	case SortAmount:
		return func(a, b Transaction) int {
			switch {
			case a.Amount.Cents < b.Amount.Cents:
				return -1
			case a.Amount.Cents > b.Amount.Cents:
				return 1
			}
			return 0
		}
	case SortDescription:
		col := collate.New(language.English)
		return func(a, b Transaction) int { return col.CompareString(a.Description, b.Description) }
	case SortCategory:
		col := collate.New(language.English)
		return func(a, b Transaction) int { return col.CompareString(a.Category, b.Category) }
	default:
		return func(a, b Transaction) int { return strings.Compare(a.Date.String(), b.Date.String()) }
	}
}

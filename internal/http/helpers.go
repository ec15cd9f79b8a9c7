package http

import (
	"fmt"
	"net/url"
	"strings"

	"flowfunds/internal/core"
)

// viewParams are the query string keys that override the stored view.
var viewParams = []string{"q", "case", "type", "category", "sort", "dir"}

// queryFromValues overlays the view parameters present in values on base.
func queryFromValues(base core.Query, values url.Values) (core.Query, error) {
	q := base
	if values.Has("q") {
		q.Search = values.Get("q")
	}
	if values.Has("case") {
		q.CaseSensitive = parseBool(values.Get("case"))
	}
	if values.Has("type") {
		typ, err := parseFilterType(values.Get("type"))
		if err != nil {
			return core.Query{}, err
		}
		q.FilterType = typ
	}
	if values.Has("category") {
		q.FilterCategory = sanitizeInput(values.Get("category"))
	}
	if values.Has("sort") {
		q.SortKey = core.ParseSortKey(values.Get("sort"))
	}
	if values.Has("dir") {
		q.SortDir = core.ParseSortDir(values.Get("dir"))
	}
	return q.Normalize(), nil
}

func hasViewParams(values url.Values) bool {
	for _, k := range viewParams {
		if values.Has(k) {
			return true
		}
	}
	return false
}

func parseFilterType(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", core.FilterAll:
		return core.FilterAll, nil
	case string(core.Income), string(core.Expense):
		return s, nil
	}
	return "", fmt.Errorf("filter %q: %w", s, core.ErrInvalidType)
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

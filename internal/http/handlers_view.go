package http

import (
	"net/http"
	"strings"

	"flowfunds/internal/core"
)

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		NewJSONResponse().Body(s.tracker.View()).Write(w)

	case http.MethodPut:
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		p := NewRequestBodyParser(r)
		if resp := ParseBodyOrFail(p); resp != nil {
			resp.Write(w)
			return
		}

		q := s.tracker.View()
		if p.Has("sortKey") {
			q.SortKey = core.ParseSortKey(p.Get("sortKey"))
		}
		if p.Has("sortDir") {
			q.SortDir = core.ParseSortDir(p.Get("sortDir"))
		}
		if p.Has("search") {
			q.Search = p.Get("search")
		}
		if p.Has("caseSensitive") {
			q.CaseSensitive = p.GetBool("caseSensitive")
		}
		if p.Has("filterType") {
			typ, err := parseFilterType(p.Get("filterType"))
			if err != nil {
				ValidationError(map[string]string{"filterType": `Type must be "income", "expense" or "all".`}).Write(w)
				return
			}
			q.FilterType = typ
		}
		if p.Has("filterCategory") {
			q.FilterCategory = p.Get("filterCategory")
		}
		NewJSONResponse().Body(s.tracker.SetView(q)).Write(w)

	default:
		MethodNotAllowedError("GET, PUT").Write(w)
	}
}

func (s *Server) handleToggleSort(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	key := core.SortKey(strings.ToLower(r.PathValue("key")))
	switch key {
	case core.SortDate, core.SortAmount, core.SortDescription, core.SortCategory:
	default:
		BadRequestError("Unknown sort key").Write(w)
		return
	}
	s.tracker.ToggleSort(key)
	NewJSONResponse().Body(s.tracker.View()).Write(w)
}

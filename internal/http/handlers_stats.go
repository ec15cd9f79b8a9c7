package http

import (
	"net/http"
	"strings"

	"flowfunds/internal/core"
)

type categoriesResponse struct {
	InUse   []string `json:"inUse"`
	Income  []string `json:"income"`
	Expense []string `json:"expense"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	if typ := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type"))); typ != "" {
		t := core.TransactionType(typ)
		if !t.Valid() {
			BadRequestError(`Type must be "income" or "expense"`).Write(w)
			return
		}
		NewJSONResponse().Body(map[string]any{
			"type":       t,
			"categories": s.tracker.CategoryOptions(t),
		}).Write(w)
		return
	}
	NewJSONResponse().Body(categoriesResponse{
		InUse:   s.tracker.Categories(),
		Income:  s.tracker.CategoryOptions(core.Income),
		Expense: s.tracker.CategoryOptions(core.Expense),
	}).Write(w)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	NewJSONResponse().Body(s.tracker.Stats()).Write(w)
}

func (s *Server) handleLast7(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"days":  s.tracker.Last7Days(),
		"spend": s.tracker.Last7DaysSpend(),
	}).Write(w)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"categories": s.tracker.Breakdown(),
	}).Write(w)
}

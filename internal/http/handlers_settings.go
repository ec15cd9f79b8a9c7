package http

import (
	"net/http"

	"flowfunds/internal/core"
	"flowfunds/internal/log"
)

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		NewJSONResponse().Body(s.tracker.Settings()).Write(w)

	case http.MethodPatch:
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		p := NewRequestBodyParser(r)
		if resp := ParseBodyOrFail(p); resp != nil {
			resp.Write(w)
			return
		}
		in := core.SettingsInput{
			UserName:     p.GetPtr("userName"),
			BudgetCap:    p.GetPtr("budgetCap"),
			BaseCurrency: p.GetPtr("baseCurrency"),
			AltCurrency:  p.GetPtr("altCurrency"),
			Rate:         p.GetPtr("rate"),
			RateUSD:      p.GetPtr("rateUSD"),
			RateNGN:      p.GetPtr("rateNGN"),
			Theme:        p.GetPtr("theme"),
		}
		u, errs := in.Update()
		if errs != nil {
			ValidationError(errs).Write(w)
			return
		}
		settings, err := s.tracker.UpdateSettings(r.Context(), u)
		if err != nil {
			s.writeError(w, r, log.OpSave, err)
			return
		}
		NewJSONResponse().Body(settings).Write(w)

	default:
		MethodNotAllowedError("GET, PATCH").Write(w)
	}
}

func (s *Server) handleClearBudget(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodDelete); resp != nil {
		resp.Write(w)
		return
	}
	settings, err := s.tracker.UpdateSettings(r.Context(), core.SettingsUpdate{ClearBudgetCap: true})
	if err != nil {
		s.writeError(w, r, log.OpSave, err)
		return
	}
	NewJSONResponse().Body(settings).Write(w)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	amount, err := core.ParseAmount(r.URL.Query().Get("amount"))
	if err != nil {
		BadRequestError("Enter a valid amount to convert").Write(w)
		return
	}
	conv, err := s.tracker.Convert(amount)
	if err != nil {
		s.writeError(w, r, "convert", err)
		return
	}
	NewJSONResponse().Body(conv).Write(w)
}

package http

import (
	"net/http"

	"flowfunds/internal/core"
	"flowfunds/internal/log"
)

// transactionView is a transaction as listed, with the search matches of its
// description wrapped in <mark>.
type transactionView struct {
	core.Transaction
	HighlightedDescription string `json:"highlightedDescription"`
}

type transactionList struct {
	Transactions []transactionView `json:"transactions"`
	Count        int               `json:"count"`
	Total        int               `json:"total"`
	View         core.Query        `json:"view"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleListTransactions(w, r)
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := s.tracker.View()
	if values := r.URL.Query(); hasViewParams(values) {
		var err error
		if q, err = queryFromValues(q, values); err != nil {
			s.writeError(w, r, log.OpList, err)
			return
		}
	}

	all := s.tracker.Transactions()
	re := s.tracker.Matcher(q)
	visible := core.ApplyWith(all, q, re)
	out := transactionList{
		Transactions: make([]transactionView, 0, len(visible)),
		Count:        len(visible),
		Total:        len(all),
		View:         q,
	}
	for _, tx := range visible {
		out.Transactions = append(out.Transactions, transactionView{
			Transaction:            tx,
			HighlightedDescription: core.Highlight(tx.Description, re),
		})
	}
	NewJSONResponse().Body(out).Write(w)
}

func draftFromBody(p *RequestBodyParser) core.TransactionDraft {
	return core.TransactionDraft{
		Description: p.Get("description"),
		Amount:      p.Get("amount"),
		Date:        p.Get("date"),
		Category:    p.Get("category"),
		Type:        core.TransactionType(p.Get("type")),
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	p := NewRequestBodyParser(r)
	if resp := ParseBodyOrFail(p); resp != nil {
		resp.Write(w)
		return
	}

	tx, err := s.tracker.Create(r.Context(), draftFromBody(p))
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID).
		Body(tx).
		Write(w)
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		tx := s.tracker.Get(id)
		if tx == nil {
			NotFoundError("Transaction not found").Write(w)
			return
		}
		NewJSONResponse().Body(tx).Write(w)

	case http.MethodPut:
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		p := NewRequestBodyParser(r)
		if resp := ParseBodyOrFail(p); resp != nil {
			resp.Write(w)
			return
		}
		tx, err := s.tracker.Edit(r.Context(), id, draftFromBody(p))
		if err != nil {
			s.writeError(w, r, log.OpUpdate, err)
			return
		}
		NewJSONResponse().Body(tx).Write(w)

	case http.MethodDelete:
		ok, err := s.tracker.Delete(r.Context(), id)
		if !ok {
			NotFoundError("Transaction not found").Write(w)
			return
		}
		if err != nil {
			s.writeError(w, r, log.OpDelete, err)
			return
		}
		NewJSONResponse().Status(http.StatusNoContent).Write(w)

	default:
		MethodNotAllowedError("GET, PUT, DELETE").Write(w)
	}
}

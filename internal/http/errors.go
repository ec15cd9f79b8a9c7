package http

import (
	"errors"
	"net/http"

	"flowfunds/internal/backup"
	"flowfunds/internal/core"
	"flowfunds/internal/log"
	"flowfunds/internal/middleware/trace"
	"flowfunds/internal/services"
)

// writeError maps err to a status code and writes it. Unexpected errors are
// logged and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		fields core.FieldErrors
		ie     *backup.ImportError
	)
	switch {
	case errors.As(err, &fields):
		ValidationError(fields).Write(w)
	case errors.As(err, &ie):
		UnprocessableEntityError(ie.Error()).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("Transaction not found").Write(w)
	case errors.Is(err, services.ErrDuplicateID):
		UnprocessableEntityError("A transaction with this id already exists").Write(w)
	case errors.Is(err, core.ErrRateNotSet):
		UnprocessableEntityError("Set a conversion rate in settings first").Write(w)
	case errors.Is(err, core.ErrUnknownCurrency):
		UnprocessableEntityError("Unknown currency code").Write(w)
	case errors.Is(err, core.ErrInvalidType):
		BadRequestError(`Type must be "income", "expense" or "all"`).Write(w)
	case errors.Is(err, core.ErrInvalidAmount):
		BadRequestError("Invalid amount").Write(w)
	case errors.Is(err, core.ErrInvalidDate):
		BadRequestError("Invalid date").Write(w)
	default:
		s.audit.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op,
			log.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
		InternalServerError("Internal server error").Write(w)
	}
}

package http

import (
	"errors"
	"io"
	"net/http"

	"flowfunds/internal/backup"
	"flowfunds/internal/log"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	payload := s.tracker.Export()
	data, err := backup.Encode(payload)
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	NewJSONResponse().
		Header("Content-Disposition", `attachment; filename="`+backup.FileName(s.tracker.Now())+`"`).
		Raw(data).
		Write(w)
}

type importResponse struct {
	Imported int `json:"imported"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "Import file too large").Write(w)
			return
		}
		BadRequestError("Invalid request body").Write(w)
		return
	}

	n, err := s.tracker.Import(r.Context(), data)
	if err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	NewJSONResponse().Body(importResponse{Imported: n}).Write(w)
}

func (s *Server) handleClearData(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodDelete); resp != nil {
		resp.Write(w)
		return
	}
	if err := s.tracker.ClearAll(r.Context()); err != nil {
		s.writeError(w, r, log.OpClear, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

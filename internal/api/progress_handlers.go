package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwellapp/inkwell-server/internal/http/response"
	"github.com/inkwellapp/inkwell-server/internal/library"
	"github.com/inkwellapp/inkwell-server/internal/progress"
)

// handleGetProgress returns the saved reading position for a document.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !library.ValidID(id) {
		response.BadRequest(w, "invalid document id", s.logger)
		return
	}

	pos, err := s.service.GetProgress(id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, pos, s.logger)
}

// handleSetProgress saves a reading position.
func (s *Server) handleSetProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !library.ValidID(id) {
		response.BadRequest(w, "invalid document id", s.logger)
		return
	}

	var pos progress.Position
	if err := json.UnmarshalRead(r.Body, &pos); err != nil {
		response.BadRequest(w, "invalid JSON body", s.logger)
		return
	}

	if err := s.service.SetProgress(id, pos); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	// Echo the stored position so clients see the server timestamp.
	stored, err := s.service.GetProgress(id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, stored, s.logger)
}

// handleClearProgress deletes the saved reading position.
func (s *Server) handleClearProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !library.ValidID(id) {
		response.BadRequest(w, "invalid document id", s.logger)
		return
	}

	if err := s.service.ClearProgress(id); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

package api

import (
	"net/http"
	"strconv"

	"github.com/inkwellapp/inkwell-server/internal/http/response"
	"github.com/inkwellapp/inkwell-server/internal/search"
)

const maxSearchLimit = 100

// handleSearch runs a full-text query over indexed chapter text.
//
// Query parameters:
//
//	q      - the query string (required)
//	doc    - restrict hits to one document id
//	limit  - max hits to return (default 20, cap 100)
//	offset - pagination offset
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		response.BadRequest(w, "query parameter \"q\" is required", s.logger)
		return
	}

	params := search.DefaultParams()
	params.Query = q
	params.DocID = r.URL.Query().Get("doc")

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			response.BadRequest(w, "limit must be a positive integer", s.logger)
			return
		}
		if limit > maxSearchLimit {
			limit = maxSearchLimit
		}
		params.Limit = limit
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			response.BadRequest(w, "offset must be a non-negative integer", s.logger)
			return
		}
		params.Offset = offset
	}

	result, err := s.service.Search(r.Context(), params)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, result, s.logger)
}

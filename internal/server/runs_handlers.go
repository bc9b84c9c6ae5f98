package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/quantum-portfolio/internal/domain"
)

// handleListRuns handles GET /api/runs?limit=
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidParameter))
			return
		}
		limit = parsed
	}

	recs, err := s.cfg.Runs.List(limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeData(w, http.StatusOK, recs, map[string]interface{}{
		"count": len(recs),
	})
}

// handleGetRun handles GET /api/runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.cfg.Runs.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeData(w, http.StatusOK, rec, nil)
}

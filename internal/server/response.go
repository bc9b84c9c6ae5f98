package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/aristath/quantum-portfolio/internal/modules/pipeline"
)

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeData wraps data in the {"data", "metadata"} envelope
func (s *Server) writeData(w http.ResponseWriter, status int, data interface{}, metadata map[string]interface{}) {
	if metadata == nil {
		metadata = make(map[string]interface{}, 1)
	}
	metadata["timestamp"] = time.Now().Format(time.RFC3339)

	s.writeJSON(w, status, map[string]interface{}{
		"data":     data,
		"metadata": metadata,
	})
}

// writeError maps an error to its status code and writes it
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)

	metadata := map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		metadata["stage"] = stageErr.Stage
		if stageErr.Backend != "" {
			metadata["backend"] = stageErr.Backend
		}
	}

	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		s.log.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	s.writeJSON(w, status, map[string]interface{}{
		"error":    err.Error(),
		"metadata": metadata,
	})
}

func statusFor(err error) int {
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		if stageErr.Stage == pipeline.StageDataRetrieval {
			return http.StatusBadGateway
		}
		return http.StatusUnprocessableEntity
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDataRetrieval):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrOptimization), errors.Is(err, domain.ErrInvalidAllocation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/aristath/quantum-portfolio/internal/modules/pipeline"
	"github.com/aristath/quantum-portfolio/internal/modules/runs"
)

// OptimizeRequest is the body of POST /api/portfolios/optimize
type OptimizeRequest struct {
	Assets        []string `json:"assets"`
	Mode          string   `json:"mode,omitempty"`
	FailurePolicy string   `json:"failure_policy,omitempty"`
}

// handleOptimize handles POST /api/portfolios/optimize
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidParameter, err))
		return
	}
	if len(req.Assets) == 0 {
		s.writeError(w, fmt.Errorf("%w: assets are required", domain.ErrInvalidParameter))
		return
	}

	mode, err := pipeline.ParseMode(req.Mode, "")
	if err != nil {
		s.writeError(w, err)
		return
	}
	policy, err := pipeline.ParseFailurePolicy(req.FailurePolicy, "")
	if err != nil {
		s.writeError(w, err)
		return
	}

	report, err := s.cfg.Optimizer.Run(r.Context(), req.Assets, runs.RunOptions{
		Mode:   mode,
		Policy: policy,
		Source: runs.SourceAPI,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeData(w, http.StatusOK, report, map[string]interface{}{
		"run_id":       report.RunID,
		"mode":         report.Mode,
		"generated_at": report.GeneratedAt,
	})
}

// handlePriceHistory handles GET /api/portfolios/history/{symbol}?period=
func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	symbol := domain.NormalizeAssetID(chi.URLParam(r, "symbol"))
	if symbol == "" {
		s.writeError(w, fmt.Errorf("%w: symbol is required", domain.ErrInvalidParameter))
		return
	}
	period := strings.TrimSpace(r.URL.Query().Get("period"))

	points, err := s.cfg.Prices.FetchPriceHistory(r.Context(), symbol, period)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", domain.ErrDataRetrieval, err))
		return
	}
	if len(points) == 0 {
		s.writeError(w, fmt.Errorf("%w: no price history for %s", domain.ErrNotFound, symbol))
		return
	}

	s.writeData(w, http.StatusOK, points, map[string]interface{}{
		"symbol": symbol,
		"period": period,
		"count":  len(points),
	})
}

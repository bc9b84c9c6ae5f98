package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status           string  `json:"status"`
	Version          string  `json:"version"`
	UptimeSeconds    int64   `json:"uptime_seconds"`
	CPUPercent       float64 `json:"cpu_percent"`
	MemoryPercent    float64 `json:"memory_percent"`
	Goroutines       int     `json:"goroutines"`
	EventSubscribers int     `json:"event_subscribers"`
	Database         string  `json:"database"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if err := s.checkDatabase(r.Context()); err != nil {
		s.log.Warn().Err(err).Msg("Health check failed")
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status":  status,
		"version": s.cfg.Version,
		"service": "quantum-portfolio",
	})
}

// handleSystemStatus returns process and host status
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := s.getSystemStats()

	response := SystemStatusResponse{
		Status:        "ok",
		Version:       s.cfg.Version,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		Database:      "ok",
	}
	if s.cfg.Bus != nil {
		response.EventSubscribers = s.cfg.Bus.SubscriberCount()
	}
	if err := s.checkDatabase(r.Context()); err != nil {
		response.Status = "degraded"
		response.Database = err.Error()
	}

	s.writeData(w, http.StatusOK, response, nil)
}

func (s *Server) checkDatabase(ctx context.Context) error {
	if s.cfg.Database == nil {
		return nil
	}
	return s.cfg.Database.HealthCheck(ctx)
}

// getSystemStats samples CPU over 100ms and reads memory usage
func (s *Server) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

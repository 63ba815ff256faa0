package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/iconidentify/vidgrab/internal/service"
)

var startTime = time.Now()

// ReadinessCheck is one dependency the server needs before taking traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// MediaStatsProvider reports media service activity.
type MediaStatsProvider interface {
	Stats(ctx context.Context) (*service.MediaStats, error)
}

// EventStatsProvider reports activity log state.
type EventStatsProvider interface {
	Stats() service.EventStats
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	checks []ReadinessCheck
	media  MediaStatsProvider
	events EventStatsProvider
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(media MediaStatsProvider, events EventStatsProvider, logger *slog.Logger, checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{
		checks: checks,
		media:  media,
		events: events,
		logger: logger,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness probe.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]string, len(h.checks)),
	}
	status := http.StatusOK

	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.logger.Warn("readiness check failed", "check", c.Name, "error", err)
			resp.Checks[c.Name] = err.Error()
			resp.Status = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}

	writeHealth(w, status, resp)
}

// SystemStats contains process and service statistics.
type SystemStats struct {
	Uptime        int64               `json:"uptime_seconds"`
	UptimeHuman   string              `json:"uptime_human"`
	MemAllocMB    int64               `json:"mem_alloc_mb"`
	MemSysMB      int64               `json:"mem_sys_mb"`
	MemHeapMB     int64               `json:"mem_heap_mb"`
	NumGoroutines int                 `json:"num_goroutines"`
	NumCPU        int                 `json:"num_cpu"`
	CPUPercent    float64             `json:"cpu_percent"`
	Media         *service.MediaStats `json:"media,omitempty"`
	Events        service.EventStats  `json:"events"`
}

// Stats handles GET /api/v1/stats - system statistics.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime)

	stats := SystemStats{
		Uptime:        int64(uptime.Seconds()),
		UptimeHuman:   formatUptime(uptime),
		MemAllocMB:    int64(m.Alloc / 1024 / 1024),
		MemSysMB:      int64(m.Sys / 1024 / 1024),
		MemHeapMB:     int64(m.HeapAlloc / 1024 / 1024),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		CPUPercent:    getCPUUsage(),
		Events:        h.events.Stats(),
	}

	media, err := h.media.Stats(r.Context())
	if err != nil {
		h.logger.Warn("failed to read media stats", "error", err)
	} else {
		stats.Media = media
	}

	writeHealth(w, http.StatusOK, stats)
}

func writeHealth(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

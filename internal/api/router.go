package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/vidgrab/internal/api/handler"
	mw "github.com/iconidentify/vidgrab/internal/api/middleware"
	"github.com/iconidentify/vidgrab/internal/config"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Media  *handler.MediaHandler
	Events *handler.EventHandler
	Health *handler.HealthHandler
	UI     *handler.UIHandler
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(h Handlers, cfg config.ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.CORS)

	// Health endpoints (no auth)
	r.Get("/health", h.Health.Live)
	r.Get("/ready", h.Health.Ready)

	// Web UI (no auth - the page sends the API key itself)
	r.Get("/", h.UI.Index)
	r.Get("/activity", h.UI.Activity)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.APIKey != "" {
			r.Use(mw.APIKeyAuth(cfg.APIKey))
		}

		// Probes and downloads start yt-dlp; limit them per client.
		var limited []func(http.Handler) http.Handler
		if cfg.RateLimit > 0 {
			limited = append(limited, mw.NewRateLimiter(cfg.RateLimit, cfg.RateBurst).Middleware)
		}

		// Streams and file transfers stay open as long as they need.
		r.With(limited...).Get("/downloads/stream", h.Media.Stream)
		r.Get("/downloads/{token}", h.Media.File)
		r.Get("/events/stream", h.Events.Stream)

		r.With(append(limited, middleware.Timeout(5*time.Minute))...).Post("/formats", h.Media.Formats)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(time.Minute))

			r.Post("/classify", h.Media.Classify)
			r.Get("/stats", h.Health.Stats)
			r.Get("/events", h.Events.List)
		})
	})

	return r
}

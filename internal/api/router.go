// Package api provides HTTP router setup.
package api

import (
	"net/http"

	"github.com/factchecker/veritas/internal/analysis"
	"github.com/factchecker/veritas/internal/auth"
	"github.com/factchecker/veritas/internal/config"
	"github.com/factchecker/veritas/internal/history"
	"github.com/factchecker/veritas/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services are the components the API exposes.
type Services struct {
	Orchestrator *analysis.Orchestrator
	History      *history.Store
	Stats        *stats.Tracker
	Sessions     *auth.Manager
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(cfg *config.Config, svc Services) http.Handler {
	r := chi.NewRouter()

	handler := NewHandler(svc, cfg.Analysis.MaxUploadBytes)

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)

		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(cfg.RateLimits.RequestsPerMinute))
			r.Post("/auth/login", handler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(svc.Sessions))
			r.Use(RateLimitMiddleware(cfg.RateLimits.RequestsPerMinute))

			r.With(RequireSession).Post("/auth/logout", handler.Logout)
			r.Get("/stats", handler.GetStats)
			r.Get("/dashboard/hints", handler.InputHints)

			r.Group(func(r chi.Router) {
				if cfg.Auth.Required {
					r.Use(RequireSession)
				}

				r.Post("/analyze/{modality}", handler.Analyze)
				r.Delete("/analyze", handler.AbandonAnalysis)
				r.Get("/dashboard/recent", handler.RecentResults)

				r.Route("/history", func(r chi.Router) {
					r.Get("/", handler.ListHistory)
					r.Delete("/", handler.ClearHistory)
					r.Get("/summary", handler.HistorySummary)
					r.Get("/export", handler.ExportHistory)
					r.Post("/import", handler.ImportHistory)
				})
			})
		})
	})

	if cfg.Server.EnableUI {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Veritas - Misinformation Detection</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #2563eb; }
        code { background: #f1f5f9; padding: 2px 6px; border-radius: 4px; }
        .endpoint { margin: 10px 0; }
    </style>
</head>
<body>
    <h1>Veritas API</h1>
    <p>Submit text, audio or video for analysis. Use the API endpoints below:</p>

    <h2>Endpoints</h2>
    <div class="endpoint"><code>GET /api/v1/health</code> - Health check</div>
    <div class="endpoint"><code>POST /api/v1/analyze/{text|audio|video}</code> - Analyze content (JSON or multipart <code>file</code>)</div>
    <div class="endpoint"><code>DELETE /api/v1/analyze</code> - Abandon the pending analysis</div>
    <div class="endpoint"><code>GET /api/v1/dashboard/recent</code> - Latest results</div>
    <div class="endpoint"><code>GET /api/v1/history?search=&amp;type=&amp;result=</code> - Search history</div>
    <div class="endpoint"><code>GET /api/v1/history/summary</code> - History summary</div>
    <div class="endpoint"><code>GET /api/v1/history/export</code> - Download history</div>
    <div class="endpoint"><code>POST /api/v1/history/import</code> - Restore history</div>
    <div class="endpoint"><code>GET /api/v1/stats</code> - Aggregate stats</div>

    <h2>Sessions</h2>
    <p><code>POST /api/v1/auth/login</code> with body <code>{"token": "...", "user": "..."}</code>,
    then send <code>Authorization: Bearer your-token</code>.</p>
</body>
</html>`))
		})
	}

	return r
}

package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/linkpulse/pkg/config"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

// Services is everything the router dispatches to.
type Services struct {
	Links     ports.LinkService
	Tracking  ports.TrackingService
	Analytics ports.AnalyticsService
	Auth      ports.AuthService
	Ping      func(ctx context.Context) error
}

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, svc Services) http.Handler {
	h := NewHTTPHandler(svc.Links)
	ah := NewAnalyticsHandler(svc.Tracking, svc.Analytics)
	authHandler := NewAuthHandler(cfg, svc.Auth)

	mw := NewMiddleware(cfg, svc.Auth)
	loginLimiter := NewRateLimiter(cfg.LoginRatePerSec, cfg.LoginRateBurst)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ping != nil {
			if err := svc.Ping(r.Context()); err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("Health check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "storage unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})

	// Auth
	mux.Handle("POST /api/auth/login", loginLimiter.Limit(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("GET /api/auth/check", authHandler.Check)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	if cfg.GoogleEnabled() {
		mux.HandleFunc("GET /auth/google/login", authHandler.GoogleLogin)
		mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleCallback)
	}

	// Links
	mux.HandleFunc("GET /api/links", h.List)
	mux.HandleFunc("POST /api/links", h.Create)
	mux.HandleFunc("PUT /api/links/{id}", h.Update)
	mux.HandleFunc("DELETE /api/links/{id}", h.Delete)
	mux.HandleFunc("POST /api/links/{id}/click", h.Click)

	// Analytics
	mux.HandleFunc("POST /api/analytics/pageview", ah.PageView)
	mux.HandleFunc("GET /api/analytics", ah.Report)

	// Admin checks live in the services, so every route gets the soft auth pass.
	return mw.RequestLogger(mw.CORS(mw.AuthMiddleware(mux)))
}

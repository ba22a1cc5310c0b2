// Package httptransport wires the chi router: middleware chain, public auth
// endpoints, and the protected data surface.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rosterd/internal/platform/middleware"
	"rosterd/pkg/platform/httputil"
)

// RouterConfig carries everything the router needs from main.
type RouterConfig struct {
	Logger    *slog.Logger
	Auth      AuthService
	Directory DirectoryService
	Verifier  middleware.TokenVerifier
	Cookies   httputil.CookieWriter

	RefreshTokenTTL time.Duration
	RequestTimeout  time.Duration
}

// NewRouter assembles the full HTTP surface.
func NewRouter(cfg RouterConfig) chi.Router {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Latency)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	authHandler := NewAuthHandler(cfg.Auth, cfg.Cookies, cfg.RefreshTokenTTL, cfg.Logger)
	authHandler.Register(r)

	dataHandler := NewDataHandler(cfg.Directory)
	r.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth(cfg.Verifier, cfg.Logger))
		protected.Get("/data", dataHandler.handleMembers)
	})

	return r
}

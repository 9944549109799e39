package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/outpost9/accountd/internal/http/features/principals"
	"github.com/outpost9/accountd/internal/http/middleware"
	"github.com/outpost9/accountd/internal/httputil"
	"github.com/outpost9/accountd/pkg/auth"
	"github.com/outpost9/accountd/pkg/domain"
)

const maxRequestBodySize = 1 << 20 // 1 MiB

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger         *slog.Logger
	Service        *auth.Service
	Store          auth.PrincipalStore
	Tokens         *auth.TokenService
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// NewRouter creates the HTTP router with both principal route groups
// registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.RequestSizeLimit(maxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	rateLimit := middleware.NoRateLimit()
	if cfg.AuthRateLimit > 0 {
		rateLimit = middleware.RateLimit(middleware.RateLimitConfig{
			Requests: cfg.AuthRateLimit,
			Window:   cfg.AuthRateWindow,
			Logger:   cfg.Logger,
		})
	}

	userHandler := principals.NewHandler(cfg.Logger, domain.KindUser, cfg.Service, cfg.Store, cfg.Tokens)
	adminHandler := principals.NewHandler(cfg.Logger, domain.KindAdmin, cfg.Service, cfg.Store, cfg.Tokens)

	r.Mount("/v1/user-auth", userHandler.Routes(rateLimit))
	r.Mount("/v1/admin-auth", adminHandler.Routes(rateLimit))

	return r
}

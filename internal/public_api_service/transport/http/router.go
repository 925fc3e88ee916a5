package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/pixbank/golang_services/internal/public_api_service/middleware"
	"github.com/pixbank/golang_services/internal/user_service/domain"
)

const requestTimeout = 60 * time.Second

type Handlers struct {
	Auth   *AuthHandler
	Ledger *LedgerHandler
	Admin  *AdminHandler
}

// NewRouter builds the public API: /healthz, the unauthenticated auth and webhook routes,
// the customer routes behind AuthMiddleware and the admin routes behind RequireRole(admin).
func NewRouter(h Handlers, tokens middleware.TokenValidator, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestMeta)
	r.Use(httpLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(PrometheusMetricsMiddleware)
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(r.Context(), logger, w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authMW := middleware.AuthMiddleware(tokens, logger)

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", h.Auth.RegisterRoutes)
		api.Route("/webhooks", h.Ledger.RegisterWebhookRoutes)

		api.Group(func(protected chi.Router) {
			protected.Use(authMW)
			h.Auth.RegisterProtectedRoutes(protected)
			h.Ledger.RegisterRoutes(protected)

			protected.Route("/admin", func(admin chi.Router) {
				admin.Use(middleware.RequireRole(domain.RoleAdmin, logger))
				h.Admin.RegisterRoutes(admin)
			})
		})
	})
	return r
}

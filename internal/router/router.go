package router

import (
	"net/http"

	"github.com/askarbek/auth-service/internal/handler"
	custommw "github.com/askarbek/auth-service/internal/middleware"
	"github.com/askarbek/auth-service/internal/platform/logger"
	"github.com/askarbek/auth-service/internal/platform/metrics"
	"github.com/askarbek/auth-service/internal/token"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// New assembles the HTTP routes for the auth service.
func New(
	authHandler *handler.AuthHandler,
	issuer *token.Issuer,
	mm *metrics.MetricsManager,
	log *logger.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(custommw.RequestLogger(log))
	r.Use(custommw.RequestMetrics(mm))

	r.Get("/healthz", authHandler.Healthz)

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Get("/verify/{token}", authHandler.Verify)
		r.Post("/login", authHandler.Login)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password/{token}", authHandler.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(custommw.SessionGuard(issuer, log))
			r.Get("/me", authHandler.Me)
			r.Post("/logout", authHandler.Logout)
		})
	})

	return r
}

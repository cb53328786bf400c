// Package server wires the HTTP surface of the auth service: router,
// middleware chain and the http.Server itself.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/andsokolov/taskdeck/internal/server/handlers"
	"github.com/andsokolov/taskdeck/internal/server/middleware"
	"github.com/andsokolov/taskdeck/internal/token"
)

// Лимиты запросов: общий и жесткий для credential endpoints
const (
	defaultRateLimit   = 300
	defaultRateWindow  = time.Minute
	authRateLimit      = 30
	authRateWindow     = 5 * time.Minute
	readHeaderTimeout  = 5 * time.Second
	shutdownIdleWindow = 60 * time.Second
)

// Router строит chi router со всеми маршрутами и middleware.
// Возвращает также функцию остановки фоновых ресурсов (rate limiters).
func Router(logger *slog.Logger, issuer *token.Issuer, authHandler *handlers.AuthHandler, healthHandler *handlers.HealthHandler) (http.Handler, func()) {
	generalLimiter := middleware.NewRateLimiter(defaultRateLimit, defaultRateWindow, logger)
	// Отдельный, более жесткий лимит на register/login/refresh:
	// именно эти пути брутфорсят
	authLimiter := middleware.NewRateLimiter(authRateLimit, authRateWindow, logger)

	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.LoggingWithSkip(logger, []string{"/api/v1/health"}))
	r.Use(middleware.RateLimitMiddleware(generalLimiter, logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)

		r.Route("/auth", func(r chi.Router) {
			// Публичные endpoints с жестким лимитом
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitMiddleware(authLimiter, logger))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/refresh", authHandler.Refresh)
			})

			// Endpoints, требующие валидный access token
			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthMiddleware(logger, issuer))
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
			})
		})
	})

	stop := func() {
		generalLimiter.Stop()
		authLimiter.Stop()
	}

	return r, stop
}

// New создает http.Server с настроенными таймаутами
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       shutdownIdleWindow,
	}
}

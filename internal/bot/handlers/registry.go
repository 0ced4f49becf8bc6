package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/edgard/memebot/internal/logger"
)

// NewRouter builds the HTTP routes:
//
//	POST /        GroupMe bot callback
//	GET  /healthz store ping
//	GET  /metrics Prometheus metrics
func NewRouter(deps HandlerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(deps.Logger))
	r.Use(middleware.Recoverer)

	r.With(LimitBody(maxCallbackBytes)).Post("/", NewWebhookHandler(deps))
	r.Get("/healthz", NewHealthHandler(deps))
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	return r
}

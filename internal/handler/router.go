package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"safelink-service/config"
	"safelink-service/internal/middleware"
)

// NewRouter はルーターを生成する。
func NewRouter(h *LinkHandler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// ミドルウェア
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	// ルート定義
	r.Route("/v1/links", func(r chi.Router) {
		r.Post("/", h.CreateLink)
		r.Post("/redirect", h.RedirectLink)
		r.Get("/events", h.ListEvents)
		r.With(middleware.RequireSignedLink(h.service)).Get("/verify", h.VerifyLink)
	})

	if cfg != nil && cfg.OtelEnabled {
		return otelhttp.NewHandler(r, cfg.OtelServiceName)
	}
	return r
}

// Package http assembles the service's HTTP surface.
package http

import (
	"log/slog"
	nethttp "net/http"

	"github.com/gorilla/mux"

	"github.com/preston-bernstein/matchday-service/internal/http/handlers"
	"github.com/preston-bernstein/matchday-service/internal/http/middleware"
	"github.com/preston-bernstein/matchday-service/internal/metrics"
)

// NewRouter registers the HTTP routes and wraps them with logging, metrics
// and panic recovery.
func NewRouter(h *handlers.Handler, logger *slog.Logger, recorder *metrics.Recorder) nethttp.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods(nethttp.MethodGet)
	r.HandleFunc("/ready", h.Ready).Methods(nethttp.MethodGet)
	r.HandleFunc("/window", h.Window).Methods(nethttp.MethodGet)
	r.HandleFunc("/selection", h.Selection).Methods(nethttp.MethodGet)
	r.HandleFunc("/selection/events", h.SelectionEvents).Methods(nethttp.MethodGet)
	r.HandleFunc("/selection/refresh", h.Refresh).Methods(nethttp.MethodPost)
	r.HandleFunc("/selection/retry", h.Retry).Methods(nethttp.MethodPost)
	r.HandleFunc("/selection/{date}", h.SelectDate).Methods(nethttp.MethodPut)
	r.HandleFunc("/matches/{date}", h.Matches).Methods(nethttp.MethodGet)
	r.Use(middleware.Logging(logger, recorder))

	return middleware.Recovery(logger)(r)
}

// Package server assembles the clientd HTTP application from configuration:
// store, blob store, service, export worker, router and metrics.
package server

import (
	"clientcore/internal/adapters/clients"
	"clientcore/internal/adapters/exports"
	"clientcore/internal/core"
	"clientcore/internal/openapi"
	"expvar"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps are the collaborators mounted by NewRouter. Exports and Gatherer
// are optional; their routes are omitted when nil. Expvar mounts /debug/vars.
type RouterDeps struct {
	Clients  clients.Service
	Exports  exports.Scheduler
	Logger   core.Logger
	Gatherer prometheus.Gatherer
	Expvar   bool
}

// NewRouter builds the chi router serving every public endpoint.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(clients.AccessLog(d.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/v1/openapi.yaml", openapi.NewHandler())
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	if d.Expvar {
		r.Method(http.MethodGet, "/debug/vars", expvar.Handler())
	}

	clients.NewHandler(d.Clients, d.Logger).Routes(r)
	if d.Exports != nil {
		exports.NewHandler(d.Exports).Routes(r)
	}
	return r
}

package server

import (
	"clientcore/internal/adapters/exports"
	"clientcore/internal/blob"
	"clientcore/internal/config"
	"clientcore/internal/core"
	"clientcore/internal/logging"
	"clientcore/pkg/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// traceOutput receives JSON spans when log.trace_spans is set.
var traceOutput io.Writer = os.Stderr

// App owns every long-lived component of a running server.
type App struct {
	cfg      config.Config
	logger   *logging.Logger
	store    domain.PersistentStore
	blobs    blob.Store
	service  *core.Service
	worker   *exports.Worker
	registry *prometheus.Registry
	handler  http.Handler
}

// New wires an App from cfg. Callers must Close it when Serve is not used.
func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	store, err := core.OpenPersistentStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open client store: %w", err)
	}
	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	opts := []core.Option{
		core.WithLogger(logger.Named("core")),
		core.WithAuditRecorder(core.NewLogAuditRecorder(logger.Named("audit"))),
	}
	var (
		registry  *prometheus.Registry
		recorders core.MultiMetricsRecorder
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder, err := core.NewPrometheusMetricsRecorder(cfg.Metrics.Namespace, registry)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		recorders = append(recorders, recorder)
	}
	if cfg.Metrics.Expvar {
		recorders = append(recorders, core.NewExpvarMetricsRecorder(""))
	}
	if len(recorders) > 0 {
		opts = append(opts, core.WithMetricsRecorder(recorders))
	}
	if cfg.Log.TraceSpans {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(traceOutput)))
	}
	service := core.NewService(store, opts...)

	worker := exports.NewWorker(service, blobs, exports.Options{
		QueueSize: cfg.Exports.QueueSize,
		Attempts:  cfg.Exports.Attempts,
		KeyPrefix: cfg.Exports.KeyPrefix,
		Retain:    cfg.Exports.Retain,
		Logger:    logger.Named("exports"),
	})

	app := &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		blobs:    blobs,
		service:  service,
		worker:   worker,
		registry: registry,
	}
	deps := RouterDeps{Clients: service, Exports: worker, Logger: logger.Named("http"), Expvar: cfg.Metrics.Expvar}
	if registry != nil {
		deps.Gatherer = registry
	}
	app.handler = NewRouter(deps)
	return app, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Service returns the client service.
func (a *App) Service() *core.Service { return a.service }

// ListenAndServe listens on the configured address and serves until ctx ends.
func (a *App) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		_ = a.Close(ctx)
		return fmt.Errorf("listen %s: %w", a.cfg.HTTP.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve starts the export worker and serves HTTP on ln. When ctx is cancelled
// the server drains within the shutdown timeout and every component is closed.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      a.handler,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
	}
	a.worker.Start()
	a.logger.Info("clientd listening", "addr", ln.Addr().String(), "storage", a.store.Driver(), "blob", string(a.blobs.Driver()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		a.logger.Info("clientd shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("shutdown http: %w", err)
	}
	if err := a.Close(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

// Close stops the export worker and releases the client store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.worker.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop export worker: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close client store: %w", err))
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

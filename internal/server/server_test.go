package server

import (
	"bytes"
	"clientcore/internal/config"
	"clientcore/internal/logging"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	app, err := New(context.Background(), cfg, logging.Test(t))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app
}

func TestRouterServesClientLifecycleAndMetrics(t *testing.T) {
	app := newTestApp(t, nil)
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	h := app.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/clients",
		strings.NewReader(`{"firstName":"Dewald","lastName":"Pretorius","idNumber":"9607104800084"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/clients/1", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected json record, got %d %v", rec.Code, rec.Header())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, `clientcore_operations_total{operation="create_client",status="success"} 1`) {
		t.Fatalf("expected operation counter in metrics output, got %d\n%s", rec.Code, body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go collector metrics")
	}
}

func TestServerWritesAuditLines(t *testing.T) {
	logger, logs := logging.TestObserved(t, zapcore.InfoLevel)
	app, err := New(context.Background(), config.Default(), logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/clients",
		strings.NewReader(`{"firstName":"Dewald","lastName":"Pretorius","idNumber":"9607104800084"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}

	entries := logs.FilterLoggerName("audit").FilterMessage("audit").All()
	if len(entries) != 1 {
		t.Fatalf("expected one audit line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	after, _ := fields["after"].(string)
	if fields["operation"] != "create_client" || fields["entity_id"] != "1" || !strings.Contains(after, `"idNumber":"9607104800084"`) {
		t.Fatalf("unexpected audit fields %v", fields)
	}
}

func TestRouterOptionalEndpoints(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.Metrics.Enabled = false })
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	cases := []struct {
		path   string
		status int
		want   string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/v1/openapi.yaml", http.StatusOK, "title: Client REST API"},
		{"/metrics", http.StatusNotFound, ""},
		{"/debug/vars", http.StatusNotFound, ""},
		{"/v1/exports/unknown", http.StatusNotFound, "export not found"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.status || !strings.Contains(rec.Body.String(), tc.want) {
			t.Fatalf("%s: expected %d containing %q, got %d %s", tc.path, tc.status, tc.want, rec.Code, rec.Body.String())
		}
	}
}

func TestExpvarAndTraceSpans(t *testing.T) {
	var spans bytes.Buffer
	prev := traceOutput
	traceOutput = &spans
	t.Cleanup(func() { traceOutput = prev })

	app := newTestApp(t, func(c *config.Config) {
		c.Metrics.Enabled = false
		c.Metrics.Expvar = true
		c.Log.TraceSpans = true
	})
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	h := app.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/clients/7", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(spans.String(), `"operation":"find_client"`) || !strings.Contains(spans.String(), `"status":"error"`) ||
		!strings.Contains(spans.String(), `"request_id":"`) {
		t.Fatalf("expected find span, got %q", spans.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "clientcore_service_metrics_") {
		t.Fatalf("expected expvar recorder in /debug/vars, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"find_client:error": 1`) {
		t.Fatalf("expected find_client error count, got %s", rec.Body.String())
	}
}

func TestNewRejectsUnknownDrivers(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "oracle"
	if _, err := New(context.Background(), cfg, nil); err == nil || !strings.Contains(err.Error(), "open client store") {
		t.Fatalf("expected store error, got %v", err)
	}
	cfg = config.Default()
	cfg.Blob.Driver = "ftp"
	if _, err := New(context.Background(), cfg, nil); err == nil || !strings.Contains(err.Error(), "open blob store") {
		t.Fatalf("expected blob error, got %v", err)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) {
		c.Storage.Driver = "sqlite"
		c.HTTP.ShutdownTimeout = 2 * time.Second
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		cancel()
		t.Fatalf("get healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
	}
}

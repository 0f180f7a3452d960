package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.HTTP != want.HTTP || cfg.Storage != want.Storage || cfg.Log != want.Log {
		t.Fatalf("expected defaults %+v, got %+v", want, cfg)
	}
	if cfg.Blob.Driver != "memory" || cfg.Exports.Attempts != 3 || !cfg.Metrics.Enabled {
		t.Fatalf("unexpected blob/exports/metrics defaults: %+v", cfg)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("CLIENTCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("CLIENTCORE_STORAGE_SQLITE_PATH", "/tmp/clients.db")
	t.Setenv("CLIENTCORE_HTTP_ADDR", ":9090")
	t.Setenv("CLIENTCORE_HTTP_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("CLIENTCORE_LOG_LEVEL", "debug")
	t.Setenv("CLIENTCORE_LOG_TRACE_SPANS", "true")
	t.Setenv("CLIENTCORE_METRICS_EXPVAR", "true")

	cfg, err := Load(NewViper(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "/tmp/clients.db" {
		t.Fatalf("expected sqlite storage from env, got %+v", cfg.Storage)
	}
	if cfg.HTTP.Addr != ":9090" || cfg.HTTP.ShutdownTimeout != 3*time.Second {
		t.Fatalf("expected http overrides, got %+v", cfg.HTTP)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.TraceSpans || !cfg.Metrics.Expvar {
		t.Fatalf("expected log and metrics overrides, got %+v %+v", cfg.Log, cfg.Metrics)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clientd.yaml")
	doc := `http:
  addr: "127.0.0.1:7000"
storage:
  driver: postgres
  postgres_dsn: postgres://localhost/clients
blob:
  driver: fs
  fs_root: /var/lib/clientd
metrics:
  enabled: false
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(NewViper(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:7000" || cfg.HTTP.ReadTimeout != 15*time.Second {
		t.Fatalf("expected file addr with default timeouts, got %+v", cfg.HTTP)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.PostgresDSN != "postgres://localhost/clients" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Blob.Driver != "fs" || cfg.Blob.FSRoot != "/var/lib/clientd" {
		t.Fatalf("unexpected blob %+v", cfg.Blob)
	}
	if cfg.Metrics.Enabled {
		t.Fatalf("expected metrics disabled by file")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidateRejectsInvalidSettings(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown storage driver", func(c *Config) { c.Storage.Driver = "mongo" }, "Storage.Driver"},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = "postgres" }, "Storage.PostgresDSN"},
		{"fs without root", func(c *Config) { c.Blob.Driver = "fs" }, "Blob.FSRoot"},
		{"s3 without bucket", func(c *Config) { c.Blob.Driver = "s3" }, "Bucket"},
		{"bad endpoint", func(c *Config) { c.Blob.S3.Endpoint = "not a url" }, "Endpoint"},
		{"unknown log level", func(c *Config) { c.Log.Level = "trace" }, "Log.Level"},
		{"empty addr", func(c *Config) { c.HTTP.Addr = "" }, "HTTP.Addr"},
		{"zero attempts", func(c *Config) { c.Exports.Attempts = 0 }, "Exports.Attempts"},
		{"zero retain", func(c *Config) { c.Exports.Retain = 0 }, "Exports.Retain"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateAcceptsS3WithBucket(t *testing.T) {
	cfg := Default()
	cfg.Blob.Driver = "s3"
	cfg.Blob.S3.Bucket = "exports"
	cfg.Blob.S3.Endpoint = "http://localhost:9000"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

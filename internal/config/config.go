// Package config loads clientd settings from an optional YAML file and
// CLIENTCORE_* environment variables, applying defaults and validation.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. CLIENTCORE_STORAGE_DRIVER.
const EnvPrefix = "CLIENTCORE"

// Config is the complete runtime configuration.
type Config struct {
	HTTP    HTTP    `mapstructure:"http" yaml:"http"`
	Log     Log     `mapstructure:"log" yaml:"log"`
	Storage Storage `mapstructure:"storage" yaml:"storage"`
	Blob    Blob    `mapstructure:"blob" yaml:"blob"`
	Exports Exports `mapstructure:"exports" yaml:"exports"`
	Metrics Metrics `mapstructure:"metrics" yaml:"metrics"`
}

// HTTP configures the API listener.
type HTTP struct {
	Addr            string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development" yaml:"development"`
	// TraceSpans writes one JSON line per service operation to stderr.
	TraceSpans bool `mapstructure:"trace_spans" yaml:"trace_spans"`
}

// Storage selects the client record backend.
type Storage struct {
	Driver      string `mapstructure:"driver" yaml:"driver" validate:"oneof=memory sqlite postgres"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn" validate:"required_if=Driver postgres"`
}

// Blob selects where export artifacts are written.
type Blob struct {
	Driver string `mapstructure:"driver" yaml:"driver" validate:"oneof=memory fs s3"`
	FSRoot string `mapstructure:"fs_root" yaml:"fs_root" validate:"required_if=Driver fs"`
	S3     S3     `mapstructure:"s3" yaml:"s3"`
}

// S3 configures the S3 blob driver. Static credentials are optional; the
// default AWS credential chain applies when they are empty.
type S3 struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Region          string `mapstructure:"region" yaml:"region"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	PathStyle       bool   `mapstructure:"path_style" yaml:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
}

// Exports tunes the background export worker.
type Exports struct {
	QueueSize int    `mapstructure:"queue_size" yaml:"queue_size" validate:"gt=0"`
	Attempts  uint   `mapstructure:"attempts" yaml:"attempts" validate:"gt=0"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
	Retain    int    `mapstructure:"retain" yaml:"retain" validate:"gt=0"`
}

// Metrics toggles the Prometheus endpoint.
type Metrics struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Namespace string `mapstructure:"namespace" yaml:"namespace" validate:"required_if=Enabled true"`
	// Expvar additionally publishes operation totals under /debug/vars.
	Expvar bool `mapstructure:"expvar" yaml:"expvar"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTP{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log:     Log{Level: "info"},
		Storage: Storage{Driver: "memory"},
		Blob:    Blob{Driver: "memory"},
		Exports: Exports{QueueSize: 32, Attempts: 3, KeyPrefix: "exports", Retain: 256},
		Metrics: Metrics{Enabled: true, Namespace: "clientcore"},
	}
}

// NewViper returns a viper instance with defaults registered for every key and
// environment overrides enabled.
func NewViper() *viper.Viper {
	v := viper.New()
	d := Default()
	defaults := map[string]any{
		"http.addr":                 d.HTTP.Addr,
		"http.read_timeout":         d.HTTP.ReadTimeout,
		"http.write_timeout":        d.HTTP.WriteTimeout,
		"http.shutdown_timeout":     d.HTTP.ShutdownTimeout,
		"log.level":                 d.Log.Level,
		"log.development":           d.Log.Development,
		"log.trace_spans":           d.Log.TraceSpans,
		"storage.driver":            d.Storage.Driver,
		"storage.sqlite_path":       d.Storage.SQLitePath,
		"storage.postgres_dsn":      d.Storage.PostgresDSN,
		"blob.driver":               d.Blob.Driver,
		"blob.fs_root":              d.Blob.FSRoot,
		"blob.s3.bucket":            "",
		"blob.s3.region":            "",
		"blob.s3.endpoint":          "",
		"blob.s3.path_style":        false,
		"blob.s3.access_key_id":     "",
		"blob.s3.secret_access_key": "",
		"exports.queue_size":        d.Exports.QueueSize,
		"exports.attempts":          d.Exports.Attempts,
		"exports.key_prefix":        d.Exports.KeyPrefix,
		"exports.retain":            d.Exports.Retain,
		"metrics.enabled":           d.Metrics.Enabled,
		"metrics.namespace":         d.Metrics.Namespace,
		"metrics.expvar":            d.Metrics.Expvar,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional YAML file at path into v, then decodes and
// validates the result.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = NewViper()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterStructValidation(validateBlob, Blob{})
	})
	return validate
}

func validateBlob(sl validator.StructLevel) {
	blob := sl.Current().Interface().(Blob)
	if blob.Driver == "s3" && strings.TrimSpace(blob.S3.Bucket) == "" {
		sl.ReportError(blob.S3.Bucket, "S3.Bucket", "Bucket", "required_with_s3", "")
	}
}

// Validate checks field constraints and reports every failing field.
func (c Config) Validate() error {
	err := validatorInstance().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
}

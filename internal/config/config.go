// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"runtime"
	"slices"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// ModelFormat selects the classifier backend: xgboost or onnx.
	ModelFormat string `koanf:"model_format"`

	// ModelDir holds the three model files.
	ModelDir string `koanf:"model_dir"`

	// ModelTerm1..3 override the per-variant file names under ModelDir.
	ModelTerm1 string `koanf:"model_term1"`
	ModelTerm2 string `koanf:"model_term2"`
	ModelTerm3 string `koanf:"model_term3"`

	// ONNXLibrary is the onnxruntime shared library, for ModelFormat onnx.
	ONNXLibrary string `koanf:"onnx_library"`

	// LoadAttempts and LoadBackoffMS bound model loading at startup.
	LoadAttempts  int `koanf:"load_attempts"`
	LoadBackoffMS int `koanf:"load_backoff_ms"`

	// WorkerCount sets the number of batch job workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the batch task queue, in rows.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize bounds the idempotency key index.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxJobs bounds how many batch jobs are kept for polling.
	MaxJobs int `koanf:"max_jobs"`

	// MaxUploadMB caps multipart upload size.
	MaxUploadMB int `koanf:"max_upload_mb"`

	// MaxBatchRows caps rows per upload; 0 means unlimited.
	MaxBatchRows int `koanf:"max_batch_rows"`

	// AllowedOrigins is the CORS allow-list; "*" allows any origin.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// Known model formats.
var modelFormats = []string{"xgboost", "onnx"}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8000",
		ModelFormat:       "xgboost",
		ModelDir:          "models",
		LoadAttempts:      3,
		LoadBackoffMS:     2000,
		WorkerCount:       runtime.NumCPU(),
		QueueSize:         10_000,
		DedupeSize:        10_000,
		MaxJobs:           1000,
		MaxUploadMB:       10,
		MaxBatchRows:      5000,
		AllowedOrigins:    []string{"*"},
		ShutdownTimeoutMS: 10_000,
	}
}

// Validate checks the values Load cannot fix up.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if !slices.Contains(modelFormats, c.ModelFormat) {
		return fmt.Errorf("%w: model_format %q (want xgboost or onnx)", ErrInvalidConfig, c.ModelFormat)
	}
	if c.LoadAttempts < 1 {
		return fmt.Errorf("%w: load_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.LoadBackoffMS < 0 {
		return fmt.Errorf("%w: load_backoff_ms must not be negative", ErrInvalidConfig)
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("%w: max_upload_mb must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// LoadBackoff is LoadBackoffMS as a duration.
func (c *Config) LoadBackoff() time.Duration {
	return time.Duration(c.LoadBackoffMS) * time.Millisecond
}

// ShutdownTimeout is ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/dropout/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("DROPOUT_ADDR", ":8080")
			_ = os.Setenv("DROPOUT_MODEL_FORMAT", "onnx")
			_ = os.Setenv("DROPOUT_MODEL_TERM2", "second.onnx")
			_ = os.Setenv("DROPOUT_LOAD_ATTEMPTS", "5")
			_ = os.Setenv("DROPOUT_WORKER_COUNT", "16")
			_ = os.Setenv("DROPOUT_ALLOWED_ORIGINS", "https://a.example, https://b.example")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ModelFormat, convey.ShouldEqual, "onnx")
				convey.So(cfg.ModelTerm2, convey.ShouldEqual, "second.onnx")
				convey.So(cfg.LoadAttempts, convey.ShouldEqual, 5)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.AllowedOrigins, convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
# comments are fine
addr: ":9090"
model_dir: /srv/models
queue_size: 300
worker_count: 24
allowed_origins:
  - https://portal.example
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("DROPOUT_CONFIG", tmpFile)
			_ = os.Setenv("DROPOUT_WORKER_COUNT", "32")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.ModelDir, convey.ShouldEqual, "/srv/models")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.AllowedOrigins, convey.ShouldResemble, []string{"https://portal.example"})
				convey.So(cfg.LoadAttempts, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("DROPOUT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("DROPOUT_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("DROPOUT_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown model format", func() {
			_ = os.Setenv("DROPOUT_MODEL_FORMAT", "pickle")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("DROPOUT_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"DROPOUT_CONFIG",
		"DROPOUT_ADDR",
		"DROPOUT_MODEL_FORMAT",
		"DROPOUT_MODEL_TERM2",
		"DROPOUT_LOAD_ATTEMPTS",
		"DROPOUT_WORKER_COUNT",
		"DROPOUT_QUEUE_SIZE",
		"DROPOUT_ALLOWED_ORIGINS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "dropout-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}

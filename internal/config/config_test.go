package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/dropout/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
			convey.So(cfg.ModelFormat, convey.ShouldEqual, "xgboost")
			convey.So(cfg.LoadAttempts, convey.ShouldEqual, 3)
			convey.So(cfg.LoadBackoff(), convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.MaxUploadBytes(), convey.ShouldEqual, 10<<20)
			convey.So(cfg.AllowedOrigins, convey.ShouldResemble, []string{"*"})
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Validation rejects", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":         func(c *config.Config) { c.Addr = "" },
			"unknown format":     func(c *config.Config) { c.ModelFormat = "pickle" },
			"zero attempts":      func(c *config.Config) { c.LoadAttempts = 0 },
			"negative backoff":   func(c *config.Config) { c.LoadBackoffMS = -1 },
			"zero upload limit": func(c *config.Config) { c.MaxUploadMB = 0 },
		}
		for name, mutate := range cases {
			convey.Convey(name, func() {
				cfg := config.New()
				mutate(cfg)
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

package classifier

import (
	"context"
	"time"

	"github.com/okian/dropout/internal/domain/variant"
	"github.com/okian/dropout/pkg/logger"
)

// Option configures a Registry.
type Option func(*Registry)

// WithAttempts sets how many times LoadAll tries each variant.
func WithAttempts(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithBackoff sets the fixed delay between load attempts.
func WithBackoff(d time.Duration) Option {
	return func(r *Registry) {
		if d >= 0 {
			r.backoff = d
		}
	}
}

// WithLogger sets the logger used for load and inference events.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Registry) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithClassifier preloads a classifier for id.
func WithClassifier(id variant.ID, c Classifier) Option {
	return func(r *Registry) {
		if c != nil {
			r.models[id] = c
		}
	}
}

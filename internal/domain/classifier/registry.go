// Package classifier owns the three dropout classifiers and routes inference
// to the right one.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/okian/dropout/internal/domain/variant"
	"github.com/okian/dropout/pkg/logger"
	"github.com/okian/dropout/pkg/metrics"
)

// Default loading policy.
const (
	defaultAttempts = 3
	defaultBackoff  = 2 * time.Second
	positiveCutoff  = 0.5
)

// Classifier is an opaque binary classifier over a fixed-order vector.
type Classifier interface {
	Predict(x []float64) (int, error)
	PredictProbability(x []float64) (float64, error)
}

// Loader produces a classifier for one variant. Implementations should
// verify the model accepts d's input width.
type Loader interface {
	Load(ctx context.Context, d variant.Descriptor) (Classifier, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, d variant.Descriptor) (Classifier, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, d variant.Descriptor) (Classifier, error) {
	return f(ctx, d)
}

// Prediction is the outcome of one classification.
type Prediction struct {
	Label       int
	Probability float64
	Variant     variant.ID
}

// Registry holds the loaded classifiers. It is built once at startup and
// shared by all requests; reads never block each other.
type Registry struct {
	loader   Loader
	attempts int
	backoff  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	log      logger.Logger

	mu     sync.RWMutex
	models map[variant.ID]Classifier
	reload singleflight.Group
}

// NewRegistry creates a registry backed by loader. Nothing is loaded until
// LoadAll or the first Classify.
func NewRegistry(loader Loader, opts ...Option) *Registry {
	r := &Registry{
		loader:   loader,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		sleep:    sleepCtx,
		log:      logger.Nop(),
		models:   make(map[variant.ID]Classifier, len(variant.All)),
	}
	for _, opt := range opts {
		opt(r)
	}
	metrics.UpdateModelsLoaded(len(r.models))
	return r
}

// LoadAll loads every variant concurrently, each with bounded retry. It
// fails only when no variant could be loaded; partial success is logged.
func (r *Registry) LoadAll(ctx context.Context) error {
	if r.loader == nil {
		return fmt.Errorf("%w: no loader configured", ErrLoadFailed)
	}

	errs := make([]error, len(variant.All))
	var g errgroup.Group
	for i, id := range variant.All {
		g.Go(func() error {
			c, err := r.loadWithRetry(ctx, id, r.attempts)
			if err != nil {
				errs[i] = err
				return nil
			}
			r.store(id, c)
			return nil
		})
	}
	_ = g.Wait()

	n := r.LoadedCount()
	if n == 0 {
		return fmt.Errorf("%w: %w", ErrLoadFailed, errors.Join(errs...))
	}
	if n < len(variant.All) {
		r.log.Warn(ctx, "some models failed to load",
			logger.Int("loaded", n),
			logger.Int("total", len(variant.All)),
			logger.Error(errors.Join(errs...)),
		)
	} else {
		r.log.Info(ctx, "all models loaded", logger.Int("loaded", n))
	}
	return nil
}

func (r *Registry) loadWithRetry(ctx context.Context, id variant.ID, attempts int) (Classifier, error) {
	d := variant.Describe(id)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		c, err := r.loader.Load(ctx, d)
		if err == nil {
			metrics.RecordModelLoadAttempt(id.String(), "success")
			r.log.Info(ctx, "model loaded",
				logger.String("variant", id.String()),
				logger.Int("attempt", attempt),
				logger.Int("features", d.Len()),
			)
			return c, nil
		}
		lastErr = err
		metrics.RecordModelLoadAttempt(id.String(), "failure")
		r.log.Warn(ctx, "model load attempt failed",
			logger.String("variant", id.String()),
			logger.String("attempt", fmt.Sprintf("%d/%d", attempt, attempts)),
			logger.Error(err),
		)
		// Feature-schema errors will not fix themselves.
		if errors.Is(err, ErrFeatureMismatch) {
			break
		}
		if attempt < attempts {
			if err := r.sleep(ctx, r.backoff); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, id, err)
			}
		}
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, id, lastErr)
}

func (r *Registry) store(id variant.ID, c Classifier) {
	r.mu.Lock()
	r.models[id] = c
	n := len(r.models)
	r.mu.Unlock()
	metrics.UpdateModelsLoaded(n)
}

// get returns the classifier for id, making a single reload attempt when it
// is missing. Concurrent callers share one reload per variant.
func (r *Registry) get(ctx context.Context, id variant.ID) (Classifier, error) {
	r.mu.RLock()
	c := r.models[id]
	r.mu.RUnlock()
	if c != nil {
		return c, nil
	}
	if r.loader == nil {
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, id)
	}

	// the reload outlives any single caller; waiters stop on their own ctx
	rctx := context.WithoutCancel(ctx)
	ch := r.reload.DoChan(id.String(), func() (any, error) {
		r.mu.RLock()
		c := r.models[id]
		r.mu.RUnlock()
		if c != nil {
			return c, nil
		}
		r.log.Warn(rctx, "model not loaded, attempting reload", logger.String("variant", id.String()))
		c, err := r.loadWithRetry(rctx, id, 1)
		if err != nil {
			metrics.RecordModelReload(id.String(), "failure")
			return nil, err
		}
		metrics.RecordModelReload(id.String(), "success")
		r.store(id, c)
		return c, nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", ErrModelUnavailable, id, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModelUnavailable, id, res.Err)
	}
	return res.Val.(Classifier), nil
}

// Classify routes terms to a variant, projects src onto its schema and runs
// the classifier.
func (r *Registry) Classify(ctx context.Context, src variant.Source, terms int) (Prediction, error) {
	id := variant.Select(terms)
	c, err := r.get(ctx, id)
	if err != nil {
		metrics.RecordInferenceError(id.String(), "unavailable")
		return Prediction{}, err
	}

	start := time.Now()
	x := variant.Project(variant.Describe(id), src)
	p, err := c.PredictProbability(x)
	if err != nil {
		metrics.RecordInferenceError(id.String(), "predict_proba")
		return Prediction{}, fmt.Errorf("predict probability %s: %w", id, err)
	}
	metrics.RecordInferenceLatency(id.String(), float64(time.Since(start).Microseconds())/1000)
	r.log.Debug(ctx, "classified",
		logger.String("variant", id.String()),
		logger.Int("terms", terms),
		logger.Float64("probability", p),
	)
	return Prediction{Label: LabelOf(p), Probability: p, Variant: id}, nil
}

// Loaded reports which variants currently have a classifier.
func (r *Registry) Loaded() map[variant.ID]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[variant.ID]bool, len(variant.All))
	for _, id := range variant.All {
		out[id] = r.models[id] != nil
	}
	return out
}

// LoadedCount is the number of loaded variants.
func (r *Registry) LoadedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// Ready reports whether at least one variant is loaded.
func (r *Registry) Ready() bool {
	return r.LoadedCount() > 0
}

// LabelOf applies the positive-class cutoff used by every backend.
func LabelOf(p float64) int {
	if p >= positiveCutoff {
		return 1
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

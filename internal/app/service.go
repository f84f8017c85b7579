// Package service wires the prediction pipeline, the classifier registry and
// the asynchronous batch machinery behind the operations the HTTP API and the
// CLI need.
package service

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/dropout/internal/adapters/batch"
	jobqueue "github.com/okian/dropout/internal/adapters/mq/queue"
	workerpool "github.com/okian/dropout/internal/adapters/mq/worker"
	"github.com/okian/dropout/internal/adapters/repository"
	"github.com/okian/dropout/internal/domain/advice"
	"github.com/okian/dropout/internal/domain/classifier"
	"github.com/okian/dropout/internal/domain/coerce"
	"github.com/okian/dropout/internal/domain/dedupe"
	"github.com/okian/dropout/internal/domain/features"
	"github.com/okian/dropout/internal/domain/model"
	"github.com/okian/dropout/internal/domain/risk"
	"github.com/okian/dropout/internal/domain/scenario"
	"github.com/okian/dropout/internal/domain/types"
	"github.com/okian/dropout/internal/domain/variant"
	"github.com/okian/dropout/pkg/logger"
	"github.com/okian/dropout/pkg/metrics"
)

// Service implements the API dependencies for the dropout predictor.
type Service struct {
	mu sync.RWMutex

	// Core components
	registry *classifier.Registry
	loader   classifier.Loader
	jobs     repository.Store
	index    dedupe.Index
	queue    jobqueue.Queue
	pool     *workerpool.Pool

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	maxJobs      int
	maxBatchRows int
	attempts     int
	backoff      time.Duration
	now          func() time.Time

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of batch worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the batch task queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxJobs bounds the number of finished batch jobs kept in memory.
func WithMaxJobs(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxJobs = n
		}
	}
}

// WithMaxBatchRows bounds the rows accepted per upload.
func WithMaxBatchRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchRows = n
		}
	}
}

// WithLoadPolicy sets the model load attempts and the delay between them.
func WithLoadPolicy(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if backoff >= 0 {
			s.backoff = backoff
		}
	}
}

// WithLoader sets the model loader used to build the registry.
func WithLoader(l classifier.Loader) Option {
	return func(s *Service) {
		s.loader = l
	}
}

// WithRegistry injects a ready registry; the loader options are then ignored.
func WithRegistry(r *classifier.Registry) Option {
	return func(s *Service) {
		s.registry = r
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    10000,
		dedupeSize:   10000,
		maxJobs:      1000,
		maxBatchRows: 5000,
		attempts:     3,
		backoff:      2 * time.Second,
		now:          time.Now,
		logger:       logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = classifier.NewRegistry(s.loader,
			classifier.WithAttempts(s.attempts),
			classifier.WithBackoff(s.backoff),
			classifier.WithLogger(s.logger.Named("models")),
		)
	}
	return s
}

// Start loads the classifiers and starts the batch components. A registry
// that ends up with no classifier at all fails the start.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting dropout service...")

	if !s.registry.Ready() {
		if err := s.registry.LoadAll(ctx); err != nil {
			return fmt.Errorf("load models: %w", err)
		}
	}

	s.jobs = repository.NewInMemoryStore(repository.WithMaxJobs(s.maxJobs))
	s.index = dedupe.NewInMemoryIndex(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s, s.jobs)
	// workers run until Stop drains them, not until ctx ends
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "dropout service started",
		logger.Int("models", s.registry.LoadedCount()),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains the batch queue and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping dropout service...")
	err := s.pool.Shutdown(ctx)
	s.started = false
	if err != nil {
		s.logger.Warn(ctx, "batch workers did not drain", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "dropout service stopped")
	return nil
}

// DeriveFeatures builds the indicator vector for rec with the given
// current-term hint. Unknown faculty or gender labels are logged.
func (s *Service) DeriveFeatures(ctx context.Context, rec model.StudentRecord, currentTerm int) features.Vector {
	st := s.static(ctx, rec)
	return features.Derive(st, features.Normalize(rec.Terms), currentTerm)
}

func (s *Service) static(ctx context.Context, rec model.StudentRecord) features.Static {
	st := features.StaticOf(rec)
	if st.FacultyFallback {
		s.fallback(ctx, "faculty", rec.Faculty)
	}
	if st.GenderFallback {
		s.fallback(ctx, "gender", rec.Gender)
	}
	return st
}

func (s *Service) fallback(ctx context.Context, field, raw string) {
	metrics.RecordCoercionFallback(field)
	s.logger.Debug(ctx, "unknown category mapped to default code",
		logger.String("field", field),
		logger.String("value", raw),
	)
}

// Classify routes src to the variant for terms and classifies it.
func (s *Service) Classify(ctx context.Context, src variant.Source, terms int) (classifier.Prediction, error) {
	p, err := s.registry.Classify(ctx, src, terms)
	if err != nil {
		return classifier.Prediction{}, err
	}
	metrics.RecordPrediction(p.Variant.String(), string(risk.Classify(p.Probability)))
	return p, nil
}

// CompareScenario classifies rec as it is and with assumed as the next
// term's grade.
func (s *Service) CompareScenario(ctx context.Context, rec model.StudentRecord, assumed float64) (scenario.Result, error) {
	s.static(ctx, rec)
	return scenario.Compare(ctx, s, rec, assumed)
}

// Recommend builds the advice text for a classified vector.
func (s *Service) Recommend(v *features.Vector, band risk.Band, p float64) string {
	return advice.Recommend(v, band, p)
}

// PredictBasic runs the full pipeline for one student record.
func (s *Service) PredictBasic(ctx context.Context, rec model.StudentRecord) (types.Prediction, error) {
	current := rec.CurrentTerm()
	v := s.DeriveFeatures(ctx, rec, current)
	p, err := s.Classify(ctx, &v, current)
	if err != nil {
		return types.Prediction{}, err
	}
	band := risk.Classify(p.Probability)
	out := s.prediction(p, band)
	out.Recommendation = s.Recommend(&v, band, p.Probability)
	out.Explanations = advice.Explain(&v)
	return out, nil
}

// PredictRaw classifies an already-engineered feature map. Routing uses the
// number of TERMi values above zero without clamping, so a map with no
// term data goes to the term3 variant.
func (s *Service) PredictRaw(ctx context.Context, raw features.Raw) (types.Prediction, error) {
	for name, v := range raw {
		if coerce.Number(v).Fallback {
			metrics.RecordCoercionFallback("number")
			s.logger.Debug(ctx, "non-numeric feature read as 0", logger.String("feature", name))
		}
	}
	p, err := s.Classify(ctx, raw, raw.TermsWithData())
	if err != nil {
		return types.Prediction{}, err
	}
	band := risk.Classify(p.Probability)
	out := s.prediction(p, band)
	out.Recommendation = "Risk level: " + string(band)
	return out, nil
}

func (s *Service) prediction(p classifier.Prediction, band risk.Band) types.Prediction {
	return types.Prediction{
		Label:       p.Label,
		LabelName:   types.LabelName(p.Label),
		Probability: p.Probability,
		Percentage:  scenario.Percent(p.Probability),
		RiskLevel:   string(band),
		RiskColor:   band.Color(),
		Variant:     p.Variant.String(),
		Timestamp:   s.now(),
	}
}

// PredictFuture compares the current risk with the risk under futureGPA.
func (s *Service) PredictFuture(ctx context.Context, rec model.StudentRecord, futureGPA float64) (types.Future, error) {
	r, err := s.CompareScenario(ctx, rec, futureGPA)
	if err != nil {
		return types.Future{}, err
	}
	return types.Future{
		CurrentProbability:    r.Current,
		FutureProbability:     r.Future,
		CurrentPercentage:     scenario.Percent(r.Current),
		FuturePercentage:      scenario.Percent(r.Future),
		Improvement:           r.Delta,
		ImprovementPercentage: scenario.Percent(r.Delta),
		Recommendation:        r.Interpret(),
	}, nil
}

// PredictRow scores one uploaded row. It is the worker pool's predictor.
func (s *Service) PredictRow(ctx context.Context, row model.BatchRow) (model.RowResult, error) {
	p, err := s.PredictBasic(ctx, row.Record)
	if err != nil {
		return model.RowResult{}, err
	}
	return model.RowResult{
		Index:        row.Index,
		StudentID:    row.StudentID,
		Name:         row.Name,
		Prediction:   p.Label,
		Label:        p.LabelName,
		Probability:  p.Probability,
		Percentage:   p.Percentage,
		RiskLevel:    p.RiskLevel,
		RiskColor:    p.RiskColor,
		Explanations: p.Explanations,
		Variant:      p.Variant,
	}, nil
}

// ReadBatch parses an upload with the configured row limit.
func (s *Service) ReadBatch(src io.Reader, filename string) ([]model.BatchRow, error) {
	return batch.Read(src, filename, batch.WithMaxRows(s.maxBatchRows))
}

// PredictBatch scores every row synchronously. Any row failure aborts the
// whole batch.
func (s *Service) PredictBatch(ctx context.Context, rows []model.BatchRow) (types.Batch, error) {
	if !s.registry.Ready() {
		return types.Batch{}, fmt.Errorf("%w: no models loaded", classifier.ErrModelUnavailable)
	}
	results := make([]model.RowResult, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return types.Batch{}, err
		}
		r, err := s.PredictRow(ctx, row)
		if err != nil {
			metrics.RecordBatchRow("failed")
			return types.Batch{}, fmt.Errorf("row %d: %w", row.Index, err)
		}
		metrics.RecordBatchRow("ok")
		results = append(results, r)
	}
	return types.Batch{Count: len(results), Results: results}, nil
}

// SubmitBatch creates an asynchronous job for rows and queues every row.
// A non-empty idempotency key already bound to a job returns that job
// instead. When the queue cannot take all rows the job is dropped and
// ErrBusy is returned.
func (s *Service) SubmitBatch(ctx context.Context, key string, rows []model.BatchRow) (types.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return types.Submission{}, ErrNotStarted
	}
	if !s.registry.Ready() {
		return types.Submission{}, fmt.Errorf("%w: no models loaded", classifier.ErrModelUnavailable)
	}

	id := uuid.NewString()
	if key != "" {
		if existing, claimed := s.index.Claim(ctx, key, id); !claimed {
			metrics.RecordBatchJobDuplicate()
			job, err := s.jobs.Get(ctx, existing)
			if err != nil {
				return types.Submission{JobID: existing, Duplicate: true}, nil
			}
			return types.Submission{JobID: existing, Total: job.Total, Duplicate: true}, nil
		}
	}

	if free := s.queueSize - s.queue.Len(); free < len(rows) {
		s.release(ctx, key)
		return types.Submission{}, fmt.Errorf("%w: %d rows, %d free slots", ErrBusy, len(rows), free)
	}

	if _, err := s.jobs.Create(ctx, id, len(rows)); err != nil {
		s.release(ctx, key)
		return types.Submission{}, fmt.Errorf("create job: %w", err)
	}

	for _, row := range rows {
		if err := s.queue.Enqueue(ctx, jobqueue.Task{JobID: id, Row: row}); err != nil {
			_ = s.jobs.Discard(ctx, id)
			s.release(ctx, key)
			s.logger.Warn(ctx, "batch job dropped",
				logger.String("job_id", id),
				logger.Int("row", row.Index),
				logger.Error(err),
			)
			return types.Submission{}, fmt.Errorf("%w: %w", ErrBusy, err)
		}
	}

	metrics.RecordBatchJobSubmitted()
	s.logger.Info(ctx, "batch job queued",
		logger.String("job_id", id),
		logger.Int("rows", len(rows)),
	)
	return types.Submission{JobID: id, Total: len(rows)}, nil
}

func (s *Service) release(ctx context.Context, key string) {
	if key != "" {
		s.index.Release(ctx, key)
	}
}

// Job returns a snapshot of an asynchronous batch job.
func (s *Service) Job(ctx context.Context, id string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.Job{}, ErrNotStarted
	}
	return s.jobs.Get(ctx, id)
}

// Health reports which classifiers are loaded.
func (s *Service) Health() types.Health {
	loaded := s.registry.Loaded()
	terms := make(map[string]bool, len(loaded))
	for id, ok := range loaded {
		terms[id.String()] = ok
	}
	h := types.Health{
		Status:      types.StatusUnhealthy,
		ModelLoaded: s.registry.Ready(),
		LoadedTerms: terms,
		LoadedCount: s.registry.LoadedCount(),
	}
	if h.ModelLoaded {
		h.Status = types.StatusHealthy
	}
	return h
}

// Ready reports whether at least one classifier is loaded.
func (s *Service) Ready() bool {
	return s.registry.Ready()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"modelsLoaded": s.registry.LoadedCount(),
	}

	if s.started {
		queueLen := s.queue.Len()
		jobs := s.jobs.Count(ctx)

		stats["queueLength"] = queueLen
		stats["jobs"] = jobs
		stats["idempotencyKeys"] = s.index.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateBatchJobsStored(jobs)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}

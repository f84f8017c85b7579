// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/dropout/internal/adapters/batch"
	"github.com/okian/dropout/internal/adapters/repository"
	service "github.com/okian/dropout/internal/app"
	"github.com/okian/dropout/internal/domain/classifier"
	"github.com/okian/dropout/internal/domain/features"
	"github.com/okian/dropout/internal/domain/model"
	"github.com/okian/dropout/internal/domain/types"
	"github.com/okian/dropout/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PredictDependencies
	BatchDependencies
	HealthDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	predictHandler *PredictHandler
	batchHandler   *BatchHandler
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler

	origins []string
	logger  logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUploadBytes bounds multipart batch uploads.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.batchHandler.maxUpload = n
		}
	}
}

// WithAllowedOrigins sets the CORS allow-list. "*" allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	rv := newRequestValidator()
	s := &Server{
		predictHandler: NewPredictHandler(deps, rv),
		batchHandler:   NewBatchHandler(deps),
		healthHandler:  NewHealthHandler(deps),
		statsHandler:   NewStatsHandler(statsProvider),
		origins:        []string{"*"},
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealthz, "healthz"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/api/v1/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/api/v1/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("/api/v1/predict-from-basic", MetricsMiddleware(s.predictHandler.HandlePredictFromBasic, "predict_from_basic"))
	mux.HandleFunc("/api/v1/predict-future", MetricsMiddleware(s.predictHandler.HandlePredictFuture, "predict_future"))
	mux.HandleFunc("/api/v1/batch-predict", MetricsMiddleware(s.batchHandler.HandleBatchPredict, "batch_predict"))
	mux.HandleFunc("/api/v1/batch-jobs", MetricsMiddleware(s.batchHandler.HandleSubmitJob, "batch_jobs"))
	mux.HandleFunc("/api/v1/batch-jobs/{id}", MetricsMiddleware(s.batchHandler.HandleGetJob, "batch_job"))
}

// Handler wraps next with the request-id and CORS middleware.
func (s *Server) Handler(next http.Handler) http.Handler {
	return RequestIDMiddleware(CORSMiddleware(next, s.origins), s.logger)
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var fe fieldErrors
	if errors.As(err, &fe) {
		resp.Fields = fe
	}
	writeJSON(w, status, resp)
}

// fail maps err to a status and writes it.
func fail(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

// classify translates domain and service errors to an HTTP status.
func classify(err error) (int, string) {
	var fe fieldErrors
	switch {
	case errors.Is(err, ErrTooLarge), errors.Is(err, batch.ErrTooManyRows):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.As(err, &fe),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, classifier.ErrInvalidInput),
		errors.Is(err, batch.ErrMissingColumns),
		errors.Is(err, batch.ErrUnsupportedFormat),
		errors.Is(err, batch.ErrEmpty),
		errors.Is(err, batch.ErrInvalidCell):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, "method_not_allowed"
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBusy):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, classifier.ErrModelUnavailable),
		errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "service_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func allow(w http.ResponseWriter, r *http.Request, op string, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	fail(w, NewKind(op, ErrMethodNotAllowed))
	return false
}

// PredictDependencies is what the prediction handlers need.
type PredictDependencies interface {
	PredictBasic(ctx context.Context, rec model.StudentRecord) (types.Prediction, error)
	PredictRaw(ctx context.Context, raw features.Raw) (types.Prediction, error)
	PredictFuture(ctx context.Context, rec model.StudentRecord, futureGPA float64) (types.Future, error)
	Ready() bool
}

// BatchDependencies is what the batch handlers need.
type BatchDependencies interface {
	ReadBatch(src io.Reader, filename string) ([]model.BatchRow, error)
	PredictBatch(ctx context.Context, rows []model.BatchRow) (types.Batch, error)
	SubmitBatch(ctx context.Context, key string, rows []model.BatchRow) (types.Submission, error)
	Job(ctx context.Context, id string) (model.Job, error)
	Ready() bool
}

// HealthDependencies reports model availability.
type HealthDependencies interface {
	Health() types.Health
}

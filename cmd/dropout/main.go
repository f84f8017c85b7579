package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/dropout/internal/adapters/http/api"
	"github.com/okian/dropout/internal/adapters/http/site"
	"github.com/okian/dropout/internal/adapters/http/swagger"
	"github.com/okian/dropout/internal/adapters/models"
	service "github.com/okian/dropout/internal/app"
	"github.com/okian/dropout/internal/config"
	"github.com/okian/dropout/internal/domain/variant"
	"github.com/okian/dropout/pkg/logger"
	"github.com/okian/dropout/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants. Writes get more room than reads because
// batch uploads are scored before the response is written.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Default Go collectors are replaced by the custom system metrics below.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	format, err := logger.ParseFormat(cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.Init(logger.WithFormat(format)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	loader, err := buildLoader(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to configure model loader: %w", err)
	}

	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithLoader(loader),
		service.WithLoadPolicy(cfg.LoadAttempts, cfg.LoadBackoff()),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithMaxJobs(cfg.MaxJobs),
		service.WithMaxBatchRows(cfg.MaxBatchRows),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.Int("models_loaded", svc.Health().LoadedCount),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// buildLoader maps the model settings onto a file loader.
func buildLoader(cfg *config.Config, log logger.Logger) (*models.FileLoader, error) {
	format, err := models.ParseFormat(cfg.ModelFormat)
	if err != nil {
		return nil, err
	}
	opts := []models.Option{
		models.WithFormat(format),
		models.WithLogger(log.Named("models")),
	}
	overrides := map[variant.ID]string{
		variant.Term1:     cfg.ModelTerm1,
		variant.Term2:     cfg.ModelTerm2,
		variant.Term3Plus: cfg.ModelTerm3,
	}
	for id, name := range overrides {
		if name != "" {
			opts = append(opts, models.WithFile(id, name))
		}
	}
	if cfg.ONNXLibrary != "" {
		opts = append(opts, models.WithONNXLibrary(cfg.ONNXLibrary))
	}
	return models.NewFileLoader(cfg.ModelDir, opts...)
}

// newHandler registers every route on a fresh mux and wraps it with the
// request-id and CORS middleware.
func newHandler(ctx context.Context, cfg *config.Config, svc *service.Service, log logger.Logger) http.Handler {
	mux := http.NewServeMux()

	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithMaxUploadBytes(cfg.MaxUploadBytes()),
		api.WithAllowedOrigins(cfg.AllowedOrigins),
		api.WithLogger(log.Named("http")),
	)
	apiServer.Register(ctx, mux)

	return apiServer.Handler(mux)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes queue, job and model gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics relies on GetStats refreshing the queue and job
// gauges; the loaded-model gauge is set here.
func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()
	if loaded, ok := stats["modelsLoaded"].(int); ok {
		metrics.UpdateModelsLoaded(loaded)
	}
}

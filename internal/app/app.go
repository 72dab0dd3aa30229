package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riskibarqy/match-aggregator/internal/config"
	"github.com/riskibarqy/match-aggregator/internal/interfaces/httpapi"
	"github.com/riskibarqy/match-aggregator/internal/observability"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
	"github.com/riskibarqy/match-aggregator/internal/usecase"
)

// App owns the wired services, the HTTP server and the background scheduler.
type App struct {
	cfg       config.Config
	logger    *logging.Logger
	server    *http.Server
	scheduler *usecase.LiveUpdateScheduler
	storage   *storage

	baseCtx    context.Context
	cancelBase context.CancelFunc
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	listMode, ok := usecase.ParseListMode(cfg.ListMode)
	if !ok {
		return nil, fmt.Errorf("invalid list mode %q", cfg.ListMode)
	}
	liveSports, err := parseSports(cfg.LiveSports)
	if err != nil {
		return nil, fmt.Errorf("LIVE_SPORTS: %w", err)
	}

	registry, err := buildRegistry(cfg, logger.Named("provider"))
	if err != nil {
		return nil, err
	}

	var (
		metrics        usecase.ProviderMetrics
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewProviderMetrics(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	health := usecase.NewHealthMonitor(usecase.HealthMonitorConfig{
		DegradedAfter: cfg.HealthDegradedAfter,
		DownAfter:     cfg.HealthDownAfter,
		ProbeInterval: cfg.HealthProbeInterval,
	}, logger.Named("health"), metrics)
	normalizer := usecase.NewNormalizer(logger.Named("normalizer"))
	aggregator := usecase.NewAggregator(registry, health, normalizer, metrics, logger.Named("aggregator"), usecase.AggregatorConfig{
		AdapterTimeout: cfg.AdapterTimeout,
		ListMode:       listMode,
		MaxConcurrency: cfg.FanOutMaxConcurrency,
	})
	scheduler := usecase.NewLiveUpdateScheduler(aggregator, health, store.repo, store.publisher, metrics, logger.Named("live_update"), usecase.LiveUpdateConfig{
		Interval:   cfg.LiveRefreshInterval,
		Sports:     liveSports,
		MaxWorkers: cfg.LiveRefreshWorkers,
		RunOnStart: cfg.LiveRefreshOnStart,
	})
	queries := usecase.NewMatchQueryService(aggregator, store.repo, health, scheduler, logger.Named("match_query"), usecase.MatchQueryConfig{
		CacheTTL: cfg.CacheTTL,
		// A short-circuit listing may walk every adapter in turn.
		LoadTimeout: cfg.AdapterTimeout * time.Duration(max(len(registry.Names()), 1)),
	})

	// Operator-started refreshes outlive the request that started them.
	baseCtx, cancelBase := context.WithCancel(context.WithoutCancel(ctx))
	ops := usecase.NewOperations(baseCtx, scheduler, health, cfg.OpsToken, logger.Named("ops"))

	handler := httpapi.NewHandler(queries, ops, logger)
	router := httpapi.NewRouter(handler, logger, httpapi.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		SwaggerEnabled:     cfg.SwaggerEnabled,
		Metrics:            metricsHandler,
	})

	logger.Info("providers registered", "providers", registry.Names(), "list_mode", string(listMode))

	return &App{
		cfg:       cfg,
		logger:    logger,
		scheduler: scheduler,
		storage:   store,
		server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		baseCtx:    baseCtx,
		cancelBase: cancelBase,
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run starts the live scheduler when enabled and serves HTTP until the server
// is shut down.
func (a *App) Run() error {
	if a.cfg.LiveRefreshEnabled {
		a.scheduler.Start(a.baseCtx)
	}

	a.logger.Info("http server starting", "addr", a.server.Addr)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the scheduler, drains HTTP and closes storage.
func (a *App) Shutdown(ctx context.Context) error {
	a.scheduler.Stop()
	a.cancelBase()

	err := a.server.Shutdown(ctx)
	a.storage.close(a.logger)
	if err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	a.logger.Info("http server stopped")
	return nil
}

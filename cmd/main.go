package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/convrelay/internal/adapters/http/api"
	"github.com/okian/convrelay/internal/adapters/tokencache"
	"github.com/okian/convrelay/internal/adapters/upload"
	app "github.com/okian/convrelay/internal/app"
	"github.com/okian/convrelay/internal/audit"
	"github.com/okian/convrelay/internal/config"
	"github.com/okian/convrelay/pkg/logger"
	"github.com/okian/convrelay/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 30 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Audit emitter: log sink always, Kafka sink when brokers are configured.
	policy, err := audit.ParsePolicy(cfg.AuditPolicy)
	if err != nil {
		os.Stderr.WriteString("invalid audit policy: " + err.Error() + "\n")
		return
	}
	auditOpts := []audit.Option{
		audit.WithPolicy(policy),
		audit.WithLogger(loggerInstance),
		audit.WithSink(audit.NewLogSink(logger.Named("audit"))),
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, audit.WithTopic(cfg.AuditTopic))
		if err != nil {
			os.Stderr.WriteString("failed to create kafka audit sink: " + err.Error() + "\n")
			return
		}
		defer func() { _ = kafkaSink.Close() }()
		auditOpts = append(auditOpts, audit.WithSink(kafkaSink))
	}
	emitter := audit.New(auditOpts...)

	// Credential cache: Redis when configured, process memory otherwise.
	var cache tokencache.Store = tokencache.NewMemoryStore()
	if cfg.RedisURL != "" {
		client, err := tokencache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			os.Stderr.WriteString("failed to connect to redis: " + err.Error() + "\n")
			return
		}
		defer func() { _ = client.Close() }()
		cache = tokencache.NewRedisStore(client,
			tokencache.WithTTL(time.Duration(cfg.RedisTTLSeconds)*time.Second),
		)
	}

	uploader := upload.New(
		upload.WithCache(cache),
		upload.WithAudit(emitter),
		upload.WithLogger(logger.Named("upload")),
	)

	// Create and start the service with configuration options
	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithConversionConfig(cfg.Conversion),
		app.WithSender(uploader),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
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

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// internal/cli/app.go
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/isuramakingshifts/Wallets-Manager/internal/analyzer"
	"github.com/isuramakingshifts/Wallets-Manager/internal/blockchain/solbc"
	"github.com/isuramakingshifts/Wallets-Manager/internal/bot"
	"github.com/isuramakingshifts/Wallets-Manager/internal/config"
	"github.com/isuramakingshifts/Wallets-Manager/internal/events"
	"github.com/isuramakingshifts/Wallets-Manager/internal/logger"
	"github.com/isuramakingshifts/Wallets-Manager/internal/metrics"
	"github.com/isuramakingshifts/Wallets-Manager/internal/registration"
	"github.com/isuramakingshifts/Wallets-Manager/internal/storage"
	"github.com/isuramakingshifts/Wallets-Manager/internal/storage/postgres"
	"github.com/isuramakingshifts/Wallets-Manager/internal/webhook"
)

const (
	eventBufferSize    = 100
	auditFlushInterval = 5 * time.Second
	redisPingTimeout   = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// App holds the wired registration pipeline and everything it needs.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Storage      storage.Storage
	Bus          *events.Bus
	Registry     *prometheus.Registry
	Orchestrator *registration.Orchestrator
	Shutdown     *bot.ShutdownHandler
}

// NewApp connects to PostgreSQL, applies migrations and wires the pipeline.
func NewApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	st, err := postgres.NewStorage(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	if err := st.RunMigrations(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return buildApp(cfg, log, st)
}

// buildApp wires the pipeline on top of an open storage. The returned App
// owns st; on error st is closed.
func buildApp(cfg *config.Config, log *zap.Logger, st storage.Storage) (*App, error) {
	shutdown := bot.NewShutdownHandler(log, shutdownTimeout)
	shutdown.Add("storage", st)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	locker, err := newLocker(cfg, log, shutdown)
	if err != nil {
		_ = shutdown.Shutdown(context.Background())
		return nil, err
	}

	registrar, err := webhook.NewRegistrar(webhook.Config{
		BaseURL:     cfg.HeliusBaseURL,
		APIKey:      cfg.HeliusAPIKey,
		WebhookID:   cfg.WebhookID,
		CallbackURL: cfg.WebhookCallbackURL,
	}, nil, locker, log)
	if err != nil {
		_ = shutdown.Shutdown(context.Background())
		return nil, err
	}

	bus := events.NewBus(log, eventBufferSize)
	if cfg.AuditLogPath != "" {
		audit, err := logger.NewAuditLog(cfg.AuditLogPath, auditFlushInterval, log)
		if err != nil {
			_ = bus.Shutdown(context.Background())
			_ = shutdown.Shutdown(context.Background())
			return nil, err
		}
		audit.Subscribe(bus)
		shutdown.Add("audit", audit)
	}
	// closed first: queued events are delivered before the audit log flushes
	shutdown.AddFunc("events", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return bus.Shutdown(ctx)
	})

	chain := solbc.NewClient(cfg.RPCURL, log)
	walletAnalyzer := analyzer.New(chain, analyzer.Options{
		TxLimit:     cfg.TxLimit,
		Concurrency: cfg.AnalyzerConcurrency,
		Metrics:     m,
	}, log)

	orchestrator := registration.New(registration.Deps{
		Analyzer:  walletAnalyzer,
		Registrar: registrar,
		Gateway:   st,
		Events:    bus,
		Metrics:   m,
		WebhookID: registrar.WebhookID(),
	}, log)

	return &App{
		Config:       cfg,
		Logger:       log,
		Storage:      st,
		Bus:          bus,
		Registry:     registry,
		Orchestrator: orchestrator,
		Shutdown:     shutdown,
	}, nil
}

// newLocker returns a Redis lock when redis_url is set so several processes
// can share one webhook. Without it the registrar serializes in process.
func newLocker(cfg *config.Config, log *zap.Logger, shutdown *bot.ShutdownHandler) (webhook.Locker, error) {
	if cfg.RedisURL == "" {
		return webhook.NewKeyedMutex(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis_url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	shutdown.Add("redis", rdb)

	log.Info("Using Redis webhook lock", zap.String("addr", opts.Addr))
	return webhook.NewRedisLocker(rdb, webhook.RedisLockOptions{TTL: cfg.LockTTL()}, log), nil
}

// Close releases everything the App owns.
func (a *App) Close() error {
	return a.Shutdown.Shutdown(context.Background())
}

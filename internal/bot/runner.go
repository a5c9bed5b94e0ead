// internal/bot/runner.go
package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/isuramakingshifts/Wallets-Manager/internal/events"
	"github.com/isuramakingshifts/Wallets-Manager/internal/metrics"
)

const metricsStopTimeout = 5 * time.Second

// Frontend принимает команды пользователей до отмены ctx
type Frontend interface {
	Start(ctx context.Context)
	Notify(ctx context.Context, text string)
}

// Runner запускает фронтенд и сервер метрик и останавливает сервисы по завершении
type Runner struct {
	frontend Frontend
	metrics  *metrics.Server
	bus      *events.Bus
	shutdown *ShutdownHandler
	logger   *zap.Logger
}

// NewRunner создает Runner. metricsServer может быть nil.
func NewRunner(frontend Frontend, metricsServer *metrics.Server, bus *events.Bus, shutdown *ShutdownHandler, logger *zap.Logger) *Runner {
	return &Runner{
		frontend: frontend,
		metrics:  metricsServer,
		bus:      bus,
		shutdown: shutdown,
		logger:   logger.Named("runner"),
	}
}

// Run блокируется до отмены ctx или падения сервера метрик, затем закрывает
// зарегистрированные сервисы.
func (r *Runner) Run(ctx context.Context) error {
	if r.bus != nil {
		sub := r.bus.Subscribe(events.ReconciliationNeeded, events.On(func(ctx context.Context, ev events.ReconciliationNeededEvent) error {
			r.frontend.Notify(ctx, ReconcileNotice(ev))
			return nil
		}))
		defer sub.Unsubscribe()
	}

	g, gctx := errgroup.WithContext(ctx)

	if r.metrics != nil {
		g.Go(func() error {
			if err := r.metrics.Start(); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), metricsStopTimeout)
			defer cancel()
			return r.metrics.Stop(stopCtx)
		})
	}

	g.Go(func() error {
		r.frontend.Start(gctx)
		return nil
	})

	runErr := g.Wait()
	r.logger.Info("👋 Bot shutting down gracefully")

	shutdownErr := r.shutdown.Shutdown(context.Background())
	if runErr != nil {
		return runErr
	}
	return shutdownErr
}

// ReconcileNotice описывает кошелек, который вебхук отслеживает, а база не хранит
func ReconcileNotice(ev events.ReconciliationNeededEvent) string {
	return fmt.Sprintf("⚠ Wallet %s is monitored by webhook %s but was not stored: %v",
		ev.Wallet, ev.WebhookID, ev.Error)
}

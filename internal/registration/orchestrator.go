// internal/registration/orchestrator.go
package registration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/isuramakingshifts/Wallets-Manager/internal/blockchain"
	"github.com/isuramakingshifts/Wallets-Manager/internal/events"
	"github.com/isuramakingshifts/Wallets-Manager/internal/metrics"
	"go.uber.org/zap"
)

// Analyzer produces the activity summary of a wallet.
type Analyzer interface {
	Analyze(ctx context.Context, wallet string) (blockchain.ActivitySummary, error)
}

// WebhookRegistrar adds an address to the monitored set.
type WebhookRegistrar interface {
	Register(ctx context.Context, address string) ([]string, error)
}

// Gateway stores a registration atomically.
type Gateway interface {
	CommitRegistration(ctx context.Context, wallet, name, category string, summary blockchain.ActivitySummary) error
}

// Publisher receives pipeline events. *events.Bus implements it.
type Publisher interface {
	PublishSync(ctx context.Context, event events.Event) error
}

// Deps are the collaborators of an Orchestrator. Events, Metrics and WebhookID are optional.
type Deps struct {
	Analyzer  Analyzer
	Registrar WebhookRegistrar
	Gateway   Gateway
	Events    Publisher
	Metrics   *metrics.Metrics
	WebhookID string
}

// ProgressStatus describes where a stage is.
type ProgressStatus string

const (
	ProgressStarted   ProgressStatus = "started"
	ProgressCompleted ProgressStatus = "completed"
	ProgressFailed    ProgressStatus = "failed"
)

// Progress is reported to the caller around every stage.
type Progress struct {
	Stage  Stage
	Status ProgressStatus
	Err    error
}

// Option configures a single Register call.
type Option func(*registerOptions)

type registerOptions struct {
	progress func(Progress)
}

// WithProgress reports stage progress to fn on the calling goroutine.
func WithProgress(fn func(Progress)) Option {
	return func(o *registerOptions) {
		o.progress = fn
	}
}

// Result describes a completed registration.
type Result struct {
	ID             string
	Wallet         string
	Name           string
	Category       string
	Summary        blockchain.ActivitySummary
	MonitoredCount int
	Durations      map[Stage]time.Duration
}

// Orchestrator runs analyze, webhook and persist in order for one wallet.
type Orchestrator struct {
	deps   Deps
	logger *zap.Logger
}

// New creates an orchestrator.
func New(deps Deps, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		deps:   deps,
		logger: logger.Named("registration"),
	}
}

type run struct {
	opts   registerOptions
	result *Result
}

// Register runs the pipeline. The first failing stage stops it and is
// returned as *StageError. Completed stages are not undone.
func (o *Orchestrator) Register(ctx context.Context, wallet, name, category string, opts ...Option) (*Result, error) {
	r := &run{
		result: &Result{
			ID:        uuid.NewString(),
			Wallet:    wallet,
			Name:      name,
			Category:  category,
			Durations: make(map[Stage]time.Duration, len(Stages)),
		},
	}
	for _, opt := range opts {
		opt(&r.opts)
	}

	logger := o.logger.With(
		zap.String("registration_id", r.result.ID),
		zap.String("wallet", wallet))
	logger.Info("Registration started",
		zap.String("name", name),
		zap.String("category", category))

	err := o.stage(ctx, r, StageAnalyze, func(ctx context.Context) error {
		summary, err := o.deps.Analyzer.Analyze(ctx, wallet)
		r.result.Summary = summary
		return err
	})
	if err == nil {
		err = o.stage(ctx, r, StageWebhook, func(ctx context.Context) error {
			monitored, err := o.deps.Registrar.Register(ctx, wallet)
			r.result.MonitoredCount = len(monitored)
			return err
		})
	}
	if err == nil {
		err = o.stage(ctx, r, StagePersist, func(ctx context.Context) error {
			return o.deps.Gateway.CommitRegistration(ctx, wallet, name, category, r.result.Summary)
		})
		switch {
		case err == nil:
		case IsDuplicateWallet(err):
			// the stored row and the webhook already agree
			logger.Warn("Wallet already registered", zap.Error(err))
		default:
			// The webhook already watches the wallet; someone has to reconcile by hand.
			logger.Warn("Wallet monitored by webhook but not stored",
				zap.String("webhook_id", o.deps.WebhookID),
				zap.Error(err))
			o.publish(ctx, events.ReconciliationNeededEvent{
				BaseEvent:      events.NewBase(events.ReconciliationNeeded),
				RegistrationID: r.result.ID,
				Wallet:         wallet,
				WebhookID:      o.deps.WebhookID,
				Error:          err,
			})
		}
	}

	if o.deps.Metrics != nil {
		o.deps.Metrics.RegistrationFinished(err)
	}
	if err != nil {
		logger.Error("Registration failed", zap.Error(err))
		return nil, err
	}

	o.publish(ctx, events.RegistrationCompletedEvent{
		BaseEvent:      events.NewBase(events.RegistrationCompleted),
		RegistrationID: r.result.ID,
		Wallet:         wallet,
		Name:           name,
		Category:       category,
		TokenCount:     len(r.result.Summary),
		MonitoredCount: r.result.MonitoredCount,
	})
	logger.Info("Registration completed",
		zap.Int("tokens", len(r.result.Summary)),
		zap.Int("monitored", r.result.MonitoredCount))
	return r.result, nil
}

func (o *Orchestrator) stage(ctx context.Context, r *run, stage Stage, fn func(context.Context) error) error {
	o.report(r, Progress{Stage: stage, Status: ProgressStarted})
	o.publish(ctx, events.StageStartedEvent{
		BaseEvent:      events.NewBase(events.StageStarted),
		RegistrationID: r.result.ID,
		Wallet:         r.result.Wallet,
		Stage:          string(stage),
	})

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	r.result.Durations[stage] = elapsed
	if o.deps.Metrics != nil {
		o.deps.Metrics.ObserveStage(string(stage), start, err)
	}

	if err != nil {
		stageErr := &StageError{Stage: stage, Err: err}
		o.report(r, Progress{Stage: stage, Status: ProgressFailed, Err: stageErr})
		o.publish(ctx, events.StageFailedEvent{
			BaseEvent:      events.NewBase(events.StageFailed),
			RegistrationID: r.result.ID,
			Wallet:         r.result.Wallet,
			Stage:          string(stage),
			Duration:       elapsed,
			Error:          err,
		})
		return stageErr
	}

	o.report(r, Progress{Stage: stage, Status: ProgressCompleted})
	o.publish(ctx, events.StageCompletedEvent{
		BaseEvent:      events.NewBase(events.StageCompleted),
		RegistrationID: r.result.ID,
		Wallet:         r.result.Wallet,
		Stage:          string(stage),
		Duration:       elapsed,
	})
	return nil
}

func (o *Orchestrator) report(r *run, p Progress) {
	if r.opts.progress != nil {
		r.opts.progress(p)
	}
}

// publish never fails a registration; handler errors are only logged.
func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if o.deps.Events == nil {
		return
	}
	if err := o.deps.Events.PublishSync(context.WithoutCancel(ctx), event); err != nil {
		o.logger.Warn("Event handler failed",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}

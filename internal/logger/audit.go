// internal/logger/audit.go
package logger

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/isuramakingshifts/Wallets-Manager/internal/events"
	"go.uber.org/zap"
)

const (
	OutcomeRegistered = "registered"
	OutcomeFailed     = "failed"
	OutcomeReconcile  = "reconcile"
)

var auditHeader = []string{"time", "registration_id", "wallet", "outcome", "stage", "detail"}

// AuditRecord is one line of the registration audit log.
type AuditRecord struct {
	Time           time.Time
	RegistrationID string
	Wallet         string
	Outcome        string
	Stage          string
	Detail         string
}

// AuditLog appends registration outcomes to a CSV file. Writes are buffered
// and flushed periodically and on Close.
type AuditLog struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger

	records uint64
}

// NewAuditLog opens (or creates) the audit file at path.
func NewAuditLog(path string, flushInterval time.Duration, logger *zap.Logger) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat audit log: %w", err)
	}

	a := &AuditLog{
		file:   file,
		writer: csv.NewWriter(file),
		ticker: time.NewTicker(flushInterval),
		done:   make(chan struct{}),
		logger: logger.Named("audit"),
	}
	if info.Size() == 0 {
		if err := a.writer.Write(auditHeader); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	a.wg.Add(1)
	go a.periodicFlush()
	return a, nil
}

// Record buffers one record.
func (a *AuditLog) Record(rec AuditRecord) error {
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.writer.Write([]string{
		rec.Time.UTC().Format(time.RFC3339),
		rec.RegistrationID,
		rec.Wallet,
		rec.Outcome,
		rec.Stage,
		rec.Detail,
	}); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	a.records++
	return nil
}

// Flush writes buffered records to disk.
func (a *AuditLog) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.writer.Flush()
	if err := a.writer.Error(); err != nil {
		return err
	}
	return a.file.Sync()
}

func (a *AuditLog) periodicFlush() {
	defer a.wg.Done()
	for {
		select {
		case <-a.ticker.C:
			if err := a.Flush(); err != nil {
				a.logger.Error("Periodic flush failed", zap.Error(err))
			}
		case <-a.done:
			return
		}
	}
}

// Close flushes and closes the file.
func (a *AuditLog) Close() error {
	a.ticker.Stop()
	close(a.done)
	a.wg.Wait()

	if err := a.Flush(); err != nil {
		_ = a.file.Close()
		return err
	}
	a.logger.Info("Audit log closed", zap.Uint64("records", a.records))
	return a.file.Close()
}

// Subscribe records registration outcomes published on bus.
func (a *AuditLog) Subscribe(bus *events.Bus) events.Subscriptions {
	return events.Subscriptions{
		bus.Subscribe(events.RegistrationCompleted, events.On(func(_ context.Context, ev events.RegistrationCompletedEvent) error {
			return a.Record(AuditRecord{
				Time:           ev.Timestamp(),
				RegistrationID: ev.RegistrationID,
				Wallet:         ev.Wallet,
				Outcome:        OutcomeRegistered,
				Detail:         fmt.Sprintf("tokens=%d monitored=%d", ev.TokenCount, ev.MonitoredCount),
			})
		})),
		bus.Subscribe(events.StageFailed, events.On(func(_ context.Context, ev events.StageFailedEvent) error {
			return a.Record(AuditRecord{
				Time:           ev.Timestamp(),
				RegistrationID: ev.RegistrationID,
				Wallet:         ev.Wallet,
				Outcome:        OutcomeFailed,
				Stage:          ev.Stage,
				Detail:         errString(ev.Error),
			})
		})),
		bus.Subscribe(events.ReconciliationNeeded, events.On(func(_ context.Context, ev events.ReconciliationNeededEvent) error {
			return a.Record(AuditRecord{
				Time:           ev.Timestamp(),
				RegistrationID: ev.RegistrationID,
				Wallet:         ev.Wallet,
				Outcome:        OutcomeReconcile,
				Detail:         "webhook " + ev.WebhookID + ": " + errString(ev.Error),
			})
		})),
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Stage events
	StageStarted   EventType = "registration.stage.started"
	StageCompleted EventType = "registration.stage.completed"
	StageFailed    EventType = "registration.stage.failed"

	// Registration events
	RegistrationCompleted EventType = "registration.completed"
	ReconciliationNeeded  EventType = "registration.reconciliation_needed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// NewBase stamps an event of the given type with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// StageStartedEvent is emitted before a pipeline stage runs.
type StageStartedEvent struct {
	BaseEvent
	RegistrationID string
	Wallet         string
	Stage          string
}

// StageCompletedEvent is emitted after a stage succeeds.
type StageCompletedEvent struct {
	BaseEvent
	RegistrationID string
	Wallet         string
	Stage          string
	Duration       time.Duration
}

// StageFailedEvent is emitted when a stage fails; later stages do not run.
type StageFailedEvent struct {
	BaseEvent
	RegistrationID string
	Wallet         string
	Stage          string
	Duration       time.Duration
	Error          error
}

// RegistrationCompletedEvent is emitted once all stages succeed.
type RegistrationCompletedEvent struct {
	BaseEvent
	RegistrationID string
	Wallet         string
	Name           string
	Category       string
	TokenCount     int
	MonitoredCount int
}

// ReconciliationNeededEvent is emitted when the webhook already monitors a
// wallet whose record could not be stored.
type ReconciliationNeededEvent struct {
	BaseEvent
	RegistrationID string
	Wallet         string
	WebhookID      string
	Error          error
}

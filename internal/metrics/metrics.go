// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the registration pipeline collectors.
type Metrics struct {
	registrations   *prometheus.CounterVec
	stageFailures   *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	skippedAccounts prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallets_registrations_total",
		Help: "Total number of wallet registrations by result",
	}, []string{"result"})
	stageFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallets_stage_failures_total",
		Help: "Total number of failed registration stages",
	}, []string{"stage"})
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wallets_stage_duration_seconds",
		Help:    "Registration stage duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"stage"})
	skippedAccounts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallets_token_accounts_skipped_total",
		Help: "Token accounts left out of an activity summary",
	})

	reg.MustRegister(registrations, stageFailures, stageDuration, skippedAccounts)

	return &Metrics{
		registrations:   registrations,
		stageFailures:   stageFailures,
		stageDuration:   stageDuration,
		skippedAccounts: skippedAccounts,
	}
}

// ObserveStage records the stage duration and counts a failure when err is set.
func (m *Metrics) ObserveStage(stage string, start time.Time, err error) {
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		m.stageFailures.WithLabelValues(stage).Inc()
	}
}

// RegistrationFinished counts one finished registration.
func (m *Metrics) RegistrationFinished(err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.registrations.WithLabelValues(result).Inc()
}

// AccountSkipped counts a token account dropped from a summary.
func (m *Metrics) AccountSkipped() {
	m.skippedAccounts.Inc()
}

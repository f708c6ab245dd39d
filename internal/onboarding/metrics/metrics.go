package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the onboarding module.
type Metrics struct {
	SessionsStarted     prometheus.Counter
	SessionsEnded       *prometheus.CounterVec
	StepsCompleted      *prometheus.CounterVec
	AttestationPhases   *prometheus.CounterVec
	AttestationDuration prometheus.Histogram
	BackendRequests     *prometheus.HistogramVec
	SecretsWiped        *prometheus.CounterVec
}

// New registers the onboarding metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "satnam_onboarding_sessions_started_total",
			Help: "Total number of onboarding sessions started",
		}),
		SessionsEnded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "satnam_onboarding_sessions_ended_total",
			Help: "Onboarding sessions that reached a terminal status",
		}, []string{"status"}),
		StepsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "satnam_onboarding_steps_completed_total",
			Help: "Wizard steps completed, by step",
		}, []string{"step"}),
		AttestationPhases: f.NewCounterVec(prometheus.CounterOpts{
			Name: "satnam_attestation_phase_outcomes_total",
			Help: "Attestation phase outcomes, by phase and status",
		}, []string{"phase", "status"}),
		AttestationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "satnam_attestation_pipeline_duration_seconds",
			Help:    "Duration of a full attestation pipeline run",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		BackendRequests: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "satnam_backend_request_duration_seconds",
			Help:    "Latency of onboarding backend requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		}, []string{"endpoint", "outcome"}),
		SecretsWiped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "satnam_secrets_wiped_total",
			Help: "Ephemeral secret wipes, by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) IncrementSessionStarted() {
	m.SessionsStarted.Inc()
}

func (m *Metrics) IncrementSessionEnded(status string) {
	m.SessionsEnded.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementStepCompleted(step string) {
	m.StepsCompleted.WithLabelValues(step).Inc()
}

func (m *Metrics) IncrementAttestationPhase(phase, status string) {
	m.AttestationPhases.WithLabelValues(phase, status).Inc()
}

// ObserveAttestation records a pipeline run. Call with time.Now() at the start.
func (m *Metrics) ObserveAttestation(start time.Time) {
	m.AttestationDuration.Observe(time.Since(start).Seconds())
}

// ObserveBackendRequest records one backend round trip.
func (m *Metrics) ObserveBackendRequest(endpoint, outcome string, start time.Time) {
	m.BackendRequests.WithLabelValues(endpoint, outcome).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementSecretsWiped(reason string) {
	m.SecretsWiped.WithLabelValues(reason).Inc()
}

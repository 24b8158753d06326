// Package metrics provides Prometheus metrics collection for the orchestrator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector used by the orchestrator's
// components. A single instance is constructed in the composition root and
// injected into every consumer; there is no package-level global.
type Metrics struct {
	// Agent lifecycle
	AgentStateTransitionsTotal *prometheus.CounterVec
	AgentsActive               *prometheus.GaugeVec
	HeartbeatAgeSeconds        *prometheus.GaugeVec

	// Task queue
	TaskClaimsTotal   *prometheus.CounterVec
	TaskAttemptsTotal *prometheus.CounterVec
	TaskDuration      *prometheus.HistogramVec

	// Evidence pipeline
	EvidenceIngestedTotal *prometheus.CounterVec
	PipelineStageDuration *prometheus.HistogramVec
	OutboxRetriesTotal    *prometheus.CounterVec

	// Resilience
	BreakerState         *prometheus.GaugeVec
	BreakerTripsTotal     *prometheus.CounterVec
	BucketRejectionsTotal *prometheus.CounterVec

	// Scheduler
	SchedulerTickDuration prometheus.Histogram
	JobsFiredTotal        *prometheus.CounterVec

	// Trust score
	TrustScore *prometheus.GaugeVec
}

// New creates a Metrics instance registered against the default registerer.
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against a custom
// registerer, useful for isolated tests.
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		AgentStateTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_state_transitions_total",
				Help: "Total agent state machine transitions.",
			},
			[]string{"service", "from", "to"},
		),
		AgentsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "agents_active",
				Help: "Current number of agents per status.",
			},
			[]string{"service", "status"},
		),
		HeartbeatAgeSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "heartbeat_age_seconds",
				Help: "Seconds since the last heartbeat was observed for an agent.",
			},
			[]string{"service", "agent_id"},
		),
		TaskClaimsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "task_claims_total",
				Help: "Total tasks claimed, by agent kind.",
			},
			[]string{"service", "agent_kind"},
		),
		TaskAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "task_attempts_total",
				Help: "Total task attempts, by terminal outcome.",
			},
			[]string{"service", "outcome"},
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "task_duration_seconds",
				Help:    "Task execution duration in seconds.",
				Buckets: []float64{.05, .1, .5, 1, 5, 10, 30, 60, 300, 600},
			},
			[]string{"service", "agent_kind"},
		),
		EvidenceIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evidence_ingested_total",
				Help: "Total evidence rows submitted to the pipeline.",
			},
			[]string{"service", "tenant_id", "kind", "dedup"},
		),
		PipelineStageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evidence_pipeline_stage_duration_seconds",
				Help:    "Duration of each evidence pipeline stage.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "stage"},
		),
		OutboxRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evidence_outbox_retries_total",
				Help: "Total notification retries from the evidence outbox.",
			},
			[]string{"service", "topic"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half_open, 2=open).",
			},
			[]string{"service", "target"},
		),
		BreakerTripsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breaker_trips_total",
				Help: "Total times a circuit breaker opened.",
			},
			[]string{"service", "target"},
		),
		BucketRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bucket_rejections_total",
				Help: "Total rate limiter rejections.",
			},
			[]string{"service", "tenant_id", "action"},
		),
		SchedulerTickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scheduler_tick_duration_seconds",
				Help:    "Duration of each scheduler tick.",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
			},
		),
		JobsFiredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduler_jobs_fired_total",
				Help: "Total recurring jobs materialized into tasks.",
			},
			[]string{"service", "agent_kind"},
		),
		TrustScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trust_score",
				Help: "Current overall trust score per tenant.",
			},
			[]string{"service", "tenant_id"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.AgentStateTransitionsTotal,
			m.AgentsActive,
			m.HeartbeatAgeSeconds,
			m.TaskClaimsTotal,
			m.TaskAttemptsTotal,
			m.TaskDuration,
			m.EvidenceIngestedTotal,
			m.PipelineStageDuration,
			m.OutboxRetriesTotal,
			m.BreakerState,
			m.BreakerTripsTotal,
			m.BucketRejectionsTotal,
			m.SchedulerTickDuration,
			m.JobsFiredTotal,
			m.TrustScore,
		)
	}

	return m
}

// RecordAgentTransition records an agent state machine transition.
func (m *Metrics) RecordAgentTransition(service, from, to string) {
	m.AgentStateTransitionsTotal.WithLabelValues(service, from, to).Inc()
}

// SetHeartbeatAge records the freshness of an agent's last heartbeat.
func (m *Metrics) SetHeartbeatAge(service, agentID string, age time.Duration) {
	m.HeartbeatAgeSeconds.WithLabelValues(service, agentID).Set(age.Seconds())
}

// RecordTaskClaim records a task claim for an agent kind.
func (m *Metrics) RecordTaskClaim(service, agentKind string) {
	m.TaskClaimsTotal.WithLabelValues(service, agentKind).Inc()
}

// RecordTaskOutcome records a terminal task attempt outcome and its duration.
func (m *Metrics) RecordTaskOutcome(service, agentKind, outcome string, duration time.Duration) {
	m.TaskAttemptsTotal.WithLabelValues(service, outcome).Inc()
	m.TaskDuration.WithLabelValues(service, agentKind).Observe(duration.Seconds())
}

// RecordEvidenceIngested records one evidence submission outcome.
func (m *Metrics) RecordEvidenceIngested(service, tenantID, kind string, duplicate bool) {
	dedup := "false"
	if duplicate {
		dedup = "true"
	}
	m.EvidenceIngestedTotal.WithLabelValues(service, tenantID, kind, dedup).Inc()
}

// SetBreakerState records the current numeric state of a circuit breaker.
func (m *Metrics) SetBreakerState(service, target string, state int) {
	m.BreakerState.WithLabelValues(service, target).Set(float64(state))
}

// RecordBreakerTrip records a breaker opening.
func (m *Metrics) RecordBreakerTrip(service, target string) {
	m.BreakerTripsTotal.WithLabelValues(service, target).Inc()
}

// RecordBucketRejection records a rate limiter rejection.
func (m *Metrics) RecordBucketRejection(service, tenantID, action string) {
	m.BucketRejectionsTotal.WithLabelValues(service, tenantID, action).Inc()
}

// SetTrustScore records the latest computed trust score for a tenant.
func (m *Metrics) SetTrustScore(service, tenantID string, score float64) {
	m.TrustScore.WithLabelValues(service, tenantID).Set(score)
}

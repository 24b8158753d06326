// Package model defines the data types shared across every orchestrator
// component: Agent, Task, Evidence, ComplianceRule, and TrustScore (spec §3).
package model

import "time"

// AgentKind enumerates the collector kinds the orchestrator can manage.
type AgentKind string

const (
	AgentKindAWS           AgentKind = "AWS"
	AgentKindGCP           AgentKind = "GCP"
	AgentKindAzure         AgentKind = "AZURE"
	AgentKindGitHub        AgentKind = "GITHUB"
	AgentKindWorkspace     AgentKind = "WORKSPACE"
	AgentKindGDPR          AgentKind = "GDPR"
	AgentKindTrustScore    AgentKind = "TRUST_SCORE"
	AgentKindMonitor       AgentKind = "MONITOR"
	AgentKindObservability AgentKind = "OBSERVABILITY"
)

// AgentStatus is a state in the AgentRuntime state machine of spec §4.8.
type AgentStatus string

const (
	AgentStatusCreated    AgentStatus = "CREATED"
	AgentStatusStarting   AgentStatus = "STARTING"
	AgentStatusRunning    AgentStatus = "RUNNING"
	AgentStatusPaused     AgentStatus = "PAUSED"
	AgentStatusDegraded   AgentStatus = "DEGRADED"
	AgentStatusStopping   AgentStatus = "STOPPING"
	AgentStatusStopped    AgentStatus = "STOPPED"
	AgentStatusError      AgentStatus = "ERROR"
	AgentStatusTerminated AgentStatus = "TERMINATED"
)

// Terminal reports whether status is a terminal state (STOPPED, TERMINATED).
func (s AgentStatus) Terminal() bool {
	return s == AgentStatusStopped || s == AgentStatusTerminated
}

// agentTransitions enumerates the legal edges of the state graph in
// spec §4.8. Any transition not present here fails IllegalTransition.
var agentTransitions = map[AgentStatus]map[AgentStatus]bool{
	AgentStatusCreated:  {AgentStatusStarting: true},
	AgentStatusStarting: {AgentStatusRunning: true, AgentStatusError: true},
	AgentStatusRunning: {
		AgentStatusDegraded: true,
		AgentStatusPaused:   true,
		AgentStatusStopping: true,
	},
	AgentStatusDegraded: {
		AgentStatusRunning:  true,
		AgentStatusError:    true,
		AgentStatusStopping: true,
	},
	AgentStatusPaused: {
		AgentStatusRunning:  true,
		AgentStatusStopping: true,
	},
	AgentStatusStopping: {
		AgentStatusStopped:    true,
		AgentStatusTerminated: true,
	},
	AgentStatusError: {
		AgentStatusStopping: true,
	},
}

// CanTransition reports whether moving from `from` to `to` is a legal edge
// of the Agent state machine.
func CanTransition(from, to AgentStatus) bool {
	edges, ok := agentTransitions[from]
	if !ok {
		return false
	}
	return edges[to]
}

// Agent is a managed collector instance, owned exclusively by the
// Orchestrator (spec §3).
type Agent struct {
	ID              string
	TenantID        string
	Kind            AgentKind
	Config          map[string]any
	Status          AgentStatus
	CreatedAt       time.Time
	LastHeartbeatAt time.Time
	Error           string
	Metrics         AgentMetrics
}

// AgentMetrics holds the counters reported with each heartbeat (spec §4.8).
type AgentMetrics struct {
	CPUPercent      float64
	RSSBytes        int64
	InFlight        int
	Collected       int64
	Errors          int64
	LastLatencyMs   int64
	ConsecutiveMiss int
}

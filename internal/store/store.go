// Package store defines the persistence contract shared by every orchestrator
// component (spec §4.1). Two implementations satisfy it: memorystore, used by
// tests and local runs, and pgstore, backed by PostgreSQL.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/R3E-Network/compliance-orchestrator/internal/model"
)

// ErrNotFound is returned by Load-style lookups that find nothing.
var ErrNotFound = errors.New("store: not found")

// ErrCASMismatch is returned by a compare-and-set call whose expected prior
// state does not match what the store holds.
var ErrCASMismatch = errors.New("store: compare-and-set mismatch")

// PutResult distinguishes a fresh insert from a touched duplicate, returned
// by PutEvidenceIfAbsent.
type PutResult int

const (
	// Inserted means a new Evidence row was created.
	Inserted PutResult = iota
	// Duplicate means an Evidence row with the same (tenant_id, content_hash)
	// already existed; ExistingID names it.
	Duplicate
)

// AgentFilter narrows ListAgents. Zero-valued fields are unconstrained.
type AgentFilter struct {
	TenantID string
	Kind     model.AgentKind
	Status   model.AgentStatus
}

// AuditEvent is one append_audit row (spec §4.1).
type AuditEvent struct {
	ID        string
	SubjectID string
	Kind      string
	Detail    map[string]any
	At        time.Time
}

// Store is the persistence contract of spec §4.1. Implementations return
// ErrNotFound, ErrCASMismatch, or a wrapped I/O error, not an
// infrastructure/errors.Fault; callers such as the orchestrator, the agent
// runtime and the pipeline wrap I/O failures as Faults of Kind StorageFault.
type Store interface {
	PutAgent(ctx context.Context, agent model.Agent) error
	LoadAgent(ctx context.Context, id string) (model.Agent, error)
	ListAgents(ctx context.Context, filter AgentFilter) ([]model.Agent, error)
	// CASAgentStatus flips an Agent's status from `from` to `to` only if its
	// current stored status equals `from`. Returns ErrCASMismatch otherwise.
	CASAgentStatus(ctx context.Context, id string, from, to model.AgentStatus) error

	EnqueueTask(ctx context.Context, task model.Task) error
	// ClaimNextTask atomically picks the due (not_before <= now) PENDING or
	// RETRY task routed to this agent with the lowest priority number, oldest
	// first among equal priorities, flips it to ASSIGNED, and returns it.
	// Returns ErrNotFound if no task is claimable.
	ClaimNextTask(ctx context.Context, agentID string, now time.Time) (model.Task, error)
	// StartTask transitions an ASSIGNED task to RUNNING, recording startedAt.
	StartTask(ctx context.Context, id string, startedAt time.Time) error
	// CompleteTask transitions a RUNNING task to COMPLETED or FAILED,
	// recording result/error and the final attempt count.
	CompleteTask(ctx context.Context, id string, result map[string]any, taskErr string, attempts int) error
	// RetryTask transitions a RUNNING task back to RETRY, recording the
	// failure and the backoff-computed not_before (spec §4.8).
	RetryTask(ctx context.Context, id string, taskErr string, attempts int, notBefore time.Time) error
	// ListStaleTasks returns every task currently RUNNING or ASSIGNED, for
	// OnStartup recovery (spec §4.10, S4) to reconcile after a crash.
	ListStaleTasks(ctx context.Context) ([]model.Task, error)
	// ReconcileStaleTask resets a stale RUNNING/ASSIGNED task (one whose
	// owning agent runtime died with the process) back to RETRY. Unlike
	// RetryTask it does not require the task to be RUNNING, since recovery
	// must also reclaim tasks that never got past ASSIGNED.
	ReconcileStaleTask(ctx context.Context, id string, attempts int, notBefore time.Time) error

	// PutEvidenceIfAbsent inserts evidence keyed by (tenant_id, content_hash),
	// or touches the existing row's last-seen timestamp if already present.
	PutEvidenceIfAbsent(ctx context.Context, evidence model.Evidence) (PutResult, string, error)

	AppendAudit(ctx context.Context, event AuditEvent) error

	// GetTrustInputs streams validated (non-ERROR) evidence for a tenant, for
	// TrustScoreEngine consumption.
	GetTrustInputs(ctx context.Context, tenantID string) ([]model.Evidence, error)

	// PutTrustScore persists the latest TrustScore snapshot for a tenant,
	// overwriting any prior snapshot.
	PutTrustScore(ctx context.Context, score model.TrustScore) error
	// GetTrustScore returns a tenant's last-computed TrustScore, or
	// ErrNotFound if none has been computed yet.
	GetTrustScore(ctx context.Context, tenantID string) (model.TrustScore, error)
}

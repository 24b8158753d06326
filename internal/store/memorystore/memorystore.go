// Package memorystore is an in-memory store.Store implementation used by
// tests and single-node local runs (SPEC_FULL §4.17).
package memorystore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/compliance-orchestrator/internal/model"
	"github.com/R3E-Network/compliance-orchestrator/internal/store"
)

// Store is a map-backed store.Store guarded by a single mutex.
type Store struct {
	mu sync.Mutex

	agents      map[string]model.Agent
	tasks       map[string]model.Task
	evidence    map[string]model.Evidence // keyed by ID
	byHash      map[string]string         // (tenant_id, content_hash) -> evidence ID
	audit       map[string][]store.AuditEvent
	trustScores map[string]model.TrustScore

	// MaxAuditPerSubject bounds append_audit's ring per subject (spec §4.1).
	MaxAuditPerSubject int
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		agents:             make(map[string]model.Agent),
		tasks:              make(map[string]model.Task),
		evidence:           make(map[string]model.Evidence),
		byHash:             make(map[string]string),
		audit:              make(map[string][]store.AuditEvent),
		trustScores:        make(map[string]model.TrustScore),
		MaxAuditPerSubject: 1000,
	}
}

func hashKey(tenantID, contentHash string) string {
	return tenantID + "/" + contentHash
}

func (s *Store) PutAgent(_ context.Context, agent model.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[agent.ID] = agent
	return nil
}

func (s *Store) LoadAgent(_ context.Context, id string) (model.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return model.Agent{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAgents(_ context.Context, filter store.AgentFilter) ([]model.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Agent
	for _, a := range s.agents {
		if filter.TenantID != "" && a.TenantID != filter.TenantID {
			continue
		}
		if filter.Kind != "" && a.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CASAgentStatus(_ context.Context, id string, from, to model.AgentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agents[id]
	if !ok {
		return store.ErrNotFound
	}
	if a.Status != from {
		return store.ErrCASMismatch
	}
	a.Status = to
	s.agents[id] = a
	return nil
}

// TaskByID returns a task by ID, for test and debugging introspection; it is
// not part of the store.Store contract.
func (s *Store) TaskByID(id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) EnqueueTask(_ context.Context, task model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return nil
}

// ClaimNextTask picks the oldest PENDING/RETRY task due for this agent,
// ordered by priority ascending (critical=1 first) then CreatedAt ascending,
// flips it to ASSIGNED, and returns it.
func (s *Store) ClaimNextTask(_ context.Context, agentID string, now time.Time) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *model.Task
	for id, t := range s.tasks {
		if t.AgentID != agentID {
			continue
		}
		if t.Status != model.TaskStatusPending && t.Status != model.TaskStatusRetry {
			continue
		}
		if t.NotBefore.After(now) {
			continue
		}
		candidate := s.tasks[id]
		if best == nil || less(candidate, *best) {
			tCopy := candidate
			best = &tCopy
		}
	}
	if best == nil {
		return model.Task{}, store.ErrNotFound
	}

	best.Status = model.TaskStatusAssigned
	s.tasks[best.ID] = *best
	return *best, nil
}

func less(a, b model.Task) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (s *Store) CompleteTask(_ context.Context, id string, result map[string]any, taskErr string, attempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	if t.Status != model.TaskStatusRunning {
		return store.ErrCASMismatch
	}

	t.Attempts = attempts
	t.Result = result
	t.Error = taskErr
	if taskErr != "" {
		t.Status = model.TaskStatusFailed
	} else {
		t.Status = model.TaskStatusCompleted
	}
	s.tasks[id] = t
	return nil
}

func (s *Store) StartTask(_ context.Context, id string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	if t.Status != model.TaskStatusAssigned {
		return store.ErrCASMismatch
	}
	t.Status = model.TaskStatusRunning
	t.StartedAt = &startedAt
	s.tasks[id] = t
	return nil
}

func (s *Store) RetryTask(_ context.Context, id string, taskErr string, attempts int, notBefore time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	if t.Status != model.TaskStatusRunning {
		return store.ErrCASMismatch
	}

	t.Attempts = attempts
	t.Error = taskErr
	t.Status = model.TaskStatusRetry
	t.NotBefore = notBefore
	s.tasks[id] = t
	return nil
}

func (s *Store) ListStaleTasks(_ context.Context) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Task
	for _, t := range s.tasks {
		if t.Status == model.TaskStatusRunning || t.Status == model.TaskStatusAssigned {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ReconcileStaleTask(_ context.Context, id string, attempts int, notBefore time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	if t.Status != model.TaskStatusRunning && t.Status != model.TaskStatusAssigned {
		return store.ErrCASMismatch
	}

	t.Attempts = attempts
	t.Status = model.TaskStatusRetry
	t.NotBefore = notBefore
	s.tasks[id] = t
	return nil
}

func (s *Store) PutEvidenceIfAbsent(_ context.Context, evidence model.Evidence) (store.PutResult, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hashKey(evidence.TenantID, evidence.ContentHash)
	if existingID, ok := s.byHash[key]; ok {
		return store.Duplicate, existingID, nil
	}

	if evidence.ID == "" {
		evidence.ID = uuid.NewString()
	}
	s.evidence[evidence.ID] = evidence
	s.byHash[key] = evidence.ID
	return store.Inserted, evidence.ID, nil
}

func (s *Store) AppendAudit(_ context.Context, event store.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := append(s.audit[event.SubjectID], event)
	if max := s.MaxAuditPerSubject; max > 0 && len(events) > max {
		events = events[len(events)-max:]
	}
	s.audit[event.SubjectID] = events
	return nil
}

func (s *Store) GetTrustInputs(_ context.Context, tenantID string) ([]model.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Evidence
	for _, e := range s.evidence {
		if e.TenantID != tenantID {
			continue
		}
		if e.ComplianceStatus == model.ComplianceError {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CollectedAt.Before(out[j].CollectedAt) })
	return out, nil
}

func (s *Store) PutTrustScore(_ context.Context, score model.TrustScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trustScores[score.TenantID] = score
	return nil
}

func (s *Store) GetTrustScore(_ context.Context, tenantID string) (model.TrustScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.trustScores[tenantID]
	if !ok {
		return model.TrustScore{}, store.ErrNotFound
	}
	return ts, nil
}

var _ store.Store = (*Store)(nil)

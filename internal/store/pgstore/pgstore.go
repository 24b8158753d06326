// Package pgstore is the PostgreSQL-backed store.Store implementation
// (SPEC_FULL §4.17), using database/sql with github.com/lib/pq.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/R3E-Network/compliance-orchestrator/internal/model"
	"github.com/R3E-Network/compliance-orchestrator/internal/store"
)

// Store persists agents, tasks, evidence, and audit events in Postgres.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and ensures the schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: open: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already-open *sql.DB, skipping migration (tests / pooled
// connections managed elsewhere).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id                text PRIMARY KEY,
			tenant_id         text NOT NULL,
			kind              text NOT NULL,
			config            jsonb NOT NULL DEFAULT '{}',
			status            text NOT NULL,
			created_at        timestamptz NOT NULL,
			last_heartbeat_at timestamptz,
			error             text NOT NULL DEFAULT '',
			metrics           jsonb NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agents_tenant ON agents(tenant_id)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id           text PRIMARY KEY,
			agent_id     text NOT NULL,
			agent_kind   text NOT NULL,
			kind         text NOT NULL,
			priority     integer NOT NULL,
			payload      jsonb NOT NULL DEFAULT '{}',
			status       text NOT NULL,
			source       text NOT NULL DEFAULT '',
			attempts     integer NOT NULL DEFAULT 0,
			max_attempts integer NOT NULL DEFAULT 3,
			created_at   timestamptz NOT NULL,
			started_at   timestamptz,
			completed_at timestamptz,
			result       jsonb,
			error        text NOT NULL DEFAULT '',
			not_before   timestamptz NOT NULL,
			deadline     timestamptz
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_claim ON tasks(agent_id, status, not_before)`,
		`CREATE TABLE IF NOT EXISTS evidence (
			id                text PRIMARY KEY,
			agent_id          text NOT NULL,
			tenant_id         text NOT NULL,
			kind              text NOT NULL,
			source            text NOT NULL,
			resource_ref      text NOT NULL DEFAULT '',
			collected_at      timestamptz NOT NULL,
			content_hash      text NOT NULL,
			size_bytes        bigint NOT NULL DEFAULT 0,
			frameworks        jsonb NOT NULL DEFAULT '[]',
			data              jsonb NOT NULL DEFAULT '{}',
			compliance_status text NOT NULL DEFAULT 'UNKNOWN',
			risk              text NOT NULL DEFAULT 'UNKNOWN',
			findings          jsonb NOT NULL DEFAULT '[]',
			touched_at        timestamptz NOT NULL,
			UNIQUE(tenant_id, content_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id         text PRIMARY KEY,
			subject_id text NOT NULL,
			kind       text NOT NULL,
			detail     jsonb NOT NULL DEFAULT '{}',
			at         timestamptz NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit_events(subject_id, at)`,
		`CREATE TABLE IF NOT EXISTS trust_scores (
			tenant_id        text PRIMARY KEY,
			overall          double precision NOT NULL,
			by_pillar        jsonb NOT NULL DEFAULT '{}',
			by_framework     jsonb NOT NULL DEFAULT '{}',
			by_control       jsonb NOT NULL DEFAULT '{}',
			evidence_count   integer NOT NULL DEFAULT 0,
			automation_ratio double precision NOT NULL DEFAULT 0,
			points           integer NOT NULL DEFAULT 0,
			grade            text NOT NULL,
			computed_at      timestamptz NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("pgstore: migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) PutAgent(ctx context.Context, a model.Agent) error {
	cfg, err := json.Marshal(a.Config)
	if err != nil {
		return fmt.Errorf("pgstore: marshal agent config: %w", err)
	}
	metrics, err := json.Marshal(a.Metrics)
	if err != nil {
		return fmt.Errorf("pgstore: marshal agent metrics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agents (id, tenant_id, kind, config, status, created_at, last_heartbeat_at, error, metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			kind = EXCLUDED.kind,
			config = EXCLUDED.config,
			status = EXCLUDED.status,
			last_heartbeat_at = EXCLUDED.last_heartbeat_at,
			error = EXCLUDED.error,
			metrics = EXCLUDED.metrics`,
		a.ID, a.TenantID, string(a.Kind), cfg, string(a.Status), a.CreatedAt, a.LastHeartbeatAt, a.Error, metrics)
	if err != nil {
		return fmt.Errorf("pgstore: put agent: %w", err)
	}
	return nil
}

func (s *Store) LoadAgent(ctx context.Context, id string) (model.Agent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, kind, config, status, created_at, last_heartbeat_at, error, metrics
		FROM agents WHERE id = $1`, id)
	return scanAgent(row)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAgent(row scannable) (model.Agent, error) {
	var (
		a            model.Agent
		kind, status string
		cfg, metrics []byte
		heartbeat    sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.TenantID, &kind, &cfg, &status, &a.CreatedAt, &heartbeat, &a.Error, &metrics); err != nil {
		if err == sql.ErrNoRows {
			return model.Agent{}, store.ErrNotFound
		}
		return model.Agent{}, fmt.Errorf("pgstore: scan agent: %w", err)
	}
	a.Kind = model.AgentKind(kind)
	a.Status = model.AgentStatus(status)
	if heartbeat.Valid {
		a.LastHeartbeatAt = heartbeat.Time
	}
	if err := json.Unmarshal(cfg, &a.Config); err != nil {
		return model.Agent{}, fmt.Errorf("pgstore: unmarshal agent config: %w", err)
	}
	if err := json.Unmarshal(metrics, &a.Metrics); err != nil {
		return model.Agent{}, fmt.Errorf("pgstore: unmarshal agent metrics: %w", err)
	}
	return a, nil
}

func (s *Store) ListAgents(ctx context.Context, filter store.AgentFilter) ([]model.Agent, error) {
	query := `SELECT id, tenant_id, kind, config, status, created_at, last_heartbeat_at, error, metrics FROM agents WHERE 1=1`
	var args []any
	if filter.TenantID != "" {
		args = append(args, filter.TenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list agents: %w", err)
	}
	defer rows.Close()

	var out []model.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CASAgentStatus(ctx context.Context, id string, from, to model.AgentStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE agents SET status = $1 WHERE id = $2 AND status = $3`,
		string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("pgstore: cas agent status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgstore: cas agent status rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.LoadAgent(ctx, id); err != nil {
			return err
		}
		return store.ErrCASMismatch
	}
	return nil
}

func (s *Store) EnqueueTask(ctx context.Context, t model.Task) error {
	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return fmt.Errorf("pgstore: marshal task payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, agent_id, agent_kind, kind, priority, payload, status, source,
			attempts, max_attempts, created_at, not_before, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.AgentID, string(t.AgentKind), t.Kind, t.Priority, payload, string(t.Status), string(t.Source),
		t.Attempts, t.MaxAttempts, t.CreatedAt, t.NotBefore, nullableTime(t.Deadline))
	if err != nil {
		return fmt.Errorf("pgstore: enqueue task: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// ClaimNextTask uses SELECT ... FOR UPDATE SKIP LOCKED so concurrent
// orchestrator instances never double-claim the same task.
func (s *Store) ClaimNextTask(ctx context.Context, agentID string, now time.Time) (model.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, fmt.Errorf("pgstore: begin claim tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id FROM tasks
		WHERE agent_id = $1 AND status IN ('PENDING', 'RETRY') AND not_before <= $2
		ORDER BY priority ASC, created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1`, agentID, now)

	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return model.Task{}, store.ErrNotFound
		}
		return model.Task{}, fmt.Errorf("pgstore: claim select: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET status = 'ASSIGNED' WHERE id = $1`, id); err != nil {
		return model.Task{}, fmt.Errorf("pgstore: claim update: %w", err)
	}

	task, err := scanTaskTx(ctx, tx, id)
	if err != nil {
		return model.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Task{}, fmt.Errorf("pgstore: claim commit: %w", err)
	}
	return task, nil
}

func scanTaskTx(ctx context.Context, tx *sql.Tx, id string) (model.Task, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, agent_id, agent_kind, kind, priority, payload, status, source,
			attempts, max_attempts, created_at, started_at, completed_at, result, error, not_before, deadline
		FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func scanTask(row scannable) (model.Task, error) {
	var (
		t                     model.Task
		agentKind, status, sr string
		payload, result       []byte
		started, completed    sql.NullTime
		deadline              sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.AgentID, &agentKind, &t.Kind, &t.Priority, &payload, &status, &sr,
		&t.Attempts, &t.MaxAttempts, &t.CreatedAt, &started, &completed, &result, &t.Error, &t.NotBefore, &deadline); err != nil {
		if err == sql.ErrNoRows {
			return model.Task{}, store.ErrNotFound
		}
		return model.Task{}, fmt.Errorf("pgstore: scan task: %w", err)
	}
	t.AgentKind = model.AgentKind(agentKind)
	t.Status = model.TaskStatus(status)
	t.Source = model.TaskSource(sr)
	if started.Valid {
		t.StartedAt = &started.Time
	}
	if completed.Valid {
		t.CompletedAt = &completed.Time
	}
	if deadline.Valid {
		t.Deadline = deadline.Time
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &t.Payload); err != nil {
			return model.Task{}, fmt.Errorf("pgstore: unmarshal task payload: %w", err)
		}
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &t.Result); err != nil {
			return model.Task{}, fmt.Errorf("pgstore: unmarshal task result: %w", err)
		}
	}
	return t, nil
}

func (s *Store) CompleteTask(ctx context.Context, id string, result map[string]any, taskErr string, attempts int) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("pgstore: marshal task result: %w", err)
	}

	status := "COMPLETED"
	if taskErr != "" {
		status = "FAILED"
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = $1, result = $2, error = $3, attempts = $4, completed_at = now()
		WHERE id = $5 AND status = 'RUNNING'`,
		status, resultJSON, taskErr, attempts, id)
	if err != nil {
		return fmt.Errorf("pgstore: complete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgstore: complete task rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrCASMismatch
	}
	return nil
}

func (s *Store) StartTask(ctx context.Context, id string, startedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = 'RUNNING', started_at = $1 WHERE id = $2 AND status = 'ASSIGNED'`,
		startedAt, id)
	if err != nil {
		return fmt.Errorf("pgstore: start task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgstore: start task rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrCASMismatch
	}
	return nil
}

func (s *Store) RetryTask(ctx context.Context, id string, taskErr string, attempts int, notBefore time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = 'RETRY', error = $1, attempts = $2, not_before = $3
		WHERE id = $4 AND status = 'RUNNING'`,
		taskErr, attempts, notBefore, id)
	if err != nil {
		return fmt.Errorf("pgstore: retry task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgstore: retry task rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrCASMismatch
	}
	return nil
}

func (s *Store) ListStaleTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, agent_kind, kind, priority, payload, status, source,
			attempts, max_attempts, created_at, started_at, completed_at, result, error, not_before, deadline
		FROM tasks WHERE status IN ('RUNNING', 'ASSIGNED') ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list stale tasks: %w", err)
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ReconcileStaleTask resets a RUNNING or ASSIGNED task to RETRY, unlike
// RetryTask which only accepts a RUNNING source row.
func (s *Store) ReconcileStaleTask(ctx context.Context, id string, attempts int, notBefore time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = 'RETRY', attempts = $1, not_before = $2
		WHERE id = $3 AND status IN ('RUNNING', 'ASSIGNED')`,
		attempts, notBefore, id)
	if err != nil {
		return fmt.Errorf("pgstore: reconcile stale task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgstore: reconcile stale task rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrCASMismatch
	}
	return nil
}

// PutEvidenceIfAbsent relies on the (tenant_id, content_hash) unique
// constraint: ON CONFLICT DO NOTHING, then a follow-up read determines
// whether this call inserted or found an existing row.
func (s *Store) PutEvidenceIfAbsent(ctx context.Context, e model.Evidence) (store.PutResult, string, error) {
	frameworks, err := json.Marshal(e.Frameworks)
	if err != nil {
		return 0, "", fmt.Errorf("pgstore: marshal frameworks: %w", err)
	}
	data, err := json.Marshal(e.Data)
	if err != nil {
		return 0, "", fmt.Errorf("pgstore: marshal evidence data: %w", err)
	}
	findings, err := json.Marshal(e.Findings)
	if err != nil {
		return 0, "", fmt.Errorf("pgstore: marshal findings: %w", err)
	}

	var insertedID string
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO evidence (id, agent_id, tenant_id, kind, source, resource_ref, collected_at,
			content_hash, size_bytes, frameworks, data, compliance_status, risk, findings, touched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
		ON CONFLICT (tenant_id, content_hash) DO NOTHING
		RETURNING id`,
		e.ID, e.AgentID, e.TenantID, e.Kind, string(e.Source), e.ResourceRef, e.CollectedAt,
		e.ContentHash, e.SizeBytes, frameworks, data, string(e.ComplianceStatus), string(e.Risk), findings)

	switch err := row.Scan(&insertedID); err {
	case nil:
		return store.Inserted, insertedID, nil
	case sql.ErrNoRows:
		var existingID string
		lookup := s.db.QueryRowContext(ctx, `
			UPDATE evidence SET touched_at = now() WHERE tenant_id = $1 AND content_hash = $2
			RETURNING id`, e.TenantID, e.ContentHash)
		if err := lookup.Scan(&existingID); err != nil {
			return 0, "", fmt.Errorf("pgstore: touch existing evidence: %w", err)
		}
		return store.Duplicate, existingID, nil
	default:
		return 0, "", fmt.Errorf("pgstore: insert evidence: %w", err)
	}
}

func (s *Store) AppendAudit(ctx context.Context, event store.AuditEvent) error {
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return fmt.Errorf("pgstore: marshal audit detail: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, subject_id, kind, detail, at) VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.SubjectID, event.Kind, detail, event.At)
	if err != nil {
		return fmt.Errorf("pgstore: append audit: %w", err)
	}
	return nil
}

func (s *Store) GetTrustInputs(ctx context.Context, tenantID string) ([]model.Evidence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, tenant_id, kind, source, resource_ref, collected_at, content_hash,
			size_bytes, frameworks, data, compliance_status, risk, findings
		FROM evidence
		WHERE tenant_id = $1 AND compliance_status != 'ERROR'
		ORDER BY collected_at ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("pgstore: get trust inputs: %w", err)
	}
	defer rows.Close()

	var out []model.Evidence
	for rows.Next() {
		var (
			e                       model.Evidence
			source, status, risk    string
			frameworks, data, findings []byte
		)
		if err := rows.Scan(&e.ID, &e.AgentID, &e.TenantID, &e.Kind, &source, &e.ResourceRef, &e.CollectedAt,
			&e.ContentHash, &e.SizeBytes, &frameworks, &data, &status, &risk, &findings); err != nil {
			return nil, fmt.Errorf("pgstore: scan trust input: %w", err)
		}
		e.Source = model.AgentKind(source)
		e.ComplianceStatus = model.ComplianceStatus(status)
		e.Risk = model.Risk(risk)
		if err := json.Unmarshal(frameworks, &e.Frameworks); err != nil {
			return nil, fmt.Errorf("pgstore: unmarshal frameworks: %w", err)
		}
		if err := json.Unmarshal(data, &e.Data); err != nil {
			return nil, fmt.Errorf("pgstore: unmarshal evidence data: %w", err)
		}
		if err := json.Unmarshal(findings, &e.Findings); err != nil {
			return nil, fmt.Errorf("pgstore: unmarshal findings: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PutTrustScore upserts a tenant's latest TrustScore snapshot.
func (s *Store) PutTrustScore(ctx context.Context, score model.TrustScore) error {
	byPillar, err := json.Marshal(score.ByPillar)
	if err != nil {
		return fmt.Errorf("pgstore: marshal by_pillar: %w", err)
	}
	byFramework, err := json.Marshal(score.ByFramework)
	if err != nil {
		return fmt.Errorf("pgstore: marshal by_framework: %w", err)
	}
	byControl, err := json.Marshal(score.ByControl)
	if err != nil {
		return fmt.Errorf("pgstore: marshal by_control: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trust_scores (tenant_id, overall, by_pillar, by_framework, by_control,
			evidence_count, automation_ratio, points, grade, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant_id) DO UPDATE SET
			overall = EXCLUDED.overall,
			by_pillar = EXCLUDED.by_pillar,
			by_framework = EXCLUDED.by_framework,
			by_control = EXCLUDED.by_control,
			evidence_count = EXCLUDED.evidence_count,
			automation_ratio = EXCLUDED.automation_ratio,
			points = EXCLUDED.points,
			grade = EXCLUDED.grade,
			computed_at = EXCLUDED.computed_at`,
		score.TenantID, score.Overall, byPillar, byFramework, byControl,
		score.EvidenceCount, score.AutomationRatio, score.Points, string(score.Grade), score.ComputedAt)
	if err != nil {
		return fmt.Errorf("pgstore: put trust score: %w", err)
	}
	return nil
}

// GetTrustScore returns a tenant's last-persisted TrustScore.
func (s *Store) GetTrustScore(ctx context.Context, tenantID string) (model.TrustScore, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, overall, by_pillar, by_framework, by_control,
			evidence_count, automation_ratio, points, grade, computed_at
		FROM trust_scores WHERE tenant_id = $1`, tenantID)

	var (
		score                               model.TrustScore
		grade                               string
		byPillar, byFramework, byControl    []byte
	)
	if err := row.Scan(&score.TenantID, &score.Overall, &byPillar, &byFramework, &byControl,
		&score.EvidenceCount, &score.AutomationRatio, &score.Points, &grade, &score.ComputedAt); err != nil {
		if err == sql.ErrNoRows {
			return model.TrustScore{}, store.ErrNotFound
		}
		return model.TrustScore{}, fmt.Errorf("pgstore: scan trust score: %w", err)
	}
	score.Grade = model.Grade(grade)
	if err := json.Unmarshal(byPillar, &score.ByPillar); err != nil {
		return model.TrustScore{}, fmt.Errorf("pgstore: unmarshal by_pillar: %w", err)
	}
	if err := json.Unmarshal(byFramework, &score.ByFramework); err != nil {
		return model.TrustScore{}, fmt.Errorf("pgstore: unmarshal by_framework: %w", err)
	}
	if err := json.Unmarshal(byControl, &score.ByControl); err != nil {
		return model.TrustScore{}, fmt.Errorf("pgstore: unmarshal by_control: %w", err)
	}
	return score, nil
}

var _ store.Store = (*Store)(nil)

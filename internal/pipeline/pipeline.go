// Package pipeline implements the EvidencePipeline (spec §4.7):
// canonicalize -> hash -> evaluate -> persist -> notify, with an outbox
// retry for the notification step so evidence is never lost to a
// downstream-sink failure.
package pipeline

import (
	"context"
	"time"

	orcherrors "github.com/R3E-Network/compliance-orchestrator/infrastructure/errors"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/logging"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/resilience"
	"github.com/R3E-Network/compliance-orchestrator/internal/bus"
	"github.com/R3E-Network/compliance-orchestrator/internal/compliance"
	"github.com/R3E-Network/compliance-orchestrator/internal/ids"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
	"github.com/R3E-Network/compliance-orchestrator/internal/store"
)

// EvidenceNewTopic is the MessageBus routing key for the "evidence.new"
// downstream-notification step.
const EvidenceNewTopic = model.AgentKindTrustScore

// OutboxConfig tunes the notification retry (spec §4.7's "retried from the
// outbox up to N times, then dropped with an audit entry").
type OutboxConfig struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
}

// DefaultOutboxConfig returns spec §6's notification retry defaults.
func DefaultOutboxConfig() OutboxConfig {
	return OutboxConfig{MaxAttempts: 8, Base: time.Second, Cap: 30 * time.Second}
}

// Pipeline is the EvidencePipeline.
type Pipeline struct {
	store     store.Store
	bus       bus.Bus
	evaluator *compliance.Evaluator
	clock     ids.Clock
	logger    *logging.Logger
	outbox    OutboxConfig
}

// New constructs a Pipeline.
func New(s store.Store, b bus.Bus, evaluator *compliance.Evaluator, clock ids.Clock, logger *logging.Logger, outbox OutboxConfig) *Pipeline {
	if clock == nil {
		clock = ids.SystemClock{}
	}
	return &Pipeline{store: s, bus: b, evaluator: evaluator, clock: clock, logger: logger, outbox: outbox}
}

// Submit runs the five-step pipeline against evidence, whose ContentHash and
// ComplianceStatus/Risk/Findings fields are expected to be unset (spec §4.7:
// "submit(evidence_without_hash)").
func (p *Pipeline) Submit(ctx context.Context, evidence model.Evidence) (store.PutResult, string, error) {
	// 1. Canonicalize + 2. Hash.
	hash, err := ids.ContentHash(evidence.Data)
	if err != nil {
		return 0, "", orcherrors.Hash(err)
	}
	evidence.ContentHash = hash
	if evidence.CollectedAt.IsZero() {
		evidence.CollectedAt = p.clock.Now()
	}

	// 3. Evaluate.
	status, risk, findings := p.evaluator.Evaluate(evidence)
	evidence.ComplianceStatus = status
	evidence.Risk = risk
	evidence.Findings = findings

	// 4. Persist.
	result, id, err := p.store.PutEvidenceIfAbsent(ctx, evidence)
	if err != nil {
		return 0, "", orcherrors.Storage("put_evidence_if_absent", err)
	}

	if p.logger != nil {
		p.logger.LogEvidenceIngested(ctx, id, evidence.TenantID, evidence.Kind, result == store.Duplicate)
	}

	if result == store.Duplicate {
		p.audit(ctx, id, "TouchedExisting", evidence.TenantID)
		return result, id, nil
	}

	// 5. Notify, with outbox retry; persistence has already committed so a
	// notify failure never loses evidence.
	p.notify(ctx, id, evidence)

	return result, id, nil
}

func (p *Pipeline) notify(ctx context.Context, evidenceID string, evidence model.Evidence) {
	msg := bus.Message{
		TaskID:     evidenceID,
		TenantID:   evidence.TenantID,
		AgentKind:  EvidenceNewTopic,
		Priority:   model.PriorityDefault,
		EnqueuedAt: p.clock.Now(),
	}

	err := resilience.Retry(ctx, p.outbox.MaxAttempts, p.outbox.Base, p.outbox.Cap, func() error {
		return p.bus.Publish(ctx, msg)
	})
	if err != nil {
		p.audit(ctx, evidenceID, "NotifyDropped", evidence.TenantID)
		if p.logger != nil {
			p.logger.Error(ctx, "evidence notify exhausted outbox retries", err, map[string]any{
				"evidence_id": evidenceID,
				"tenant_id":   evidence.TenantID,
			})
		}
	}
}

func (p *Pipeline) audit(ctx context.Context, subjectID, kind, tenantID string) {
	event := store.AuditEvent{
		ID:        ids.New(),
		SubjectID: subjectID,
		Kind:      kind,
		Detail:    map[string]any{"tenant_id": tenantID},
		At:        p.clock.Now(),
	}
	if err := p.store.AppendAudit(ctx, event); err != nil && p.logger != nil {
		p.logger.Error(ctx, "append_audit failed", err, map[string]any{"subject_id": subjectID})
	}
}

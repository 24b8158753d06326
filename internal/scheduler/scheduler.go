// Package scheduler owns the recurring-job table of spec §4.9: a ticker
// that, once per tick, materializes a Task for every job whose next_fire_at
// is due and enqueues it onto the Store for the owning agent to claim.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	orcherrors "github.com/R3E-Network/compliance-orchestrator/infrastructure/errors"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/logging"
	"github.com/R3E-Network/compliance-orchestrator/internal/ids"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
	"github.com/R3E-Network/compliance-orchestrator/internal/store"
)

// DefaultTickInterval is spec §6's scheduler.tick_interval default.
const DefaultTickInterval = 1 * time.Second

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// criticalKinds always resolve to PriorityCritical regardless of tenant
// tier, per spec §4.9 ("security incident / compliance violation always
// priority=1 critical").
var criticalKinds = map[string]bool{
	"security_incident":    true,
	"compliance_violation": true,
}

// Job is one row of the recurring-job table. Exactly one of Schedule (a
// standard 5-field cron expression) or Every (a fixed interval, bypassing
// the cron parser) should be set.
type Job struct {
	ID         string
	TenantID   string
	AgentID    string
	AgentKind  model.AgentKind
	Kind       string
	Schedule   string
	Every      time.Duration
	Payload    map[string]any
	Enabled    bool
	NextFireAt time.Time
	LastFireAt time.Time
	schedule   cron.Schedule
}

// TierResolver maps a tenant to its rate-limit/priority tier (spec §4.4);
// the Scheduler only needs the priority mapping.
type TierResolver interface {
	PriorityFor(tenantID string) int
}

// Scheduler runs the recurring-job tick loop.
type Scheduler struct {
	store  store.Store
	tiers  TierResolver
	clock  ids.Clock
	logger *logging.Logger
	tick   time.Duration

	mu   sync.Mutex
	jobs map[string]*Job

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
}

// New constructs a Scheduler. tiers may be nil, in which case every job runs
// at PriorityDefault unless its Kind is in the critical set.
func New(s store.Store, tiers TierResolver, clock ids.Clock, logger *logging.Logger, tick time.Duration) *Scheduler {
	if clock == nil {
		clock = ids.SystemClock{}
	}
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	return &Scheduler{
		store:  s,
		tiers:  tiers,
		clock:  clock,
		logger: logger,
		tick:   tick,
		jobs:   make(map[string]*Job),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// AddJob registers a recurring job and computes its first NextFireAt from
// its cron schedule, or from Every when set (fast path bypassing the cron
// parser).
func (s *Scheduler) AddJob(j Job) error {
	var sched cron.Schedule
	if j.Every > 0 {
		sched = everySchedule{interval: j.Every}
	} else {
		parsed, err := parser.Parse(j.Schedule)
		if err != nil {
			return orcherrors.Config(fmt.Sprintf("scheduler: invalid cron expression %q: %v", j.Schedule, err))
		}
		sched = parsed
	}

	j.schedule = sched
	j.Enabled = true
	if j.NextFireAt.IsZero() {
		j.NextFireAt = sched.Next(s.clock.Now())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	jCopy := j
	s.jobs[j.ID] = &jCopy
	return nil
}

// everySchedule implements cron.Schedule as a fixed interval, for jobs
// configured with `every` instead of a cron expression (spec §4.9's
// `cron | every` field).
type everySchedule struct{ interval time.Duration }

func (e everySchedule) Next(t time.Time) time.Time { return t.Add(e.interval) }

// RemoveJob deregisters a job; a no-op if it does not exist.
func (s *Scheduler) RemoveJob(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// SetEnabled toggles a job without removing it from the table.
func (s *Scheduler) SetEnabled(id string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.Enabled = enabled
	}
}

// Start spawns the tick loop; Stop ends it.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Stop signals the tick loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.fireDue(ctx)
		}
	}
}

// fireDue materializes a Task for every due, enabled job and advances its
// next_fire_at.
func (s *Scheduler) fireDue(ctx context.Context) {
	now := s.clock.Now()

	s.mu.Lock()
	due := make([]*Job, 0)
	for _, j := range s.jobs {
		if j.Enabled && !j.NextFireAt.After(now) {
			due = append(due, j)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		s.fire(ctx, j, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, j *Job, now time.Time) {
	priority := s.priorityFor(j)

	task := model.NewTask(ids.New(), j.AgentKind, j.Kind, priority, j.Payload, now)
	task.AgentID = j.AgentID
	task.Source = model.TaskSourceScheduled

	if err := s.store.EnqueueTask(ctx, task); err != nil {
		if s.logger != nil {
			s.logger.Error(ctx, "scheduler: enqueue_task failed", err, map[string]any{"job_id": j.ID})
		}
		return
	}

	s.mu.Lock()
	j.LastFireAt = now
	j.NextFireAt = j.schedule.Next(now)
	s.mu.Unlock()
}

func (s *Scheduler) priorityFor(j *Job) int {
	if criticalKinds[j.Kind] {
		return model.PriorityCritical
	}
	if s.tiers != nil {
		return s.tiers.PriorityFor(j.TenantID)
	}
	return model.PriorityDefault
}

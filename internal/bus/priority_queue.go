package bus

import (
	"context"
	"sync"
	"time"

	"github.com/R3E-Network/compliance-orchestrator/internal/model"
)

// numSubQueues is spec §4.2's "10 FIFO sub-queues (priority 1..10)".
const numSubQueues = 10

// Config tunes the in-process PriorityBus's starvation guard (spec §4.9).
type Config struct {
	// StarvationThreshold is how old a lower-priority message must be
	// before it becomes eligible for promotion.
	StarvationThreshold time.Duration
	// MaxConsecutiveHighPriority bounds how many times in a row the
	// priority-1 sub-queue may be served before a starvation check
	// promotes a message from a lower one.
	MaxConsecutiveHighPriority int
	// PollInterval is how often an idle dispatcher re-checks for work.
	PollInterval time.Duration
}

// DefaultConfig mirrors spec.md §4.9's defaults.
func DefaultConfig() Config {
	return Config{
		StarvationThreshold:        5 * time.Minute,
		MaxConsecutiveHighPriority: 10,
		PollInterval:               50 * time.Millisecond,
	}
}

// PriorityBus is the in-process MessageBus (spec §4.2), grounded on the
// teacher's concurrent fan-out Bus (system/core/bus.go) adapted from an
// event-bus-over-modules shape to a 10-sub-queue task bus.
type PriorityBus struct {
	mu     sync.Mutex
	queues map[model.AgentKind]*kindQueue
	closed bool
	config Config
}

// New constructs a PriorityBus.
func New(config Config) *PriorityBus {
	return &PriorityBus{
		queues: make(map[model.AgentKind]*kindQueue),
		config: config,
	}
}

type kindQueue struct {
	mu   sync.Mutex
	subs [numSubQueues][]Message

	consumerCh chan Message
	streak     int
}

func subQueueIndex(priority int) int {
	idx := priority - 1
	if idx < 0 {
		return 0
	}
	if idx >= numSubQueues {
		return numSubQueues - 1
	}
	return idx
}

func (b *PriorityBus) queueFor(kind model.AgentKind) *kindQueue {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[kind]
	if !ok {
		q = &kindQueue{}
		b.queues[kind] = q
	}
	return q
}

func (b *PriorityBus) Publish(_ context.Context, msg Message) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	q := b.queueFor(msg.AgentKind)
	q.mu.Lock()
	idx := subQueueIndex(msg.Priority)
	q.subs[idx] = append(q.subs[idx], msg)
	q.mu.Unlock()
	return nil
}

// Subscribe spawns a dispatcher goroutine draining q's sub-queues,
// highest priority first, applying the starvation guard of spec §4.9.
func (b *PriorityBus) Subscribe(ctx context.Context, agentKind model.AgentKind) (<-chan Message, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.mu.Unlock()

	q := b.queueFor(agentKind)
	out := make(chan Message)

	go func() {
		defer close(out)
		ticker := time.NewTicker(b.config.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.mu.Lock()
				closed := b.closed
				b.mu.Unlock()
				if closed {
					return
				}
				msg, ok := q.next(b.config)
				if !ok {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// next selects the message to dispatch: the oldest entry of the
// highest-priority non-empty sub-queue, unless the starvation guard
// promotes a message from a lower-priority sub-queue first.
func (q *kindQueue) next(cfg Config) (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	highIdx := q.firstNonEmpty()
	if highIdx == -1 {
		return Message{}, false
	}

	if q.streak >= cfg.MaxConsecutiveHighPriority {
		if promoteIdx, msg, ok := q.findStarved(highIdx, cfg.StarvationThreshold); ok {
			q.removeFront(promoteIdx)
			q.streak = 0
			return msg, true
		}
	}

	msg := q.subs[highIdx][0]
	q.removeFront(highIdx)
	if highIdx == 0 {
		q.streak++
	} else {
		q.streak = 0
	}
	return msg, true
}

func (q *kindQueue) firstNonEmpty() int {
	for i := 0; i < numSubQueues; i++ {
		if len(q.subs[i]) > 0 {
			return i
		}
	}
	return -1
}

// findStarved looks for the oldest message in any sub-queue lower priority
// than highIdx (i.e. a higher index) whose age exceeds threshold.
func (q *kindQueue) findStarved(highIdx int, threshold time.Duration) (int, Message, bool) {
	now := time.Now()
	for i := highIdx + 1; i < numSubQueues; i++ {
		if len(q.subs[i]) == 0 {
			continue
		}
		oldest := q.subs[i][0]
		if now.Sub(oldest.EnqueuedAt) >= threshold {
			return i, oldest, true
		}
	}
	return 0, Message{}, false
}

func (q *kindQueue) removeFront(idx int) {
	q.subs[idx] = q.subs[idx][1:]
}

func (b *PriorityBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

var _ Bus = (*PriorityBus)(nil)

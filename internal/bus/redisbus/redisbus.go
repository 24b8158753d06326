// Package redisbus is the durable external MessageBus adapter (spec §4.2),
// backed by Redis Streams via github.com/go-redis/redis/v8 — the teacher's
// declared (if previously unused) dependency.
package redisbus

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/R3E-Network/compliance-orchestrator/internal/bus"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
)

const (
	fieldTaskID     = "task_id"
	fieldTenantID   = "tenant_id"
	fieldAgentKind  = "agent_kind"
	fieldPriority   = "priority"
	fieldEnqueuedAt = "enqueued_at"

	consumerGroup = "orchestrator"
)

// Bus publishes to and consumes from a Redis Stream per agent kind. Each
// entry is acknowledged (XACK) as soon as the consumer has received it from
// the Subscribe channel, not after the consumer has processed it. Reads ask
// only for new entries (">"), so an entry delivered but not acknowledged
// before a restart is not read again by this adapter.
type Bus struct {
	client     *redis.Client
	consumerID string
	closed     bool
}

// New wraps an already-connected *redis.Client.
func New(client *redis.Client, consumerID string) *Bus {
	return &Bus{client: client, consumerID: consumerID}
}

func streamKey(kind model.AgentKind) string {
	return "orchestrator:tasks:" + string(kind)
}

func (b *Bus) Publish(ctx context.Context, msg bus.Message) error {
	if b.closed {
		return bus.ErrClosed
	}

	_, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(msg.AgentKind),
		Values: map[string]any{
			fieldTaskID:     msg.TaskID,
			fieldTenantID:   msg.TenantID,
			fieldAgentKind:  string(msg.AgentKind),
			fieldPriority:   msg.Priority,
			fieldEnqueuedAt: msg.EnqueuedAt.UnixNano(),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("redisbus: publish: %w", err)
	}
	return nil
}

// Subscribe ensures a consumer group exists for the stream, then polls it via
// XReadGroup, acknowledging each message with XAck once the caller has
// received it from the returned channel.
func (b *Bus) Subscribe(ctx context.Context, agentKind model.AgentKind) (<-chan bus.Message, error) {
	if b.closed {
		return nil, bus.ErrClosed
	}

	stream := streamKey(agentKind)
	err := b.client.XGroupCreateMkStream(ctx, stream, consumerGroup, "0").Err()
	if err != nil && !isBusyGroupErr(err) {
		return nil, fmt.Errorf("redisbus: create consumer group: %w", err)
	}

	out := make(chan bus.Message)
	go b.pump(ctx, stream, out)
	return out, nil
}

func isBusyGroupErr(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

func (b *Bus) pump(ctx context.Context, stream string, out chan<- bus.Message) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if b.closed {
			return
		}

		res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: b.consumerID,
			Streams:  []string{stream, ">"},
			Count:    10,
			Block:    time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			continue
		}

		for _, s := range res {
			for _, entry := range s.Messages {
				msg, ok := decodeEntry(entry)
				if !ok {
					_ = b.client.XAck(ctx, stream, consumerGroup, entry.ID).Err()
					continue
				}
				select {
				case out <- msg:
					_ = b.client.XAck(ctx, stream, consumerGroup, entry.ID).Err()
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func decodeEntry(entry redis.XMessage) (bus.Message, bool) {
	taskID, _ := entry.Values[fieldTaskID].(string)
	tenantID, _ := entry.Values[fieldTenantID].(string)
	kind, _ := entry.Values[fieldAgentKind].(string)
	if taskID == "" || kind == "" {
		return bus.Message{}, false
	}

	priority := model.PriorityDefault
	if raw, ok := entry.Values[fieldPriority].(string); ok {
		if p, err := strconv.Atoi(raw); err == nil {
			priority = p
		}
	}

	enqueuedAt := time.Now()
	if raw, ok := entry.Values[fieldEnqueuedAt].(string); ok {
		if ns, err := strconv.ParseInt(raw, 10, 64); err == nil {
			enqueuedAt = time.Unix(0, ns)
		}
	}

	return bus.Message{
		TaskID:     taskID,
		TenantID:   tenantID,
		AgentKind:  model.AgentKind(kind),
		Priority:   priority,
		EnqueuedAt: enqueuedAt,
	}, true
}

func (b *Bus) Close() error {
	b.closed = true
	return nil
}

var _ bus.Bus = (*Bus)(nil)

package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/compliance-orchestrator/internal/model"
)

func testConfig() Config {
	return Config{
		StarvationThreshold:        50 * time.Millisecond,
		MaxConsecutiveHighPriority: 2,
		PollInterval:               time.Millisecond,
	}
}

func TestPriorityBus_HigherPriorityFirst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := New(testConfig())
	now := time.Now()

	require.NoError(t, b.Publish(ctx, Message{TaskID: "low", AgentKind: model.AgentKindAWS, Priority: model.PriorityLow, EnqueuedAt: now}))
	require.NoError(t, b.Publish(ctx, Message{TaskID: "critical", AgentKind: model.AgentKindAWS, Priority: model.PriorityCritical, EnqueuedAt: now}))

	stream, err := b.Subscribe(ctx, model.AgentKindAWS)
	require.NoError(t, err)

	first := recv(t, stream)
	assert.Equal(t, "critical", first.TaskID)
}

func TestPriorityBus_StarvationGuardPromotes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	b := New(cfg)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, b.Publish(ctx, Message{TaskID: "starved", AgentKind: model.AgentKindAWS, Priority: model.PriorityLow, EnqueuedAt: old}))
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Publish(ctx, Message{TaskID: "hi", AgentKind: model.AgentKindAWS, Priority: model.PriorityCritical, EnqueuedAt: time.Now()}))
	}

	stream, err := b.Subscribe(ctx, model.AgentKindAWS)
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		msg := recv(t, stream)
		seen[msg.TaskID] = true
	}
	assert.True(t, seen["starved"], "starved message should be promoted within a few dispatches, got %v", seen)
}

func TestPriorityBus_PublishAfterCloseFails(t *testing.T) {
	b := New(DefaultConfig())
	require.NoError(t, b.Close())

	err := b.Publish(context.Background(), Message{TaskID: "x", AgentKind: model.AgentKindAWS, Priority: model.PriorityDefault})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPriorityBus_SubscribeStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := New(testConfig())

	stream, err := b.Subscribe(ctx, model.AgentKindGCP)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-stream:
		assert.False(t, ok, "channel should close after context cancel")
	case <-time.After(time.Second):
		t.Fatal("stream did not close after context cancellation")
	}
}

func recv(t *testing.T, stream <-chan Message) Message {
	t.Helper()
	select {
	case msg := <-stream:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

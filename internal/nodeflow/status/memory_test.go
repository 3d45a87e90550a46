package status

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPlaneCacheBeforePublish(t *testing.T) {
	p := NewMemoryPlane(time.Hour)
	defer p.Close()
	ctx := context.Background()

	// No subscriber yet: the cache still captures the update.
	msg := Message{TaskID: "t1", State: StateRunning, Info: Info{Stage: "execution", Percent: 50}}
	require.NoError(t, p.Publish(ctx, msg))

	got, ok, err := p.Latest(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, msg, got)
}

func TestMemoryPlaneLateSubscriberSeesTerminalFromCache(t *testing.T) {
	p := NewMemoryPlane(time.Hour)
	defer p.Close()
	ctx := context.Background()

	terminal := Message{TaskID: "t1", State: StateSuccess, Info: Info{Percent: 100}}
	require.NoError(t, p.Publish(ctx, terminal))

	// Cache first, then subscribe: the terminal state is never missed.
	got, ok, err := p.Latest(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.State.Terminal())

	ch, unsub, err := p.Subscribe(ctx, "t1")
	require.NoError(t, err)
	defer unsub()
	select {
	case msg := <-ch:
		t.Fatalf("unexpected extra message %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryPlaneSubscriberReceivesUpdates(t *testing.T) {
	p := NewMemoryPlane(time.Hour)
	defer p.Close()
	ctx := context.Background()

	ch, unsub, err := p.Subscribe(ctx, "t1")
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, p.Publish(ctx, Message{TaskID: "t1", State: StateRunning}))
	require.NoError(t, p.Publish(ctx, Message{TaskID: "t1", State: StateSuccess}))

	first := <-ch
	second := <-ch
	assert.Equal(t, StateRunning, first.State)
	assert.Equal(t, StateSuccess, second.State)
}

func TestMemoryPlaneTTLExpiry(t *testing.T) {
	p := NewMemoryPlane(20 * time.Millisecond)
	defer p.Close()
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, Message{TaskID: "t1", State: StateSuccess}))
	time.Sleep(40 * time.Millisecond)

	_, ok, err := p.Latest(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryPlaneTopicsAreIndependent(t *testing.T) {
	p := NewMemoryPlane(time.Hour)
	defer p.Close()
	ctx := context.Background()

	ch, unsub, err := p.Subscribe(ctx, "a")
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, p.Publish(ctx, Message{TaskID: "b", State: StateRunning}))
	select {
	case msg := <-ch:
		t.Fatalf("message for another task delivered: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStateTerminal(t *testing.T) {
	assert.False(t, StatePending.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.True(t, StateSuccess.Terminal())
	assert.True(t, StateFailure.Terminal())
}

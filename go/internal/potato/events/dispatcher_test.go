package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/reconcile"
	"github.com/mcdev12/hotpotato/go/internal/potato/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = models.Address("0x1111111111111111111111111111111111111111")
	bob   = models.Address("0x2222222222222222222222222222222222222222")
)

type fakePublisher struct {
	mu       sync.Mutex
	failures int
	events   []Event
	attempts atomic.Int32
}

func (p *fakePublisher) Publish(ctx context.Context, event Event) error {
	p.attempts.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("nats: timeout")
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

type dropCounter struct {
	NoOpMetricsCollector
	dropped atomic.Int32
}

func (c *dropCounter) RecordEventDropped(eventType string) { c.dropped.Add(1) }

func batch(transitions ...reconcile.Transition) session.TransitionBatch {
	return session.TransitionBatch{
		SessionID:   uuid.New(),
		Seq:         7,
		Snapshot:    models.GameSnapshot{IsActive: true, CurrentHolder: bob, DeadlineBlocks: 10},
		Transitions: transitions,
	}
}

func TestFromBatch(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	b := batch(
		reconcile.Transition{Type: reconcile.TransitionGameStarted, To: bob, Starter: alice},
		reconcile.Transition{Type: reconcile.TransitionGameOver, From: bob},
	)

	evts, err := FromBatch(b, now)
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.NotEqual(t, evts[0].ID, evts[1].ID)
	assert.Equal(t, b.SessionID, evts[0].SessionID)
	assert.Equal(t, uint64(7), evts[1].Seq)

	var started GameStartedPayload
	require.NoError(t, json.Unmarshal(evts[0].Payload, &started))
	assert.Equal(t, EventTypeGameStarted, evts[0].EventType)
	assert.Equal(t, bob.String(), started.Holder)
	assert.Equal(t, alice.String(), started.Starter)
	assert.Equal(t, uint32(10), started.DeadlineBlocks)
	assert.True(t, now.Equal(started.ObservedAt))

	var over GameOverPayload
	require.NoError(t, json.Unmarshal(evts[1].Payload, &over))
	assert.Equal(t, EventTypeGameOver, evts[1].EventType)
	assert.Equal(t, bob.String(), over.Eliminated)

	_, err = FromBatch(batch(reconcile.Transition{Type: "Exploded"}), now)
	require.Error(t, err)
}

func TestDispatcher_PublishesInOrder(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub, clockwork.NewFakeClock(), DefaultDispatcherConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Start(ctx))
	require.ErrorIs(t, d.Start(ctx), ErrDispatcherRunning)

	d.PublishTransitions(ctx, batch(reconcile.Transition{Type: reconcile.TransitionGameStarted, To: bob}))
	d.PublishTransitions(ctx, batch(reconcile.Transition{Type: reconcile.TransitionPotatoPassed, From: bob, To: alice}))

	require.Eventually(t, func() bool { return len(pub.types()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{EventTypeGameStarted, EventTypePotatoPassed}, pub.types())

	cancel()
	d.Wait()
}

func TestDispatcher_RetriesOnClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pub := &fakePublisher{failures: 1}
	d := NewDispatcher(pub, clock, DefaultDispatcherConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		d.Wait()
	}()
	require.NoError(t, d.Start(ctx))

	d.PublishTransitions(ctx, batch(reconcile.Transition{Type: reconcile.TransitionGameEnded}))

	waitCtx, waitCancel := context.WithTimeout(ctx, time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	assert.Empty(t, pub.types())

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return len(pub.types()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(2), pub.attempts.Load())
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	metrics := &dropCounter{}
	d := NewDispatcher(&fakePublisher{}, clockwork.NewFakeClock(), DispatcherConfig{QueueSize: 1}, metrics)

	d.PublishTransitions(context.Background(), batch(
		reconcile.Transition{Type: reconcile.TransitionGameStarted, To: bob},
		reconcile.Transition{Type: reconcile.TransitionPotatoPassed, From: bob, To: alice},
		reconcile.Transition{Type: reconcile.TransitionGameOver, From: alice},
	))
	assert.Equal(t, int32(2), metrics.dropped.Load())
}

func TestDispatcher_FlushesQueueOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub, clockwork.NewFakeClock(), DefaultDispatcherConfig(), nil)

	d.PublishTransitions(context.Background(), batch(reconcile.Transition{Type: reconcile.TransitionGameEnded}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Start(ctx))
	d.Wait()

	assert.Equal(t, []string{EventTypeGameEnded}, pub.types())
}

package journal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/journal/db"
	"github.com/mcdev12/hotpotato/go/internal/potato/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu          sync.Mutex
	fallbacks   []db.InsertReadFallbackParams
	submissions map[uuid.UUID]db.UpsertSubmissionParams
	transitions []db.InsertLifecycleTransitionParams
	err         error
}

func newMemStore() *memStore {
	return &memStore{submissions: make(map[uuid.UUID]db.UpsertSubmissionParams)}
}

func (m *memStore) InsertReadFallback(ctx context.Context, arg db.InsertReadFallbackParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.fallbacks = append(m.fallbacks, arg)
	return nil
}

func (m *memStore) RecordTransition(ctx context.Context, sub db.UpsertSubmissionParams, tr db.InsertLifecycleTransitionParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.submissions[sub.ID] = sub
	m.transitions = append(m.transitions, tr)
	return nil
}

func (m *memStore) CountReadFallbacks(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, f := range m.fallbacks {
		if f.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

func TestRecordReadFallback(t *testing.T) {
	store := newMemStore()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	session := uuid.New()
	j := New(store, session, clock)

	j.RecordReadFallback(context.Background(), ledger.OutcomeError, "dial tcp: refused")

	require.Len(t, store.fallbacks, 1)
	row := store.fallbacks[0]
	assert.Equal(t, session, row.SessionID)
	assert.Equal(t, "error", row.Outcome)
	assert.Equal(t, "dial tcp: refused", row.Cause.String)
	assert.True(t, clock.Now().Equal(row.RecordedAt))
	assert.JSONEq(t, `{"outcome":"error","cause":"dial tcp: refused"}`, string(row.Details.RawMessage))

	n, err := j.FallbackCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRecordLifecycle_OneSubmissionManyTransitions(t *testing.T) {
	store := newMemStore()
	j := New(store, uuid.New(), clockwork.NewFakeClock())
	id := uuid.New()
	origin := models.Address("0x1111111111111111111111111111111111111111")

	j.RecordLifecycle(context.Background(), id, origin, "", models.PendingLifecycle(models.TxKindCheckDeadline))
	j.RecordLifecycle(context.Background(), id, origin, "",
		models.FailedLifecycle(models.TxKindCheckDeadline, models.FailureDispatch, "DeadlineNotReached"))

	require.Len(t, store.transitions, 2)
	assert.False(t, store.transitions[0].Details.Valid)
	assert.False(t, store.transitions[0].Reason.Valid)

	failed := store.transitions[1]
	assert.Equal(t, "FAILED", failed.Phase)
	assert.Equal(t, "dispatch", failed.Reason.String)
	var details map[string]string
	require.NoError(t, json.Unmarshal(failed.Details.RawMessage, &details))
	assert.Equal(t, "DeadlineNotReached", details["detail"])

	sub := store.submissions[id]
	assert.Equal(t, "FAILED", sub.Phase)
	assert.Equal(t, "check_deadline", sub.Kind)
	assert.False(t, sub.Target.Valid)
}

func TestStoreErrorsAreSwallowed(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection reset")
	j := New(store, uuid.New(), clockwork.NewFakeClock())

	assert.NotPanics(t, func() {
		j.RecordReadFallback(context.Background(), ledger.OutcomeFailedResult, "")
		j.RecordLifecycle(context.Background(), uuid.New(), "0x1", "0x2", models.PendingLifecycle(models.TxKindPassPotato))
	})
}

func TestWritesOutliveCancelledCaller(t *testing.T) {
	store := newMemStore()
	j := New(store, uuid.New(), clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j.RecordReadFallback(ctx, ledger.OutcomeDisconnected, "no endpoint connected")

	assert.Len(t, store.fallbacks, 1)
}

func TestSchemaCreatesTables(t *testing.T) {
	for _, table := range []string{"read_fallbacks", "submissions", "lifecycle_transitions"} {
		assert.Contains(t, Schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
}

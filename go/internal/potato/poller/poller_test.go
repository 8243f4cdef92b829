package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const p1 = models.Address("0x1111111111111111111111111111111111111111")

type pendingRead struct {
	reply chan ledger.ReadResult
}

// gatedReader blocks every read until the test replies to it.
type gatedReader struct {
	calls chan *pendingRead
}

func newGatedReader() *gatedReader {
	return &gatedReader{calls: make(chan *pendingRead, 16)}
}

func (r *gatedReader) Read(ctx context.Context) ledger.ReadResult {
	pr := &pendingRead{reply: make(chan ledger.ReadResult, 1)}
	r.calls <- pr
	select {
	case res := <-pr.reply:
		return res
	case <-ctx.Done():
		return ledger.ReadResult{Outcome: ledger.OutcomeError, Cause: ctx.Err().Error()}
	}
}

type recorder struct {
	mu   sync.Mutex
	seen []Acceptance
}

func (r *recorder) handle(a Acceptance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, a)
}

func (r *recorder) all() []Acceptance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Acceptance(nil), r.seen...)
}

func ok(s models.GameSnapshot) ledger.ReadResult {
	return ledger.ReadResult{Snapshot: s, Outcome: ledger.OutcomeOK}
}

func startPoller(t *testing.T, reader SnapshotReader, rec *recorder) (*Poller, *clockwork.FakeClock, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	p := New(reader, clock, DefaultConfig(), rec.handle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return p, clock, cancel, done
}

func TestPoller_StaleResultIsDiscarded(t *testing.T) {
	reader := newGatedReader()
	rec := &recorder{}
	p, clock, _, _ := startPoller(t, reader, rec)

	readA := <-reader.calls
	clock.Advance(5 * time.Second)
	readB := <-reader.calls

	snapB := models.GameSnapshot{IsActive: true, CurrentHolder: p1, DeadlineBlocks: 7}
	readB.reply <- ok(snapB)
	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, time.Millisecond)

	readA.reply <- ok(models.GameSnapshot{IsActive: true, CurrentHolder: p1, DeadlineBlocks: 10})
	assert.Never(t, func() bool { return len(rec.all()) > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	got, seq, accepted := p.Accepted()
	require.True(t, accepted)
	assert.Equal(t, snapB, got)
	assert.Equal(t, uint64(2), seq)
}

func TestPoller_AcceptRejectsOlderSequence(t *testing.T) {
	p := New(newGatedReader(), clockwork.NewFakeClock(), DefaultConfig(), nil)
	ctx := context.Background()

	assert.True(t, p.accept(ctx, 2, ok(models.GameSnapshot{DeadlineBlocks: 2})))
	assert.False(t, p.accept(ctx, 1, ok(models.GameSnapshot{DeadlineBlocks: 1})))
	assert.False(t, p.accept(ctx, 2, ok(models.GameSnapshot{DeadlineBlocks: 3})))
	assert.True(t, p.accept(ctx, 3, ok(models.GameSnapshot{DeadlineBlocks: 4})))

	got, seq, _ := p.Accepted()
	assert.Equal(t, uint32(4), got.DeadlineBlocks)
	assert.Equal(t, uint64(3), seq)
}

type throwingStorage struct {
	calls atomic.Int32
}

func (s *throwingStorage) GetRoot(ctx context.Context) (ledger.StorageResult, error) {
	s.calls.Add(1)
	return ledger.StorageResult{}, errors.New("rpc unavailable")
}

func TestPoller_ReadFailureYieldsDefaultAndKeepsPolling(t *testing.T) {
	storage := &throwingStorage{}
	rec := &recorder{}
	_, clock, _, _ := startPoller(t, ledger.NewReader(storage, nil), rec)

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, time.Millisecond)
	first := rec.all()[0]
	assert.Equal(t, models.DefaultSnapshot(), first.Result.Snapshot)
	assert.Equal(t, ledger.OutcomeError, first.Outcome)
	assert.True(t, first.Outcome.Fallback())

	clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return len(rec.all()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(2), storage.calls.Load())
}

func TestPoller_TeardownDropsInFlightResult(t *testing.T) {
	reader := newGatedReader()
	rec := &recorder{}
	_, _, cancel, done := startPoller(t, reader, rec)

	read := <-reader.calls
	cancel()
	<-done

	read.reply <- ok(models.GameSnapshot{IsActive: true, CurrentHolder: p1})
	assert.Never(t, func() bool { return len(rec.all()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestPoller_RefreshSupersedesOlderTick(t *testing.T) {
	reader := newGatedReader()
	rec := &recorder{}
	p, _, _, _ := startPoller(t, reader, rec)

	initial := <-reader.calls
	p.Refresh()
	refresh := <-reader.calls

	refresh.reply <- ok(models.GameSnapshot{IsActive: true, CurrentHolder: p1, DeadlineBlocks: 3})
	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, time.Millisecond)

	initial.reply <- ok(models.GameSnapshot{})
	assert.Never(t, func() bool { return len(rec.all()) > 1 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.True(t, rec.all()[0].Result.Snapshot.IsActive)
}

func TestPoller_FeedsReconciler(t *testing.T) {
	reader := newGatedReader()
	rec := &recorder{}
	p, _, _, _ := startPoller(t, reader, rec)

	(<-reader.calls).reply <- ok(models.GameSnapshot{IsActive: true, CurrentHolder: p1, DeadlineBlocks: 10, LastPassedBlock: 5})
	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, time.Millisecond)
	assert.Nil(t, rec.all()[0].Result.Verdict)

	p.Refresh()
	(<-reader.calls).reply <- ok(models.GameSnapshot{IsActive: false, LastPassedBlock: 5})
	require.Eventually(t, func() bool { return len(rec.all()) == 2 }, time.Second, time.Millisecond)

	second := rec.all()[1]
	require.NotNil(t, second.Result.Verdict)
	assert.Equal(t, p1, second.Result.Verdict.Eliminated)
	require.NotNil(t, second.Previous)
	assert.True(t, second.Previous.IsActive)
}

func TestPoller_RunTwice(t *testing.T) {
	p, _, _, _ := startPoller(t, newGatedReader(), &recorder{})
	assert.ErrorIs(t, p.Run(context.Background()), ErrAlreadyRunning)
}

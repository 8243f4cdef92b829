package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/ledger"
	"github.com/mcdev12/hotpotato/go/internal/potato/reconcile"
	"github.com/rs/zerolog/log"
)

// ErrAlreadyRunning is returned when Run is called twice.
var ErrAlreadyRunning = errors.New("poller already running")

// SnapshotReader performs one read; it must not fail (see ledger.Reader).
type SnapshotReader interface {
	Read(ctx context.Context) ledger.ReadResult
}

// Acceptance describes one snapshot the poller committed to.
type Acceptance struct {
	Seq      uint64
	Previous *models.GameSnapshot
	Result   reconcile.Result
	Outcome  ledger.ReadOutcome
	Cause    string
}

// Handler is called for every accepted snapshot, in acceptance order, while the poller's
// acceptance lock is held. It must not call back into the poller.
type Handler func(Acceptance)

// Config holds the poll tunables.
type Config struct {
	Interval time.Duration
}

// DefaultConfig polls every 5 seconds.
func DefaultConfig() Config {
	return Config{Interval: 5 * time.Second}
}

// Poller drives the reader on a fixed interval and owns the last accepted snapshot.
//
// Reads never block the timer, so several can be in flight. Every read gets a fetch sequence
// number when it is issued; a result is accepted only if its sequence is newer than the last
// accepted one, so a slow read can never overwrite a fresher picture.
type Poller struct {
	reader   SnapshotReader
	clock    clockwork.Clock
	interval time.Duration
	handler  Handler

	issued atomic.Uint64

	mu          sync.Mutex
	runCtx      context.Context
	stopped     bool
	accepted    *models.GameSnapshot
	acceptedSeq uint64
}

// New creates a poller.
func New(reader SnapshotReader, clock clockwork.Clock, cfg Config, handler Handler) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultConfig().Interval
	}
	return &Poller{
		reader:   reader,
		clock:    clock,
		interval: interval,
		handler:  handler,
	}
}

// Run reads immediately, then on every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.runCtx != nil {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.runCtx = ctx
	p.mu.Unlock()

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", p.interval).Msg("poller started")
	p.fetch(ctx, "initial")

	for {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.stopped = true
			p.mu.Unlock()
			log.Info().Msg("poller stopped")
			return nil
		case <-ticker.Chan():
			p.fetch(ctx, "tick")
		}
	}
}

// Refresh issues an out-of-band read. It is a no-op unless the poller is running.
func (p *Poller) Refresh() {
	p.mu.Lock()
	ctx, stopped := p.runCtx, p.stopped
	p.mu.Unlock()

	if ctx == nil || stopped || ctx.Err() != nil {
		return
	}
	p.fetch(ctx, "refresh")
}

// Accepted returns the last accepted snapshot and its fetch sequence.
func (p *Poller) Accepted() (models.GameSnapshot, uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.accepted == nil {
		return models.GameSnapshot{}, 0, false
	}
	return *p.accepted, p.acceptedSeq, true
}

func (p *Poller) fetch(ctx context.Context, trigger string) uint64 {
	seq := p.issued.Add(1)
	log.Debug().Uint64("seq", seq).Str("trigger", trigger).Msg("issuing storage read")

	go func() {
		res := p.reader.Read(ctx)
		p.accept(ctx, seq, res)
	}()
	return seq
}

// accept commits res if it is the newest result seen so far.
func (p *Poller) accept(ctx context.Context, seq uint64, res ledger.ReadResult) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || ctx.Err() != nil {
		log.Debug().Uint64("seq", seq).Msg("dropping read result after teardown")
		return false
	}
	if seq <= p.acceptedSeq {
		log.Debug().
			Uint64("seq", seq).
			Uint64("accepted_seq", p.acceptedSeq).
			Msg("dropping stale read result")
		return false
	}

	prev := p.accepted
	result := reconcile.Reconcile(prev, res.Snapshot)

	snap := result.Snapshot
	p.accepted = &snap
	p.acceptedSeq = seq

	if p.handler != nil {
		p.handler(Acceptance{
			Seq:      seq,
			Previous: prev,
			Result:   result,
			Outcome:  res.Outcome,
			Cause:    res.Cause,
		})
	}
	return true
}

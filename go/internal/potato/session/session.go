// Package session aggregates the synchronization engine into the view a presentation layer
// renders: the accepted snapshot, the countdown, the transaction lifecycle and any pending
// game-over verdict.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/countdown"
	"github.com/mcdev12/hotpotato/go/internal/potato/ledger"
	"github.com/mcdev12/hotpotato/go/internal/potato/poller"
	"github.com/mcdev12/hotpotato/go/internal/potato/reconcile"
	"github.com/mcdev12/hotpotato/go/internal/potato/txn"
	"github.com/rs/zerolog/log"
)

var (
	// ErrClosed is returned for commands issued after Close.
	ErrClosed = errors.New("session closed")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("session already started")
)

const subscriberBuffer = 16

// TransitionPublisher fans derived transitions out to other consumers. Implementations must
// not block; the events package queues and publishes in the background.
type TransitionPublisher interface {
	PublishTransitions(ctx context.Context, batch TransitionBatch)
}

// TransitionBatch is every transition derived from one accepted snapshot.
type TransitionBatch struct {
	SessionID   uuid.UUID               `json:"session_id"`
	Seq         uint64                  `json:"seq"`
	Snapshot    models.GameSnapshot     `json:"snapshot"`
	Transitions []reconcile.Transition  `json:"transitions"`
	Verdict     *models.GameOverVerdict `json:"verdict,omitempty"`
}

// Dependencies are the collaborators a session is built from. Only Storage and Clock are
// required; without Remote or Signer every submission aborts on preconditions.
type Dependencies struct {
	// SessionID is generated when nil.
	SessionID   uuid.UUID
	Storage     ledger.StorageReader
	Remote      txn.Remote
	Signer      txn.Signer
	Clock       clockwork.Clock
	Diagnostics ledger.DiagnosticsSink
	Lifecycles  txn.LifecycleSink
	Events      TransitionPublisher
}

// Config holds the timer tunables.
type Config struct {
	Poll      poller.Config
	Countdown countdown.Config
}

// DefaultConfig polls every 5 seconds and ticks every second on 6 second blocks.
func DefaultConfig() Config {
	return Config{
		Poll:      poller.DefaultConfig(),
		Countdown: countdown.DefaultConfig(),
	}
}

// Update is delivered to subscribers on every change.
type Update struct {
	View        View
	Transitions []reconcile.Transition
}

// Session owns one poll loop, one countdown and one orchestrator.
type Session struct {
	id     uuid.UUID
	signer models.Address
	events TransitionPublisher

	poller       *poller.Poller
	countdown    *countdown.Countdown
	orchestrator *txn.Orchestrator

	mu       sync.Mutex
	started  bool
	closed   bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	loaded   bool
	seq      uint64
	snapshot models.GameSnapshot
	verdict  *models.GameOverVerdict
	target   models.Address
	subs     map[int]chan Update
	nextSub  int
}

// New wires a session. Nothing runs until Start.
func New(deps Dependencies, cfg Config) *Session {
	id := deps.SessionID
	if id == uuid.Nil {
		id = uuid.New()
	}
	s := &Session{
		id:     id,
		events: deps.Events,
		subs:   make(map[int]chan Update),
	}
	if deps.Signer != nil {
		s.signer = deps.Signer.Address()
	}

	reader := ledger.NewReader(deps.Storage, deps.Diagnostics)
	s.poller = poller.New(reader, deps.Clock, cfg.Poll, s.onAccepted)
	s.countdown = countdown.New(deps.Clock, cfg.Countdown, s.onTick)
	s.orchestrator = txn.NewOrchestrator(deps.Remote, deps.Signer, s.poller, s.onLifecycle, deps.Lifecycles)
	return s
}

// ID identifies the session in logs, events and journal rows.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Start launches the poll loop and the countdown. Both stop on Close or when ctx is cancelled.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.poller.Run(runCtx); err != nil {
			log.Error().Err(err).Str("session_id", s.id.String()).Msg("poller exited")
		}
	}()
	go func() {
		defer s.wg.Done()
		s.countdown.Run(runCtx)
	}()

	log.Info().
		Str("session_id", s.id.String()).
		Str("signer", s.signer.String()).
		Msg("session started")
	return nil
}

// Close stops both timers and drops any read result that lands afterwards. No subscriber
// receives an update once Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	log.Info().Str("session_id", s.id.String()).Msg("session closed")
}

// View returns a copy of the current aggregate.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Subscribe returns a channel of updates and a function that ends the subscription. Slow
// subscribers miss intermediate updates rather than blocking the engine.
func (s *Session) Subscribe() (<-chan Update, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Update, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				close(c)
				delete(s.subs, id)
			}
		})
	}
}

// Submit runs one transaction to completion. It returns txn.ErrSubmissionInFlight while another
// submission is pending and wraps txn.ErrPrecondition when inputs are missing.
func (s *Session) Submit(ctx context.Context, kind models.TxKind, to models.Address) (models.TxLifecycle, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return models.TxLifecycle{}, ErrClosed
	}
	return s.orchestrator.Submit(ctx, kind, to)
}

// AcknowledgeGameOver dismisses the pending verdict and any leftover target, leaving the
// session ready for a new game. It reports whether there was a verdict.
func (s *Session) AcknowledgeGameOver() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	hadVerdict := s.verdict != nil
	if !hadVerdict && s.target == "" {
		return false
	}
	if hadVerdict {
		log.Info().
			Str("session_id", s.id.String()).
			Str("eliminated", s.verdict.Eliminated.String()).
			Msg("game over acknowledged")
	}
	s.verdict = nil
	s.target = ""
	s.broadcastLocked(nil)
	return hadVerdict
}

// onAccepted runs under the poller's acceptance lock, so snapshots are applied one at a time
// in acceptance order.
func (s *Session) onAccepted(a poller.Acceptance) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	res := a.Result
	s.loaded = true
	s.seq = a.Seq
	s.snapshot = res.Snapshot

	for _, tr := range res.Transitions {
		if tr.Type == reconcile.TransitionGameStarted && s.verdict != nil {
			log.Debug().Str("session_id", s.id.String()).Msg("new round started; dropping unacknowledged verdict")
			s.verdict = nil
		}
	}
	if res.Verdict != nil {
		v := *res.Verdict
		s.verdict = &v
		ev := log.Info()
		if a.Outcome.Fallback() {
			ev = log.Warn().Str("read_outcome", string(a.Outcome))
		}
		ev.Str("session_id", s.id.String()).
			Str("eliminated", v.Eliminated.String()).
			Uint64("seq", a.Seq).
			Msg("game over")
	}

	s.countdown.Seed(res.Snapshot.IsActive, res.Snapshot.DeadlineBlocks)
	s.broadcastLocked(res.Transitions)
	s.mu.Unlock()

	if s.events != nil && len(res.Transitions) > 0 {
		s.events.PublishTransitions(context.Background(), TransitionBatch{
			SessionID:   s.id,
			Seq:         a.Seq,
			Snapshot:    res.Snapshot,
			Transitions: res.Transitions,
			Verdict:     res.Verdict,
		})
	}
}

func (s *Session) onTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.broadcastLocked(nil)
}

func (s *Session) onLifecycle(_ uuid.UUID, target models.Address, lc models.TxLifecycle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	switch {
	case lc.Phase == models.TxPhaseSucceeded:
		s.target = ""
	case !target.IsZero():
		s.target = target
	}
	s.broadcastLocked(nil)
}

func (s *Session) broadcastLocked(transitions []reconcile.Transition) {
	if len(s.subs) == 0 {
		return
	}
	u := Update{View: s.viewLocked(), Transitions: transitions}
	for id, ch := range s.subs {
		select {
		case ch <- u:
		default:
			log.Debug().
				Str("session_id", s.id.String()).
				Int("subscriber", id).
				Msg("subscriber buffer full; dropping update")
		}
	}
}

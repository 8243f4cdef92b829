package txn

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/ledger"
	"github.com/rs/zerolog/log"
)

var (
	// ErrPrecondition means nothing was attempted: no endpoint, no signer or a missing target.
	ErrPrecondition = errors.New("transaction preconditions not met")
	// ErrSubmissionInFlight means another submission has not finished yet.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
)

// transportFailureDetail is shown instead of raw transport errors, which go to the log.
const transportFailureDetail = "contract call failed"

// Signer is the identity submissions are sent from.
type Signer interface {
	Address() models.Address
}

// StaticSigner signs as a fixed address; the transport holds the keys.
type StaticSigner models.Address

func (s StaticSigner) Address() models.Address {
	return models.Address(s)
}

// Remote is what the orchestrator needs from a connected endpoint.
type Remote interface {
	ledger.Submitter
	ledger.AccountMapper
}

// Refresher re-reads remote state outside the poll schedule.
type Refresher interface {
	Refresh()
}

// LifecycleSink records lifecycle transitions for diagnostics. The journal implements it.
type LifecycleSink interface {
	RecordLifecycle(ctx context.Context, submissionID uuid.UUID, origin models.Address, target models.Address, lc models.TxLifecycle)
}

// Observer is told about every lifecycle transition, after the orchestrator's lock is released.
type Observer func(submissionID uuid.UUID, target models.Address, lc models.TxLifecycle)

// Orchestrator submits start_game, pass_potato and check_deadline and tracks one lifecycle.
type Orchestrator struct {
	remote    Remote
	signer    Signer
	refresher Refresher
	observer  Observer
	sink      LifecycleSink

	mu        sync.Mutex
	busy      bool
	lifecycle models.TxLifecycle
}

// NewOrchestrator creates an orchestrator. remote and signer may be nil, in which case every
// submission aborts on preconditions.
func NewOrchestrator(remote Remote, signer Signer, refresher Refresher, observer Observer, sink LifecycleSink) *Orchestrator {
	return &Orchestrator{
		remote:    remote,
		signer:    signer,
		refresher: refresher,
		observer:  observer,
		sink:      sink,
		lifecycle: models.IdleLifecycle(),
	}
}

// Lifecycle returns the current lifecycle.
func (o *Orchestrator) Lifecycle() models.TxLifecycle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lifecycle
}

// Busy reports whether a submission is between its mapping check and finalization.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// Submit runs one submission to completion and returns the lifecycle it ended in.
// It returns ErrSubmissionInFlight or ErrPrecondition without touching the lifecycle.
func (o *Orchestrator) Submit(ctx context.Context, kind models.TxKind, to models.Address) (models.TxLifecycle, error) {
	if _, err := models.ParseTxKind(string(kind)); err != nil {
		return models.TxLifecycle{}, fmt.Errorf("%w: %v", ErrPrecondition, err)
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		log.Debug().Str("kind", string(kind)).Msg("rejecting submission while another is in flight")
		return models.TxLifecycle{}, ErrSubmissionInFlight
	}
	if err := o.checkPreconditions(kind, to); err != nil {
		o.mu.Unlock()
		return models.TxLifecycle{}, err
	}
	o.busy = true
	o.mu.Unlock()

	id := uuid.New()
	origin := o.signer.Address()
	target := to
	if !kind.NeedsTarget() {
		target = ""
	}

	mapped, err := o.remote.AddressIsMapped(ctx, origin)
	if err != nil {
		log.Error().Err(err).Str("origin", origin.String()).Msg("account mapping check failed")
		return o.finish(ctx, id, origin, target, models.FailedLifecycle(kind, models.FailureTransport, transportFailureDetail)), nil
	}
	if !mapped {
		log.Warn().Str("origin", origin.String()).Msg("account not mapped")
		return o.finish(ctx, id, origin, target, models.FailedLifecycle(kind, models.FailureUnmapped, "Account not mapped. Please map your account first.")), nil
	}

	o.transition(ctx, id, origin, target, models.PendingLifecycle(kind))

	call := ledger.Call{Message: kind, Origin: origin}
	if kind.NeedsTarget() {
		call.Data = &ledger.CallData{To: target}
	}

	fin, err := o.remote.Send(ctx, call)
	switch {
	case err != nil:
		log.Error().
			Err(err).
			Str("submission_id", id.String()).
			Str("kind", string(kind)).
			Msg("contract call error")
		return o.finish(ctx, id, origin, target, models.FailedLifecycle(kind, models.FailureTransport, transportFailureDetail)), nil

	case !fin.Ok:
		log.Warn().
			Str("submission_id", id.String()).
			Str("kind", string(kind)).
			Str("dispatch_error", fin.DispatchError).
			Msg("contract rejected transaction")
		return o.finish(ctx, id, origin, target, models.FailedLifecycle(kind, models.FailureDispatch, fin.DispatchError)), nil
	}

	lc := o.finish(ctx, id, origin, target, models.SucceededLifecycle(kind))
	if o.refresher != nil {
		o.refresher.Refresh()
	}
	return lc, nil
}

func (o *Orchestrator) checkPreconditions(kind models.TxKind, to models.Address) error {
	switch {
	case o.remote == nil:
		return fmt.Errorf("%w: no endpoint connected", ErrPrecondition)
	case o.signer == nil || o.signer.Address().IsZero():
		return fmt.Errorf("%w: no signer", ErrPrecondition)
	case kind.NeedsTarget() && to.IsZero():
		return fmt.Errorf("%w: %s needs a target address", ErrPrecondition, kind)
	}
	return nil
}

// transition records lc while the submission is still running.
func (o *Orchestrator) transition(ctx context.Context, id uuid.UUID, origin, target models.Address, lc models.TxLifecycle) {
	o.mu.Lock()
	o.lifecycle = lc
	o.mu.Unlock()
	o.publish(ctx, id, origin, target, lc)
}

// finish records a terminal lifecycle and releases the submission slot.
func (o *Orchestrator) finish(ctx context.Context, id uuid.UUID, origin, target models.Address, lc models.TxLifecycle) models.TxLifecycle {
	o.mu.Lock()
	o.lifecycle = lc
	o.busy = false
	o.mu.Unlock()
	o.publish(ctx, id, origin, target, lc)
	return lc
}

func (o *Orchestrator) publish(ctx context.Context, id uuid.UUID, origin, target models.Address, lc models.TxLifecycle) {
	log.Info().
		Str("submission_id", id.String()).
		Str("lifecycle", lc.String()).
		Str("target", target.String()).
		Msg("transaction lifecycle changed")

	if o.sink != nil {
		o.sink.RecordLifecycle(ctx, id, origin, target, lc)
	}
	if o.observer != nil {
		o.observer(id, target, lc)
	}
}

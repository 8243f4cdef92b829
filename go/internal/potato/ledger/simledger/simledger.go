// Package simledger is an in-process stand-in for the hot potato contract. It keeps the
// contract's storage, produces blocks on a clock and applies start_game, pass_potato and
// check_deadline the way the deployed contract does.
package simledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/ledger"
	"github.com/rs/zerolog/log"
)

// Dispatch errors, named like the contract's error variants.
const (
	ErrGameAlreadyActive  = "GameAlreadyActive"
	ErrGameNotActive      = "GameNotActive"
	ErrNotHolder          = "NotHolder"
	ErrDeadlineExpired    = "DeadlineExpired"
	ErrDeadlineNotReached = "DeadlineNotReached"
	ErrInvalidTarget      = "InvalidTarget"
)

// ErrUnavailable is returned by reads and sends while the ledger is set unavailable.
var ErrUnavailable = errors.New("simulated ledger unavailable")

// Config tunes the simulated chain.
type Config struct {
	BlockTime      time.Duration
	DeadlineBlocks uint32
	Mapped         []models.Address
}

// DefaultConfig produces 6 second blocks and gives every holder 10 blocks.
func DefaultConfig() Config {
	return Config{
		BlockTime:      models.BlockTimeSeconds * time.Second,
		DeadlineBlocks: 10,
	}
}

// Ledger is a simulated contract deployment. It implements ledger.Endpoint. Stored
// DeadlineBlocks is the fixed budget each holder gets; reads report what is left of it.
type Ledger struct {
	clock     clockwork.Clock
	blockTime time.Duration
	deadline  uint32

	mu          sync.Mutex
	block       uint32
	storage     ledger.RootStorage
	mapped      map[models.Address]bool
	unavailable bool
}

var _ ledger.Endpoint = (*Ledger)(nil)

// New creates a ledger at block 0 with no game running.
func New(clock clockwork.Clock, cfg Config) *Ledger {
	if cfg.BlockTime <= 0 {
		cfg.BlockTime = DefaultConfig().BlockTime
	}
	if cfg.DeadlineBlocks == 0 {
		cfg.DeadlineBlocks = DefaultConfig().DeadlineBlocks
	}
	l := &Ledger{
		clock:     clock,
		blockTime: cfg.BlockTime,
		deadline:  cfg.DeadlineBlocks,
		mapped:    make(map[models.Address]bool),
		storage: ledger.RootStorage{
			CurrentHolder: ledger.None[models.Address](),
			GameStarter:   ledger.None[models.Address](),
		},
	}
	for _, a := range cfg.Mapped {
		l.mapped[models.NewAddress(a.String())] = true
	}
	return l
}

// Run produces a block every BlockTime until ctx is cancelled.
func (l *Ledger) Run(ctx context.Context) {
	ticker := l.clock.NewTicker(l.blockTime)
	defer ticker.Stop()

	log.Info().Dur("block_time", l.blockTime).Msg("simulated ledger producing blocks")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			l.Mine()
		}
	}
}

// Mine produces one block.
func (l *Ledger) Mine() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.block++
	return l.block
}

// Block returns the current block number.
func (l *Ledger) Block() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.block
}

// MapAccount registers address for execution, as map_account does on chain.
func (l *Ledger) MapAccount(address models.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mapped[models.NewAddress(address.String())] = true
}

// SetUnavailable makes every read and send fail until it is cleared.
func (l *Ledger) SetUnavailable(unavailable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unavailable = unavailable
}

// GetRoot returns the current storage.
func (l *Ledger) GetRoot(ctx context.Context) (ledger.StorageResult, error) {
	if err := ctx.Err(); err != nil {
		return ledger.StorageResult{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unavailable {
		return ledger.StorageResult{}, ErrUnavailable
	}
	return ledger.StorageResult{Success: true, Value: l.reportedStorage()}, nil
}

// reportedStorage is storage as the contract reports it: while a round is active,
// deadline_blocks is the holder's remaining budget rather than the fixed one.
func (l *Ledger) reportedStorage() ledger.RootStorage {
	out := l.storage
	if out.Active {
		out.DeadlineBlocks = l.remaining()
	}
	return out
}

// AddressIsMapped reports whether address was mapped.
func (l *Ledger) AddressIsMapped(ctx context.Context, address models.Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unavailable {
		return false, ErrUnavailable
	}
	return l.mapped[models.NewAddress(address.String())], nil
}

// Send applies call in the current block and reports it finalized.
func (l *Ledger) Send(ctx context.Context, call ledger.Call) (ledger.Finalized, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Finalized{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unavailable {
		return ledger.Finalized{}, ErrUnavailable
	}

	origin := models.NewAddress(call.Origin.String())
	if !l.mapped[origin] {
		return ledger.Finalized{}, fmt.Errorf("origin %s is not mapped", origin)
	}

	var dispatchErr string
	switch call.Message {
	case models.TxKindStartGame:
		dispatchErr = l.startGame(origin, call.Data)
	case models.TxKindPassPotato:
		dispatchErr = l.passPotato(origin, call.Data)
	case models.TxKindCheckDeadline:
		dispatchErr = l.checkDeadline()
	default:
		return ledger.Finalized{}, fmt.Errorf("unknown message %q", call.Message)
	}

	fin := ledger.Finalized{
		Ok:            dispatchErr == "",
		DispatchError: dispatchErr,
		BlockHash:     gethcommon.BigToHash(big.NewInt(int64(l.block))).Hex(),
	}
	log.Debug().
		Str("message", string(call.Message)).
		Str("origin", origin.String()).
		Uint32("block", l.block).
		Str("dispatch_error", dispatchErr).
		Msg("simulated ledger applied call")
	return fin, nil
}

func (l *Ledger) startGame(origin models.Address, data *ledger.CallData) string {
	if l.storage.Active {
		return ErrGameAlreadyActive
	}
	if data == nil || data.To.IsZero() {
		return ErrInvalidTarget
	}
	l.storage = ledger.RootStorage{
		Active:          true,
		CurrentHolder:   ledger.Some(models.NewAddress(data.To.String())),
		DeadlineBlocks:  l.deadline,
		GameStarter:     ledger.Some(origin),
		LastPassedBlock: l.block,
	}
	return ""
}

func (l *Ledger) passPotato(origin models.Address, data *ledger.CallData) string {
	switch {
	case !l.storage.Active:
		return ErrGameNotActive
	case !l.storage.CurrentHolder.Unwrap().Equal(origin):
		return ErrNotHolder
	case l.expired():
		return ErrDeadlineExpired
	case data == nil || data.To.IsZero():
		return ErrInvalidTarget
	}
	l.storage.CurrentHolder = ledger.Some(models.NewAddress(data.To.String()))
	l.storage.LastPassedBlock = l.block
	return ""
}

// checkDeadline ends the round once the holder has run out of blocks.
func (l *Ledger) checkDeadline() string {
	switch {
	case !l.storage.Active:
		return ErrGameNotActive
	case !l.expired():
		return ErrDeadlineNotReached
	}
	l.storage.Active = false
	l.storage.CurrentHolder = ledger.None[models.Address]()
	return ""
}

func (l *Ledger) expired() bool {
	return l.remaining() == 0
}

// remaining is the number of blocks the holder has left, floored at zero.
func (l *Ledger) remaining() uint32 {
	end := l.storage.LastPassedBlock + l.storage.DeadlineBlocks
	if l.block >= end {
		return 0
	}
	return end - l.block
}

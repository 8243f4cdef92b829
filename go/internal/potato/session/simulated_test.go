package session

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/ledger/simledger"
	"github.com/mcdev12/hotpotato/go/internal/potato/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_FullRoundAgainstSimulatedLedger(t *testing.T) {
	clock := clockwork.NewFakeClock()
	chain := simledger.New(clock, simledger.Config{DeadlineBlocks: 2, Mapped: []models.Address{alice}})

	s := New(Dependencies{
		Storage: chain,
		Remote:  chain,
		Signer:  txn.StaticSigner(alice),
		Clock:   clock,
	}, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	defer s.Close()
	waitCtx, cancel := context.WithTimeout(ctx, waitFor)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 2))
	require.Eventually(t, func() bool { return s.View().Loaded }, waitFor, time.Millisecond)
	require.True(t, s.View().CanStart)

	lc, err := s.Submit(ctx, models.TxKindStartGame, alice)
	require.NoError(t, err)
	require.Equal(t, models.TxPhaseSucceeded, lc.Phase)
	require.Eventually(t, func() bool { return s.View().Role == RoleHolder }, waitFor, time.Millisecond)
	assert.Equal(t, 12, s.View().Countdown.TotalSeconds)

	// One block later the holder has a single block left.
	chain.Mine()
	clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool {
		v := s.View()
		return v.Snapshot.DeadlineBlocks == 1 && v.Countdown.TotalSeconds == 6
	}, waitFor, time.Millisecond)

	// Passing restarts the countdown from the full budget.
	lc, err = s.Submit(ctx, models.TxKindPassPotato, bob)
	require.NoError(t, err)
	require.Equal(t, models.TxPhaseSucceeded, lc.Phase)
	require.Eventually(t, func() bool {
		v := s.View()
		return v.Snapshot.CurrentHolder == bob && v.Snapshot.DeadlineBlocks == 2 &&
			v.Countdown.TotalSeconds == 12 && v.Countdown.SecondsRemaining >= 11
	}, waitFor, time.Millisecond)
	assert.Equal(t, RoleSpectator, s.View().Role)

	// Too early: the contract refuses and the round goes on.
	lc, err = s.Submit(ctx, models.TxKindCheckDeadline, "")
	require.NoError(t, err)
	assert.Equal(t, models.FailedLifecycle(models.TxKindCheckDeadline, models.FailureDispatch, simledger.ErrDeadlineNotReached), lc)

	chain.Mine()
	chain.Mine()
	lc, err = s.Submit(ctx, models.TxKindCheckDeadline, "")
	require.NoError(t, err)
	require.Equal(t, models.TxPhaseSucceeded, lc.Phase)

	require.Eventually(t, func() bool { return s.View().Verdict != nil }, waitFor, time.Millisecond)
	v := s.View()
	assert.Equal(t, bob, v.Verdict.Eliminated)
	assert.False(t, v.Snapshot.IsActive)
	assert.Equal(t, alice, v.Snapshot.GameStarter)
}

func TestSession_UnmappedSignerCannotSubmit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	chain := simledger.New(clock, simledger.DefaultConfig())

	s := New(Dependencies{
		Storage: chain,
		Remote:  chain,
		Signer:  txn.StaticSigner(bob),
		Clock:   clock,
	}, DefaultConfig())
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	lc, err := s.Submit(context.Background(), models.TxKindStartGame, alice)
	require.NoError(t, err)
	assert.Equal(t, models.FailureUnmapped, lc.Reason)
	assert.Equal(t, alice, s.View().Target)

	res, err := chain.GetRoot(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Value.Active)
}

package ledger_client

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/ledger"
	"github.com/mcdev12/hotpotato/go/internal/potato/ledger/simledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contract = models.Address("0x9999999999999999999999999999999999999999")
	alice    = models.Address("0x1111111111111111111111111111111111111111")
	bob      = models.Address("0x2222222222222222222222222222222222222222")
)

func newInProc(t *testing.T, bound models.Address) (*LedgerClient, *simledger.Ledger) {
	t.Helper()
	chain := simledger.New(clockwork.NewFakeClock(), simledger.Config{Mapped: []models.Address{alice}})

	srv, err := NewServer(NewService(chain, contract))
	require.NoError(t, err)
	t.Cleanup(srv.Stop)

	c := NewFromRPC(rpc.DialInProc(srv), bound)
	t.Cleanup(c.Close)
	return c, chain
}

func TestLedgerClient_RoundTrip(t *testing.T) {
	c, _ := newInProc(t, contract)
	ctx := context.Background()

	mapped, err := c.AddressIsMapped(ctx, alice)
	require.NoError(t, err)
	assert.True(t, mapped)

	res, err := c.GetRoot(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.False(t, res.Value.Active)
	assert.False(t, res.Value.CurrentHolder.Some)

	fin, err := c.Send(ctx, ledger.Call{
		Message: models.TxKindStartGame,
		Origin:  alice,
		Data:    &ledger.CallData{To: bob},
	})
	require.NoError(t, err)
	assert.True(t, fin.Ok)

	res, err = c.GetRoot(ctx)
	require.NoError(t, err)
	assert.True(t, res.Value.Active)
	assert.Equal(t, bob, res.Value.CurrentHolder.Unwrap())
	assert.Equal(t, alice, res.Value.GameStarter.Unwrap())
}

func TestLedgerClient_DispatchErrorIsNotAnRPCError(t *testing.T) {
	c, _ := newInProc(t, contract)

	fin, err := c.Send(context.Background(), ledger.Call{Message: models.TxKindCheckDeadline, Origin: alice})
	require.NoError(t, err)
	assert.False(t, fin.Ok)
	assert.Equal(t, simledger.ErrGameNotActive, fin.DispatchError)
}

func TestLedgerClient_RemoteFailuresSurfaceAsErrors(t *testing.T) {
	c, chain := newInProc(t, contract)
	chain.SetUnavailable(true)

	_, err := c.GetRoot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), MethodGetRoot)
}

func TestLedgerClient_WrongContract(t *testing.T) {
	c, _ := newInProc(t, bob)

	_, err := c.GetRoot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown contract")
}

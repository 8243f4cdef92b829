package ledger_client

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/mcdev12/hotpotato/go/clients"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/ledger"
)

// LedgerClient talks to a contract bridge over JSON-RPC. It implements ledger.Endpoint for one
// contract deployment.
type LedgerClient struct {
	*clients.BaseClient
	contract models.Address
}

var _ ledger.Endpoint = (*LedgerClient)(nil)

// NewLedgerClient dials url and binds the client to contract.
func NewLedgerClient(ctx context.Context, url, apiKey string, contract models.Address) (*LedgerClient, error) {
	headers := http.Header{}
	if apiKey != "" {
		headers.Set(APIKeyHeader, apiKey)
	}

	base, err := clients.NewBaseClient(ctx, url, headers)
	if err != nil {
		return nil, err
	}

	return &LedgerClient{
		BaseClient: base,
		contract:   contract,
	}, nil
}

// NewFromRPC binds an existing connection to contract.
func NewFromRPC(c *rpc.Client, contract models.Address) *LedgerClient {
	return &LedgerClient{
		BaseClient: clients.WrapRPCClient(c),
		contract:   contract,
	}
}

func (c *LedgerClient) Contract() models.Address {
	return c.contract
}

func (c *LedgerClient) GetRoot(ctx context.Context) (ledger.StorageResult, error) {
	var res ledger.StorageResult
	if err := c.Call(ctx, &res, MethodGetRoot, c.contract); err != nil {
		return ledger.StorageResult{}, err
	}
	return res, nil
}

func (c *LedgerClient) Send(ctx context.Context, call ledger.Call) (ledger.Finalized, error) {
	var fin ledger.Finalized
	if err := c.Call(ctx, &fin, MethodSend, c.contract, call); err != nil {
		return ledger.Finalized{}, err
	}
	return fin, nil
}

func (c *LedgerClient) AddressIsMapped(ctx context.Context, address models.Address) (bool, error) {
	var mapped bool
	if err := c.Call(ctx, &mapped, MethodAddressIsMapped, address); err != nil {
		return false, err
	}
	return mapped, nil
}

package ledger_client

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/ledger"
)

// Service exposes a ledger.Endpoint under the bridge's JSON-RPC namespace, so a simulated
// deployment can be reached the same way as a real one.
type Service struct {
	endpoint ledger.Endpoint
	contract models.Address
}

func NewService(endpoint ledger.Endpoint, contract models.Address) *Service {
	return &Service{
		endpoint: endpoint,
		contract: contract,
	}
}

// NewServer registers svc on a fresh JSON-RPC server. The server is an http.Handler.
func NewServer(svc *Service) (*rpc.Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(Namespace, svc); err != nil {
		return nil, fmt.Errorf("failed to register %s service: %w", Namespace, err)
	}
	return srv, nil
}

func (s *Service) GetRoot(ctx context.Context, contract models.Address) (ledger.StorageResult, error) {
	if err := s.checkContract(contract); err != nil {
		return ledger.StorageResult{}, err
	}
	return s.endpoint.GetRoot(ctx)
}

func (s *Service) Send(ctx context.Context, contract models.Address, call ledger.Call) (ledger.Finalized, error) {
	if err := s.checkContract(contract); err != nil {
		return ledger.Finalized{}, err
	}
	return s.endpoint.Send(ctx, call)
}

func (s *Service) AddressIsMapped(ctx context.Context, address models.Address) (bool, error) {
	return s.endpoint.AddressIsMapped(ctx, address)
}

func (s *Service) checkContract(contract models.Address) error {
	if s.contract.IsZero() || contract.Equal(s.contract) {
		return nil
	}
	return fmt.Errorf("unknown contract %s", contract)
}

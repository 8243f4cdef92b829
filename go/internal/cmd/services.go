package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/hotpotato/go/clients/ledger_client"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/events"
	"github.com/mcdev12/hotpotato/go/internal/potato/gateway"
	"github.com/mcdev12/hotpotato/go/internal/potato/journal"
	"github.com/mcdev12/hotpotato/go/internal/potato/ledger/simledger"
	"github.com/mcdev12/hotpotato/go/internal/potato/session"
	"github.com/mcdev12/hotpotato/go/internal/potato/txn"
	"github.com/rs/zerolog/log"
)

// Services is everything the server runs.
type Services struct {
	Session    *session.Session
	Gateway    *gateway.Service
	Dispatcher *events.Dispatcher

	// Simulator and RPC are set in simulator mode only.
	Simulator *simledger.Ledger
	RPC       *rpc.Server

	client  *ledger_client.LedgerClient
	journal *journal.PostgresStore
	events  events.Publisher
	wg      sync.WaitGroup
}

func setupServices(ctx context.Context, cfg *Config) (*Services, error) {
	clock := clockwork.NewRealClock()
	svc := &Services{}

	// Ledger endpoint
	contract := cfg.Contract()
	if cfg.Simulated() {
		simCfg := simledger.DefaultConfig()
		simCfg.BlockTime = cfg.BlockTime
		simCfg.DeadlineBlocks = cfg.Simulator.DeadlineBlocks
		for _, a := range cfg.Simulator.Mapped {
			simCfg.Mapped = append(simCfg.Mapped, models.NewAddress(a))
		}
		if cfg.Signer != "" {
			simCfg.Mapped = append(simCfg.Mapped, models.NewAddress(cfg.Signer))
		}
		svc.Simulator = simledger.New(clock, simCfg)

		server, err := ledger_client.NewServer(ledger_client.NewService(svc.Simulator, contract))
		if err != nil {
			return nil, err
		}
		svc.RPC = server
		svc.client = ledger_client.NewFromRPC(rpc.DialInProc(server), contract)
	} else {
		client, err := ledger_client.NewLedgerClient(ctx, cfg.Endpoint(), cfg.APIKey, contract)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to ledger: %w", err)
		}
		svc.client = client
	}

	deps := session.Dependencies{
		SessionID: uuid.New(),
		Storage:   svc.client,
		Remote:    svc.client,
		Clock:     clock,
	}
	if cfg.Signer != "" {
		deps.Signer = txn.StaticSigner(models.NewAddress(cfg.Signer))
	}

	// Diagnostics journal
	var diagnostics gateway.DiagnosticsProvider
	if cfg.Journal.Enabled {
		store, err := setupJournal(ctx, cfg)
		if err != nil {
			svc.Close()
			return nil, err
		}
		svc.journal = store
		j := journal.New(store, deps.SessionID, clock)
		deps.Diagnostics = j
		deps.Lifecycles = j
		diagnostics = j
	}

	// Transition fan-out
	if cfg.NATS.Enabled {
		publisher, err := events.NewJetStreamPublisher(ctx, cfg.JetStreamConfig())
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		svc.events = publisher
	} else {
		svc.events = events.LogPublisher{}
	}
	svc.Dispatcher = events.NewDispatcher(svc.events, clock, events.DefaultDispatcherConfig(), nil)
	deps.Events = svc.Dispatcher

	svc.Session = session.New(deps, cfg.SessionConfig())
	svc.Gateway = gateway.NewService(svc.Session, clock, gateway.DefaultConnectionConfig(), diagnostics)

	log.Info().
		Str("session_id", svc.Session.ID().String()).
		Str("chain", cfg.Chain).
		Str("contract", contract.String()).
		Bool("journal", cfg.Journal.Enabled).
		Bool("nats", cfg.NATS.Enabled).
		Msg("services configured")
	return svc, nil
}

// Start launches every background loop. They stop when ctx is cancelled.
func (s *Services) Start(ctx context.Context) error {
	if err := s.Dispatcher.Start(ctx); err != nil {
		return err
	}
	if s.Simulator != nil {
		s.goRun(func() { s.Simulator.Run(ctx) })
	}
	if err := s.Session.Start(ctx); err != nil {
		return err
	}
	s.goRun(func() { s.Gateway.Run(ctx) })
	return nil
}

func (s *Services) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// RegisterRoutes adds the gateway and, in simulator mode, the contract bridge at /rpc.
func (s *Services) RegisterRoutes(mux *http.ServeMux) {
	s.Gateway.RegisterRoutes(mux)
	if s.RPC != nil {
		mux.Handle("/rpc", s.RPC)
	}
}

// Close stops the session and releases connections. ctx passed to Start must be cancelled first.
func (s *Services) Close() {
	if s.Session != nil {
		s.Session.Close()
	}
	s.wg.Wait()
	if s.Dispatcher != nil {
		s.Dispatcher.Wait()
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event publisher")
		}
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close journal")
		}
	}
	if s.RPC != nil {
		s.RPC.Stop()
	}
	if s.client != nil {
		s.client.Close()
	}
}

package gateway

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/session"
	"github.com/rs/zerolog/log"
)

// SessionAPI is the part of a session the gateway exposes
type SessionAPI interface {
	View() session.View
	Subscribe() (<-chan session.Update, func())
	Submit(ctx context.Context, kind models.TxKind, to models.Address) (models.TxLifecycle, error)
	AcknowledgeGameOver() bool
}

// DiagnosticsProvider reports journal figures; the journal implements it
type DiagnosticsProvider interface {
	FallbackCount(ctx context.Context) (int64, error)
}

// Service pushes session updates to WebSocket clients and serves state and commands over HTTP
type Service struct {
	session     SessionAPI
	clock       clockwork.Clock
	connections *ConnectionManager
	diagnostics DiagnosticsProvider
}

// NewService creates the gateway. diagnostics may be nil.
func NewService(s SessionAPI, clock clockwork.Clock, cfg ConnectionConfig, diagnostics DiagnosticsProvider) *Service {
	svc := &Service{
		session:     s,
		clock:       clock,
		diagnostics: diagnostics,
	}
	svc.connections = NewConnectionManager(cfg, svc.handleClientCommand)
	return svc
}

// Run forwards session updates to connected clients until ctx is cancelled or the session closes
func (s *Service) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		s.connections.Start(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	updates, unsubscribe := s.session.Subscribe()
	defer unsubscribe()

	log.Info().Msg("gateway forwarding session updates")
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				log.Info().Msg("session closed; gateway stops forwarding")
				return
			}
			s.forward(u)
		}
	}
}

func (s *Service) forward(u session.Update) {
	evts, err := EventsFromUpdate(u, s.clock.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("failed to build gateway events")
		return
	}
	for _, evt := range evts {
		s.connections.Broadcast(evt)
	}
}

func (s *Service) handleClientCommand(conn *Connection, msg ClientMessage) {
	switch msg.Type {
	case ClientMessageAcknowledge:
		s.session.AcknowledgeGameOver()
	case ClientMessageGetView:
		v := s.session.View()
		evt, err := newEvent(v.SessionID, EventTypeViewUpdated, s.clock.Now().UTC(), NewViewPayload(v))
		if err != nil {
			log.Error().Err(err).Msg("failed to build view event")
			return
		}
		s.connections.SendTo(conn, evt)
	default:
		log.Debug().Str("type", msg.Type).Msg("unknown client command")
	}
}

// RegisterRoutes registers WebSocket, state and command routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	NewWebSocketHandler(s.connections, s.session, s.clock).RegisterRoutes(mux)
	NewStateHandler(s.session, s.diagnostics).RegisterStateRoutes(mux)

	path, handler := NewGameServiceHandler(NewGameService(s.session))
	mux.Handle(path, handler)
}

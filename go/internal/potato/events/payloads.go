package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/hotpotato/go/internal/potato/reconcile"
	"github.com/mcdev12/hotpotato/go/internal/potato/session"
)

// Event types, one per derived transition
const (
	EventTypeGameStarted  = "GameStarted"
	EventTypePotatoPassed = "PotatoPassed"
	EventTypeGameOver     = "GameOver"
	EventTypeGameEnded    = "GameEnded"
)

// Event is one transition ready to publish
type Event struct {
	ID        uuid.UUID       `json:"event_id"`
	EventType string          `json:"event_type"`
	SessionID uuid.UUID       `json:"session_id"`
	Seq       uint64          `json:"seq"`
	Payload   json.RawMessage `json:"payload"`
}

// GameStartedPayload is the payload for a GameStarted event
type GameStartedPayload struct {
	Holder         string    `json:"holder"`
	Starter        string    `json:"starter,omitempty"`
	DeadlineBlocks uint32    `json:"deadline_blocks"`
	ObservedAt     time.Time `json:"observed_at"`
}

// PotatoPassedPayload is the payload for a PotatoPassed event
type PotatoPassedPayload struct {
	From            string    `json:"from,omitempty"`
	To              string    `json:"to"`
	LastPassedBlock uint32    `json:"last_passed_block"`
	ObservedAt      time.Time `json:"observed_at"`
}

// GameOverPayload is the payload for a GameOver event
type GameOverPayload struct {
	Eliminated string    `json:"eliminated"`
	ObservedAt time.Time `json:"observed_at"`
}

// GameEndedPayload is the payload for a GameEnded event
type GameEndedPayload struct {
	ObservedAt time.Time `json:"observed_at"`
}

// FromBatch turns every transition of batch into an event stamped with now.
func FromBatch(batch session.TransitionBatch, now time.Time) ([]Event, error) {
	out := make([]Event, 0, len(batch.Transitions))
	for _, tr := range batch.Transitions {
		payload, err := payloadFor(tr, batch, now)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", tr.Type, err)
		}
		out = append(out, Event{
			ID:        uuid.New(),
			EventType: string(tr.Type),
			SessionID: batch.SessionID,
			Seq:       batch.Seq,
			Payload:   data,
		})
	}
	return out, nil
}

func payloadFor(tr reconcile.Transition, batch session.TransitionBatch, now time.Time) (interface{}, error) {
	switch tr.Type {
	case reconcile.TransitionGameStarted:
		return GameStartedPayload{
			Holder:         tr.To.String(),
			Starter:        tr.Starter.String(),
			DeadlineBlocks: batch.Snapshot.DeadlineBlocks,
			ObservedAt:     now,
		}, nil
	case reconcile.TransitionPotatoPassed:
		return PotatoPassedPayload{
			From:            tr.From.String(),
			To:              tr.To.String(),
			LastPassedBlock: tr.LastPassedBlock,
			ObservedAt:      now,
		}, nil
	case reconcile.TransitionGameOver:
		return GameOverPayload{
			Eliminated: tr.From.String(),
			ObservedAt: now,
		}, nil
	case reconcile.TransitionGameEnded:
		return GameEndedPayload{ObservedAt: now}, nil
	}
	return nil, fmt.Errorf("unknown transition type %q", tr.Type)
}

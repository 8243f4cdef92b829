package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/hotpotato/go/internal/potato/reconcile"
	"github.com/mcdev12/hotpotato/go/internal/potato/session"
)

// GatewayEvent is the envelope pushed to WebSocket clients
type GatewayEvent struct {
	ID        string          `json:"id"`         // Event UUID
	SessionID string          `json:"session_id"` // Session UUID
	Type      EventType       `json:"type"`       // Event type
	Timestamp time.Time       `json:"timestamp"`  // Event creation time
	Data      json.RawMessage `json:"data"`       // Event-specific payload
}

// EventType represents the type of gateway event
type EventType string

const (
	EventTypeViewUpdated  EventType = "ViewUpdated"
	EventTypeGameStarted  EventType = EventType(reconcile.TransitionGameStarted)
	EventTypePotatoPassed EventType = EventType(reconcile.TransitionPotatoPassed)
	EventTypeGameOver     EventType = EventType(reconcile.TransitionGameOver)
	EventTypeGameEnded    EventType = EventType(reconcile.TransitionGameEnded)
)

// ViewPayload is a session view plus the display strings a thin client would otherwise compute
type ViewPayload struct {
	session.View
	CountdownText   string  `json:"countdown_text"`
	CountdownBand   string  `json:"countdown_band"`
	CountdownPct    float64 `json:"countdown_pct"`
	HolderShort     string  `json:"holder_short,omitempty"`
	EliminatedShort string  `json:"eliminated_short,omitempty"`
}

func NewViewPayload(v session.View) ViewPayload {
	p := ViewPayload{
		View:          v,
		CountdownText: v.Countdown.Format(),
		CountdownBand: v.Countdown.Band(),
		CountdownPct:  v.Countdown.Percent(),
		HolderShort:   v.Snapshot.CurrentHolder.Short(),
	}
	if v.Verdict != nil {
		p.EliminatedShort = v.Verdict.Eliminated.Short()
	}
	return p
}

func newEvent(sessionID uuid.UUID, eventType EventType, now time.Time, data interface{}) (*GatewayEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return &GatewayEvent{
		ID:        uuid.New().String(),
		SessionID: sessionID.String(),
		Type:      eventType,
		Timestamp: now,
		Data:      raw,
	}, nil
}

// EventsFromUpdate turns one session update into the events clients receive: the transitions
// first, then the view they led to.
func EventsFromUpdate(u session.Update, now time.Time) ([]*GatewayEvent, error) {
	out := make([]*GatewayEvent, 0, len(u.Transitions)+1)
	for _, tr := range u.Transitions {
		evt, err := newEvent(u.View.SessionID, EventType(tr.Type), now, tr)
		if err != nil {
			return nil, err
		}
		out = append(out, evt)
	}

	evt, err := newEvent(u.View.SessionID, EventTypeViewUpdated, now, NewViewPayload(u.View))
	if err != nil {
		return nil, err
	}
	return append(out, evt), nil
}

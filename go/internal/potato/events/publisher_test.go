package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamConfig(t *testing.T) {
	sc := DefaultJetStreamConfig().StreamConfig()
	assert.Equal(t, "HOTPOTATO_EVENTS", sc.Name)
	assert.Equal(t, []string{"hotpotato.events.>"}, sc.Subjects)
	assert.Equal(t, jetstream.LimitsPolicy, sc.Retention)
	assert.Equal(t, 2*time.Minute, sc.Duplicates)
}

func TestNewMsg(t *testing.T) {
	evt := Event{
		ID:        uuid.New(),
		EventType: EventTypeGameOver,
		SessionID: uuid.New(),
		Seq:       9,
		Payload:   json.RawMessage(`{"eliminated":"0x1111111111111111111111111111111111111111"}`),
	}
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	msg, err := newMsg("hotpotato.events", evt, now)
	require.NoError(t, err)
	assert.Equal(t, "hotpotato.events.GameOver", msg.Subject)
	assert.Equal(t, evt.ID.String(), msg.Header.Get(jetstream.MsgIDHeader))
	assert.Equal(t, evt.SessionID.String(), msg.Header.Get("Session-ID"))

	var body envelope
	require.NoError(t, json.Unmarshal(msg.Data, &body))
	assert.Equal(t, evt.ID.String(), body.EventID)
	assert.Equal(t, uint64(9), body.Seq)
	assert.True(t, now.Equal(body.Timestamp))
	assert.JSONEq(t, string(evt.Payload), string(body.Payload))
}

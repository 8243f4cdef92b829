package session

import (
	"github.com/google/uuid"
	"github.com/mcdev12/hotpotato/go/internal/models"
)

// Role is how the configured signer relates to the current round.
type Role string

const (
	RoleNone      Role = "none"
	RoleHolder    Role = "holder"
	RoleSpectator Role = "spectator"
)

// View is an immutable copy of everything a presentation layer renders.
type View struct {
	SessionID   uuid.UUID               `json:"session_id"`
	Loaded      bool                    `json:"loaded"`
	Seq         uint64                  `json:"seq"`
	Snapshot    models.GameSnapshot     `json:"snapshot"`
	Countdown   models.CountdownState   `json:"countdown"`
	Transaction models.TxLifecycle      `json:"transaction"`
	Verdict     *models.GameOverVerdict `json:"verdict,omitempty"`
	Target      models.Address          `json:"target,omitempty"`
	Signer      models.Address          `json:"signer,omitempty"`
	Role        Role                    `json:"role"`

	CanStart         bool `json:"can_start"`
	CanPass          bool `json:"can_pass"`
	CanCheckDeadline bool `json:"can_check_deadline"`
}

func (s *Session) viewLocked() View {
	v := View{
		SessionID:   s.id,
		Loaded:      s.loaded,
		Seq:         s.seq,
		Snapshot:    s.snapshot,
		Countdown:   s.countdown.State(),
		Transaction: s.orchestrator.Lifecycle(),
		Target:      s.target,
		Signer:      s.signer,
		Role:        roleOf(s.signer, s.snapshot),
	}
	if s.verdict != nil {
		verdict := *s.verdict
		v.Verdict = &verdict
	}

	idle := !v.Transaction.IsPending()
	active := v.Snapshot.IsActive
	v.CanStart = idle && v.Loaded && !active
	v.CanPass = idle && active && v.Snapshot.HasHolder()
	v.CanCheckDeadline = idle && active
	return v
}

func roleOf(signer models.Address, snap models.GameSnapshot) Role {
	switch {
	case signer.IsZero():
		return RoleNone
	case snap.IsActive && snap.CurrentHolder.Equal(signer):
		return RoleHolder
	default:
		return RoleSpectator
	}
}

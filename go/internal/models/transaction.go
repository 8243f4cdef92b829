package models

import "fmt"

// TxKind names one of the three state-changing contract messages.
type TxKind string

const (
	TxKindStartGame     TxKind = "start_game"
	TxKindPassPotato    TxKind = "pass_potato"
	TxKindCheckDeadline TxKind = "check_deadline"
)

// ParseTxKind maps a message name onto a TxKind.
func ParseTxKind(s string) (TxKind, error) {
	switch TxKind(s) {
	case TxKindStartGame, TxKindPassPotato, TxKindCheckDeadline:
		return TxKind(s), nil
	}
	return "", fmt.Errorf("unknown transaction kind %q", s)
}

// NeedsTarget reports whether the message carries a {to} argument.
func (k TxKind) NeedsTarget() bool {
	return k == TxKindStartGame || k == TxKindPassPotato
}

// TxPhase is the phase of the current submission.
type TxPhase string

const (
	TxPhaseIdle      TxPhase = "IDLE"
	TxPhasePending   TxPhase = "PENDING"
	TxPhaseSucceeded TxPhase = "SUCCEEDED"
	TxPhaseFailed    TxPhase = "FAILED"
)

// FailureReason classifies why a submission failed.
type FailureReason string

const (
	FailureUnmapped  FailureReason = "unmapped"
	FailureDispatch  FailureReason = "dispatch"
	FailureTransport FailureReason = "transport"
)

// TxLifecycle is the observable state of the most recent submission.
type TxLifecycle struct {
	Phase  TxPhase       `json:"phase"`
	Kind   TxKind        `json:"kind,omitempty"`
	Reason FailureReason `json:"reason,omitempty"`
	Detail string        `json:"detail,omitempty"`
}

func IdleLifecycle() TxLifecycle {
	return TxLifecycle{Phase: TxPhaseIdle}
}

func PendingLifecycle(kind TxKind) TxLifecycle {
	return TxLifecycle{Phase: TxPhasePending, Kind: kind}
}

func SucceededLifecycle(kind TxKind) TxLifecycle {
	return TxLifecycle{Phase: TxPhaseSucceeded, Kind: kind}
}

func FailedLifecycle(kind TxKind, reason FailureReason, detail string) TxLifecycle {
	return TxLifecycle{Phase: TxPhaseFailed, Kind: kind, Reason: reason, Detail: detail}
}

// IsPending reports whether a submission is awaiting finalization.
func (l TxLifecycle) IsPending() bool {
	return l.Phase == TxPhasePending
}

func (l TxLifecycle) String() string {
	switch l.Phase {
	case TxPhasePending, TxPhaseSucceeded:
		return fmt.Sprintf("%s(%s)", l.Phase, l.Kind)
	case TxPhaseFailed:
		return fmt.Sprintf("%s(%s, %s)", l.Phase, l.Kind, l.Reason)
	default:
		return string(l.Phase)
	}
}

// Package reconcile compares consecutive accepted snapshots and derives what happened between them.
package reconcile

import "github.com/mcdev12/hotpotato/go/internal/models"

// TransitionType names a derived change between two snapshots.
type TransitionType string

const (
	TransitionGameStarted  TransitionType = "GameStarted"
	TransitionPotatoPassed TransitionType = "PotatoPassed"
	TransitionGameOver     TransitionType = "GameOver"
	// TransitionGameEnded is an active->inactive change with no known holder, so nobody is eliminated.
	TransitionGameEnded TransitionType = "GameEnded"
)

// Transition is one derived change.
type Transition struct {
	Type            TransitionType `json:"type"`
	From            models.Address `json:"from,omitempty"`
	To              models.Address `json:"to,omitempty"`
	Starter         models.Address `json:"starter,omitempty"`
	LastPassedBlock uint32         `json:"last_passed_block,omitempty"`
}

// Result is the outcome of reconciling a new snapshot against the previous accepted one.
type Result struct {
	Snapshot    models.GameSnapshot
	Verdict     *models.GameOverVerdict
	Transitions []Transition
}

// Reconcile is pure. prev is nil for the very first snapshot, which never yields transitions.
func Reconcile(prev *models.GameSnapshot, next models.GameSnapshot) Result {
	res := Result{Snapshot: next}
	if prev == nil {
		return res
	}

	switch {
	case prev.IsActive && !next.IsActive:
		if prev.HasHolder() {
			res.Verdict = &models.GameOverVerdict{Eliminated: prev.CurrentHolder}
			res.Transitions = append(res.Transitions, Transition{
				Type:            TransitionGameOver,
				From:            prev.CurrentHolder,
				Starter:         prev.GameStarter,
				LastPassedBlock: prev.LastPassedBlock,
			})
		} else {
			res.Transitions = append(res.Transitions, Transition{Type: TransitionGameEnded, Starter: prev.GameStarter})
		}

	case !prev.IsActive && next.IsActive:
		res.Transitions = append(res.Transitions, Transition{
			Type:            TransitionGameStarted,
			To:              next.CurrentHolder,
			Starter:         next.GameStarter,
			LastPassedBlock: next.LastPassedBlock,
		})

	case prev.IsActive && next.IsActive:
		if !prev.CurrentHolder.Equal(next.CurrentHolder) || prev.LastPassedBlock != next.LastPassedBlock {
			res.Transitions = append(res.Transitions, Transition{
				Type:            TransitionPotatoPassed,
				From:            prev.CurrentHolder,
				To:              next.CurrentHolder,
				Starter:         next.GameStarter,
				LastPassedBlock: next.LastPassedBlock,
			})
		}
	}

	return res
}

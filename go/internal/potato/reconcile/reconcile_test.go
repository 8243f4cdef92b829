package reconcile

import (
	"testing"

	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	p1 = models.Address("0x1111111111111111111111111111111111111111")
	p2 = models.Address("0x2222222222222222222222222222222222222222")
)

func TestReconcile_FirstSnapshotNeverEmits(t *testing.T) {
	res := Reconcile(nil, models.GameSnapshot{IsActive: false})
	assert.Nil(t, res.Verdict)
	assert.Empty(t, res.Transitions)

	res = Reconcile(nil, models.GameSnapshot{IsActive: true, CurrentHolder: p1, DeadlineBlocks: 10})
	assert.Nil(t, res.Verdict)
	assert.Empty(t, res.Transitions)
}

func TestReconcile_GameOverNamesPreviousHolder(t *testing.T) {
	prev := models.GameSnapshot{IsActive: true, CurrentHolder: p1, DeadlineBlocks: 10, LastPassedBlock: 5}
	next := models.GameSnapshot{IsActive: false, DeadlineBlocks: 0, LastPassedBlock: 5}

	res := Reconcile(&prev, next)
	require.NotNil(t, res.Verdict)
	assert.Equal(t, p1, res.Verdict.Eliminated)
	assert.Equal(t, next, res.Snapshot)
	require.Len(t, res.Transitions, 1)
	assert.Equal(t, TransitionGameOver, res.Transitions[0].Type)
}

func TestReconcile_VerdictRuleOverAllPairs(t *testing.T) {
	holders := []models.Address{"", p1}
	for _, prevActive := range []bool{false, true} {
		for _, nextActive := range []bool{false, true} {
			for _, prevHolder := range holders {
				for _, nextHolder := range holders {
					prev := models.GameSnapshot{IsActive: prevActive, CurrentHolder: prevHolder}
					next := models.GameSnapshot{IsActive: nextActive, CurrentHolder: nextHolder}

					res := Reconcile(&prev, next)
					want := prevActive && !nextActive && prevHolder != ""
					if want {
						require.NotNil(t, res.Verdict, "prev=%+v next=%+v", prev, next)
						assert.Equal(t, prevHolder, res.Verdict.Eliminated)
					} else {
						assert.Nil(t, res.Verdict, "prev=%+v next=%+v", prev, next)
					}
				}
			}
		}
	}
}

func TestReconcile_EndedWithoutHolder(t *testing.T) {
	prev := models.GameSnapshot{IsActive: true}
	res := Reconcile(&prev, models.GameSnapshot{})
	assert.Nil(t, res.Verdict)
	require.Len(t, res.Transitions, 1)
	assert.Equal(t, TransitionGameEnded, res.Transitions[0].Type)
}

func TestReconcile_StartAndPass(t *testing.T) {
	idle := models.GameSnapshot{}
	started := models.GameSnapshot{IsActive: true, CurrentHolder: p1, GameStarter: p2, DeadlineBlocks: 10, LastPassedBlock: 3}

	res := Reconcile(&idle, started)
	require.Len(t, res.Transitions, 1)
	assert.Equal(t, TransitionGameStarted, res.Transitions[0].Type)
	assert.Equal(t, p1, res.Transitions[0].To)
	assert.Equal(t, p2, res.Transitions[0].Starter)

	passed := started
	passed.CurrentHolder = p2
	passed.LastPassedBlock = 7
	res = Reconcile(&started, passed)
	require.Len(t, res.Transitions, 1)
	assert.Equal(t, TransitionPotatoPassed, res.Transitions[0].Type)
	assert.Equal(t, p1, res.Transitions[0].From)
	assert.Equal(t, p2, res.Transitions[0].To)

	// Passing to yourself still moves the pass block.
	self := passed
	self.LastPassedBlock = 9
	res = Reconcile(&passed, self)
	require.Len(t, res.Transitions, 1)
	assert.Equal(t, TransitionPotatoPassed, res.Transitions[0].Type)

	res = Reconcile(&self, self)
	assert.Empty(t, res.Transitions)
	assert.Nil(t, res.Verdict)
}

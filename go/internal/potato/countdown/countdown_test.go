package countdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_ConvertsBlocksToSeconds(t *testing.T) {
	c := New(clockwork.NewFakeClock(), DefaultConfig(), nil)
	c.Seed(true, 10)

	st := c.State()
	assert.Equal(t, 60, st.SecondsRemaining)
	assert.Equal(t, 60, st.TotalSeconds)
}

func TestSeed_SameBaselineDoesNotReset(t *testing.T) {
	c := New(clockwork.NewFakeClock(), DefaultConfig(), nil)
	require.True(t, c.Seed(true, 10))
	c.Tick()
	c.Tick()
	require.Equal(t, 58, c.State().SecondsRemaining)

	assert.False(t, c.Seed(true, 10))
	assert.Equal(t, 58, c.State().SecondsRemaining)

	assert.True(t, c.Seed(true, 9))
	assert.Equal(t, 54, c.State().SecondsRemaining)
}

func TestSeed_InactiveResets(t *testing.T) {
	c := New(clockwork.NewFakeClock(), DefaultConfig(), nil)
	c.Seed(true, 10)
	assert.True(t, c.Seed(false, 10))
	assert.False(t, c.Seed(false, 10))
	assert.Equal(t, 0, c.State().SecondsRemaining)
	assert.Positive(t, c.State().TotalSeconds)

	// A new round with the same deadline must seed again.
	c.Seed(true, 10)
	assert.Equal(t, 60, c.State().SecondsRemaining)
}

func TestSeed_ZeroDeadlineKeepsPositiveTotal(t *testing.T) {
	c := New(clockwork.NewFakeClock(), DefaultConfig(), nil)
	c.Seed(true, 0)
	assert.Equal(t, 0, c.State().SecondsRemaining)
	assert.Equal(t, 60, c.State().TotalSeconds)
}

func TestTick_NeverNegative(t *testing.T) {
	c := New(clockwork.NewFakeClock(), DefaultConfig(), nil)
	c.Seed(true, 1)
	for i := 0; i < 20; i++ {
		c.Tick()
		assert.GreaterOrEqual(t, c.State().SecondsRemaining, 0)
	}
	assert.Equal(t, 0, c.State().SecondsRemaining)
}

func TestRun_TicksOnFakeClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var changes atomic.Int32
	c := New(clock, DefaultConfig(), func() { changes.Add(1) })
	c.Seed(true, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		want := 6 - (i + 1)
		require.Eventually(t, func() bool { return c.State().SecondsRemaining == want }, time.Second, time.Millisecond)
	}

	cancel()
	<-done
	assert.Equal(t, int32(3), changes.Load())
}

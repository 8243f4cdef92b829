// Package countdown turns the remote block deadline into a locally ticking estimate.
//
// The estimate is optimistic: block production is not guaranteed to be steady, so the
// clock is corrected every time a fresh snapshot re-seeds it.
package countdown

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Config holds the countdown tunables.
type Config struct {
	TickInterval time.Duration
	BlockTime    time.Duration
}

// DefaultConfig ticks every second and assumes 6 second blocks.
func DefaultConfig() Config {
	return Config{
		TickInterval: time.Second,
		BlockTime:    models.BlockTimeSeconds * time.Second,
	}
}

// Countdown owns the seconds-remaining estimate.
type Countdown struct {
	clock        clockwork.Clock
	tick         time.Duration
	blockSeconds int
	onChange     func()

	mu       sync.Mutex
	state    models.CountdownState
	baseline uint32
	seeded   bool
}

// New creates a reset countdown. onChange, if set, is called without locks held after every tick
// that changed the estimate. Seeding does not call it; Seed reports the change to its caller instead.
func New(clock clockwork.Clock, cfg Config, onChange func()) *Countdown {
	blockSeconds := int(cfg.BlockTime / time.Second)
	if blockSeconds <= 0 {
		blockSeconds = models.BlockTimeSeconds
	}
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	return &Countdown{
		clock:        clock,
		tick:         tick,
		blockSeconds: blockSeconds,
		onChange:     onChange,
		state:        models.CountdownState{TotalSeconds: models.DefaultTotalSeconds},
	}
}

// Seed applies an accepted snapshot. An active snapshot re-seeds the clock only when its deadline
// differs from the current baseline; an inactive one resets it to zero. It reports whether the
// estimate changed.
func (c *Countdown) Seed(active bool, deadlineBlocks uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	switch {
	case !active:
		if c.seeded || c.state.SecondsRemaining != 0 {
			c.seeded = false
			c.baseline = 0
			c.state = models.CountdownState{TotalSeconds: models.DefaultTotalSeconds}
			changed = true
		}
	case !c.seeded || c.baseline != deadlineBlocks:
		seconds := int(deadlineBlocks) * c.blockSeconds
		total := seconds
		if total <= 0 {
			total = models.DefaultTotalSeconds
		}
		c.seeded = true
		c.baseline = deadlineBlocks
		c.state = models.CountdownState{SecondsRemaining: seconds, TotalSeconds: total}
		changed = true

		log.Debug().
			Uint32("deadline_blocks", deadlineBlocks).
			Int("seconds", seconds).
			Msg("countdown re-seeded")
	}
	return changed
}

// Tick advances the clock by one step, floored at zero.
func (c *Countdown) Tick() {
	c.mu.Lock()
	if c.state.SecondsRemaining <= 0 {
		c.mu.Unlock()
		return
	}
	c.state.SecondsRemaining--
	c.mu.Unlock()

	c.notify()
}

// State returns the current estimate.
func (c *Countdown) State() models.CountdownState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run ticks until ctx is cancelled.
func (c *Countdown) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.Tick()
		}
	}
}

func (c *Countdown) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

package models

import "fmt"

// DefaultTotalSeconds is used as the countdown span when an active game reports no deadline.
const DefaultTotalSeconds = 60

// CountdownState is the locally ticking estimate of the time left to pass the potato.
type CountdownState struct {
	SecondsRemaining int `json:"seconds_remaining"`
	TotalSeconds     int `json:"total_seconds"`
}

// Percent returns the remaining share of the countdown in [0, 100].
func (c CountdownState) Percent() float64 {
	if c.TotalSeconds <= 0 {
		return 0
	}
	p := float64(c.SecondsRemaining) / float64(c.TotalSeconds) * 100
	if p > 100 {
		return 100
	}
	return p
}

// Band classifies the remaining time for display.
func (c CountdownState) Band() string {
	p := c.Percent()
	switch {
	case p > 50:
		return "green"
	case p > 25:
		return "yellow"
	default:
		return "red"
	}
}

// Format renders the remaining time as M:SS.
func (c CountdownState) Format() string {
	s := c.SecondsRemaining
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

package models

// BlockTimeSeconds is the assumed production rate used to turn block budgets into seconds.
const BlockTimeSeconds = 6

// GameSnapshot is one point-in-time read of the remote game state.
type GameSnapshot struct {
	IsActive        bool    `json:"is_active"`
	CurrentHolder   Address `json:"current_holder,omitempty"`
	DeadlineBlocks  uint32  `json:"deadline_blocks"`
	GameStarter     Address `json:"game_starter,omitempty"`
	LastPassedBlock uint32  `json:"last_passed_block"`
}

// DefaultSnapshot is what the engine shows when nothing could be read.
func DefaultSnapshot() GameSnapshot {
	return GameSnapshot{}
}

// HasHolder reports whether somebody currently holds the potato.
func (s GameSnapshot) HasHolder() bool {
	return !s.CurrentHolder.IsZero()
}

// GameOverVerdict names the player holding the potato when the round ended.
type GameOverVerdict struct {
	Eliminated Address `json:"eliminated"`
}

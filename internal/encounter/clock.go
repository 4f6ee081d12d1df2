package encounter

import (
	"sync"
	"time"
)

// RoundDuration is the in-game length of one combat round.
const RoundDuration = 6 * time.Second

// RoundClock is a game clock driven by the round counter: round N reads as
// start + (N-1) rounds. It lets minute and hour durations elapse with
// simulated rounds instead of wall time.
type RoundClock struct {
	mu    sync.Mutex
	start time.Time
	round int
}

// NewRoundClock creates a clock at round 1.
func NewRoundClock(start time.Time) *RoundClock {
	return &RoundClock{start: start, round: 1}
}

// Now returns the game time of the current round.
func (c *RoundClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(time.Duration(c.round-1) * RoundDuration)
}

// SetRound moves the clock to round.
func (c *RoundClock) SetRound(round int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.round = max(1, round)
}

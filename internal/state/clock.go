package state

import (
	"sync/atomic"

	"github.com/google/uuid"
)

var sessionID = uuid.NewString()

// SessionID identifies this process to share clients.
func SessionID() string { return sessionID }

// Clock is a monotonically increasing revision counter. Every change to a
// Board ticks it so observers can drop stale updates.
type Clock struct {
	n atomic.Uint64
}

// Tick advances the clock and returns the new revision.
func (c *Clock) Tick() uint64 {
	return c.n.Add(1)
}

// Now returns the current revision without advancing it.
func (c *Clock) Now() uint64 {
	return c.n.Load()
}

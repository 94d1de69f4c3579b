// Package system provides the wall clock used outside tests.
package system

import (
	"time"

	"github.com/JakeFAU/ltd-dasher/internal/clock"
)

var _ clock.Clock = Clock{}

// Clock implements clock.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time in UTC. Edition and build ages are computed
// against it at render time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

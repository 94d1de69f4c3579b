// Package clock abstracts the current time so build ages are reproducible.
package clock

import "time"

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// Fixed always reports the same instant.
type Fixed time.Time

// Now returns the fixed instant in UTC.
func (f Fixed) Now() time.Time {
	return time.Time(f).UTC()
}

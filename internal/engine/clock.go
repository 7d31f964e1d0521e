package engine

import "time"

// Clock supplies the wall time stamped on member records.
//
// Tests substitute a fixed clock so stored timestamps are deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time {
	return time.Now()
}

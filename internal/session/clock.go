package session

import "time"

// Clock supplies the current time. The manager never calls time.Now
// directly so tests can simulate elapsed time without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }

package service

import "time"

// SetClock replaces the service clock and returns a func restoring it.
func SetClock(now func() time.Time) (restore func()) {
	prev := timeNow
	timeNow = now
	return func() { timeNow = prev }
}

package run

import (
	"fmt"
	"time"
)

// TimeoutError reports that a guarded operation did not settle before its
// deadline.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out after %dms", e.Timeout.Milliseconds())
}

type outcome[T any] struct {
	value T
	err   error
}

// Guard waits for fn for at most timeout, returning fn's outcome if it
// settles first and a *TimeoutError otherwise. A non-positive timeout makes
// the guard a passthrough with no timer armed. The timer is stopped on every
// exit path. This is a race, not a cancellation: after a timeout fires the
// operation keeps running in the background, its result settling into the
// buffered channel with no further effect.
func Guard[T any](timeout time.Duration, fn func() (T, error)) (T, error) {
	if timeout <= 0 {
		return fn()
	}

	settled := make(chan outcome[T], 1)
	go func() {
		value, err := fn()
		settled <- outcome[T]{value: value, err: err}
	}()

	timer := time.NewTimer(timeout)
	select {
	case out := <-settled:
		timer.Stop()
		return out.value, out.err
	case <-timer.C:
		var zero T
		return zero, &TimeoutError{Timeout: timeout}
	}
}

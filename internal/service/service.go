// Package service contains the long-running units of the application and
// the launcher that supervises them.
package service

import (
	"context"
	"fmt"
	"time"
)

// Service is a long-running unit supervised by the Launcher. Launch blocks
// until the service finishes or its context is cancelled; Stop releases any
// resources Launch does not tie to the context.
type Service interface {
	Name() string
	Launch(ctx context.Context) error
	Stop(ctx context.Context) error
}

// RecoverableError marks a service failure the launcher should recover from
// by relaunching the service after a delay.
type RecoverableError struct {
	Err           error
	RecoveryDelay time.Duration
}

func (e *RecoverableError) Error() string {
	return fmt.Sprintf("recoverable: %v (retry in %s)", e.Err, e.RecoveryDelay)
}

func (e *RecoverableError) Unwrap() error { return e.Err }

// recoveryDelay inspects an error tree and reports whether every leaf is
// recoverable. A service is only relaunched when nothing in the failure is
// fatal; the delay is the longest any branch asks for.
func recoveryDelay(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	if rec, ok := err.(*RecoverableError); ok {
		// The recoverable wrapper covers its whole subtree.
		return rec.RecoveryDelay, true
	}

	switch unwrapped := err.(type) {
	case interface{ Unwrap() []error }:
		var max time.Duration
		children := unwrapped.Unwrap()
		if len(children) == 0 {
			return 0, false
		}
		for _, child := range children {
			d, ok := recoveryDelay(child)
			if !ok {
				return 0, false
			}
			if d > max {
				max = d
			}
		}
		return max, true
	case interface{ Unwrap() error }:
		return recoveryDelay(unwrapped.Unwrap())
	default:
		return 0, false
	}
}

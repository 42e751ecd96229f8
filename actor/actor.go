package actor

import (
	"errors"
	"time"
)

// Actor defines the lifecycle of a long-lived periodic worker
//
// Lifecycle:
//  1. Construction
//  2. Start() - launch the worker goroutine
//  3. [runtime operation]
//  4. Stop(timeout) - signal and join with a bounded wait
//     or ForceStop() - signal only, for contexts that must not block
type Actor interface {
	// Start launches the worker, non-blocking
	Start() error

	// Stop signals the worker and waits up to timeout for it to exit
	// Returns ErrAbandoned when the wait expired with the worker still alive
	Stop(timeout time.Duration) error

	// ForceStop signals the worker without joining
	ForceStop()
}

// State is the supervisor's view of an actor
type State uint8

const (
	NotStarted State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Sentinel errors
var (
	ErrUnknownActor = errors.New("unknown actor")
	ErrNotStartable = errors.New("actor is not in a startable state")
	ErrNotRunning   = errors.New("actor is not running")
	ErrAbandoned    = errors.New("actor did not stop in time, worker abandoned")
)

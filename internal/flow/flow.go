// Package flow tracks the lifecycle of a user-triggered remote operation.
//
// Each flow moves Idle -> InFlight -> Succeeded|Failed and back to InFlight
// on the next attempt. While a call is in flight further attempts are
// rejected rather than queued.
package flow

import (
	"errors"
	"sync"
)

// ErrInFlight is returned by Begin while a previous call has not finished.
var ErrInFlight = errors.New("operation already in flight")

// State is the lifecycle state of a flow.
type State int

const (
	Idle State = iota
	InFlight
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in_flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Tracker holds the loading flag of one flow. The zero value is Idle.
type Tracker struct {
	mu    sync.Mutex
	state State
}

// Begin moves the flow to InFlight.
func (t *Tracker) Begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == InFlight {
		return ErrInFlight
	}
	t.state = InFlight
	return nil
}

// Finish ends the in-flight call, recording whether it failed.
func (t *Tracker) Finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.state = Failed
		return
	}
	t.state = Succeeded
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

package mutation

import "sync/atomic"

// State is the lifecycle position of one mutation run.
type State int32

const (
	StateIdle State = iota
	StatePending
	StateSucceeded
	StateFailed
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Run tracks one started mutation.
type Run[R any] struct {
	state    atomic.Int32
	done     chan struct{}
	response R
	err      error
}

func newRun[R any]() *Run[R] {
	return &Run[R]{done: make(chan struct{})}
}

// State reports where the run is in its lifecycle.
func (r *Run[R]) State() State {
	return State(r.state.Load())
}

// Done is closed once the run has settled and its keys were invalidated.
func (r *Run[R]) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run is done and returns the backend result.
func (r *Run[R]) Wait() (R, error) {
	<-r.done
	return r.response, r.err
}

func (r *Run[R]) setState(state State) {
	r.state.Store(int32(state))
}

func (r *Run[R]) finish(response R, err error) {
	r.response = response
	r.err = err
	r.setState(StateDone)
	close(r.done)
}

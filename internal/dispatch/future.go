package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// State of a Future. A future starts Pending and resolves exactly once
// into one of the three terminal states.
type State int32

const (
	StatePending State = iota
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ErrCancelled reports that a dispatch was cancelled locally. The
// request may still have reached the endpoint if it was already on the
// wire; cancellation is local bookkeeping only.
var ErrCancelled = errors.New("dispatch cancelled")

// Result is the outcome of one delivered request.
type Result struct {
	Status int
	Body   []byte
}

// Future is the completion handle for one submitted request. It is
// deliberately narrow: callers can cancel, poll, wait, and register
// callbacks, but only the dispatcher and this package resolve it. The
// completion primitive is never handed out.
type Future struct {
	id    string
	state atomic.Int32
	done  chan struct{}

	mu        sync.Mutex
	result    *Result
	err       error
	callbacks []func(*Result, error)

	req *Request // nil for pre-resolved futures
}

func newFuture(req *Request) *Future {
	id := uuid.NewString()
	if req != nil {
		id = req.ID
	}
	return &Future{id: id, done: make(chan struct{}), req: req}
}

// Completed returns an already-resolved future carrying res. Used when
// no network call is needed.
func Completed(res *Result) *Future {
	f := newFuture(nil)
	f.complete(res)
	return f
}

// Failed returns an already-failed future carrying err. Used for local
// short-circuits such as validation or encoding failures.
func Failed(err error) *Future {
	f := newFuture(nil)
	f.fail(err)
	return f
}

// ID identifies this dispatch; it matches the request ID when one exists.
func (f *Future) ID() string { return f.id }

// State returns the current state.
func (f *Future) State() State { return State(f.state.Load()) }

// IsDone reports whether the future has reached a terminal state.
func (f *Future) IsDone() bool { return f.State() != StatePending }

// transition performs the one-shot terminal transition. Late resolution
// attempts lose the compare-and-swap and are silently ignored.
func (f *Future) transition(to State, res *Result, err error) bool {
	f.mu.Lock()
	if !f.state.CompareAndSwap(int32(StatePending), int32(to)) {
		f.mu.Unlock()
		return false
	}
	f.result, f.err = res, err
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(res, err)
	}
	return true
}

func (f *Future) complete(res *Result) bool { return f.transition(StateCompleted, res, nil) }
func (f *Future) fail(err error) bool       { return f.transition(StateFailed, nil, err) }

// Cancel signals the underlying request to stop (best-effort; the
// request may already be transmitting) and attempts the cancellation
// transition. It reports whether this call moved the future to
// Cancelled; cancelling an already-terminal future is a no-op returning
// false.
func (f *Future) Cancel() bool {
	if f.req != nil {
		f.req.abort()
	}
	return f.transition(StateCancelled, nil, ErrCancelled)
}

// Wait blocks until the future resolves or ctx is done. A cancelled
// future yields ErrCancelled; a failed one yields its originating error.
func (f *Future) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

// OnComplete registers fn to run when the future resolves. If it is
// already resolved, fn runs inline before OnComplete returns.
func (f *Future) OnComplete(fn func(*Result, error)) {
	f.mu.Lock()
	if !f.IsDone() {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	res, err := f.result, f.err
	f.mu.Unlock()
	fn(res, err)
}

// Package schedule provides cancellable timers for dwell, scan, and
// calibration timing.
//
// Every timer is represented by a Token. Owners keep the token of the task
// they are waiting on and cancel it on any state exit; a callback whose token
// was cancelled never runs, so a timer that races with cancellation cannot
// produce a ghost activation.
package schedule

import (
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	// Now returns the scheduler's current time.
	Now() time.Time

	// AfterFunc runs fn once d has elapsed unless the returned token is
	// cancelled first.
	AfterFunc(d time.Duration, fn func()) *Token
}

// Token is the cancellation handle of one scheduled task.
type Token struct {
	cancelled atomic.Bool
	mu        sync.Mutex
	stop      func() bool
}

func newToken() *Token {
	return &Token{}
}

// Cancel prevents the task from running. Safe to call more than once and on
// a nil token.
func (t *Token) Cancel() {
	if t == nil {
		return
	}
	if t.cancelled.Swap(true) {
		return
	}
	t.mu.Lock()
	stop := t.stop
	t.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Cancelled reports whether Cancel was called.
func (t *Token) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}

func (t *Token) setStop(stop func() bool) {
	t.mu.Lock()
	t.stop = stop
	t.mu.Unlock()
}

// run invokes fn unless the token was cancelled.
func (t *Token) run(fn func()) {
	if t.cancelled.Load() {
		return
	}
	fn()
}

// Real schedules tasks on the wall clock.
type Real struct{}

// NewReal returns a wall-clock scheduler.
func NewReal() *Real {
	return &Real{}
}

// Now returns time.Now().
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc.
func (Real) AfterFunc(d time.Duration, fn func()) *Token {
	tok := newToken()
	timer := time.AfterFunc(d, func() { tok.run(fn) })
	tok.setStop(timer.Stop)
	return tok
}

var _ Scheduler = Real{}

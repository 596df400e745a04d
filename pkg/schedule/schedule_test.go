package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManual_RunsInOrder(t *testing.T) {
	m := NewManual(epoch)
	var order []int

	m.AfterFunc(300*time.Millisecond, func() { order = append(order, 3) })
	m.AfterFunc(100*time.Millisecond, func() { order = append(order, 1) })
	m.AfterFunc(100*time.Millisecond, func() { order = append(order, 2) })

	m.Advance(99 * time.Millisecond)
	assert.Empty(t, order)

	m.Advance(time.Second)
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, epoch.Add(1099*time.Millisecond), m.Now())
}

func TestManual_CancelPreventsRun(t *testing.T) {
	m := NewManual(epoch)
	var fired atomic.Bool

	tok := m.AfterFunc(time.Second, func() { fired.Store(true) })
	tok.Cancel()
	tok.Cancel() // idempotent

	m.Advance(2 * time.Second)
	assert.False(t, fired.Load())
	assert.True(t, tok.Cancelled())
	assert.Zero(t, m.Pending())
}

func TestManual_ChainedTasksInsideWindow(t *testing.T) {
	m := NewManual(epoch)
	ticks := 0

	var tick func()
	tick = func() {
		ticks++
		m.AfterFunc(time.Second, tick)
	}
	m.AfterFunc(time.Second, tick)

	m.Advance(3500 * time.Millisecond)
	assert.Equal(t, 3, ticks)
	assert.Equal(t, 1, m.Pending())
}

func TestManual_NowDuringCallback(t *testing.T) {
	m := NewManual(epoch)
	var seen time.Time

	m.AfterFunc(250*time.Millisecond, func() { seen = m.Now() })
	m.Advance(time.Second)

	assert.Equal(t, epoch.Add(250*time.Millisecond), seen)
}

func TestToken_NilSafe(t *testing.T) {
	var tok *Token
	tok.Cancel()
	assert.False(t, tok.Cancelled())
}

func TestReal_AfterFuncAndCancel(t *testing.T) {
	r := NewReal()
	done := make(chan struct{})
	r.AfterFunc(5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}

	var fired atomic.Bool
	tok := r.AfterFunc(20*time.Millisecond, func() { fired.Store(true) })
	tok.Cancel()
	time.Sleep(40 * time.Millisecond)
	assert.False(t, fired.Load())
}

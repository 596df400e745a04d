package schedule

import (
	"container/heap"
	"sync"
	"time"
)

// Manual is a scheduler driven by explicit Advance calls. Tasks run on the
// goroutine calling Advance, in due-time order, with ties broken by
// scheduling order.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks taskQueue
}

// NewManual returns a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the manual clock's time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc queues fn to run once the clock has advanced by d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) *Token {
	if d < 0 {
		d = 0
	}
	tok := newToken()

	m.mu.Lock()
	m.seq++
	t := &task{due: m.now.Add(d), seq: m.seq, fn: fn, token: tok}
	heap.Push(&m.tasks, t)
	m.mu.Unlock()

	tok.setStop(func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		if t.index >= 0 {
			heap.Remove(&m.tasks, t.index)
			return true
		}
		return false
	})
	return tok
}

// Advance moves the clock forward by d, running every task that becomes due.
// Tasks scheduled by running tasks also run if they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	m.AdvanceTo(target)
}

// AdvanceTo moves the clock to target, running due tasks along the way.
func (m *Manual) AdvanceTo(target time.Time) {
	for {
		m.mu.Lock()
		if len(m.tasks) == 0 || m.tasks[0].due.After(target) {
			if target.After(m.now) {
				m.now = target
			}
			m.mu.Unlock()
			return
		}
		t := heap.Pop(&m.tasks).(*task)
		if t.due.After(m.now) {
			m.now = t.due
		}
		m.mu.Unlock()

		t.token.run(t.fn)
	}
}

// Pending returns the number of queued tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

var _ Scheduler = (*Manual)(nil)

type task struct {
	due   time.Time
	seq   uint64
	fn    func()
	token *Token
	index int
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

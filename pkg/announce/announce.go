// Package announce delivers screen-reader style feedback to the presentation layer.
package announce

import (
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-access/internal/log"
)

// Priority controls how urgently assistive technology should voice a message.
type Priority string

const (
	// Polite messages wait for the user to be idle.
	Polite Priority = "polite"
	// Assertive messages interrupt.
	Assertive Priority = "assertive"
)

// Announcement is one outbound message.
type Announcement struct {
	Message  string    `json:"message"`
	Priority Priority  `json:"priority"`
	Time     time.Time `json:"time"`
}

// Announcer is the fire-and-forget outbound feedback collaborator.
type Announcer interface {
	Announce(message string, priority Priority)
}

// Func adapts a function to the Announcer interface.
type Func func(message string, priority Priority)

// Announce calls f.
func (f Func) Announce(message string, priority Priority) {
	f(message, priority)
}

// Nop discards announcements.
type Nop struct{}

// Announce does nothing.
func (Nop) Announce(string, Priority) {}

// Logger writes announcements to the structured log.
type Logger struct {
	logger *slog.Logger
}

// NewLogger returns an announcer backed by the global logger.
func NewLogger() *Logger {
	return &Logger{logger: log.Component("announce")}
}

// Announce logs the message.
func (l *Logger) Announce(message string, priority Priority) {
	l.logger.Info(message, "priority", priority)
}

// Multi fans announcements out to several announcers.
type Multi []Announcer

// Announce forwards to every announcer.
func (m Multi) Announce(message string, priority Priority) {
	for _, a := range m {
		if a != nil {
			a.Announce(message, priority)
		}
	}
}

// Recorder keeps announcements in memory, for tests and the dashboard backlog.
type Recorder struct {
	mu    sync.Mutex
	max   int
	items []Announcement
}

// NewRecorder keeps at most max announcements (0 = unbounded).
func NewRecorder(max int) *Recorder {
	return &Recorder{max: max}
}

// Announce records the message.
func (r *Recorder) Announce(message string, priority Priority) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Announcement{Message: message, Priority: priority, Time: time.Now()})
	if r.max > 0 && len(r.items) > r.max {
		r.items = r.items[len(r.items)-r.max:]
	}
}

// All returns a copy of the recorded announcements.
func (r *Recorder) All() []Announcement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Announcement, len(r.items))
	copy(out, r.items)
	return out
}

// Messages returns just the message texts.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.items))
	for i, a := range r.items {
		out[i] = a.Message
	}
	return out
}

package events

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/metrics"
)

// Handler consumes published events. A returned error is logged and counted.
type Handler func(InputEvent) error

// HandlerFunc adapts a handler that cannot fail.
func HandlerFunc(fn func(InputEvent)) Handler {
	return func(e InputEvent) error {
		fn(e)
		return nil
	}
}

// Token identifies a subscription.
type Token string

type subscriber struct {
	token   Token
	name    string
	handler Handler
}

// Bus delivers events synchronously to every current subscriber, in
// subscription order. A failing subscriber never stops delivery to the rest.
//
// The subscriber list is snapshotted before dispatch, so handlers may
// subscribe or unsubscribe while an event is being delivered.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	logger *slog.Logger

	published uint64
	faults    uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{logger: log.Component("events")}
}

// Subscribe registers handler under a diagnostic name.
func (b *Bus) Subscribe(name string, handler Handler) Token {
	tok := Token(uuid.New().String())
	b.mu.Lock()
	b.subs = append(b.subs, subscriber{token: tok, name: name, handler: handler})
	b.mu.Unlock()
	return tok
}

// Unsubscribe removes a subscription. Unknown tokens are ignored.
func (b *Bus) Unsubscribe(tok Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.token == tok {
			// copy so in-flight snapshots stay intact
			next := make([]subscriber, 0, len(b.subs)-1)
			next = append(next, b.subs[:i]...)
			next = append(next, b.subs[i+1:]...)
			b.subs = next
			return
		}
	}
}

// Publish delivers e to the subscribers present at call time.
func (b *Bus) Publish(e InputEvent) {
	b.mu.Lock()
	snapshot := b.subs
	b.published++
	b.mu.Unlock()

	metrics.Event(e.Modality, string(e.Action), e.Confidence, e.ResponseTime)

	for _, s := range snapshot {
		if err := b.deliver(s, e); err != nil {
			b.mu.Lock()
			b.faults++
			b.mu.Unlock()
			metrics.SubscriberFault()
			b.logger.Warn("subscriber failed", "subscriber", s.name, "event", e.ID, "action", e.Action, "error", err)
		}
	}
}

func (b *Bus) deliver(s subscriber, e InputEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.handler(e)
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Stats returns the number of published events and subscriber faults.
func (b *Bus) Stats() (published, faults uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.published, b.faults
}

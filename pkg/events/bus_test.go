package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-access/pkg/modality"
)

func selectEvent(m modality.Modality) InputEvent {
	return New(ActionSelect, m, time.Now())
}

func TestBus_DeliversInOrderToAll(t *testing.T) {
	b := NewBus()
	var got []string
	b.Subscribe("a", HandlerFunc(func(e InputEvent) { got = append(got, "a:"+e.Command) }))
	b.Subscribe("b", HandlerFunc(func(e InputEvent) { got = append(got, "b:"+e.Command) }))

	for _, c := range []string{"1", "2"} {
		e := New(ActionCommand, modality.Voice, time.Now())
		e.Command = c
		b.Publish(e)
	}

	assert.Equal(t, []string{"a:1", "b:1", "a:2", "b:2"}, got)
}

func TestBus_FaultsDoNotStopDelivery(t *testing.T) {
	b := NewBus()
	delivered := 0
	b.Subscribe("panics", HandlerFunc(func(InputEvent) { panic("boom") }))
	b.Subscribe("errors", func(InputEvent) error { return errors.New("nope") })
	b.Subscribe("ok", HandlerFunc(func(InputEvent) { delivered++ }))

	require.NotPanics(t, func() { b.Publish(selectEvent(modality.Gaze)) })

	assert.Equal(t, 1, delivered)
	published, faults := b.Stats()
	assert.Equal(t, uint64(1), published)
	assert.Equal(t, uint64(2), faults)
}

func TestBus_UnsubscribeDuringDispatch(t *testing.T) {
	b := NewBus()
	var tok Token
	calls := map[string]int{}
	tok = b.Subscribe("once", HandlerFunc(func(InputEvent) {
		calls["once"]++
		b.Unsubscribe(tok)
	}))
	b.Subscribe("always", HandlerFunc(func(InputEvent) { calls["always"]++ }))

	b.Publish(selectEvent(modality.Switch))
	b.Publish(selectEvent(modality.Switch))

	assert.Equal(t, 1, calls["once"])
	assert.Equal(t, 2, calls["always"])
	assert.Equal(t, 1, b.Len())
}

func TestBus_SubscribeDuringDispatchStartsNextEvent(t *testing.T) {
	b := NewBus()
	late := 0
	added := false
	b.Subscribe("adder", HandlerFunc(func(InputEvent) {
		if !added {
			added = true
			b.Subscribe("late", HandlerFunc(func(InputEvent) { late++ }))
		}
	}))

	b.Publish(selectEvent(modality.Keyboard))
	assert.Equal(t, 0, late)
	b.Publish(selectEvent(modality.Keyboard))
	assert.Equal(t, 1, late)
}

func TestBus_PublishInsideHandler(t *testing.T) {
	b := NewBus()
	var order []Action
	b.Subscribe("chain", HandlerFunc(func(e InputEvent) {
		order = append(order, e.Action)
		if e.Action == ActionSelect {
			b.Publish(New(ActionCommand, e.Modality, e.Timestamp))
		}
	}))

	b.Publish(selectEvent(modality.Gaze))
	assert.Equal(t, []Action{ActionSelect, ActionCommand}, order)
}

func TestBus_UnknownTokenIgnored(t *testing.T) {
	b := NewBus()
	b.Subscribe("a", HandlerFunc(func(InputEvent) {}))
	b.Unsubscribe("missing")
	assert.Equal(t, 1, b.Len())
}

func TestInputEvent_IsError(t *testing.T) {
	tests := []struct {
		name  string
		event InputEvent
		want  bool
	}{
		{"accurate select", InputEvent{Action: ActionSelect, Accuracy: 0.9}, false},
		{"inaccurate select", InputEvent{Action: ActionSelect, Accuracy: 0.3}, true},
		{"cancel", InputEvent{Action: ActionCancel, Accuracy: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.IsError())
		})
	}
}

func TestParseDirection(t *testing.T) {
	d, ok := ParseDirection("left")
	assert.True(t, ok)
	assert.Equal(t, DirectionLeft, d)

	_, ok = ParseDirection("sideways")
	assert.False(t, ok)
}

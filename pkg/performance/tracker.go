// Package performance keeps rolling effectiveness records per input method.
package performance

import (
	"sort"
	"sync"
	"time"

	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
)

// DefaultHistorySize bounds the event history kept for analysis.
const DefaultHistorySize = 200

// Record is the rolling aggregate for one (modality, context) pair.
type Record struct {
	Modality         modality.Modality `json:"modality"`
	Context          string            `json:"context"`
	Count            int               `json:"count"`
	Successes        int               `json:"successes"`
	Errors           int               `json:"errors"`
	MeanAccuracy     float64           `json:"mean_accuracy"`
	MeanResponseTime time.Duration     `json:"mean_response_time"`
	LastUpdated      time.Time         `json:"last_updated"`

	timed int // events with a response time
}

// SuccessRate returns successes over count.
func (r Record) SuccessRate() float64 {
	if r.Count == 0 {
		return 0
	}
	return float64(r.Successes) / float64(r.Count)
}

func (r *Record) add(e events.InputEvent) {
	r.Count++
	if e.IsError() {
		r.Errors++
	} else {
		r.Successes++
	}
	r.MeanAccuracy += (e.Accuracy - r.MeanAccuracy) / float64(r.Count)
	if e.ResponseTime > 0 {
		r.timed++
		r.MeanResponseTime += (e.ResponseTime - r.MeanResponseTime) / time.Duration(r.timed)
	}
	r.LastUpdated = e.Timestamp
}

type recordKey struct {
	modality modality.Modality
	context  string
}

// Tracker aggregates published events. Records are only discarded by Reset.
type Tracker struct {
	mu      sync.RWMutex
	records map[recordKey]*Record
	history []events.InputEvent
	max     int
	total   int
}

// NewTracker keeps at most historySize events for analysis.
func NewTracker(historySize int) *Tracker {
	if historySize < 1 {
		historySize = DefaultHistorySize
	}
	return &Tracker{
		records: make(map[recordKey]*Record),
		history: make([]events.InputEvent, 0, historySize),
		max:     historySize,
	}
}

// Record folds e into its (modality, context) record and the history.
func (t *Tracker) Record(e events.InputEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := recordKey{e.Modality, e.Context}
	r, ok := t.records[k]
	if !ok {
		r = &Record{Modality: e.Modality, Context: e.Context}
		t.records[k] = r
	}
	r.add(e)

	t.history = append(t.history, e)
	if len(t.history) > t.max {
		t.history = t.history[1:]
	}
	t.total++
}

// Handler returns a bus handler feeding the tracker.
func (t *Tracker) Handler() events.Handler {
	return events.HandlerFunc(t.Record)
}

// History returns the most recent n events, oldest first. n <= 0 returns all.
func (t *Tracker) History(n int) []events.InputEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h := t.history
	if n > 0 && n < len(h) {
		h = h[len(h)-n:]
	}
	out := make([]events.InputEvent, len(h))
	copy(out, h)
	return out
}

// Records returns a copy of every record, ordered by modality then context.
func (t *Tracker) Records() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Modality != out[j].Modality {
			return out[i].Modality < out[j].Modality
		}
		return out[i].Context < out[j].Context
	})
	return out
}

// Lookup returns the record for (m, context).
func (t *Tracker) Lookup(m modality.Modality, context string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[recordKey{m, context}]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Total returns the number of events recorded since the last reset.
func (t *Tracker) Total() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// Reset discards every record and the history.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[recordKey]*Record)
	t.history = t.history[:0]
	t.total = 0
}

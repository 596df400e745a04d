package performance

import (
	"time"

	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
)

// Summary aggregates a window of events for one modality.
type Summary struct {
	Modality         modality.Modality
	Count            int
	MeanAccuracy     float64
	MeanResponseTime time.Duration
	SuccessRate      float64
	ErrorRate        float64
}

// Summarize groups history by modality. Response time is averaged over
// events that carry one.
func Summarize(history []events.InputEvent) map[modality.Modality]Summary {
	type acc struct {
		n, errs, timed int
		accuracy       float64
		rt             time.Duration
	}
	sums := make(map[modality.Modality]*acc)
	for _, e := range history {
		a, ok := sums[e.Modality]
		if !ok {
			a = &acc{}
			sums[e.Modality] = a
		}
		a.n++
		a.accuracy += e.Accuracy
		if e.IsError() {
			a.errs++
		}
		if e.ResponseTime > 0 {
			a.timed++
			a.rt += e.ResponseTime
		}
	}

	out := make(map[modality.Modality]Summary, len(sums))
	for m, a := range sums {
		s := Summary{
			Modality:     m,
			Count:        a.n,
			MeanAccuracy: a.accuracy / float64(a.n),
			ErrorRate:    float64(a.errs) / float64(a.n),
		}
		s.SuccessRate = 1 - s.ErrorRate
		if a.timed > 0 {
			s.MeanResponseTime = a.rt / time.Duration(a.timed)
		}
		out[m] = s
	}
	return out
}

// Trailing returns the last n events of modality m, oldest first.
func Trailing(history []events.InputEvent, m modality.Modality, n int) []events.InputEvent {
	var out []events.InputEvent
	for i := len(history) - 1; i >= 0 && len(out) < n; i-- {
		if history[i].Modality == m {
			out = append(out, history[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Usage returns, for context key ctx, the share of events each modality
// produced. Modalities absent from ctx are omitted.
func Usage(history []events.InputEvent, ctx string) map[modality.Modality]float64 {
	counts := make(map[modality.Modality]int)
	total := 0
	for _, e := range history {
		if e.Context != ctx {
			continue
		}
		counts[e.Modality]++
		total++
	}
	out := make(map[modality.Modality]float64, len(counts))
	for m, c := range counts {
		out[m] = float64(c) / float64(total)
	}
	return out
}

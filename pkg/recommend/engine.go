package recommend

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/metrics"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/performance"
)

// minModalityEvents is the least a modality needs in the window to be scored.
const minModalityEvents = 3

// Engine produces recommendations from input history.
type Engine struct {
	config  Config
	session *Session
	logger  *slog.Logger
}

// NewEngine creates an engine bound to a session cap.
func NewEngine(config Config, session *Session) *Engine {
	if session == nil {
		session = NewSession()
	}
	return &Engine{
		config:  config,
		session: session,
		logger:  log.Component("recommend"),
	}
}

// Session returns the engine's session cap.
func (e *Engine) Session() *Session {
	return e.session
}

// Analyze returns the recommendations to deliver for this pass, strongest
// first, within the session cap.
func (e *Engine) Analyze(history []events.InputEvent, ctx Context) []Recommendation {
	cands := e.Candidates(history, ctx)
	if len(cands) == 0 {
		return nil
	}

	kept := cands[:0]
	for _, r := range cands {
		if r.Confidence >= e.config.MinConfidence || r.Kind == KindRecalibrate {
			kept = append(kept, r)
		}
	}

	out := e.session.take(kept, e.config.MaxPerSession, e.config.MaxPerCall)
	for _, r := range out {
		metrics.Recommendation(string(r.Kind))
		e.logger.Info("recommendation",
			"kind", r.Kind,
			"reason", r.Reason,
			"confidence", r.Confidence,
			"delivered", e.session.Delivered())
	}
	return out
}

// Candidates returns every candidate for this pass, unfiltered and uncapped,
// sorted by descending confidence.
func (e *Engine) Candidates(history []events.InputEvent, ctx Context) []Recommendation {
	if len(history) < e.config.MinHistory {
		return nil
	}
	if ctx.Now.IsZero() {
		ctx.Now = time.Now()
	}

	sums := performance.Summarize(history)
	var out []Recommendation

	if r, ok := e.fatigue(ctx); ok {
		out = append(out, r)
	} else if r, ok := e.switchMethod(sums, history, ctx); ok {
		out = append(out, r)
	}
	if r, ok := e.timing(sums, ctx); ok {
		out = append(out, r)
	}
	out = append(out, e.recalibrate(history, ctx)...)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// Score weights a modality's window summary.
func Score(s performance.Summary, usage float64) float64 {
	speed := 1 - math.Min(float64(s.MeanResponseTime)/float64(time.Second), 1)
	return 0.4*s.MeanAccuracy + 0.3*s.SuccessRate + 0.2*speed + 0.1*usage
}

func (e *Engine) switchMethod(sums map[modality.Modality]performance.Summary, history []events.InputEvent, ctx Context) (Recommendation, bool) {
	active, ok := sums[ctx.Active]
	if !ok || active.Count < minModalityEvents {
		return Recommendation{}, false
	}
	usage := performance.Usage(history, ctx.Key)
	activeScore := Score(active, usage[ctx.Active])

	var best modality.Modality
	bestScore := math.Inf(-1)
	for _, m := range modality.All() {
		s, ok := sums[m]
		if m == ctx.Active || !ok || s.Count < minModalityEvents {
			continue
		}
		if sc := Score(s, usage[m]); sc > bestScore {
			best, bestScore = m, sc
		}
	}
	if best == "" || bestScore-activeScore <= e.config.AdaptationThreshold {
		return Recommendation{}, false
	}

	return e.newRecommendation(ctx, KindSwitchMethod, ReasonPerformance,
		clamp01(0.5+2*(bestScore-activeScore)),
		Payload{From: ctx.Active, To: best, FromScore: activeScore, ToScore: bestScore}), true
}

// timedModalities have a dwell or scan timing to tune.
func timed(m modality.Modality) bool {
	switch m {
	case modality.Gaze, modality.Switch, modality.Keyboard, modality.Breath:
		return true
	}
	return false
}

func (e *Engine) timing(sums map[modality.Modality]performance.Summary, ctx Context) (Recommendation, bool) {
	s, ok := sums[ctx.Active]
	if !ok || !timed(ctx.Active) || s.Count < minModalityEvents || s.MeanResponseTime <= 0 {
		return Recommendation{}, false
	}

	switch {
	case s.ErrorRate > e.config.HighErrorRate && s.MeanResponseTime < e.config.FastResponse:
		return e.newRecommendation(ctx, KindAdjustTiming, ReasonHighErrors,
			math.Min(1, 0.5+s.ErrorRate),
			Payload{Modality: ctx.Active, Direction: "increase", Factor: e.config.TimingStepUp}), true
	case s.ErrorRate < e.config.LowErrorRate && s.MeanResponseTime > e.config.SlowResponse:
		return e.newRecommendation(ctx, KindAdjustTiming, ReasonSlow,
			0.6+0.3*(1-s.ErrorRate),
			Payload{Modality: ctx.Active, Direction: "decrease", Factor: e.config.TimingStepDown}), true
	}
	return Recommendation{}, false
}

func (e *Engine) recalibrate(history []events.InputEvent, ctx Context) []Recommendation {
	var out []Recommendation
	for _, m := range modality.All() {
		if !m.RequiresCalibration() {
			continue
		}
		trail := performance.Trailing(history, m, e.config.RecalibrationWindow)
		if len(trail) == 0 {
			continue
		}
		var sum float64
		for _, ev := range trail {
			sum += ev.Accuracy
		}
		acc := sum / float64(len(trail))
		if acc >= e.config.RecalibrationBelow {
			continue
		}
		out = append(out, e.newRecommendation(ctx, KindRecalibrate, ReasonLowAccuracy,
			clamp01(1-acc), Payload{Modality: m, Accuracy: acc}))
	}
	return out
}

// fatigue prefers a high-reliability method, or a break when one is
// already in use.
func (e *Engine) fatigue(ctx Context) (Recommendation, bool) {
	if ctx.Fatigue <= e.config.FatigueThreshold {
		return Recommendation{}, false
	}
	conf := clamp01(ctx.Fatigue)
	if !ctx.Active.HighReliability() {
		return e.newRecommendation(ctx, KindSwitchMethod, ReasonFatigue, conf,
			Payload{From: ctx.Active, To: modality.Keyboard}), true
	}
	brk := time.Duration(conf * float64(e.config.MaxBreak))
	if brk > e.config.MaxBreak {
		brk = e.config.MaxBreak
	}
	return e.newRecommendation(ctx, KindSuggestBreak, ReasonFatigue, conf,
		Payload{Modality: ctx.Active, Break: brk}), true
}

func (e *Engine) newRecommendation(ctx Context, kind Kind, reason Reason, conf float64, p Payload) Recommendation {
	return Recommendation{
		ID:         uuid.New().String(),
		Kind:       kind,
		Confidence: conf,
		Payload:    p,
		Reason:     reason,
		CreatedAt:  ctx.Now,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

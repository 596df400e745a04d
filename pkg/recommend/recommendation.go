// Package recommend analyses recent input history and suggests better
// settings or a better input method.
package recommend

import (
	"time"

	"github.com/teslashibe/go-access/pkg/modality"
)

// Kind of recommendation.
type Kind string

const (
	KindSwitchMethod Kind = "switch-method"
	KindAdjustTiming Kind = "adjust-timing"
	KindRecalibrate  Kind = "recalibrate"
	KindSuggestBreak Kind = "suggest-break"
)

// Reason tags why a recommendation was produced.
type Reason string

const (
	ReasonPerformance Reason = "performance"
	ReasonHighErrors  Reason = "high-error-rate"
	ReasonSlow        Reason = "slow-response"
	ReasonLowAccuracy Reason = "low-accuracy"
	ReasonFatigue     Reason = "fatigue"
)

// Payload carries kind-specific parameters.
type Payload struct {
	From     modality.Modality `json:"from,omitempty"`
	To       modality.Modality `json:"to,omitempty"`
	Modality modality.Modality `json:"modality,omitempty"`

	// adjust-timing
	Direction string  `json:"direction,omitempty"` // "increase" or "decrease"
	Factor    float64 `json:"factor,omitempty"`

	// recalibrate
	Accuracy float64 `json:"accuracy,omitempty"`

	// suggest-break
	Break time.Duration `json:"break,omitempty"`

	// switch-method
	FromScore float64 `json:"from_score,omitempty"`
	ToScore   float64 `json:"to_score,omitempty"`
}

// Recommendation is an ephemeral suggestion.
type Recommendation struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Confidence float64   `json:"confidence"`
	Payload    Payload   `json:"payload"`
	Reason     Reason    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// Message returns a short spoken form of r.
func (r Recommendation) Message() string {
	switch r.Kind {
	case KindSwitchMethod:
		return "Try switching to " + string(r.Payload.To) + " input"
	case KindAdjustTiming:
		if r.Payload.Direction == "increase" {
			return "Try a slower " + string(r.Payload.Modality) + " timing"
		}
		return "Try a faster " + string(r.Payload.Modality) + " timing"
	case KindRecalibrate:
		return string(r.Payload.Modality) + " may need recalibration"
	case KindSuggestBreak:
		return "Consider a " + r.Payload.Break.Round(time.Second).String() + " break"
	}
	return string(r.Kind)
}

// Context is the non-history input to an analysis pass.
type Context struct {
	// Active is the modality the user is currently driving with.
	Active modality.Modality

	// Fatigue is an externally supplied score in [0,1].
	Fatigue float64

	// Key is the current context key for the usage histogram.
	Key string

	// Now stamps produced recommendations.
	Now time.Time
}

package modality

import "time"

// StimulusKind identifies a discrete input.
type StimulusKind string

const (
	// Press is a single switch activation.
	Press StimulusKind = "press"
	// LongPress is a held switch activation (reverses scan direction).
	LongPress StimulusKind = "long_press"
	// Cancel stops whatever the modality is doing.
	Cancel StimulusKind = "cancel"
	// Key is a named keyboard key.
	Key StimulusKind = "key"
	// Phrase is a recognised speech phrase.
	Phrase StimulusKind = "phrase"
)

// Stimulus is a discrete input pushed by a switch, keyboard, or speech adapter.
type Stimulus struct {
	Modality   Modality     `json:"modality"`
	Kind       StimulusKind `json:"kind"`
	Key        string       `json:"key,omitempty"`
	Text       string       `json:"text,omitempty"`
	Confidence float64      `json:"confidence,omitempty"`
	Time       time.Time    `json:"time"`
}

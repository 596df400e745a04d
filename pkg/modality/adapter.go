package modality

import "context"

// Adapter is the capability set every modality exposes to the rest of the
// system, regardless of the device behind it.
type Adapter interface {
	// Modality returns the channel this adapter drives.
	Modality() Modality

	// IsAvailable reports whether the sensor was probed successfully and is
	// not in a downgraded state.
	IsAvailable() bool

	// Init probes the sensor. A permission or hardware failure is returned as
	// a *SensorUnavailableError.
	Init(ctx context.Context) error

	// Activate starts turning samples and stimuli into input events.
	Activate() error

	// Deactivate stops the modality and cancels every pending timer.
	Deactivate()

	// PushSample feeds a raw continuous reading.
	PushSample(s Sample)

	// PushStimulus feeds a discrete input.
	PushStimulus(s Stimulus)
}

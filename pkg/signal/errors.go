package signal

import "errors"

// ErrInvalidSample is returned when a sample is dropped. It is counted,
// never surfaced to the user.
var ErrInvalidSample = errors.New("signal: invalid sample")

// rejection is a sample rejection reason.
type rejection struct {
	reason string
	msg    string
}

func (e *rejection) Error() string { return "signal: " + e.msg }

// Reason returns a short label for metrics.
func (e *rejection) Reason() string { return e.reason }

var (
	// ErrNonFinite is returned for NaN or infinite components.
	ErrNonFinite error = &rejection{reason: "non-finite", msg: "non-finite component"}

	// ErrOutOfEnvelope is returned for samples outside the validity envelope.
	ErrOutOfEnvelope error = &rejection{reason: "envelope", msg: "outside validity envelope"}

	// ErrStale is returned for samples older than the max-age threshold.
	ErrStale error = &rejection{reason: "stale", msg: "stale sample"}
)

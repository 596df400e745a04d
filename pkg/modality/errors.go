package modality

import (
	"errors"
	"fmt"
)

// ErrSensorUnavailable is returned when a modality's sensor cannot be used
// (permission denied or hardware missing).
var ErrSensorUnavailable = errors.New("modality: sensor unavailable")

// SensorUnavailableError carries the modality and the underlying cause.
type SensorUnavailableError struct {
	Modality Modality
	Err      error
}

// Error implements the error interface.
func (e *SensorUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("modality [%s]: sensor unavailable", e.Modality)
	}
	return fmt.Sprintf("modality [%s]: sensor unavailable: %v", e.Modality, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SensorUnavailableError) Unwrap() error {
	return e.Err
}

// Is matches ErrSensorUnavailable.
func (e *SensorUnavailableError) Is(target error) bool {
	return target == ErrSensorUnavailable
}

// Unavailable wraps err as a SensorUnavailableError for m.
func Unavailable(m Modality, err error) error {
	return &SensorUnavailableError{Modality: m, Err: err}
}

package calibration

import "errors"

var (
	// ErrCalibrationInProgress is returned when a calibration for the same
	// modality is already running. The running session is unaffected.
	ErrCalibrationInProgress = errors.New("calibration: session already running")

	// ErrNoSession is returned when completing or feeding a modality that is
	// not calibrating.
	ErrNoSession = errors.New("calibration: no session running")

	// ErrUnsupportedModality is returned for modalities without a protocol.
	ErrUnsupportedModality = errors.New("calibration: modality has no calibration protocol")
)

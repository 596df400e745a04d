package pipeline

import "errors"

var (
	// ErrUnknownModality is returned for a modality name the pipeline does not drive.
	ErrUnknownModality = errors.New("pipeline: unknown modality")

	// ErrNotActive is returned when an operation needs an active modality.
	ErrNotActive = errors.New("pipeline: modality not active")

	// ErrPermissionDenied is the cause recorded for a denied sensor permission.
	ErrPermissionDenied = errors.New("pipeline: permission denied")

	// ErrNoPermissionResult is the cause recorded when no permission result
	// arrived before the probe gave up.
	ErrNoPermissionResult = errors.New("pipeline: no permission result")
)

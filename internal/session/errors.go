package session

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongMode is returned when a still capture is requested
	// outside still-image mode.
	ErrWrongMode = errors.New("operation requires still-image mode")

	// ErrModeChangeWhileRecording is returned when a mode switch is
	// requested while a recording session is active; the recorder's
	// track set is fixed for the lifetime of one recording.
	ErrModeChangeWhileRecording = errors.New("cannot change capture mode while recording")

	// ErrCaptureInProgress is returned when a still capture is
	// requested while another one is pending.
	ErrCaptureInProgress = errors.New("a still capture is already pending")
)

// CapabilityError reports a preset the current device cannot serve.
// It is recoverable: the prior preset stays in effect.
type CapabilityError struct {
	DeviceID string
	Preset   Preset
	Mode     Mode
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("device %q does not support preset %s in %s mode", e.DeviceID, e.Preset, e.Mode)
}

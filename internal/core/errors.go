// Package core defines sentinel errors.
package core

import (
	"errors"
	"fmt"
)

var (
	// Capture source errors
	ErrCapture = errors.New("ipsniff: capture failed")

	// Packet decoding errors
	ErrMalformedHeader = errors.New("ipsniff: malformed ip header")

	// Sink errors
	ErrSinkWrite  = errors.New("ipsniff: sink write failed")
	ErrSinkClosed = errors.New("ipsniff: sink closed")

	// Configuration errors
	ErrConfigInvalid = errors.New("ipsniff: invalid configuration")
)

// CaptureError is an OS-level failure of the capture source. It is fatal to the capture loop.
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("ipsniff: capture %s: %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrCapture) match any CaptureError.
func (e *CaptureError) Is(target error) bool { return target == ErrCapture }

// SinkWriteError reports a failed append to a report sink. The capture loop survives it.
type SinkWriteError struct {
	Sink string
	Err  error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("ipsniff: sink %s write: %v", e.Sink, e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }

func (e *SinkWriteError) Is(target error) bool { return target == ErrSinkWrite }

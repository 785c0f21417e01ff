// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package flop

import "errors"

// Error classes.
//
// Callers can use errors.Is to test for one of these sentinels.
// They partition failures into the three tiers a caller needs to
// tell apart: bad input they can fix, GPU setup they can retry
// with different options, and GPU state a Context cannot recover
// from on its own.
var (
	// ErrInput means that the supplied images or options were
	// rejected before any GPU work was recorded (size mismatch,
	// zero dimensions, unsupported channel layout).
	ErrInput = errors.New("flop: invalid input")

	// ErrDevice means that GPU initialization failed (no driver
	// could be opened, no suitable physical device was found, or
	// a requested device name did not match any available device),
	// or that a per-call GPU resource allocation, command recording,
	// PNG output or viewer presentation failed.
	ErrDevice = errors.New("flop: device initialization failed")

	// ErrLost means that a Context encountered an unrecoverable
	// GPU error (equivalent to driver.ErrFatal) during Analyze or
	// AnalyzeHDR. The Context must be closed; it must not be used
	// again.
	ErrLost = errors.New("flop: context lost")
)

// wrapErr wraps err so that errors.Is(result, class) succeeds,
// while errors.Unwrap still reaches the original cause.
func wrapErr(class, err error) error {
	if err == nil {
		return nil
	}
	return &classifiedErr{class: class, cause: err}
}

type classifiedErr struct {
	class error
	cause error
}

func (e *classifiedErr) Error() string { return e.class.Error() + ": " + e.cause.Error() }
func (e *classifiedErr) Unwrap() error { return e.cause }
func (e *classifiedErr) Is(target error) bool { return target == e.class }

// Package errcode holds the short, stable error codes published on the bus.
package errcode

import (
	"context"
	"errors"

	"bme280-go/drivers/bme280"
)

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK                Code = "ok"
	Busy              Code = "busy"
	Unsupported       Code = "unsupported"
	InvalidParams     Code = "invalid_params"
	InvalidPayload    Code = "invalid_payload"
	InvalidPeriod     Code = "invalid_period"
	UnknownCapability Code = "unknown_capability"
	HALNotReady       Code = "hal_not_ready"

	UnknownBus Code = "unknown_bus"
	Timeout    Code = "timeout"
	IOError    Code = "io_error"

	InvalidCalibration Code = "invalid_calibration"
	NotReady           Code = "not_ready"

	Error Code = "error" // generic fallback
)

// E wraps a cause with a code and some context.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap attaches a code to err, mapping it with MapDriverErr when c is empty.
func Wrap(op string, c Code, err error) error {
	if err == nil {
		return nil
	}
	if c == "" {
		c = MapDriverErr(err)
	}
	return &E{C: c, Op: op, Msg: err.Error(), Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps low-level driver errors to a Code.
func MapDriverErr(err error) Code {
	var te *bme280.TransportError
	switch {
	case err == nil:
		return OK
	case errors.Is(err, bme280.ErrInvalidCalibrationLength):
		return InvalidCalibration
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout
	case errors.As(err, &te):
		return IOError
	}
	return Of(err)
}

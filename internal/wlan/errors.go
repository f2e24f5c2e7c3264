package wlan

import "errors"

var (
	// ErrInvalidParameter is returned when a caller-supplied value is
	// outside its valid domain. Never retried; the caller must fix the
	// input.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrCapacity is returned when a derived byte or symbol requirement
	// is incompatible with device limits. The bad plan is never sent to
	// the instrument.
	ErrCapacity = errors.New("capacity exceeded")
)

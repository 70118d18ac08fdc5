package schedule

import "errors"

var (
	// Shift catalog errors
	ErrShiftNotFound = errors.New("no shift configured for employee")
	ErrInvalidShift  = errors.New("invalid shift definition")
)

package attendance

import "errors"

// Attendance domain errors
var (
	// General errors
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrNotJustifiable     = errors.New("only absent or late attendance can be justified")

	// Persistence errors
	ErrStoreUnavailable = errors.New("attendance store unavailable")
	ErrVersionConflict  = errors.New("attendance record was modified concurrently")
	ErrDuplicateRecord  = errors.New("attendance record already exists for employee and date")
)

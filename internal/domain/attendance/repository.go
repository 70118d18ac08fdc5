package attendance

import (
	"context"
	"time"
)

// AttendanceRepository is the record store of the attendance engine.
// Exactly one record exists per (employee, date).
type AttendanceRepository interface {
	// Create persists a new record and returns it with ID, Version and timestamps filled.
	// Returns ErrDuplicateRecord when the (employee, date) pair already exists.
	Create(ctx context.Context, record Record) (Record, error)

	// GetByID retrieves a record by ID. Returns ErrAttendanceNotFound when missing.
	GetByID(ctx context.Context, id string) (Record, error)

	// GetByEmployeeAndDate returns nil, nil when the employee has no record that day.
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*Record, error)

	// Update saves record only if the stored version still equals record.Version,
	// returning the saved record with its version incremented.
	// Returns ErrVersionConflict otherwise.
	Update(ctx context.Context, record Record) (Record, error)

	// ListByDate lists every record of a calendar day.
	ListByDate(ctx context.Context, date time.Time) ([]Record, error)
}

// JustificationRepository stores the justification audit log.
type JustificationRepository interface {
	// Justify sets the record status to JUSTIFIED and appends j to the log atomically.
	Justify(ctx context.Context, j Justification) (Justification, error)

	ListByRecordID(ctx context.Context, recordID string) ([]Justification, error)
}

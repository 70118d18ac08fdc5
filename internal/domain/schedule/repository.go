package schedule

import "context"

// ShiftRepository is the shift catalog consumed by the attendance engine.
type ShiftRepository interface {
	// GetByEmployeeID resolves the shift assigned to an employee.
	// Returns ErrShiftNotFound when the employee has none.
	GetByEmployeeID(ctx context.Context, employeeID string) (Shift, error)

	GetByID(ctx context.Context, id string) (Shift, error)

	Create(ctx context.Context, shift Shift) (Shift, error)
}

package employee

import "context"

type EmployeeRepository interface {
	// GetByCode resolves a scanned code to an active employee.
	GetByCode(ctx context.Context, code string) (Employee, error)
	GetByID(ctx context.Context, id string) (Employee, error)
	Create(ctx context.Context, newEmployee Employee) (Employee, error)
	ListActive(ctx context.Context) ([]Employee, error)
}

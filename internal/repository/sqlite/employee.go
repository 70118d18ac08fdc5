package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gocheck/attendance-backend/internal/domain/employee"
	"github.com/gocheck/attendance-backend/internal/domain/schedule"
	"github.com/google/uuid"
)

const employeeColumns = `id, code, full_name, COALESCE(shift_id, ''), active, created_at, updated_at`

func scanEmployee(row rowScanner) (employee.Employee, error) {
	var (
		emp                  employee.Employee
		createdAt, updatedAt string
	)
	if err := row.Scan(&emp.ID, &emp.Code, &emp.FullName, &emp.ShiftID, &emp.Active, &createdAt, &updatedAt); err != nil {
		return employee.Employee{}, err
	}
	var err error
	if emp.CreatedAt, err = parseTime(createdAt); err != nil {
		return employee.Employee{}, err
	}
	if emp.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return employee.Employee{}, err
	}
	return emp, nil
}

type employeeRepository struct{ s *Store }

func NewEmployeeRepository(s *Store) employee.EmployeeRepository {
	return &employeeRepository{s: s}
}

// GetByCode implements employee.EmployeeRepository.
func (r *employeeRepository) GetByCode(ctx context.Context, code string) (employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	emp, err := scanEmployee(r.s.db.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE code = ? AND active`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee by code: %w", err)
	}
	return emp, nil
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepository) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	emp, err := scanEmployee(r.s.db.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee with id %s: %w", id, err)
	}
	return emp, nil
}

// Create implements employee.EmployeeRepository.
func (r *employeeRepository) Create(ctx context.Context, newEmployee employee.Employee) (employee.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if newEmployee.ID == "" {
		newEmployee.ID = uuid.NewString()
	}
	now := time.Now()
	newEmployee.CreatedAt = now
	newEmployee.UpdatedAt = now

	_, err := r.s.db.ExecContext(ctx, `
		INSERT INTO employees (id, code, full_name, shift_id, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		newEmployee.ID, newEmployee.Code, newEmployee.FullName, nullString(newEmployee.ShiftID),
		newEmployee.Active, formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return employee.Employee{}, employee.ErrEmployeeCodeExists
		}
		return employee.Employee{}, fmt.Errorf("failed to create employee: %w", err)
	}
	return newEmployee, nil
}

// ListActive implements employee.EmployeeRepository.
func (r *employeeRepository) ListActive(ctx context.Context) ([]employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows, err := r.s.db.QueryContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE active ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// SHIFT
// =============================================================================

const shiftColumns = `s.id, s.name, s.start_time, s.end_time, s.break1_minutes, s.break2_minutes,
	s.allow_combined_breaks, s.work_days, s.created_at, s.updated_at`

func scanShift(row rowScanner) (schedule.Shift, error) {
	var (
		s                    schedule.Shift
		start, end, workDays string
		createdAt, updatedAt string
	)
	err := row.Scan(&s.ID, &s.Name, &start, &end, &s.Break1Minutes, &s.Break2Minutes,
		&s.AllowCombinedBreaks, &workDays, &createdAt, &updatedAt)
	if err != nil {
		return schedule.Shift{}, err
	}
	if s.WorkDays, err = schedule.ParseWeekdays(workDays); err != nil {
		return schedule.Shift{}, err
	}
	if s.Start, err = schedule.ParseTimeOfDay(start); err != nil {
		return schedule.Shift{}, err
	}
	if s.End, err = schedule.ParseTimeOfDay(end); err != nil {
		return schedule.Shift{}, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return schedule.Shift{}, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return schedule.Shift{}, err
	}
	return s, nil
}

type shiftRepository struct{ s *Store }

func NewShiftRepository(s *Store) schedule.ShiftRepository {
	return &shiftRepository{s: s}
}

// GetByEmployeeID implements schedule.ShiftRepository.
func (r *shiftRepository) GetByEmployeeID(ctx context.Context, employeeID string) (schedule.Shift, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	shift, err := scanShift(r.s.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM employees e
		JOIN shifts s ON s.id = e.shift_id
		WHERE e.id = ?`, employeeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schedule.Shift{}, schedule.ErrShiftNotFound
		}
		return schedule.Shift{}, fmt.Errorf("failed to get shift for employee %s: %w", employeeID, err)
	}
	return shift, nil
}

// GetByID implements schedule.ShiftRepository.
func (r *shiftRepository) GetByID(ctx context.Context, id string) (schedule.Shift, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	shift, err := scanShift(r.s.db.QueryRowContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts s WHERE s.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schedule.Shift{}, schedule.ErrShiftNotFound
		}
		return schedule.Shift{}, fmt.Errorf("failed to get shift by ID: %w", err)
	}
	return shift, nil
}

// Create implements schedule.ShiftRepository.
func (r *shiftRepository) Create(ctx context.Context, shift schedule.Shift) (schedule.Shift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	now := time.Now()
	shift.CreatedAt = now
	shift.UpdatedAt = now

	_, err := r.s.db.ExecContext(ctx, `
		INSERT INTO shifts (id, name, start_time, end_time, break1_minutes, break2_minutes,
			allow_combined_breaks, work_days, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		shift.ID, shift.Name, shift.Start.String(), shift.End.String(),
		shift.Break1Minutes, shift.Break2Minutes, shift.AllowCombinedBreaks,
		shift.WorkDays.String(), formatTime(now), formatTime(now))
	if err != nil {
		return schedule.Shift{}, fmt.Errorf("failed to create shift: %w", err)
	}
	return shift, nil
}

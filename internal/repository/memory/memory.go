// Package memory provides in-memory implementations of the repositories,
// used by tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gocheck/attendance-backend/internal/domain/attendance"
	"github.com/gocheck/attendance-backend/internal/domain/employee"
	"github.com/gocheck/attendance-backend/internal/domain/schedule"
	"github.com/google/uuid"
)

type dayKey struct {
	EmployeeID string
	Date       string
}

// Store keeps every repository in one place so Justify can update a record
// and append its audit entry under a single lock.
type Store struct {
	mu             sync.RWMutex
	records        map[string]attendance.Record
	byDay          map[dayKey]string
	justifications map[string][]attendance.Justification
	employees      map[string]employee.Employee
	shifts         map[string]schedule.Shift
	now            func() time.Time
}

func NewStore() *Store {
	return &Store{
		records:        make(map[string]attendance.Record),
		byDay:          make(map[dayKey]string),
		justifications: make(map[string][]attendance.Justification),
		employees:      make(map[string]employee.Employee),
		shifts:         make(map[string]schedule.Shift),
		now:            time.Now,
	}
}

func keyOf(employeeID string, date time.Time) dayKey {
	return dayKey{EmployeeID: employeeID, Date: date.Format("2006-01-02")}
}

// =============================================================================
// ATTENDANCE
// =============================================================================

type attendanceRepository struct{ s *Store }

func NewAttendanceRepository(s *Store) attendance.AttendanceRepository {
	return &attendanceRepository{s: s}
}

// Create implements attendance.AttendanceRepository.
func (r *attendanceRepository) Create(_ context.Context, record attendance.Record) (attendance.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := keyOf(record.EmployeeID, record.Date)
	if _, exists := r.s.byDay[k]; exists {
		return attendance.Record{}, attendance.ErrDuplicateRecord
	}

	now := r.s.now()
	record.ID = uuid.NewString()
	record.Version = 1
	record.CreatedAt = now
	record.UpdatedAt = now
	record.EmployeeName = nil

	r.s.records[record.ID] = record.Clone()
	r.s.byDay[k] = record.ID
	return record, nil
}

// GetByID implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByID(_ context.Context, id string) (attendance.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	record, ok := r.s.records[id]
	if !ok {
		return attendance.Record{}, attendance.ErrAttendanceNotFound
	}
	return r.s.withName(record), nil
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByEmployeeAndDate(_ context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.byDay[keyOf(employeeID, date)]
	if !ok {
		return nil, nil
	}
	record := r.s.withName(r.s.records[id])
	return &record, nil
}

// Update implements attendance.AttendanceRepository.
func (r *attendanceRepository) Update(_ context.Context, record attendance.Record) (attendance.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.records[record.ID]
	if !ok {
		return attendance.Record{}, attendance.ErrAttendanceNotFound
	}
	if stored.Version != record.Version {
		return attendance.Record{}, attendance.ErrVersionConflict
	}

	record.Version++
	record.CreatedAt = stored.CreatedAt
	record.UpdatedAt = r.s.now()
	record.EmployeeName = nil
	r.s.records[record.ID] = record.Clone()
	return record, nil
}

// ListByDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListByDate(_ context.Context, date time.Time) ([]attendance.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	day := date.Format("2006-01-02")
	var out []attendance.Record
	for k, id := range r.s.byDay {
		if k.Date == day {
			out = append(out, r.s.withName(r.s.records[id]))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// withName returns a detached copy of record carrying the employee name.
// Callers hold s.mu.
func (s *Store) withName(record attendance.Record) attendance.Record {
	c := record.Clone()
	if emp, ok := s.employees[c.EmployeeID]; ok {
		name := emp.FullName
		c.EmployeeName = &name
	}
	return c
}

// =============================================================================
// JUSTIFICATION
// =============================================================================

type justificationRepository struct{ s *Store }

func NewJustificationRepository(s *Store) attendance.JustificationRepository {
	return &justificationRepository{s: s}
}

// Justify implements attendance.JustificationRepository.
func (r *justificationRepository) Justify(_ context.Context, j attendance.Justification) (attendance.Justification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	record, ok := r.s.records[j.RecordID]
	if !ok {
		return attendance.Justification{}, attendance.ErrAttendanceNotFound
	}
	record.Status = attendance.StatusJustified
	record.Version++
	record.UpdatedAt = r.s.now()
	r.s.records[j.RecordID] = record

	j.ID = uuid.NewString()
	r.s.justifications[j.RecordID] = append(r.s.justifications[j.RecordID], j)
	return j, nil
}

// ListByRecordID implements attendance.JustificationRepository.
func (r *justificationRepository) ListByRecordID(_ context.Context, recordID string) ([]attendance.Justification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]attendance.Justification, len(r.s.justifications[recordID]))
	copy(out, r.s.justifications[recordID])
	return out, nil
}

// =============================================================================
// EMPLOYEE
// =============================================================================

type employeeRepository struct{ s *Store }

func NewEmployeeRepository(s *Store) employee.EmployeeRepository {
	return &employeeRepository{s: s}
}

// GetByCode implements employee.EmployeeRepository.
func (r *employeeRepository) GetByCode(_ context.Context, code string) (employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, e := range r.s.employees {
		if e.Code == code && e.Active {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepository) GetByID(_ context.Context, id string) (employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

// Create implements employee.EmployeeRepository.
func (r *employeeRepository) Create(_ context.Context, newEmployee employee.Employee) (employee.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.employees {
		if e.Code == newEmployee.Code {
			return employee.Employee{}, employee.ErrEmployeeCodeExists
		}
	}
	if newEmployee.ID == "" {
		newEmployee.ID = uuid.NewString()
	}
	now := r.s.now()
	newEmployee.CreatedAt = now
	newEmployee.UpdatedAt = now
	r.s.employees[newEmployee.ID] = newEmployee
	return newEmployee, nil
}

// ListActive implements employee.EmployeeRepository.
func (r *employeeRepository) ListActive(_ context.Context) ([]employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []employee.Employee
	for _, e := range r.s.employees {
		if e.Active {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// =============================================================================
// SHIFT
// =============================================================================

type shiftRepository struct{ s *Store }

func NewShiftRepository(s *Store) schedule.ShiftRepository {
	return &shiftRepository{s: s}
}

// GetByEmployeeID implements schedule.ShiftRepository.
func (r *shiftRepository) GetByEmployeeID(_ context.Context, employeeID string) (schedule.Shift, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.employees[employeeID]
	if !ok || e.ShiftID == "" {
		return schedule.Shift{}, schedule.ErrShiftNotFound
	}
	s, ok := r.s.shifts[e.ShiftID]
	if !ok {
		return schedule.Shift{}, schedule.ErrShiftNotFound
	}
	return s, nil
}

// GetByID implements schedule.ShiftRepository.
func (r *shiftRepository) GetByID(_ context.Context, id string) (schedule.Shift, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	s, ok := r.s.shifts[id]
	if !ok {
		return schedule.Shift{}, schedule.ErrShiftNotFound
	}
	return s, nil
}

// Create implements schedule.ShiftRepository.
func (r *shiftRepository) Create(_ context.Context, shift schedule.Shift) (schedule.Shift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	now := r.s.now()
	shift.CreatedAt = now
	shift.UpdatedAt = now
	r.s.shifts[shift.ID] = shift
	return shift, nil
}

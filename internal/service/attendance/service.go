package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocheck/attendance-backend/internal/domain/attendance"
	"github.com/gocheck/attendance-backend/internal/domain/employee"
	"github.com/gocheck/attendance-backend/internal/domain/schedule"
)

type AttendanceServiceImpl struct {
	attendance.AttendanceRepository
	attendance.JustificationRepository
	employee.EmployeeRepository
	schedule.ShiftRepository

	sequencer *Sequencer
	locks     *dayLocks
	location  *time.Location
	clock     func() time.Time
}

func NewAttendanceService(
	attendanceRepo attendance.AttendanceRepository,
	justificationRepo attendance.JustificationRepository,
	employeeRepo employee.EmployeeRepository,
	shiftRepo schedule.ShiftRepository,
	policy Policy,
	location *time.Location,
) *AttendanceServiceImpl {
	if location == nil {
		location = time.UTC
	}
	return &AttendanceServiceImpl{
		AttendanceRepository:    attendanceRepo,
		JustificationRepository: justificationRepo,
		EmployeeRepository:      employeeRepo,
		ShiftRepository:         shiftRepo,
		sequencer:               NewSequencer(policy),
		locks:                   newDayLocks(),
		location:                location,
		clock:                   time.Now,
	}
}

// storeError marks a persistence failure as transient unless it is already a
// domain error the caller can act on.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, attendance.ErrVersionConflict),
		errors.Is(err, attendance.ErrDuplicateRecord),
		errors.Is(err, attendance.ErrAttendanceNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return fmt.Errorf("failed to %s: %w: %v", op, attendance.ErrStoreUnavailable, err)
}

// loadDay resolves everything an evaluation needs. The returned record is
// provisional (not persisted) when the employee has not scanned today.
func (a *AttendanceServiceImpl) loadDay(ctx context.Context, employeeID string, now time.Time) (employee.Employee, schedule.Shift, attendance.Record, error) {
	emp, err := a.EmployeeRepository.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return employee.Employee{}, schedule.Shift{}, attendance.Record{}, err
		}
		return employee.Employee{}, schedule.Shift{}, attendance.Record{}, storeError("get employee", err)
	}

	shift, err := a.ShiftRepository.GetByEmployeeID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, schedule.ErrShiftNotFound) {
			return employee.Employee{}, schedule.Shift{}, attendance.Record{}, fmt.Errorf("employee %s: %w", employeeID, err)
		}
		return employee.Employee{}, schedule.Shift{}, attendance.Record{}, storeError("get shift", err)
	}
	if err := shift.Validate(); err != nil {
		return employee.Employee{}, schedule.Shift{}, attendance.Record{}, fmt.Errorf("shift %s: %w", shift.ID, err)
	}

	existing, err := a.AttendanceRepository.GetByEmployeeAndDate(ctx, employeeID, attendance.DateOf(now))
	if err != nil {
		return employee.Employee{}, schedule.Shift{}, attendance.Record{}, storeError("get attendance", err)
	}

	record := attendance.NewRecord(employeeID, now)
	if existing != nil {
		record = *existing
	}
	record.EmployeeName = &emp.FullName

	return emp, shift, record, nil
}

// Evaluate implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Evaluate(ctx context.Context, employeeID string, now time.Time) (attendance.Evaluation, error) {
	now = now.In(a.location)

	unlock := a.locks.Lock(employeeID, attendance.DateOf(now))
	defer unlock()

	_, shift, record, err := a.loadDay(ctx, employeeID, now)
	if err != nil {
		return attendance.Evaluation{}, err
	}

	before := record.Clone()
	decision := a.sequencer.Step(shift, &record, now)
	if !decision.Outcome.IsSuccess() {
		slog.Debug("Scan not recorded",
			"employee_id", employeeID,
			"state", decision.State,
			"outcome", decision.Outcome,
		)
		return attendance.Evaluation{Record: before, Outcome: decision.Outcome, Action: decision.Action}, nil
	}

	var saved attendance.Record
	if record.IsPersisted() {
		saved, err = a.AttendanceRepository.Update(ctx, record)
	} else {
		saved, err = a.AttendanceRepository.Create(ctx, record)
	}
	if err != nil {
		slog.Error("Failed to save attendance", "employee_id", employeeID, "action", decision.Action, "error", err)
		return attendance.Evaluation{}, storeError("save attendance", err)
	}
	saved.EmployeeName = record.EmployeeName

	slog.Info("Attendance recorded",
		"employee_id", employeeID,
		"record_id", saved.ID,
		"action", decision.Action,
		"status", saved.Status,
	)

	return attendance.Evaluation{Record: saved, Outcome: decision.Outcome, Action: decision.Action}, nil
}

// EvaluateCode implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) EvaluateCode(ctx context.Context, code string, now time.Time) (attendance.Evaluation, error) {
	emp, err := a.EmployeeRepository.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return attendance.Evaluation{}, err
		}
		return attendance.Evaluation{}, storeError("resolve employee code", err)
	}
	return a.Evaluate(ctx, emp.ID, now)
}

// Preview implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Preview(ctx context.Context, employeeID string, now time.Time) (attendance.PreviewResponse, error) {
	now = now.In(a.location)

	emp, shift, record, err := a.loadDay(ctx, employeeID, now)
	if err != nil {
		return attendance.PreviewResponse{}, err
	}

	decision := a.sequencer.Plan(shift, record, now)

	resp := attendance.PreviewResponse{
		EmployeeID: employeeID,
		Date:       attendance.DateOf(now).Format("2006-01-02"),
		State:      string(decision.State),
		NextAction: string(decision.Action),
		CanRecord:  decision.Outcome.IsSuccess(),
		Status:     string(record.Status),
		Message:    attendance.OutcomeMessage(decision.Outcome, emp.FullName),
	}
	if !resp.CanRecord {
		resp.Reason = string(decision.Outcome)
	}
	if w := decision.Verdict.Window; w != nil {
		from := w.From.Format(time.RFC3339)
		to := w.To.Format(time.RFC3339)
		resp.WindowOpensAt = &from
		resp.WindowEndsAt = &to
	}

	return resp, nil
}

// Justify implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Justify(ctx context.Context, req attendance.JustifyRequest) (attendance.Justification, error) {
	if err := req.Validate(); err != nil {
		return attendance.Justification{}, err
	}

	record, err := a.AttendanceRepository.GetByID(ctx, req.RecordID)
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.Justification{}, err
		}
		return attendance.Justification{}, storeError("get attendance", err)
	}

	// Scans of the same day must not interleave with the status check.
	unlock := a.locks.Lock(record.EmployeeID, record.Date)
	defer unlock()

	record, err = a.AttendanceRepository.GetByID(ctx, req.RecordID)
	if err != nil {
		return attendance.Justification{}, storeError("get attendance", err)
	}
	if !record.Status.Justifiable() {
		return attendance.Justification{}, fmt.Errorf("record %s is %s: %w", record.ID, record.Status, attendance.ErrNotJustifiable)
	}

	// A repeated justification appends another audit entry.
	justification, err := a.JustificationRepository.Justify(ctx, attendance.Justification{
		RecordID:   req.RecordID,
		Reason:     req.Reason,
		ApproverID: req.ApproverID,
		CreatedAt:  a.clock().In(a.location),
	})
	if err != nil {
		return attendance.Justification{}, storeError("justify attendance", err)
	}

	slog.Info("Attendance justified", "record_id", req.RecordID, "approver_id", req.ApproverID)

	return justification, nil
}

// GetRecord implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetRecord(ctx context.Context, id string) (attendance.Record, error) {
	record, err := a.AttendanceRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.Record{}, err
		}
		return attendance.Record{}, storeError("get attendance", err)
	}
	return record, nil
}

// ListByDate implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListByDate(ctx context.Context, date time.Time) ([]attendance.Record, error) {
	records, err := a.AttendanceRepository.ListByDate(ctx, attendance.DateOf(date))
	if err != nil {
		return nil, storeError("list attendance", err)
	}
	return records, nil
}

// ListJustifications implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListJustifications(ctx context.Context, recordID string) ([]attendance.Justification, error) {
	if _, err := a.GetRecord(ctx, recordID); err != nil {
		return nil, err
	}
	justifications, err := a.JustificationRepository.ListByRecordID(ctx, recordID)
	if err != nil {
		return nil, storeError("list justifications", err)
	}
	return justifications, nil
}

var _ attendance.AttendanceService = (*AttendanceServiceImpl)(nil)

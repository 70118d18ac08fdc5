package cron

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

// AttendanceJobs holds the background jobs over attendance records.
type AttendanceJobs struct {
	attendanceRepo attendance.AttendanceRepository
	employeeRepo   employee.EmployeeRepository
	shiftRepo      schedule.ShiftRepository

	// exitLateLimit is how long after shift end an exit can still be scanned.
	// A day is only marked absent after that.
	exitLateLimit time.Duration
	location      *time.Location
	now           func() time.Time
}

func NewAttendanceJobs(
	attendanceRepo attendance.AttendanceRepository,
	employeeRepo employee.EmployeeRepository,
	shiftRepo schedule.ShiftRepository,
	exitLateLimit time.Duration,
	location *time.Location,
) *AttendanceJobs {
	if location == nil {
		location = time.UTC
	}
	return &AttendanceJobs{
		attendanceRepo: attendanceRepo,
		employeeRepo:   employeeRepo,
		shiftRepo:      shiftRepo,
		exitLateLimit:  exitLateLimit,
		location:       location,
		now:            time.Now,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("mark_absent_employees", interval, j.MarkAbsentEmployees)
}

// MarkAbsentEmployees marks yesterday and today. Yesterday is included so a
// shift closing just before midnight is not missed between two runs.
func (j *AttendanceJobs) MarkAbsentEmployees(ctx context.Context) error {
	today := attendance.DateOf(j.now().In(j.location))

	var errs []error
	total := 0
	for _, date := range []time.Time{today.AddDate(0, 0, -1), today} {
		n, err := j.MarkAbsent(ctx, date)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}

	if total > 0 {
		slog.Info("Cron: Marked absent employees", "count", total)
	}
	return errors.Join(errs...)
}

// MarkAbsent creates an ABSENT record for every active employee with a shift
// and no record on date, once the exit window of that shift has closed.
// It returns the number of records created.
func (j *AttendanceJobs) MarkAbsent(ctx context.Context, date time.Time) (int, error) {
	date = attendance.DateOf(date.In(j.location))
	now := j.now()

	employees, err := j.employeeRepo.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active employees: %w", err)
	}

	created := 0
	failed := 0
	for _, emp := range employees {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		if emp.ShiftID == "" {
			continue
		}

		shift, err := j.shiftRepo.GetByEmployeeID(ctx, emp.ID)
		if err != nil {
			if !errors.Is(err, schedule.ErrShiftNotFound) {
				slog.Error("Cron: Failed to get shift", "employee_id", emp.ID, "error", err)
				failed++
			}
			continue
		}
		if err := shift.Validate(); err != nil {
			slog.Warn("Cron: Skipping employee with invalid shift", "employee_id", emp.ID, "shift_id", shift.ID, "error", err)
			continue
		}

		if !shift.WorksOn(date.Weekday()) {
			continue
		}
		if now.Before(shift.End.On(date).Add(j.exitLateLimit)) {
			continue
		}

		existing, err := j.attendanceRepo.GetByEmployeeAndDate(ctx, emp.ID, date)
		if err != nil {
			slog.Error("Cron: Failed to get attendance", "employee_id", emp.ID, "error", err)
			failed++
			continue
		}
		if existing != nil {
			continue
		}

		if _, err := j.attendanceRepo.Create(ctx, attendance.NewRecord(emp.ID, date)); err != nil {
			if errors.Is(err, attendance.ErrDuplicateRecord) {
				continue
			}
			slog.Error("Cron: Failed to create absence", "employee_id", emp.ID, "error", err)
			failed++
			continue
		}
		created++
	}

	if failed > 0 {
		return created, fmt.Errorf("failed to mark %d employees absent for %s", failed, date.Format(time.DateOnly))
	}
	return created, nil
}

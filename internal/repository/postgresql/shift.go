package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocheck/attendance-backend/internal/domain/schedule"
	"github.com/gocheck/attendance-backend/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const shiftColumns = `s.id, s.name, s.start_time, s.end_time, s.break1_minutes, s.break2_minutes,
	s.allow_combined_breaks, s.work_days, s.created_at, s.updated_at`

type shiftRepository struct {
	db *database.DB
}

func NewShiftRepository(db *database.DB) schedule.ShiftRepository {
	return &shiftRepository{db: db}
}

func toPgTime(t schedule.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: t.Duration().Microseconds(), Valid: true}
}

func fromPgTime(t pgtype.Time) schedule.TimeOfDay {
	return schedule.TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond)
}

func scanShift(row rowScanner) (schedule.Shift, error) {
	var (
		s          schedule.Shift
		start, end pgtype.Time
		workDays   int16
	)
	err := row.Scan(&s.ID, &s.Name, &start, &end, &s.Break1Minutes, &s.Break2Minutes,
		&s.AllowCombinedBreaks, &workDays, &s.CreatedAt, &s.UpdatedAt)
	s.Start = fromPgTime(start)
	s.End = fromPgTime(end)
	s.WorkDays = schedule.Weekdays(workDays)
	return s, err
}

// GetByEmployeeID implements schedule.ShiftRepository.
func (r *shiftRepository) GetByEmployeeID(ctx context.Context, employeeID string) (schedule.Shift, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + shiftColumns + `
		FROM employees e
		JOIN shifts s ON s.id = e.shift_id
		WHERE e.id = $1
	`

	shift, err := scanShift(q.QueryRow(ctx, query, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.Shift{}, schedule.ErrShiftNotFound
		}
		return schedule.Shift{}, fmt.Errorf("failed to get shift for employee %s: %w", employeeID, err)
	}
	return shift, nil
}

// GetByID implements schedule.ShiftRepository.
func (r *shiftRepository) GetByID(ctx context.Context, id string) (schedule.Shift, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + shiftColumns + ` FROM shifts s WHERE s.id = $1`

	shift, err := scanShift(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.Shift{}, schedule.ErrShiftNotFound
		}
		return schedule.Shift{}, fmt.Errorf("failed to get shift by ID: %w", err)
	}
	return shift, nil
}

// Create implements schedule.ShiftRepository.
func (r *shiftRepository) Create(ctx context.Context, shift schedule.Shift) (schedule.Shift, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO shifts (name, start_time, end_time, break1_minutes, break2_minutes, allow_combined_breaks, work_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		shift.Name,
		toPgTime(shift.Start),
		toPgTime(shift.End),
		shift.Break1Minutes,
		shift.Break2Minutes,
		shift.AllowCombinedBreaks,
		int16(shift.WorkDays),
	).Scan(&shift.ID, &shift.CreatedAt, &shift.UpdatedAt)
	if err != nil {
		return schedule.Shift{}, fmt.Errorf("failed to create shift: %w", err)
	}

	return shift, nil
}

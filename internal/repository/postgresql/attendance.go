package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocheck/attendance-backend/internal/domain/attendance"
	"github.com/gocheck/attendance-backend/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const recordColumns = `
	a.id, a.employee_id, a.work_date,
	a.entry_at, a.break1_start_at, a.break1_end_at, a.break2_start_at, a.break2_end_at, a.exit_at,
	a.status, a.notes, a.version, a.created_at, a.updated_at,
	e.full_name`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (attendance.Record, error) {
	var (
		r    attendance.Record
		name *string
	)
	err := row.Scan(
		&r.ID, &r.EmployeeID, &r.Date,
		&r.Entry, &r.Break1Start, &r.Break1End, &r.Break2Start, &r.Break2End, &r.Exit,
		&r.Status, &r.Notes, &r.Version, &r.CreatedAt, &r.UpdatedAt,
		&name,
	)
	r.EmployeeName = name
	return r, err
}

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendance_records (
			employee_id, work_date,
			entry_at, break1_start_at, break1_end_at, break2_start_at, break2_end_at, exit_at,
			status, notes
		) VALUES (
			$1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10
		) RETURNING id, version, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		record.EmployeeID,
		record.Date.Format(time.DateOnly),
		record.Entry,
		record.Break1Start,
		record.Break1End,
		record.Break2Start,
		record.Break2End,
		record.Exit,
		record.Status,
		record.Notes,
	).Scan(&record.ID, &record.Version, &record.CreatedAt, &record.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return attendance.Record{}, attendance.ErrDuplicateRecord
		}
		return attendance.Record{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return record, nil
}

// GetByID implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE a.id = $1
	`

	record, err := scanRecord(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "22P02" { // invalid_text_representation
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance by ID: %w", err)
	}

	return record, nil
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE a.employee_id = $1
		  AND a.work_date = $2::date
		LIMIT 1
	`

	record, err := scanRecord(q.QueryRow(ctx, query, employeeID, date.Format(time.DateOnly)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance by employee and date: %w", err)
	}

	return &record, nil
}

// Update implements attendance.AttendanceRepository.
func (a *attendanceRepository) Update(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendance_records
		SET entry_at = $1,
			break1_start_at = $2,
			break1_end_at = $3,
			break2_start_at = $4,
			break2_end_at = $5,
			exit_at = $6,
			status = $7,
			notes = $8,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $9 AND version = $10
		RETURNING version, updated_at
	`

	err := q.QueryRow(ctx, query,
		record.Entry,
		record.Break1Start,
		record.Break1End,
		record.Break2Start,
		record.Break2End,
		record.Exit,
		record.Status,
		record.Notes,
		record.ID,
		record.Version,
	).Scan(&record.Version, &record.UpdatedAt)

	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, fmt.Errorf("failed to update attendance: %w", err)
		}

		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM attendance_records WHERE id = $1)`, record.ID).Scan(&exists); err != nil {
			return attendance.Record{}, fmt.Errorf("failed to check attendance: %w", err)
		}
		if !exists {
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Record{}, attendance.ErrVersionConflict
	}

	return record, nil
}

// ListByDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE a.work_date = $1::date
		ORDER BY e.full_name, a.employee_id
	`

	rows, err := q.Query(ctx, query, date.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance: %w", err)
	}

	return records, nil
}

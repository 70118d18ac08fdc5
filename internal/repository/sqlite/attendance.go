package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gocheck/attendance-backend/internal/domain/attendance"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const recordColumns = `
	a.id, a.employee_id, a.work_date,
	a.entry_at, a.break1_start_at, a.break1_end_at, a.break2_start_at, a.break2_end_at, a.exit_at,
	a.status, a.notes, a.version, a.created_at, a.updated_at,
	e.full_name`

type rowScanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func scanRecord(row rowScanner) (attendance.Record, error) {
	var (
		r                    attendance.Record
		workDate             string
		stamps               [6]sql.NullString
		createdAt, updatedAt string
		name                 sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.EmployeeID, &workDate,
		&stamps[0], &stamps[1], &stamps[2], &stamps[3], &stamps[4], &stamps[5],
		&r.Status, &r.Notes, &r.Version, &createdAt, &updatedAt,
		&name,
	)
	if err != nil {
		return attendance.Record{}, err
	}

	if r.Date, err = time.Parse(time.DateOnly, workDate); err != nil {
		return attendance.Record{}, fmt.Errorf("bad work_date %q: %w", workDate, err)
	}
	for i, a := range attendance.Actions {
		t, err := parseNullTime(stamps[i])
		if err != nil {
			return attendance.Record{}, fmt.Errorf("bad %s timestamp: %w", a, err)
		}
		if t != nil {
			r.SetStamp(a, *t)
		}
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return attendance.Record{}, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return attendance.Record{}, err
	}
	if name.Valid {
		r.EmployeeName = &name.String
	}
	return r, nil
}

type attendanceRepository struct{ s *Store }

func NewAttendanceRepository(s *Store) attendance.AttendanceRepository {
	return &attendanceRepository{s: s}
}

// Create implements attendance.AttendanceRepository.
func (r *attendanceRepository) Create(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	record.ID = uuid.NewString()
	record.Version = 1
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := r.s.db.ExecContext(ctx, `
		INSERT INTO attendance_records (
			id, employee_id, work_date,
			entry_at, break1_start_at, break1_end_at, break2_start_at, break2_end_at, exit_at,
			status, notes, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.EmployeeID, record.Date.Format(time.DateOnly),
		nullTime(record.Entry), nullTime(record.Break1Start), nullTime(record.Break1End),
		nullTime(record.Break2Start), nullTime(record.Break2End), nullTime(record.Exit),
		string(record.Status), record.Notes, record.Version,
		formatTime(record.CreatedAt), formatTime(record.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return attendance.Record{}, attendance.ErrDuplicateRecord
		}
		return attendance.Record{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return record, nil
}

// GetByID implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	record, err := scanRecord(r.s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE a.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance by ID: %w", err)
	}
	return record, nil
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	record, err := scanRecord(r.s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE a.employee_id = ? AND a.work_date = ?`,
		employeeID, date.Format(time.DateOnly)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance by employee and date: %w", err)
	}
	return &record, nil
}

// Update implements attendance.AttendanceRepository.
func (r *attendanceRepository) Update(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	res, err := r.s.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET entry_at = ?, break1_start_at = ?, break1_end_at = ?,
			break2_start_at = ?, break2_end_at = ?, exit_at = ?,
			status = ?, notes = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		nullTime(record.Entry), nullTime(record.Break1Start), nullTime(record.Break1End),
		nullTime(record.Break2Start), nullTime(record.Break2End), nullTime(record.Exit),
		string(record.Status), record.Notes, formatTime(now),
		record.ID, record.Version,
	)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to update attendance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to update attendance: %w", err)
	}
	if affected == 0 {
		var exists bool
		err := r.s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM attendance_records WHERE id = ?)`, record.ID).Scan(&exists)
		if err != nil {
			return attendance.Record{}, fmt.Errorf("failed to check attendance: %w", err)
		}
		if !exists {
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Record{}, attendance.ErrVersionConflict
	}

	record.Version++
	record.UpdatedAt = now
	return record, nil
}

// ListByDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]attendance.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows, err := r.s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE a.work_date = ?
		ORDER BY e.full_name, a.employee_id`, date.Format(time.DateOnly))
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
	return records, rows.Err()
}

// =============================================================================
// JUSTIFICATION
// =============================================================================

type justificationRepository struct{ s *Store }

func NewJustificationRepository(s *Store) attendance.JustificationRepository {
	return &justificationRepository{s: s}
}

// Justify implements attendance.JustificationRepository.
func (r *justificationRepository) Justify(ctx context.Context, j attendance.Justification) (attendance.Justification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return attendance.Justification{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE attendance_records
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ?`,
		string(attendance.StatusJustified), formatTime(time.Now()), j.RecordID)
	if err != nil {
		return attendance.Justification{}, fmt.Errorf("failed to update attendance status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return attendance.Justification{}, fmt.Errorf("failed to update attendance status: %w", err)
	} else if n == 0 {
		return attendance.Justification{}, attendance.ErrAttendanceNotFound
	}

	j.ID = uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO attendance_justifications (id, attendance_id, reason, approver_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		j.ID, j.RecordID, j.Reason, j.ApproverID, formatTime(j.CreatedAt))
	if err != nil {
		return attendance.Justification{}, fmt.Errorf("failed to insert justification: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return attendance.Justification{}, fmt.Errorf("commit transaction: %w", err)
	}
	return j, nil
}

// ListByRecordID implements attendance.JustificationRepository.
func (r *justificationRepository) ListByRecordID(ctx context.Context, recordID string) ([]attendance.Justification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows, err := r.s.db.QueryContext(ctx, `
		SELECT id, attendance_id, reason, approver_id, created_at
		FROM attendance_justifications
		WHERE attendance_id = ?
		ORDER BY created_at, rowid`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list justifications: %w", err)
	}
	defer rows.Close()

	var entries []attendance.Justification
	for rows.Next() {
		var (
			e         attendance.Justification
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.RecordID, &e.Reason, &e.ApproverID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan justification: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

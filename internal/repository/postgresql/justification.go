package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocheck/attendance-backend/internal/domain/attendance"
	"github.com/gocheck/attendance-backend/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type justificationRepository struct {
	db *database.DB
}

func NewJustificationRepository(db *database.DB) attendance.JustificationRepository {
	return &justificationRepository{db: db}
}

// Justify implements attendance.JustificationRepository.
func (j *justificationRepository) Justify(ctx context.Context, entry attendance.Justification) (attendance.Justification, error) {
	err := WithTransaction(ctx, j.db, func(tx pgx.Tx) error {
		txCtx := WithTx(ctx, tx)
		if err := j.markJustified(txCtx, entry.RecordID); err != nil {
			return err
		}
		return j.insert(txCtx, &entry)
	})
	if err != nil {
		return attendance.Justification{}, err
	}

	return entry, nil
}

func (j *justificationRepository) markJustified(ctx context.Context, recordID string) error {
	q := GetQuerier(ctx, j.db)

	var id string
	err := q.QueryRow(ctx, `
		UPDATE attendance_records
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
		RETURNING id
	`, attendance.StatusJustified, recordID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.ErrAttendanceNotFound
		}
		return fmt.Errorf("failed to update attendance status: %w", err)
	}
	return nil
}

func (j *justificationRepository) insert(ctx context.Context, entry *attendance.Justification) error {
	q := GetQuerier(ctx, j.db)

	err := q.QueryRow(ctx, `
		INSERT INTO attendance_justifications (attendance_id, reason, approver_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, entry.RecordID, entry.Reason, entry.ApproverID, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to insert justification: %w", err)
	}
	return nil
}

// ListByRecordID implements attendance.JustificationRepository.
func (j *justificationRepository) ListByRecordID(ctx context.Context, recordID string) ([]attendance.Justification, error) {
	q := GetQuerier(ctx, j.db)

	rows, err := q.Query(ctx, `
		SELECT id, attendance_id, reason, approver_id, created_at
		FROM attendance_justifications
		WHERE attendance_id = $1
		ORDER BY created_at, id
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list justifications: %w", err)
	}
	defer rows.Close()

	var entries []attendance.Justification
	for rows.Next() {
		var e attendance.Justification
		if err := rows.Scan(&e.ID, &e.RecordID, &e.Reason, &e.ApproverID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan justification: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate justifications: %w", err)
	}

	return entries, nil
}

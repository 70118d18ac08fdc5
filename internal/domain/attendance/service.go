package attendance

import (
	"context"
	"time"
)

// AttendanceService defines the attendance engine operations
type AttendanceService interface {
	// Evaluate decides what a scan by employeeID at now means and records it when eligible.
	Evaluate(ctx context.Context, employeeID string, now time.Time) (Evaluation, error)

	// EvaluateCode resolves a scanned code and evaluates it.
	EvaluateCode(ctx context.Context, code string, now time.Time) (Evaluation, error)

	// Preview reports what a scan at now would do, without recording anything.
	Preview(ctx context.Context, employeeID string, now time.Time) (PreviewResponse, error)

	// Justify overrides the status of a stored record and appends an audit entry.
	Justify(ctx context.Context, req JustifyRequest) (Justification, error)

	GetRecord(ctx context.Context, id string) (Record, error)
	ListByDate(ctx context.Context, date time.Time) ([]Record, error)
	ListJustifications(ctx context.Context, recordID string) ([]Justification, error)
}

package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gocheck/attendance-backend/internal/domain/attendance"
	"github.com/gocheck/attendance-backend/internal/domain/auth"
	"github.com/gocheck/attendance-backend/internal/domain/employee"
	"github.com/gocheck/attendance-backend/internal/domain/schedule"
	"github.com/gocheck/attendance-backend/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrAdminPrivilegeRequired):
		Forbidden(w, "Admin privilege required")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmployeeCodeExists):
		Conflict(w, "Employee code already exists")

	// Shift configuration errors
	case errors.Is(err, schedule.ErrShiftNotFound):
		Conflict(w, "No shift is configured for this employee")
	case errors.Is(err, schedule.ErrInvalidShift):
		Conflict(w, "The employee's shift is misconfigured")

	// Attendance domain errors
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrNotJustifiable):
		Conflict(w, "Only absent or late attendance can be justified")
	case errors.Is(err, attendance.ErrVersionConflict),
		errors.Is(err, attendance.ErrDuplicateRecord):
		Conflict(w, "Attendance record was modified concurrently, please retry")
	case errors.Is(err, attendance.ErrStoreUnavailable):
		slog.Error("Attendance store unavailable", "error", err)
		ServiceUnavailable(w, "Attendance store is temporarily unavailable, please retry")
	case errors.Is(err, context.DeadlineExceeded):
		ServiceUnavailable(w, "Request timed out, please retry")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

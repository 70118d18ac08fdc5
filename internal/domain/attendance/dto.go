package attendance

import (
	"fmt"
	"time"

	"github.com/gocheck/attendance-backend/internal/pkg/validator"
)

// ========================================
// SCAN DTOs
// ========================================

type ScanRequest struct {
	Code string `json:"code"`
}

func (r *ScanRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Code) {
		errs = append(errs, validator.ValidationError{
			Field:   "code",
			Message: "code is required",
		})
	} else if !validator.IsValidEmployeeCode(r.Code) {
		errs = append(errs, validator.ValidationError{
			Field:   "code",
			Message: "code contains invalid characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type EvaluationResponse struct {
	Outcome    string         `json:"outcome"`
	Action     string         `json:"action,omitempty"`
	Recorded   bool           `json:"recorded"`
	Message    string         `json:"message"`
	Attendance RecordResponse `json:"attendance"`
}

func NewEvaluationResponse(e Evaluation) EvaluationResponse {
	name := ""
	if e.Record.EmployeeName != nil {
		name = *e.Record.EmployeeName
	}
	return EvaluationResponse{
		Outcome:    string(e.Outcome),
		Action:     string(e.Action),
		Recorded:   e.Outcome.IsSuccess(),
		Message:    OutcomeMessage(e.Outcome, name),
		Attendance: NewRecordResponse(e.Record),
	}
}

// OutcomeMessage is the human-facing text shown for an evaluation outcome.
func OutcomeMessage(o Outcome, employeeName string) string {
	switch o {
	case OutcomeEntryOK:
		if employeeName == "" {
			return "Welcome. Entry recorded."
		}
		return fmt.Sprintf("Welcome %s. Entry recorded.", employeeName)
	case OutcomeBreak1StartOK:
		return "Breakfast start recorded."
	case OutcomeBreak1EndOK:
		return "Breakfast end recorded."
	case OutcomeBreak2StartOK:
		return "Lunch start recorded."
	case OutcomeBreak2EndOK:
		return "Lunch end recorded."
	case OutcomeExitOK:
		if employeeName == "" {
			return "See you soon. Exit recorded."
		}
		return fmt.Sprintf("See you soon %s! Exit recorded.", employeeName)
	case OutcomeTooEarly:
		return "It is too early to record your next action."
	case OutcomeTooLate:
		return "The time to record your next action has passed."
	case OutcomePrerequisiteMissing:
		return "A previous step of your day has not been recorded yet."
	case OutcomeAlreadyRecorded:
		return "This action was already recorded."
	case OutcomeDayAlreadyComplete:
		return "Your attendance for today is already complete."
	}
	return "Unrecognized outcome."
}

// ========================================
// RECORD DTOs
// ========================================

type RecordResponse struct {
	ID           string  `json:"id,omitempty"`
	EmployeeID   string  `json:"employee_id"`
	EmployeeName *string `json:"employee_name,omitempty"`
	Date         string  `json:"date"`
	Entry        *string `json:"entry,omitempty"`
	Break1Start  *string `json:"break1_start,omitempty"`
	Break1End    *string `json:"break1_end,omitempty"`
	Break2Start  *string `json:"break2_start,omitempty"`
	Break2End    *string `json:"break2_end,omitempty"`
	Exit         *string `json:"exit,omitempty"`
	Status       string  `json:"status"`
	Notes        string  `json:"notes,omitempty"`
	Version      int     `json:"version"`
}

// timePtrToString safely converts a *time.Time to a string.
func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.Format("2006-01-02 15:04:05")
	return &format
}

func NewRecordResponse(r Record) RecordResponse {
	return RecordResponse{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID,
		EmployeeName: r.EmployeeName,
		Date:         r.Date.Format("2006-01-02"),
		Entry:        timePtrToString(r.Entry),
		Break1Start:  timePtrToString(r.Break1Start),
		Break1End:    timePtrToString(r.Break1End),
		Break2Start:  timePtrToString(r.Break2Start),
		Break2End:    timePtrToString(r.Break2End),
		Exit:         timePtrToString(r.Exit),
		Status:       string(r.Status),
		Notes:        r.Notes,
		Version:      r.Version,
	}
}

type ListAttendanceFilter struct {
	Date string `json:"date"` // YYYY-MM-DD
}

func (f *ListAttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.Date) {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date is required",
		})
	} else if _, valid := validator.IsValidDate(f.Date); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ========================================
// JUSTIFICATION DTOs
// ========================================

// JustifyRequest for an administrator overriding a finalized status
type JustifyRequest struct {
	RecordID   string `json:"-"`
	ApproverID string `json:"-"` // taken from the verified token, never from the body
	Reason     string `json:"reason"`
}

func (r *JustifyRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.RecordID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "attendance id is required",
		})
	}

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "justification reason is required",
		})
	} else if len(r.Reason) > 500 {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason must not exceed 500 characters",
		})
	}

	if validator.IsEmpty(r.ApproverID) {
		errs = append(errs, validator.ValidationError{
			Field:   "approver_id",
			Message: "approver is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type JustificationResponse struct {
	ID         string `json:"id"`
	RecordID   string `json:"attendance_id"`
	Reason     string `json:"reason"`
	ApproverID string `json:"approver_id"`
	CreatedAt  string `json:"created_at"`
}

func NewJustificationResponse(j Justification) JustificationResponse {
	return JustificationResponse{
		ID:         j.ID,
		RecordID:   j.RecordID,
		Reason:     j.Reason,
		ApproverID: j.ApproverID,
		CreatedAt:  j.CreatedAt.Format(time.RFC3339),
	}
}

// ========================================
// PREVIEW DTOs
// ========================================

type PreviewResponse struct {
	EmployeeID    string  `json:"employee_id"`
	Date          string  `json:"date"`
	State         string  `json:"state"`
	NextAction    string  `json:"next_action,omitempty"`
	CanRecord     bool    `json:"can_record"`
	Reason        string  `json:"reason,omitempty"`
	WindowOpensAt *string `json:"window_opens_at,omitempty"`
	WindowEndsAt  *string `json:"window_ends_at,omitempty"`
	Status        string  `json:"status"`
	Message       string  `json:"message"`
}

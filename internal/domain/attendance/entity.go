package attendance

import (
	"strings"
	"time"
)

type Status string

const (
	StatusAbsent    Status = "ABSENT"
	StatusPresent   Status = "PRESENT"
	StatusLate      Status = "LATE"
	StatusJustified Status = "JUSTIFIED"
)

// Justifiable reports whether an administrator may override the status.
// PRESENT records have nothing to excuse.
func (s Status) Justifiable() bool {
	switch s {
	case StatusAbsent, StatusLate, StatusJustified:
		return true
	}
	return false
}

var StatusValues = []string{
	string(StatusAbsent),
	string(StatusPresent),
	string(StatusLate),
	string(StatusJustified),
}

// Action is one of the six attendance events of a working day.
type Action string

const (
	ActionEntry       Action = "ENTRY"
	ActionBreak1Start Action = "BREAK1_START"
	ActionBreak1End   Action = "BREAK1_END"
	ActionBreak2Start Action = "BREAK2_START"
	ActionBreak2End   Action = "BREAK2_END"
	ActionExit        Action = "EXIT"
)

// Actions lists every action in stage order.
var Actions = []Action{
	ActionEntry,
	ActionBreak1Start,
	ActionBreak1End,
	ActionBreak2Start,
	ActionBreak2End,
	ActionExit,
}

// Outcome is the machine-checkable result of one evaluation.
type Outcome string

const (
	OutcomeEntryOK       Outcome = "ENTRY_OK"
	OutcomeBreak1StartOK Outcome = "BREAK1_START_OK"
	OutcomeBreak1EndOK   Outcome = "BREAK1_END_OK"
	OutcomeBreak2StartOK Outcome = "BREAK2_START_OK"
	OutcomeBreak2EndOK   Outcome = "BREAK2_END_OK"
	OutcomeExitOK        Outcome = "EXIT_OK"

	// Ineligibility outcomes. These are normal results, not errors.
	OutcomeTooEarly            Outcome = "TOO_EARLY"
	OutcomeTooLate             Outcome = "TOO_LATE"
	OutcomePrerequisiteMissing Outcome = "PREREQUISITE_MISSING"
	OutcomeAlreadyRecorded     Outcome = "ALREADY_RECORDED"
	OutcomeDayAlreadyComplete  Outcome = "DAY_ALREADY_COMPLETE"
)

// SuccessOutcome maps an action to the outcome reported when it is recorded.
func SuccessOutcome(a Action) Outcome {
	return Outcome(string(a) + "_OK")
}

// IsSuccess reports whether the outcome recorded a new timestamp.
func (o Outcome) IsSuccess() bool {
	return strings.HasSuffix(string(o), "_OK")
}

// Record is the attendance of one employee on one calendar day.
type Record struct {
	ID          string
	EmployeeID  string
	Date        time.Time // local midnight of the working day
	Entry       *time.Time
	Break1Start *time.Time
	Break1End   *time.Time
	Break2Start *time.Time
	Break2End   *time.Time
	Exit        *time.Time
	Status      Status
	Notes       string
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// DTO
	EmployeeName *string
}

// NewRecord returns the provisional, not yet persisted record of a day.
func NewRecord(employeeID string, date time.Time) Record {
	return Record{
		EmployeeID: employeeID,
		Date:       DateOf(date),
		Status:     StatusAbsent,
	}
}

// DateOf truncates t to midnight of its calendar day in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Stamp returns the timestamp stored for an action.
func (r *Record) Stamp(a Action) *time.Time {
	switch a {
	case ActionEntry:
		return r.Entry
	case ActionBreak1Start:
		return r.Break1Start
	case ActionBreak1End:
		return r.Break1End
	case ActionBreak2Start:
		return r.Break2Start
	case ActionBreak2End:
		return r.Break2End
	case ActionExit:
		return r.Exit
	}
	return nil
}

// SetStamp records t for an action. Already recorded stages are never overwritten.
func (r *Record) SetStamp(a Action, t time.Time) bool {
	if r.Stamp(a) != nil {
		return false
	}
	switch a {
	case ActionEntry:
		r.Entry = &t
	case ActionBreak1Start:
		r.Break1Start = &t
	case ActionBreak1End:
		r.Break1End = &t
	case ActionBreak2Start:
		r.Break2Start = &t
	case ActionBreak2End:
		r.Break2End = &t
	case ActionExit:
		r.Exit = &t
	default:
		return false
	}
	return true
}

func (r *Record) IsPersisted() bool { return r.ID != "" }

func (r *Record) IsClosed() bool { return r.Exit != nil }

// AppendNote adds a note; existing notes are kept.
func (r *Record) AppendNote(note string) {
	if r.Notes == "" {
		r.Notes = note
		return
	}
	r.Notes += " " + note
}

// Clone returns a copy that shares no timestamp pointers with r.
func (r Record) Clone() Record {
	c := r
	c.Entry = copyTime(r.Entry)
	c.Break1Start = copyTime(r.Break1Start)
	c.Break1End = copyTime(r.Break1End)
	c.Break2Start = copyTime(r.Break2Start)
	c.Break2End = copyTime(r.Break2End)
	c.Exit = copyTime(r.Exit)
	if r.EmployeeName != nil {
		name := *r.EmployeeName
		c.EmployeeName = &name
	}
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Justification is one audit entry of an administrative status override.
type Justification struct {
	ID         string
	RecordID   string
	Reason     string
	ApproverID string
	CreatedAt  time.Time
}

// Evaluation is the result of evaluating one scan.
type Evaluation struct {
	Record  Record
	Outcome Outcome
	Action  Action // the action that was expected next; empty when the day is complete
}

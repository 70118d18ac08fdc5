package attendance

import (
	"fmt"
	"time"

	"github.com/gocheck/attendance-backend/internal/domain/attendance"
	"github.com/gocheck/attendance-backend/internal/domain/schedule"
)

// StatusEvaluator derives the status of a record and its overrun notes.
// It never marks a record ABSENT once an entry exists.
type StatusEvaluator struct {
	windows *WindowCalculator
}

func NewStatusEvaluator(windows *WindowCalculator) *StatusEvaluator {
	return &StatusEvaluator{windows: windows}
}

// EntryStatus is LATE when entry is after shift start plus the entry tolerance.
func (e *StatusEvaluator) EntryStatus(shift schedule.Shift, entry time.Time) attendance.Status {
	limit, _ := e.windows.OnTimeLimit(attendance.ActionEntry, shift, attendance.Record{}, attendance.DateOf(entry))
	if entry.After(limit) {
		return attendance.StatusLate
	}
	return attendance.StatusPresent
}

// Apply updates status and notes after action was recorded on r.
func (e *StatusEvaluator) Apply(action attendance.Action, shift schedule.Shift, r *attendance.Record) {
	switch action {
	case attendance.ActionEntry:
		r.Status = e.EntryStatus(shift, *r.Entry)

	case attendance.ActionBreak1End:
		if note, ok := e.overrunNote("breakfast", shift.Break1Duration(), r.Break1Start, r.Break1End); ok {
			r.AppendNote(note)
		}

	case attendance.ActionBreak2End:
		if note, ok := e.overrunNote("lunch", shift.Break2Duration(), r.Break2Start, r.Break2End); ok {
			r.AppendNote(note)
		}

	case attendance.ActionExit:
		e.Finalize(shift, r)
	}
}

// Finalize settles the status of a closed day. Break problems only produce notes.
func (e *StatusEvaluator) Finalize(shift schedule.Shift, r *attendance.Record) {
	switch r.Status {
	case attendance.StatusLate, attendance.StatusJustified:
	default:
		if r.Entry != nil {
			r.Status = attendance.StatusPresent
		}
	}

	if shift.HasBreak1() && r.Break1Start == nil {
		r.AppendNote("Did not record breakfast.")
	}
	if shift.HasBreak2() && r.Break2Start == nil {
		r.AppendNote("Did not record lunch.")
	}
}

func (e *StatusEvaluator) overrunNote(label string, allotted time.Duration, start, end *time.Time) (string, bool) {
	if start == nil || end == nil {
		return "", false
	}
	elapsed := end.Sub(*start)
	if elapsed <= allotted+e.windows.policy.BreakTolerance {
		return "", false
	}
	overrun := int((elapsed - allotted) / time.Minute)
	return fmt.Sprintf("Exceeded %s time by %d minutes.", label, overrun), true
}

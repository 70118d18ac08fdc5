package attendance

import (
	"time"

	"github.com/gocheck/attendance-backend/internal/domain/attendance"
	"github.com/gocheck/attendance-backend/internal/domain/schedule"
)

// State is the progress of one day's record.
type State string

const (
	StateNotStarted          State = "NOT_STARTED"
	StateAwaitingBreak1Start State = "AWAITING_BREAK1_START"
	StateAwaitingBreak1End   State = "AWAITING_BREAK1_END"
	StateAwaitingBreak2Start State = "AWAITING_BREAK2_START"
	StateAwaitingBreak2End   State = "AWAITING_BREAK2_END"
	StateAwaitingExit        State = "AWAITING_EXIT"
	StateComplete            State = "COMPLETE"
)

// NextAction is the single action a state expects. Empty for COMPLETE.
func (s State) NextAction() attendance.Action {
	switch s {
	case StateNotStarted:
		return attendance.ActionEntry
	case StateAwaitingBreak1Start:
		return attendance.ActionBreak1Start
	case StateAwaitingBreak1End:
		return attendance.ActionBreak1End
	case StateAwaitingBreak2Start:
		return attendance.ActionBreak2Start
	case StateAwaitingBreak2End:
		return attendance.ActionBreak2End
	case StateAwaitingExit:
		return attendance.ActionExit
	}
	return ""
}

// DeriveState reads the state of r from the timestamps already set.
// Breaks with zero duration are skipped.
func DeriveState(shift schedule.Shift, r attendance.Record) State {
	switch {
	case r.Exit != nil:
		return StateComplete
	case r.Entry == nil:
		return StateNotStarted
	case shift.HasBreak1() && r.Break1Start != nil && r.Break1End == nil:
		return StateAwaitingBreak1End
	case shift.HasBreak2() && r.Break2Start != nil && r.Break2End == nil:
		return StateAwaitingBreak2End
	case shift.HasBreak1() && r.Break1Start == nil && r.Break2Start == nil:
		return StateAwaitingBreak1Start
	case shift.HasBreak2() && r.Break2Start == nil:
		return StateAwaitingBreak2Start
	}
	return StateAwaitingExit
}

// skip moves past a break start whose window has closed.
func skip(shift schedule.Shift, s State) State {
	if s == StateAwaitingBreak1Start && shift.HasBreak2() {
		return StateAwaitingBreak2Start
	}
	return StateAwaitingExit
}

// Decision is what a scan at a given instant means for a record.
type Decision struct {
	State   State
	Action  attendance.Action
	Verdict Verdict
	Outcome attendance.Outcome
}

// Sequencer moves a day's record through its stages.
type Sequencer struct {
	windows *WindowCalculator
	status  *StatusEvaluator
}

func NewSequencer(policy Policy) *Sequencer {
	windows := NewWindowCalculator(policy)
	return &Sequencer{
		windows: windows,
		status:  NewStatusEvaluator(windows),
	}
}

func (s *Sequencer) Windows() *WindowCalculator { return s.windows }

// Plan decides the outcome of a scan at now without touching r.
func (s *Sequencer) Plan(shift schedule.Shift, r attendance.Record, now time.Time) Decision {
	state := DeriveState(shift, r)
	if state == StateComplete {
		return Decision{State: state, Outcome: attendance.OutcomeDayAlreadyComplete}
	}

	for {
		action := state.NextAction()
		verdict := s.windows.Check(action, shift, r, now)

		// A break start whose window closed is forfeited; move on to the next stage.
		if !verdict.Allowed && verdict.Reason == attendance.OutcomeTooLate &&
			(action == attendance.ActionBreak1Start || action == attendance.ActionBreak2Start) {
			state = skip(shift, state)
			continue
		}

		d := Decision{State: state, Action: action, Verdict: verdict}
		switch {
		case verdict.Allowed:
			d.Outcome = attendance.SuccessOutcome(action)
		case verdict.Reason == attendance.OutcomeTooEarly && s.rescan(shift, r, now):
			d.Outcome = attendance.OutcomeAlreadyRecorded
		default:
			d.Outcome = verdict.Reason
		}
		return d
	}
}

// Step plans the scan and, when eligible, records it on r.
func (s *Sequencer) Step(shift schedule.Shift, r *attendance.Record, now time.Time) Decision {
	d := s.Plan(shift, *r, now)
	if !d.Outcome.IsSuccess() {
		return d
	}
	r.SetStamp(d.Action, now)
	s.status.Apply(d.Action, shift, r)
	return d
}

// rescan reports whether now still falls inside the window of the most
// recently recorded stage, i.e. the scan repeats that stage.
func (s *Sequencer) rescan(shift schedule.Shift, r attendance.Record, now time.Time) bool {
	last, ok := lastRecorded(r)
	if !ok {
		return false
	}
	w, ok := s.windows.Window(last, shift, r, now)
	if !ok {
		return false
	}
	// Only the on-time part of the window, or a short grace after a late
	// stamp, counts as a repeat.
	if limit, ok := s.windows.OnTimeLimit(last, shift, r, attendance.DateOf(now)); ok {
		grace := r.Stamp(last).Add(s.windows.policy.BreakTolerance)
		if grace.After(limit) {
			limit = grace
		}
		if limit.Before(w.To) {
			w.To = limit
		}
	}
	return w.Contains(now)
}

func lastRecorded(r attendance.Record) (attendance.Action, bool) {
	var (
		last attendance.Action
		at   time.Time
	)
	for _, a := range attendance.Actions {
		if t := r.Stamp(a); t != nil && !t.Before(at) {
			last, at = a, *t
		}
	}
	return last, last != ""
}

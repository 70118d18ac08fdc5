package attendance

import (
	"time"

	"github.com/gocheck/attendance-backend/internal/domain/attendance"
	"github.com/gocheck/attendance-backend/internal/domain/schedule"
)

// Policy holds the tolerances and window offsets of the attendance rules.
type Policy struct {
	// Entry
	EntryEarlyMargin time.Duration // how long before shift start entry opens
	EntryTolerance   time.Duration // entries after start+tolerance are LATE
	EntryLateLimit   time.Duration // entries after start+limit are refused

	// Breaks
	Break1StartAfter   time.Duration // offsets from shift start
	Break1StartUntil   time.Duration
	Break1MinLength    time.Duration
	Break2StartAfter   time.Duration // offsets from the end of break 1
	Break2StartUntil   time.Duration
	Break2MidpointSlop time.Duration // half-width around the shift midpoint when break 1 has no end
	Break2MinLength    time.Duration
	BreakTolerance     time.Duration // breaks longer than duration+tolerance get an overrun note

	// Exit
	ExitEarlyMargin time.Duration
	ExitLateLimit   time.Duration
}

const (
	EntryToleranceMinutes = 10
	BreakToleranceMinutes = 5
)

func DefaultPolicy() Policy {
	return Policy{
		EntryEarlyMargin:   30 * time.Minute,
		EntryTolerance:     EntryToleranceMinutes * time.Minute,
		EntryLateLimit:     30 * time.Minute,
		Break1StartAfter:   1 * time.Hour,
		Break1StartUntil:   3 * time.Hour,
		Break1MinLength:    10 * time.Minute,
		Break2StartAfter:   2 * time.Hour,
		Break2StartUntil:   5 * time.Hour,
		Break2MidpointSlop: 1 * time.Hour,
		Break2MinLength:    20 * time.Minute,
		BreakTolerance:     BreakToleranceMinutes * time.Minute,
		ExitEarlyMargin:    30 * time.Minute,
		ExitLateLimit:      2 * time.Hour,
	}
}

// Window is an inclusive time interval.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// Empty reports whether the window closes before it opens.
func (w Window) Empty() bool {
	return w.From.After(w.To)
}

// Verdict is the eligibility of one action at one instant.
// Reason is empty when Allowed.
type Verdict struct {
	Allowed bool
	Reason  attendance.Outcome
	Window  *Window
}

func allow(w Window) Verdict {
	return Verdict{Allowed: true, Window: &w}
}

func deny(reason attendance.Outcome, w *Window) Verdict {
	return Verdict{Reason: reason, Window: w}
}

// WindowCalculator decides whether an action may be recorded at a given instant.
type WindowCalculator struct {
	policy Policy
}

func NewWindowCalculator(policy Policy) *WindowCalculator {
	return &WindowCalculator{policy: policy}
}

// Check runs the already-recorded, prerequisite and window checks in that order.
func (c *WindowCalculator) Check(action attendance.Action, shift schedule.Shift, record attendance.Record, now time.Time) Verdict {
	if record.Stamp(action) != nil {
		return deny(attendance.OutcomeAlreadyRecorded, nil)
	}
	if !c.prerequisitesMet(action, shift, record, now) {
		return deny(attendance.OutcomePrerequisiteMissing, nil)
	}

	w, ok := c.Window(action, shift, record, now)
	if !ok {
		return deny(attendance.OutcomePrerequisiteMissing, nil)
	}
	switch {
	case w.Empty(), now.After(w.To):
		return deny(attendance.OutcomeTooLate, &w)
	case now.Before(w.From):
		return deny(attendance.OutcomeTooEarly, &w)
	}
	return allow(w)
}

// Window returns the interval in which action is accepted. ok is false when
// the event the window is anchored to has not happened.
//
// Break starts close no later than the opening of the exit window, so a
// break that cannot begin before exit is forfeited instead of blocking it.
func (c *WindowCalculator) Window(action attendance.Action, shift schedule.Shift, record attendance.Record, now time.Time) (w Window, ok bool) {
	p := c.policy
	day := attendance.DateOf(now)
	start := shift.Start.On(day)
	end := shift.End.On(day)
	exitFrom := end.Add(-p.ExitEarlyMargin)
	dayClose := end.Add(p.ExitLateLimit)

	switch action {
	case attendance.ActionEntry:
		return Window{From: start.Add(-p.EntryEarlyMargin), To: start.Add(p.EntryLateLimit)}, true

	case attendance.ActionBreak1Start:
		return Window{From: start.Add(p.Break1StartAfter), To: earliest(start.Add(p.Break1StartUntil), exitFrom)}, true

	case attendance.ActionBreak1End:
		if record.Break1Start == nil {
			return Window{}, false
		}
		return Window{From: record.Break1Start.Add(p.Break1MinLength), To: dayClose}, true

	case attendance.ActionBreak2Start:
		if record.Break1End != nil {
			return Window{From: record.Break1End.Add(p.Break2StartAfter), To: earliest(record.Break1End.Add(p.Break2StartUntil), exitFrom)}, true
		}
		mid := shift.Midpoint().On(day)
		return Window{From: mid.Add(-p.Break2MidpointSlop), To: earliest(mid.Add(p.Break2MidpointSlop), exitFrom)}, true

	case attendance.ActionBreak2End:
		if record.Break2Start == nil {
			return Window{}, false
		}
		return Window{From: record.Break2Start.Add(p.Break2MinLength), To: dayClose}, true

	case attendance.ActionExit:
		return Window{From: exitFrom, To: dayClose}, true
	}
	return Window{}, false
}

func earliest(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

// OnTimeLimit is the instant after which a recorded action counts as late
// (entry) or overrun (break end).
func (c *WindowCalculator) OnTimeLimit(action attendance.Action, shift schedule.Shift, record attendance.Record, day time.Time) (time.Time, bool) {
	switch action {
	case attendance.ActionEntry:
		return shift.Start.On(day).Add(c.policy.EntryTolerance), true
	case attendance.ActionBreak1End:
		if record.Break1Start == nil {
			return time.Time{}, false
		}
		return record.Break1Start.Add(shift.Break1Duration() + c.policy.BreakTolerance), true
	case attendance.ActionBreak2End:
		if record.Break2Start == nil {
			return time.Time{}, false
		}
		return record.Break2Start.Add(shift.Break2Duration() + c.policy.BreakTolerance), true
	}
	return time.Time{}, false
}

func (c *WindowCalculator) prerequisitesMet(action attendance.Action, shift schedule.Shift, r attendance.Record, now time.Time) bool {
	switch action {
	case attendance.ActionEntry:
		return true
	case attendance.ActionBreak1Start:
		return shift.HasBreak1() && r.Entry != nil && r.Exit == nil
	case attendance.ActionBreak1End:
		return shift.HasBreak1() && r.Break1Start != nil && r.Exit == nil
	case attendance.ActionBreak2Start:
		if !shift.HasBreak2() || r.Entry == nil || r.Exit != nil {
			return false
		}
		return c.breakSettled(attendance.ActionBreak1Start, shift, r, now)
	case attendance.ActionBreak2End:
		return shift.HasBreak2() && r.Break2Start != nil && r.Exit == nil
	case attendance.ActionExit:
		if r.Entry == nil {
			return false
		}
		return c.breakSettled(attendance.ActionBreak1Start, shift, r, now) &&
			c.breakSettled(attendance.ActionBreak2Start, shift, r, now)
	}
	return false
}

// breakSettled reports whether the break opened by startAction no longer
// blocks later stages: it is not configured, it is closed, or it was never
// started and its start window has passed (forfeited).
func (c *WindowCalculator) breakSettled(startAction attendance.Action, shift schedule.Shift, r attendance.Record, now time.Time) bool {
	configured, started, ended := shift.HasBreak1(), r.Break1Start, r.Break1End
	if startAction == attendance.ActionBreak2Start {
		configured, started, ended = shift.HasBreak2(), r.Break2Start, r.Break2End
	}
	switch {
	case !configured:
		return true
	case started != nil:
		return ended != nil
	}
	return c.Forfeited(startAction, shift, r, now)
}

// Forfeited reports whether a configured break was never started and its
// start window has closed or can no longer open.
func (c *WindowCalculator) Forfeited(startAction attendance.Action, shift schedule.Shift, r attendance.Record, now time.Time) bool {
	if r.Stamp(startAction) != nil {
		return false
	}
	w, ok := c.Window(startAction, shift, r, now)
	return ok && (w.Empty() || now.After(w.To))
}

package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gocheck/attendance-backend/internal/domain/attendance"
	"github.com/gocheck/attendance-backend/internal/domain/employee"
	"github.com/gocheck/attendance-backend/internal/domain/schedule"
	"github.com/gocheck/attendance-backend/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type serviceFixture struct {
	store   *memory.Store
	service *AttendanceServiceImpl
	records attendance.AttendanceRepository
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	store := memory.NewStore()
	records := memory.NewAttendanceRepository(store)
	svc := NewAttendanceService(
		records,
		memory.NewJustificationRepository(store),
		memory.NewEmployeeRepository(store),
		memory.NewShiftRepository(store),
		DefaultPolicy(),
		time.UTC,
	)
	svc.clock = func() time.Time { return at(18, 0) }
	return serviceFixture{store: store, service: svc, records: records}
}

// createEmployee registers an employee on a new shift and returns its id.
func (f serviceFixture) createEmployee(t *testing.T, code string, shift schedule.Shift) string {
	t.Helper()
	ctx := context.Background()

	created, err := memory.NewShiftRepository(f.store).Create(ctx, shift)
	require.NoError(t, err)

	emp, err := memory.NewEmployeeRepository(f.store).Create(ctx, employee.Employee{
		Code:     code,
		FullName: "Test " + code,
		ShiftID:  created.ID,
		Active:   true,
	})
	require.NoError(t, err)
	return emp.ID
}

func standardShift() schedule.Shift {
	return schedule.Shift{
		Name:          "Day",
		Start:         schedule.NewTimeOfDay(9, 0),
		End:           schedule.NewTimeOfDay(17, 0),
		Break1Minutes: 30,
		Break2Minutes: 60,
	}
}

func noBreakShift() schedule.Shift {
	return schedule.Shift{
		Name:  "Straight",
		Start: schedule.NewTimeOfDay(9, 0),
		End:   schedule.NewTimeOfDay(17, 0),
	}
}

func (f serviceFixture) scan(t *testing.T, employeeID string, now time.Time) attendance.Evaluation {
	t.Helper()
	eval, err := f.service.Evaluate(context.Background(), employeeID, now)
	require.NoError(t, err)
	return eval
}

// ===== ENTRY TESTS =====

func TestEvaluate_Entry(t *testing.T) {
	tests := []struct {
		name        string
		now         time.Time
		wantOutcome attendance.Outcome
		wantStatus  attendance.Status
		wantEntry   bool
	}{
		{"early but inside window", at(8, 45), attendance.OutcomeEntryOK, attendance.StatusPresent, true},
		{"exactly on tolerance", at(9, 10), attendance.OutcomeEntryOK, attendance.StatusPresent, true},
		{"beyond tolerance", at(9, 12), attendance.OutcomeEntryOK, attendance.StatusLate, true},
		{"window opens", at(8, 30), attendance.OutcomeEntryOK, attendance.StatusPresent, true},
		{"too early", at(8, 0), attendance.OutcomeTooEarly, attendance.StatusAbsent, false},
		{"too late", at(9, 31), attendance.OutcomeTooLate, attendance.StatusAbsent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			empID := f.createEmployee(t, "E001", standardShift())

			eval := f.scan(t, empID, tt.now)

			assert.Equal(t, tt.wantOutcome, eval.Outcome)
			assert.Equal(t, attendance.ActionEntry, eval.Action)
			assert.Equal(t, tt.wantStatus, eval.Record.Status)
			assert.Equal(t, tt.wantEntry, eval.Record.Entry != nil)

			stored, err := f.records.GetByEmployeeAndDate(context.Background(), empID, testDay)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEntry, stored != nil)
		})
	}
}

// ===== BREAK TESTS =====

func TestEvaluate_Break1Start(t *testing.T) {
	t.Run("inside window", func(t *testing.T) {
		f := newServiceFixture(t)
		empID := f.createEmployee(t, "E001", standardShift())
		f.scan(t, empID, at(9, 0))

		eval := f.scan(t, empID, at(10, 30))

		assert.Equal(t, attendance.OutcomeBreak1StartOK, eval.Outcome)
		require.NotNil(t, eval.Record.Break1Start)
		assert.True(t, at(10, 30).Equal(*eval.Record.Break1Start))
	})

	t.Run("too early", func(t *testing.T) {
		f := newServiceFixture(t)
		empID := f.createEmployee(t, "E001", standardShift())
		f.scan(t, empID, at(9, 0))

		eval := f.scan(t, empID, at(9, 30))

		assert.Equal(t, attendance.OutcomeTooEarly, eval.Outcome)
		assert.Equal(t, attendance.ActionBreak1Start, eval.Action)
		assert.Nil(t, eval.Record.Break1Start)
	})
}

func TestEvaluate_Break1End_OverrunNote(t *testing.T) {
	tests := []struct {
		name      string
		end       time.Time
		wantNotes string
	}{
		{"overrun beyond tolerance", at(11, 10), "Exceeded breakfast time by 10 minutes."},
		{"on time", at(11, 0), ""},
		{"inside tolerance", at(11, 5), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			empID := f.createEmployee(t, "E001", standardShift())
			f.scan(t, empID, at(9, 0))
			f.scan(t, empID, at(10, 30))

			eval := f.scan(t, empID, tt.end)

			assert.Equal(t, attendance.OutcomeBreak1EndOK, eval.Outcome)
			assert.Equal(t, tt.wantNotes, eval.Record.Notes)
			assert.Equal(t, attendance.StatusPresent, eval.Record.Status)
		})
	}
}

func TestEvaluate_Break1End_TooEarlyIsRescan(t *testing.T) {
	f := newServiceFixture(t)
	empID := f.createEmployee(t, "E001", standardShift())
	f.scan(t, empID, at(9, 0))
	f.scan(t, empID, at(10, 30))

	eval := f.scan(t, empID, at(10, 35))

	assert.Equal(t, attendance.OutcomeAlreadyRecorded, eval.Outcome)
	assert.Nil(t, eval.Record.Break1End)
}

// ===== FULL DAY TESTS =====

func TestEvaluate_FullDay(t *testing.T) {
	f := newServiceFixture(t)
	empID := f.createEmployee(t, "E001", standardShift())

	steps := []struct {
		now  time.Time
		want attendance.Outcome
	}{
		{at(9, 0), attendance.OutcomeEntryOK},
		{at(10, 30), attendance.OutcomeBreak1StartOK},
		{at(11, 0), attendance.OutcomeBreak1EndOK},
		{at(13, 0), attendance.OutcomeBreak2StartOK},
		{at(14, 0), attendance.OutcomeBreak2EndOK},
		{at(17, 0), attendance.OutcomeExitOK},
	}
	for _, s := range steps {
		eval := f.scan(t, empID, s.now)
		require.Equal(t, s.want, eval.Outcome, "scan at %s", s.now.Format("15:04"))
	}

	stored, err := f.records.GetByEmployeeAndDate(context.Background(), empID, testDay)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, attendance.StatusPresent, stored.Status)
	assert.Empty(t, stored.Notes)
	assert.Equal(t, 6, stored.Version)
	assert.True(t, stored.IsClosed())
}

func TestEvaluate_LateBreakfastReturnStillReachesExit(t *testing.T) {
	f := newServiceFixture(t)
	empID := f.createEmployee(t, "E001", standardShift())
	f.scan(t, empID, at(9, 0))
	f.scan(t, empID, at(11, 0))

	back := f.scan(t, empID, at(17, 0))
	require.Equal(t, attendance.OutcomeBreak1EndOK, back.Outcome)
	assert.Equal(t, "Exceeded breakfast time by 330 minutes.", back.Record.Notes)

	// Lunch can no longer start before the exit window opens, so the next
	// scan closes the day.
	exit := f.scan(t, empID, at(17, 30))
	require.Equal(t, attendance.OutcomeExitOK, exit.Outcome)
	assert.Nil(t, exit.Record.Break2Start)
	assert.Equal(t, attendance.StatusPresent, exit.Record.Status)
	assert.Contains(t, exit.Record.Notes, "Did not record lunch.")
	assert.True(t, exit.Record.IsClosed())

	after := f.scan(t, empID, at(18, 30))
	assert.Equal(t, attendance.OutcomeDayAlreadyComplete, after.Outcome)
}

func TestEvaluate_CompletedDayRoundTrip(t *testing.T) {
	f := newServiceFixture(t)
	empID := f.createEmployee(t, "E001", noBreakShift())
	f.scan(t, empID, at(9, 12))
	f.scan(t, empID, at(17, 0))

	before, err := f.records.GetByEmployeeAndDate(context.Background(), empID, testDay)
	require.NoError(t, err)
	require.NotNil(t, before)

	for _, now := range []time.Time{at(17, 1), at(18, 59), at(23, 0)} {
		eval := f.scan(t, empID, now)
		assert.Equal(t, attendance.OutcomeDayAlreadyComplete, eval.Outcome)
		assert.Empty(t, eval.Action)
	}

	after, err := f.records.GetByEmployeeAndDate(context.Background(), empID, testDay)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, attendance.StatusLate, after.Status)
}

func TestEvaluate_NoBreakShift(t *testing.T) {
	f := newServiceFixture(t)
	empID := f.createEmployee(t, "E001", noBreakShift())

	var successes []attendance.Outcome
	for now := at(8, 0); !now.After(at(20, 0)); now = now.Add(15 * time.Minute) {
		eval := f.scan(t, empID, now)
		assert.NotContains(t, []attendance.Action{
			attendance.ActionBreak1Start, attendance.ActionBreak1End,
			attendance.ActionBreak2Start, attendance.ActionBreak2End,
		}, eval.Action)
		if eval.Outcome.IsSuccess() {
			successes = append(successes, eval.Outcome)
		}
	}

	assert.Equal(t, []attendance.Outcome{attendance.OutcomeEntryOK, attendance.OutcomeExitOK}, successes)
}

func TestEvaluate_ForfeitedBreakIsNoted(t *testing.T) {
	f := newServiceFixture(t)
	empID := f.createEmployee(t, "E001", standardShift())
	f.scan(t, empID, at(9, 0))

	// Break 1 window closed at 12:00; the lunch window around the midpoint is open.
	eval := f.scan(t, empID, at(12, 30))
	require.Equal(t, attendance.OutcomeBreak2StartOK, eval.Outcome)

	eval = f.scan(t, empID, at(13, 30))
	require.Equal(t, attendance.OutcomeBreak2EndOK, eval.Outcome)

	eval = f.scan(t, empID, at(17, 0))
	require.Equal(t, attendance.OutcomeExitOK, eval.Outcome)
	assert.Equal(t, attendance.StatusPresent, eval.Record.Status)
	assert.Equal(t, "Did not record breakfast.", eval.Record.Notes)
	assert.Nil(t, eval.Record.Break1Start)
}

// ===== IDEMPOTENCE TESTS =====

func TestEvaluate_AlreadyRecordedLeavesRecordUnchanged(t *testing.T) {
	f := newServiceFixture(t)
	empID := f.createEmployee(t, "E001", standardShift())
	f.scan(t, empID, at(9, 0))

	before, err := f.records.GetByEmployeeAndDate(context.Background(), empID, testDay)
	require.NoError(t, err)

	for _, now := range []time.Time{at(9, 0), at(9, 3), at(9, 10)} {
		eval := f.scan(t, empID, now)
		assert.Equal(t, attendance.OutcomeAlreadyRecorded, eval.Outcome)
	}

	after, err := f.records.GetByEmployeeAndDate(context.Background(), empID, testDay)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEvaluate_ConcurrentScansRecordOnce(t *testing.T) {
	f := newServiceFixture(t)
	empID := f.createEmployee(t, "E001", standardShift())

	const scans = 16
	outcomes := make([]attendance.Outcome, scans)
	var wg sync.WaitGroup
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			eval, err := f.service.Evaluate(context.Background(), empID, at(9, 0))
			assert.NoError(t, err)
			outcomes[i] = eval.Outcome
		}(i)
	}
	wg.Wait()

	var entries int
	for _, o := range outcomes {
		if o == attendance.OutcomeEntryOK {
			entries++
			continue
		}
		assert.Equal(t, attendance.OutcomeAlreadyRecorded, o)
	}
	assert.Equal(t, 1, entries)

	stored, err := f.records.GetByEmployeeAndDate(context.Background(), empID, testDay)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
}

// ===== ERROR TESTS =====

func TestEvaluate_InvalidShift(t *testing.T) {
	f := newServiceFixture(t)
	empID := f.createEmployee(t, "E001", schedule.Shift{
		Start: schedule.NewTimeOfDay(17, 0),
		End:   schedule.NewTimeOfDay(9, 0),
	})

	_, err := f.service.Evaluate(context.Background(), empID, at(9, 0))

	assert.ErrorIs(t, err, schedule.ErrInvalidShift)
}

func TestEvaluate_ShiftNotFound(t *testing.T) {
	f := newServiceFixture(t)
	emp, err := memory.NewEmployeeRepository(f.store).Create(context.Background(), employee.Employee{
		Code:     "E404",
		FullName: "No Shift",
		Active:   true,
	})
	require.NoError(t, err)

	_, err = f.service.Evaluate(context.Background(), emp.ID, at(9, 0))

	assert.ErrorIs(t, err, schedule.ErrShiftNotFound)
}

func TestEvaluateCode(t *testing.T) {
	f := newServiceFixture(t)
	f.createEmployee(t, "E001", standardShift())

	eval, err := f.service.EvaluateCode(context.Background(), "E001", at(9, 0))
	require.NoError(t, err)
	assert.Equal(t, attendance.OutcomeEntryOK, eval.Outcome)
	require.NotNil(t, eval.Record.EmployeeName)
	assert.Equal(t, "Test E001", *eval.Record.EmployeeName)

	_, err = f.service.EvaluateCode(context.Background(), "UNKNOWN", at(9, 0))
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
}

type failingAttendanceRepository struct {
	attendance.AttendanceRepository
}

func (failingAttendanceRepository) Create(context.Context, attendance.Record) (attendance.Record, error) {
	return attendance.Record{}, errors.New("connection refused")
}

func TestEvaluate_StoreUnavailable(t *testing.T) {
	f := newServiceFixture(t)
	empID := f.createEmployee(t, "E001", standardShift())
	f.service.AttendanceRepository = failingAttendanceRepository{AttendanceRepository: f.records}

	_, err := f.service.Evaluate(context.Background(), empID, at(9, 0))

	assert.ErrorIs(t, err, attendance.ErrStoreUnavailable)
	stored, err := f.records.GetByEmployeeAndDate(context.Background(), empID, testDay)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

// ===== PREVIEW TESTS =====

func TestPreview(t *testing.T) {
	f := newServiceFixture(t)
	empID := f.createEmployee(t, "E001", standardShift())

	preview, err := f.service.Preview(context.Background(), empID, at(8, 0))
	require.NoError(t, err)
	assert.Equal(t, string(StateNotStarted), preview.State)
	assert.Equal(t, string(attendance.ActionEntry), preview.NextAction)
	assert.False(t, preview.CanRecord)
	assert.Equal(t, string(attendance.OutcomeTooEarly), preview.Reason)
	require.NotNil(t, preview.WindowOpensAt)
	assert.Equal(t, at(8, 30).Format(time.RFC3339), *preview.WindowOpensAt)

	preview, err = f.service.Preview(context.Background(), empID, at(8, 45))
	require.NoError(t, err)
	assert.True(t, preview.CanRecord)
	assert.Empty(t, preview.Reason)

	// Preview never writes.
	stored, err := f.records.GetByEmployeeAndDate(context.Background(), empID, testDay)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

// ===== JUSTIFY TESTS =====

func TestJustify(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	empID := f.createEmployee(t, "E001", standardShift())
	eval := f.scan(t, empID, at(9, 12))
	require.Equal(t, attendance.StatusLate, eval.Record.Status)

	req := attendance.JustifyRequest{
		RecordID:   eval.Record.ID,
		ApproverID: "admin-1",
		Reason:     "Traffic accident on the highway",
	}

	j, err := f.service.Justify(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, j.ID)
	assert.Equal(t, "admin-1", j.ApproverID)
	assert.True(t, at(18, 0).Equal(j.CreatedAt))

	record, err := f.service.GetRecord(ctx, eval.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusJustified, record.Status)

	entries, err := f.service.ListJustifications(ctx, eval.Record.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = f.service.Justify(ctx, req)
	require.NoError(t, err)
	entries, err = f.service.ListJustifications(ctx, eval.Record.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestJustify_KeepsStatusThroughExit(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	empID := f.createEmployee(t, "E001", noBreakShift())
	eval := f.scan(t, empID, at(9, 20))

	_, err := f.service.Justify(ctx, attendance.JustifyRequest{
		RecordID:   eval.Record.ID,
		ApproverID: "admin-1",
		Reason:     "Medical appointment",
	})
	require.NoError(t, err)

	eval = f.scan(t, empID, at(17, 0))
	require.Equal(t, attendance.OutcomeExitOK, eval.Outcome)
	assert.Equal(t, attendance.StatusJustified, eval.Record.Status)
}

func TestJustify_RejectsPresentRecord(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	empID := f.createEmployee(t, "E001", noBreakShift())
	eval := f.scan(t, empID, at(8, 50))
	require.Equal(t, attendance.StatusPresent, eval.Record.Status)

	_, err := f.service.Justify(ctx, attendance.JustifyRequest{
		RecordID:   eval.Record.ID,
		ApproverID: "admin-1",
		Reason:     "Nothing to excuse",
	})
	assert.ErrorIs(t, err, attendance.ErrNotJustifiable)

	record, err := f.service.GetRecord(ctx, eval.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, record.Status)
	assert.Equal(t, eval.Record.Version, record.Version)

	entries, err := f.service.ListJustifications(ctx, eval.Record.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStatus_Justifiable(t *testing.T) {
	assert.True(t, attendance.StatusAbsent.Justifiable())
	assert.True(t, attendance.StatusLate.Justifiable())
	assert.True(t, attendance.StatusJustified.Justifiable())
	assert.False(t, attendance.StatusPresent.Justifiable())
}

func TestJustify_Errors(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.service.Justify(ctx, attendance.JustifyRequest{
		RecordID:   "missing",
		ApproverID: "admin-1",
		Reason:     "whatever",
	})
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)

	_, err = f.service.Justify(ctx, attendance.JustifyRequest{RecordID: "missing", ApproverID: "admin-1"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, attendance.ErrAttendanceNotFound)
}

func TestListByDate(t *testing.T) {
	f := newServiceFixture(t)
	first := f.createEmployee(t, "E001", standardShift())
	second := f.createEmployee(t, "E002", standardShift())
	f.scan(t, first, at(9, 0))
	f.scan(t, second, at(9, 5))

	records, err := f.service.ListByDate(context.Background(), at(15, 0))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = f.service.ListByDate(context.Background(), testDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, records)
}

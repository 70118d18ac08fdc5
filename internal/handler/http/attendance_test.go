package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gocheck/attendance-backend/internal/domain/attendance"
	"github.com/gocheck/attendance-backend/internal/domain/employee"
	"github.com/gocheck/attendance-backend/internal/domain/schedule"
	"github.com/gocheck/attendance-backend/internal/pkg/jwt"
	"github.com/gocheck/attendance-backend/internal/pkg/sse"
	"github.com/gocheck/attendance-backend/internal/repository/memory"
	attendanceService "github.com/gocheck/attendance-backend/internal/service/attendance"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type testEnv struct {
	router     *chi.Mux
	jwt        *jwt.JWTService
	clock      *time.Time
	hub        *sse.Hub
	employeeID string
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func setupHandlerTest(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	shift, err := memory.NewShiftRepository(store).Create(ctx, schedule.Shift{
		Name:          "Day",
		Start:         schedule.NewTimeOfDay(9, 0),
		End:           schedule.NewTimeOfDay(17, 0),
		Break1Minutes: 30,
		Break2Minutes: 60,
	})
	require.NoError(t, err)
	emp, err := memory.NewEmployeeRepository(store).Create(ctx, employee.Employee{
		Code:     "E001",
		FullName: "Test User",
		ShiftID:  shift.ID,
		Active:   true,
	})
	require.NoError(t, err)

	svc := attendanceService.NewAttendanceService(
		memory.NewAttendanceRepository(store),
		memory.NewJustificationRepository(store),
		memory.NewEmployeeRepository(store),
		memory.NewShiftRepository(store),
		attendanceService.DefaultPolicy(),
		time.UTC,
	)

	jwtService, err := jwt.NewJWTService(handlerTestSecret, "1h")
	require.NoError(t, err)

	clock := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	env := &testEnv{jwt: jwtService, clock: &clock, hub: sse.NewHub(), employeeID: emp.ID}
	handler := NewAttendanceHandler(svc, env.hub, func() time.Time { return *env.clock })
	env.router = NewRouter(jwtService, handler, RouterOptions{Env: "test", Version: "test"})
	return env
}

func (e *testEnv) token(t *testing.T, userID string, isAdmin bool) string {
	t.Helper()
	token, _, err := e.jwt.GenerateAccessToken(userID, isAdmin)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (e *testEnv) scan(t *testing.T, code string) attendance.EvaluationResponse {
	t.Helper()
	w, resp := e.do(t, http.MethodPost, "/api/v1/attendance/scan", map[string]string{"code": code}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var result attendance.EvaluationResponse
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	return result
}

// ===== SCAN TESTS =====

func TestAttendanceHandler_Scan(t *testing.T) {
	env := setupHandlerTest(t)

	w, resp := env.do(t, http.MethodPost, "/api/v1/attendance/scan", map[string]string{"code": "E001"}, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Welcome Test User. Entry recorded.", resp.Message)

	var result attendance.EvaluationResponse
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, string(attendance.OutcomeEntryOK), result.Outcome)
	assert.True(t, result.Recorded)
	assert.Equal(t, string(attendance.StatusPresent), result.Attendance.Status)
	require.NotNil(t, result.Attendance.Entry)
	assert.Equal(t, "2026-03-02 09:00:00", *result.Attendance.Entry)
}

func TestAttendanceHandler_Scan_IneligibleIsStillOK(t *testing.T) {
	env := setupHandlerTest(t)
	*env.clock = time.Date(2026, time.March, 2, 7, 0, 0, 0, time.UTC)

	result := env.scan(t, "E001")

	assert.Equal(t, string(attendance.OutcomeTooEarly), result.Outcome)
	assert.False(t, result.Recorded)
	assert.Nil(t, result.Attendance.Entry)
}

func TestAttendanceHandler_Scan_Errors(t *testing.T) {
	env := setupHandlerTest(t)

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"malformed body", "not an object", http.StatusBadRequest, "BAD_REQUEST"},
		{"empty code", map[string]string{"code": ""}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"invalid characters", map[string]string{"code": "E 001;"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"unknown code", map[string]string{"code": "E999"}, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := env.do(t, http.MethodPost, "/api/v1/attendance/scan", tt.body, "")
			assert.Equal(t, tt.wantCode, w.Code)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantErr, resp.Error.Code)
		})
	}
}

func TestAttendanceHandler_Preview(t *testing.T) {
	env := setupHandlerTest(t)

	path := "/api/v1/attendance/employees/" + env.employeeID + "/preview"

	w, resp := env.do(t, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)

	w, _ = env.do(t, http.MethodGet, path, nil, "garbage")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	user := env.token(t, "kiosk-1", false)
	w, resp = env.do(t, http.MethodGet, path, nil, user)
	require.Equal(t, http.StatusOK, w.Code)

	var preview attendance.PreviewResponse
	require.NoError(t, json.Unmarshal(resp.Data, &preview))
	assert.Equal(t, "NOT_STARTED", preview.State)
	assert.Equal(t, string(attendance.ActionEntry), preview.NextAction)
	assert.True(t, preview.CanRecord)

	w, _ = env.do(t, http.MethodGet, "/api/v1/attendance/employees/unknown/preview", nil, user)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ===== ADMIN TESTS =====

func TestAttendanceHandler_AdminRoutesRequireAdmin(t *testing.T) {
	env := setupHandlerTest(t)

	w, _ := env.do(t, http.MethodGet, "/api/v1/attendance?date=2026-03-02", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/v1/attendance?date=2026-03-02", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp := env.do(t, http.MethodGet, "/api/v1/attendance?date=2026-03-02", nil, env.token(t, "user-1", false))
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)
}

func TestAttendanceHandler_ListAndGet(t *testing.T) {
	env := setupHandlerTest(t)
	admin := env.token(t, "admin-1", true)
	scanned := env.scan(t, "E001")

	w, resp := env.do(t, http.MethodGet, "/api/v1/attendance?date=2026-03-02", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var list []attendance.RecordResponse
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, scanned.Attendance.ID, list[0].ID)
	require.NotNil(t, list[0].EmployeeName)
	assert.Equal(t, "Test User", *list[0].EmployeeName)

	w, _ = env.do(t, http.MethodGet, "/api/v1/attendance?date=02-03-2026", nil, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, resp = env.do(t, http.MethodGet, "/api/v1/attendance/"+scanned.Attendance.ID, nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var record attendance.RecordResponse
	require.NoError(t, json.Unmarshal(resp.Data, &record))
	assert.Equal(t, "2026-03-02", record.Date)

	w, _ = env.do(t, http.MethodGet, "/api/v1/attendance/missing", nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttendanceHandler_Justify(t *testing.T) {
	env := setupHandlerTest(t)
	admin := env.token(t, "admin-1", true)
	*env.clock = time.Date(2026, time.March, 2, 9, 20, 0, 0, time.UTC)
	scanned := env.scan(t, "E001")
	require.Equal(t, string(attendance.StatusLate), scanned.Attendance.Status)

	path := "/api/v1/attendance/" + scanned.Attendance.ID + "/justify"

	w, resp := env.do(t, http.MethodPost, path, map[string]string{"reason": "Flat tyre on the way"}, admin)
	require.Equal(t, http.StatusCreated, w.Code)
	var j attendance.JustificationResponse
	require.NoError(t, json.Unmarshal(resp.Data, &j))
	assert.Equal(t, "admin-1", j.ApproverID)
	assert.Equal(t, scanned.Attendance.ID, j.RecordID)

	w, resp = env.do(t, http.MethodGet, "/api/v1/attendance/"+scanned.Attendance.ID, nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var record attendance.RecordResponse
	require.NoError(t, json.Unmarshal(resp.Data, &record))
	assert.Equal(t, string(attendance.StatusJustified), record.Status)

	w, resp = env.do(t, http.MethodGet, "/api/v1/attendance/"+scanned.Attendance.ID+"/justifications", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []attendance.JustificationResponse
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	assert.Len(t, entries, 1)

	w, resp = env.do(t, http.MethodPost, path, map[string]string{"reason": ""}, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Details, "reason")

	w, _ = env.do(t, http.MethodPost, "/api/v1/attendance/missing/justify", map[string]string{"reason": "x"}, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttendanceHandler_Justify_PresentIsConflict(t *testing.T) {
	env := setupHandlerTest(t)
	admin := env.token(t, "admin-1", true)
	*env.clock = time.Date(2026, time.March, 2, 8, 50, 0, 0, time.UTC)
	scanned := env.scan(t, "E001")
	require.Equal(t, string(attendance.StatusPresent), scanned.Attendance.Status)

	w, resp := env.do(t, http.MethodPost, "/api/v1/attendance/"+scanned.Attendance.ID+"/justify",
		map[string]string{"reason": "Nothing to excuse"}, admin)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)

	w, resp = env.do(t, http.MethodGet, "/api/v1/attendance/"+scanned.Attendance.ID, nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var record attendance.RecordResponse
	require.NoError(t, json.Unmarshal(resp.Data, &record))
	assert.Equal(t, string(attendance.StatusPresent), record.Status)
}

func TestAttendanceHandler_EventsStreamsScans(t *testing.T) {
	env := setupHandlerTest(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/attendance/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+env.token(t, "admin-1", true))

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	nextEvent := func() (string, string) {
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && name != "":
				return name, data
			}
		}
	}

	name, _ := nextEvent()
	require.Equal(t, "connected", name)
	require.Eventually(t, func() bool {
		return env.hub.SubscriberCount(ScanEventsTopic) == 1
	}, time.Second, 10*time.Millisecond)

	env.scan(t, "E001")

	name, data := nextEvent()
	assert.Equal(t, "scan", name)
	var result attendance.EvaluationResponse
	require.NoError(t, json.Unmarshal([]byte(data), &result))
	assert.Equal(t, string(attendance.OutcomeEntryOK), result.Outcome)
	assert.Equal(t, env.employeeID, result.Attendance.EmployeeID)
}

func TestAttendanceHandler_EventsRequireAdmin(t *testing.T) {
	env := setupHandlerTest(t)

	w, _ := env.do(t, http.MethodGet, "/api/v1/attendance/events", nil, env.token(t, "user-1", false))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_Heartbeat(t *testing.T) {
	env := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

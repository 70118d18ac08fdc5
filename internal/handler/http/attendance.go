package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gocheck/attendance-backend/internal/domain/attendance"
	"github.com/gocheck/attendance-backend/internal/domain/auth"
	"github.com/gocheck/attendance-backend/internal/handler/http/response"
	"github.com/gocheck/attendance-backend/internal/pkg/jwt"
	"github.com/gocheck/attendance-backend/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

type AttendanceHandler interface {
	Scan(w http.ResponseWriter, r *http.Request)
	Preview(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Justify(w http.ResponseWriter, r *http.Request)
	Justifications(w http.ResponseWriter, r *http.Request)
	Events(w http.ResponseWriter, r *http.Request)
}

// ScanEventsTopic is the hub topic every evaluated scan is published on.
const ScanEventsTopic = "attendance.scans"

const eventsKeepalive = 30 * time.Second

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	hub               *sse.Hub
	now               func() time.Time
}

// NewAttendanceHandler builds the handler. Scans are stamped with now, which
// defaults to time.Now, and published on hub when it is not nil.
func NewAttendanceHandler(attendanceService attendance.AttendanceService, hub *sse.Hub, now func() time.Time) AttendanceHandler {
	if now == nil {
		now = time.Now
	}
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		hub:               hub,
		now:               now,
	}
}

// Scan implements AttendanceHandler. Every outcome, recorded or not, is a 200.
func (h *attendanceHandlerImpl) Scan(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	var req attendance.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode scan request", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	eval, err := h.attendanceService.EvaluateCode(r.Context(), req.Code, now)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result := attendance.NewEvaluationResponse(eval)
	if h.hub != nil {
		h.hub.Publish(ScanEventsTopic, sse.Event{Name: "scan", Data: result})
	}
	response.SuccessWithMessage(w, result.Message, result)
}

// Preview implements AttendanceHandler.
func (h *attendanceHandlerImpl) Preview(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	if employeeID == "" {
		response.BadRequest(w, "employee id is required", nil)
		return
	}

	preview, err := h.attendanceService.Preview(r.Context(), employeeID, h.now())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, preview)
}

// List implements AttendanceHandler.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := attendance.ListAttendanceFilter{Date: r.URL.Query().Get("date")}
	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	date, err := time.ParseInLocation(time.DateOnly, filter.Date, h.now().Location())
	if err != nil {
		response.BadRequest(w, "date must be in YYYY-MM-DD format", nil)
		return
	}

	records, err := h.attendanceService.ListByDate(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result := make([]attendance.RecordResponse, 0, len(records))
	for _, rec := range records {
		result = append(result, attendance.NewRecordResponse(rec))
	}
	response.Success(w, result)
}

// Get implements AttendanceHandler.
func (h *attendanceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "attendance id is required", nil)
		return
	}

	record, err := h.attendanceService.GetRecord(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, attendance.NewRecordResponse(record))
}

// Justify implements AttendanceHandler. The approver is the authenticated user.
func (h *attendanceHandlerImpl) Justify(w http.ResponseWriter, r *http.Request) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		response.HandleError(w, auth.ErrInvalidToken)
		return
	}
	approverID, ok := jwt.UserID(claims)
	if !ok {
		response.HandleError(w, auth.ErrInvalidToken)
		return
	}

	var req attendance.JustifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode justify request", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.RecordID = chi.URLParam(r, "id")
	req.ApproverID = approverID

	justification, err := h.attendanceService.Justify(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Attendance justified", attendance.NewJustificationResponse(justification))
}

// Justifications implements AttendanceHandler.
func (h *attendanceHandlerImpl) Justifications(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entries, err := h.attendanceService.ListJustifications(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result := make([]attendance.JustificationResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, attendance.NewJustificationResponse(e))
	}
	response.Success(w, result)
}

// Events streams every evaluated scan as server-sent events.
func (h *attendanceHandlerImpl) Events(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		response.NotFound(w, "Event stream is disabled")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(ScanEventsTopic)
	defer cleanup()

	fmt.Fprint(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(eventsKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				slog.Error("Failed to encode scan event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", h.now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

package attendancehandler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hrflow/internal/domain/attendance"
	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/calendar"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

type Service interface {
	Save(ctx context.Context, code string, date time.Time, in attendance.SaveInput) (attendance.Record, error)
	Get(ctx context.Context, code string, date time.Time) (attendance.Record, error)
	SummarizeDay(ctx context.Context, date time.Time) (attendance.DaySummary, error)
	SummaryPDF(ctx context.Context, date time.Time) ([]byte, error)
}

type Handler struct {
	Service Service
	Audit   shared.Auditor
	Now     func() time.Time
}

func NewHandler(svc Service, auditor shared.Auditor) *Handler {
	return &Handler{Service: svc, Audit: auditor, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAttendanceReport)).Get("/summary", h.handleSummary)
		r.With(middleware.RequirePermission(auth.PermAttendanceReport)).Get("/summary.pdf", h.handleSummaryPDF)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead)).Get("/{code}/{date}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermAttendanceWrite)).Put("/{code}/{date}", h.handleSave)
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	code := chi.URLParam(r, "code")
	if user.Role == auth.RoleEmployee && code != user.EmployeeCode {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", reqID)
		return
	}
	date, ok := pathDate(w, r, reqID)
	if !ok {
		return
	}

	rec, err := h.Service.Get(r.Context(), code, date)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, rec, reqID)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	date, ok := pathDate(w, r, reqID)
	if !ok {
		return
	}
	var payload attendance.SaveInput
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}

	code := chi.URLParam(r, "code")
	rec, err := h.Service.Save(r.Context(), code, date, payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionAttendanceSave, "attendance", code+"/"+calendar.FormatDate(date), nil, payload)
	api.Success(w, rec, reqID)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	date, err := shared.QueryDate(r, "date", h.Now())
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "validation_error", "date must be YYYY-MM-DD", reqID)
		return
	}

	summary, err := h.Service.SummarizeDay(r.Context(), date)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, summary, reqID)
}

func (h *Handler) handleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	date, err := shared.QueryDate(r, "date", h.Now())
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "validation_error", "date must be YYYY-MM-DD", reqID)
		return
	}

	pdf, err := h.Service.SummaryPDF(r.Context(), date)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=attendance-"+calendar.FormatDate(date)+".pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func pathDate(w http.ResponseWriter, r *http.Request, reqID string) (time.Time, bool) {
	date, err := calendar.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "validation_error", "date must be YYYY-MM-DD", reqID)
		return time.Time{}, false
	}
	return date, true
}

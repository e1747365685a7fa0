package holidayhandler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/calendar"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

type Service interface {
	ListHolidays(ctx context.Context, from, to time.Time) ([]calendar.Holiday, error)
	CreateHoliday(ctx context.Context, in calendar.HolidayInput) (calendar.Holiday, error)
	DeleteHoliday(ctx context.Context, id string) error
}

type Handler struct {
	Service Service
	Audit   shared.Auditor
}

func NewHandler(svc Service, auditor shared.Auditor) *Handler {
	return &Handler{Service: svc, Audit: auditor}
}

type holidayRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate"`
	Type      string `json:"type" validate:"omitempty,oneof=public regional"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/holidays", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermHolidaysRead)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermHolidaysWrite)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermHolidaysWrite)).Delete("/{holidayID}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	from, err := shared.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "validation_error", "from must be YYYY-MM-DD", reqID)
		return
	}
	to, err := shared.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "validation_error", "to must be YYYY-MM-DD", reqID)
		return
	}

	holidays, err := h.Service.ListHolidays(r.Context(), from, to)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if holidays == nil {
		holidays = []calendar.Holiday{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(holidays)))
	api.Success(w, holidays, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload holidayRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	start, err := calendar.ParseDate(payload.StartDate)
	if err != nil {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "startDate", Reason: "must be YYYY-MM-DD"}})
		return
	}
	end, err := shared.ParseDate(payload.EndDate)
	if err != nil {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "endDate", Reason: "must be YYYY-MM-DD"}})
		return
	}

	holiday, err := h.Service.CreateHoliday(r.Context(), calendar.HolidayInput{
		Name:      payload.Name,
		StartDate: start,
		EndDate:   end,
		Type:      calendar.HolidayType(payload.Type),
	})
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionHolidayCreate, "holiday", holiday.ID, nil, holiday)
	api.Created(w, holiday, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "holidayID")
	if err := h.Service.DeleteHoliday(r.Context(), id); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionHolidayDelete, "holiday", id, nil, nil)
	api.Success(w, map[string]string{"id": id, "status": "deleted"}, reqID)
}

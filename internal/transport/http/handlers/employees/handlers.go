package employeehandler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/employee"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

type Service interface {
	Get(ctx context.Context, code string) (employee.Employee, error)
	List(ctx context.Context, filter employee.Filter) ([]employee.Employee, error)
	Create(ctx context.Context, in employee.CreateInput) (employee.Employee, error)
	Deactivate(ctx context.Context, code string) (employee.Employee, error)
	Rejoin(ctx context.Context, code string) (employee.Employee, error)
}

// DirectoryRefresher reloads the employee cache on demand.
type DirectoryRefresher interface {
	RefreshDirectory(ctx context.Context) (any, error)
}

type Handler struct {
	Service   Service
	Refresher DirectoryRefresher
	Audit     shared.Auditor
}

func NewHandler(svc Service, refresher DirectoryRefresher, auditor shared.Auditor) *Handler {
	return &Handler{Service: svc, Refresher: refresher, Audit: auditor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite)).Post("/", h.handleCreate)
		r.Route("/{code}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermEmployeesRead)).Get("/", h.handleGet)
			r.With(middleware.RequirePermission(auth.PermEmployeesWrite)).Post("/deactivate", h.handleDeactivate)
			r.With(middleware.RequirePermission(auth.PermEmployeesWrite)).Post("/rejoin", h.handleRejoin)
		})
	})
	if h.Refresher != nil {
		r.With(middleware.RequirePermission(auth.PermSystemJobs)).Post("/directory/refresh", h.handleDirectoryRefresh)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	filter := employee.Filter{
		Role:       auth.Role(strings.TrimSpace(q.Get("role"))),
		Status:     strings.TrimSpace(q.Get("status")),
		Department: strings.TrimSpace(q.Get("department")),
	}
	if filter.Role != "" && !filter.Role.Valid() {
		api.Fail(w, http.StatusBadRequest, "validation_error", "unknown role", reqID)
		return
	}

	employees, err := h.Service.List(r.Context(), filter)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if employees == nil {
		employees = []employee.Employee{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(employees)))
	api.Success(w, employees, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	emp, err := h.Service.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, emp, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload employee.CreateInput
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}

	emp, err := h.Service.Create(r.Context(), payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionEmployeeCreate, "employee", emp.Code, nil, emp)
	api.Created(w, emp, reqID)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, audit.ActionEmployeeDeactive, h.Service.Deactivate)
}

func (h *Handler) handleRejoin(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, audit.ActionEmployeeRejoin, h.Service.Rejoin)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string, apply func(context.Context, string) (employee.Employee, error)) {
	reqID := middleware.GetRequestID(r.Context())
	code := chi.URLParam(r, "code")
	before, err := h.Service.Get(r.Context(), code)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	emp, err := apply(r.Context(), code)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if before.Status != emp.Status {
		shared.RecordAudit(r, h.Audit, action, "employee", code,
			map[string]string{"status": before.Status}, map[string]string{"status": emp.Status})
	}
	api.Success(w, emp, reqID)
}

func (h *Handler) handleDirectoryRefresh(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	details, err := h.Refresher.RefreshDirectory(r.Context())
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionDirectoryRefresh, "directory", "employees", nil, details)
	api.Success(w, details, reqID)
}

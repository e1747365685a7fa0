package leavehandler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrflow/internal/domain/apperr"
	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/leave"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

type Service interface {
	Get(ctx context.Context, id string) (leave.Request, error)
	List(ctx context.Context, filter leave.RequestFilter) ([]leave.Request, error)
	ListForEmployee(ctx context.Context, code string, filter leave.RequestFilter) ([]leave.Request, error)
	Create(ctx context.Context, in leave.CreateInput) (leave.Request, error)
	Approve(ctx context.Context, id string, role auth.Role, approverID string) (leave.Request, error)
	Reject(ctx context.Context, id string, role auth.Role, approverID, reason string) (leave.Request, error)
	Inbox(ctx context.Context, role auth.Role) ([]leave.Request, error)
}

type Handler struct {
	Service     Service
	Audit       shared.Auditor
	Idempotency middleware.IdempotencyBackend
}

func NewHandler(svc Service, auditor shared.Auditor, idem middleware.IdempotencyBackend) *Handler {
	return &Handler{Service: svc, Audit: auditor, Idempotency: idem}
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/requests", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermRequestsRead)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermRequestsWrite), middleware.Idempotent(h.Idempotency)).Post("/", h.handleCreate)
		r.Route("/{requestID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermRequestsRead)).Get("/", h.handleGet)
			r.With(middleware.RequirePermission(auth.PermRequestsApprove)).Post("/approve", h.handleApprove)
			r.With(middleware.RequirePermission(auth.PermRequestsApprove)).Post("/reject", h.handleReject)
		})
	})
	r.With(middleware.RequirePermission(auth.PermRequestsApprove)).Get("/inbox", h.handleInbox)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	page := shared.ParsePagination(r, shared.DefaultLimit, shared.MaxLimit)
	filter.Limit, filter.Offset = page.Limit, page.Offset

	var requests []leave.Request
	employeeCode := strings.TrimSpace(r.URL.Query().Get("employee"))
	switch {
	case user.Role == auth.RoleEmployee:
		requests, err = h.Service.ListForEmployee(r.Context(), user.EmployeeCode, filter)
	case employeeCode != "":
		requests, err = h.Service.ListForEmployee(r.Context(), employeeCode, filter)
	default:
		requests, err = h.Service.List(r.Context(), filter)
	}
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if requests == nil {
		requests = []leave.Request{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(requests)))
	api.Success(w, requests, reqID)
}

func parseFilter(r *http.Request) (leave.RequestFilter, error) {
	q := r.URL.Query()
	var filter leave.RequestFilter
	if status := strings.TrimSpace(q.Get("status")); status != "" {
		filter.Status = leave.Status(status)
		switch filter.Status {
		case leave.StatusPending, leave.StatusApproved, leave.StatusRejected:
		default:
			return filter, errInvalid("status must be one of pending approved rejected")
		}
	}
	if kinds := strings.TrimSpace(q.Get("kind")); kinds != "" {
		for _, raw := range strings.Split(kinds, ",") {
			kind := leave.Kind(strings.TrimSpace(raw))
			if !kind.Valid() {
				return filter, errInvalid("unknown request kind " + string(kind))
			}
			filter.Kinds = append(filter.Kinds, kind)
		}
	}
	var err error
	if filter.From, err = shared.ParseDate(q.Get("from")); err != nil {
		return filter, errInvalid("from must be a YYYY-MM-DD date")
	}
	if filter.To, err = shared.ParseDate(q.Get("to")); err != nil {
		return filter, errInvalid("to must be a YYYY-MM-DD date")
	}
	return filter, nil
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	req, err := h.Service.Get(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if user.Role == auth.RoleEmployee && req.EmployeeCode != user.EmployeeCode {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", reqID)
		return
	}
	api.Success(w, req, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	var payload leave.CreateInput
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	payload.EmployeeCode = user.EmployeeCode

	req, err := h.Service.Create(r.Context(), payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionRequestCreate, "request", req.ID, nil, req)
	api.Created(w, req, reqID)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	id := chi.URLParam(r, "requestID")
	req, err := h.Service.Approve(r.Context(), id, user.Role, user.EmployeeCode)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionRequestApprove, "request", id, nil, decisionSnapshot(req))
	api.Success(w, req, reqID)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	var payload rejectRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}

	id := chi.URLParam(r, "requestID")
	req, err := h.Service.Reject(r.Context(), id, user.Role, user.EmployeeCode, payload.Reason)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionRequestReject, "request", id, nil, decisionSnapshot(req))
	api.Success(w, req, reqID)
}

func (h *Handler) handleInbox(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	requests, err := h.Service.Inbox(r.Context(), user.Role)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if requests == nil {
		requests = []leave.Request{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(requests)))
	api.Success(w, requests, reqID)
}

func errInvalid(msg string) error {
	return apperr.Validation("%s", msg)
}

func decisionSnapshot(req leave.Request) map[string]any {
	return map[string]any{
		"status":          req.Status,
		"currentApprover": req.CurrentApprover,
	}
}

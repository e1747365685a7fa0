package notificationshandler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"hrflow/internal/domain/notifications"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

type Service interface {
	List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]notifications.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.handleList)
		r.Get("/count", h.handleCount)
		r.Post("/{notificationID}/read", h.handleMarkRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, shared.DefaultLimit, shared.MaxLimit)
	unreadOnly := r.URL.Query().Get("unread") == "true"
	unread, err := h.Service.CountUnread(r.Context(), user.EmployeeCode)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("notification count failed")
	}

	items, err := h.Service.List(r.Context(), user.EmployeeCode, unreadOnly, page.Limit, page.Offset)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if items == nil {
		items = []notifications.Notification{}
	}

	w.Header().Set("X-Unread-Count", strconv.Itoa(unread))
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	unread, err := h.Service.CountUnread(r.Context(), user.EmployeeCode)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]int{"unread": unread}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	notificationID := chi.URLParam(r, "notificationID")
	if err := h.Service.MarkRead(r.Context(), user.EmployeeCode, notificationID); err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	api.Success(w, map[string]string{"status": "read"}, middleware.GetRequestID(r.Context()))
}

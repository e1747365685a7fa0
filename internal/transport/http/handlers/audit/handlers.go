package audithandler

import (
	"context"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/auth"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

const exportLimit = 10000

type Service interface {
	Count(ctx context.Context, filter audit.Filter) (int, error)
	List(ctx context.Context, filter audit.Filter, includeDetails bool, limit, offset int) ([]audit.Event, error)
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAuditRead)).Get("/", h.handleListEvents)
		r.With(middleware.RequirePermission(auth.PermAuditRead)).Get("/export", h.handleExportEvents)
	})
}

func filterFrom(r *http.Request) audit.Filter {
	q := r.URL.Query()
	return audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		ActorCode:  q.Get("actor"),
	}
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 100, 500)
	includeDetails := r.URL.Query().Get("includeDetails") == "true"
	filter := filterFrom(r)
	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("audit count failed")
	}

	events, err := h.Service.List(r.Context(), filter, includeDetails, page.Limit, page.Offset)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, events, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.List(r.Context(), filterFrom(r), false, exportLimit, 0)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	logger := zerolog.Ctx(r.Context())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		logger.Warn().Err(err).Msg("audit export header failed")
	}
	for _, evt := range events {
		row := []string{evt.ID, evt.ActorCode, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.IP, evt.CreatedAt.UTC().Format(time.RFC3339)}
		if err := writer.Write(row); err != nil {
			logger.Warn().Err(err).Msg("audit export row failed")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		logger.Warn().Err(err).Msg("audit export flush failed")
	}
}

package shared

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"hrflow/internal/domain/audit"
	"hrflow/internal/requestctx"
)

// Auditor is the write side of the audit trail.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// RecordAudit writes an audit entry for the calling user. Audit failures
// never fail the request.
func RecordAudit(r *http.Request, auditor Auditor, action, entityType, entityID string, before, after any) {
	if auditor == nil {
		return
	}
	ctx := r.Context()
	actor := ""
	if user, ok := requestctx.GetUser(ctx); ok {
		actor = user.EmployeeCode
	}
	err := auditor.Record(ctx, audit.Entry{
		ActorCode:  actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  requestctx.GetRequestID(ctx),
		IP:         requestctx.GetClientIP(ctx),
		Before:     before,
		After:      after,
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("action", action).Str("entity_id", entityID).Msg("audit record failed")
	}
}

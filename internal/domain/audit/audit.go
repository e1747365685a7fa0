package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hrflow/internal/domain/apperr"
	"hrflow/internal/platform/querier"
)

const (
	ActionRequestCreate    = "request.create"
	ActionRequestApprove   = "request.approve"
	ActionRequestReject    = "request.reject"
	ActionAttendanceSave   = "attendance.save"
	ActionEmployeeCreate   = "employee.create"
	ActionEmployeeDeactive = "employee.deactivate"
	ActionEmployeeRejoin   = "employee.rejoin"
	ActionHolidayCreate    = "holiday.create"
	ActionHolidayDelete    = "holiday.delete"
	ActionMFAEnable        = "auth.mfa_enable"
	ActionDirectoryRefresh = "directory.refresh"
)

type Event struct {
	ID         string          `json:"id"`
	ActorCode  string          `json:"actorCode"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorCode  string
}

// Entry describes one audited change. RequestID is the HTTP request id.
type Entry struct {
	ActorCode  string
	Action     string
	EntityType string
	EntityID   string
	RequestID  string
	IP         string
	Before     any
	After      any
}

type Service struct {
	DB querier.Querier
}

func New(db querier.Querier) *Service {
	return &Service{DB: db}
}

func (s *Service) Record(ctx context.Context, e Entry) error {
	beforeJSON, err := marshalOptional(e.Before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalOptional(e.After)
	if err != nil {
		return err
	}

	_, err = s.DB.Exec(ctx, `
    INSERT INTO audit_events (actor_code, action, entity_type, entity_id, before_json, after_json, request_id, ip)
    VALUES (NULLIF($1,''),$2,$3,$4,$5,$6,NULLIF($7,''),NULLIF($8,''))
  `, e.ActorCode, e.Action, e.EntityType, e.EntityID, beforeJSON, afterJSON, e.RequestID, e.IP)
	if err != nil {
		return apperr.Store("record audit event", err)
	}
	return nil
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, apperr.Store("count audit events", err)
	}
	return total, nil
}

func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	selectCols := "id, COALESCE(actor_code, ''), action, entity_type, entity_id, COALESCE(request_id, ''), COALESCE(ip, ''), created_at"
	if includeDetails {
		selectCols += ", before_json, after_json"
	}
	query, args := buildBaseQuery("SELECT "+selectCols, filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Store("list audit events", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		dest := []any{&evt.ID, &evt.ActorCode, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt}
		if includeDetails {
			dest = append(dest, &evt.Before, &evt.After)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, apperr.Store("list audit events", err)
		}
		out = append(out, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("list audit events", err)
	}
	return out, nil
}

func buildBaseQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM audit_events WHERE 1=1"
	var args []any
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		query += fmt.Sprintf(" AND %s = $%d", column, len(args))
	}
	add("action", filter.Action)
	add("entity_type", filter.EntityType)
	add("entity_id", filter.EntityID)
	add("actor_code", filter.ActorCode)
	return query, args
}

func marshalOptional(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

package leave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrflow/internal/domain/apperr"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/calendar"
	"hrflow/internal/platform/querier"
)

const requestColumns = `id, employee_code, role_at_creation, kind, COALESCE(leave_mode, ''),
           start_date, end_date, start_time, end_time, COALESCE(session, ''),
           COALESCE(reason, ''), COALESCE(alternate_code, ''), status, current_approver,
           manager_approval, hr_approval, superadmin_approval, first_approver,
           created_at, updated_at`

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) GetRequestByID(ctx context.Context, id string) (Request, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+requestColumns+" FROM requests WHERE id = $1", id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, apperr.NotFound("request", id)
	}
	if err != nil {
		return Request{}, apperr.Store("get request", err)
	}
	return req, nil
}

func (s *Store) ListRequests(ctx context.Context, filter RequestFilter) ([]Request, error) {
	query := "SELECT " + requestColumns + " FROM requests WHERE 1=1"
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.EmployeeCode != "" {
		args = append(args, filter.EmployeeCode)
		query += fmt.Sprintf(" AND employee_code = $%d", len(args))
	}
	if len(filter.Kinds) > 0 {
		args = append(args, kindStrings(filter.Kinds))
		query += fmt.Sprintf(" AND kind = ANY($%d)", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND end_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND start_date <= $%d", len(args))
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	return s.queryRequests(ctx, "list requests", query, args...)
}

func (s *Store) InsertRequest(ctx context.Context, req Request) (Request, error) {
	manager, err := marshalSlot(req.ManagerApproval)
	if err != nil {
		return Request{}, err
	}
	hr, err := marshalSlot(req.HRApproval)
	if err != nil {
		return Request{}, err
	}
	superAdmin, err := marshalSlot(req.SuperAdminApproval)
	if err != nil {
		return Request{}, err
	}

	row := s.DB.QueryRow(ctx, `
    INSERT INTO requests (
      id, employee_code, role_at_creation, kind, leave_mode, start_date, end_date,
      start_time, end_time, session, reason, alternate_code, status, current_approver,
      manager_approval, hr_approval, superadmin_approval, created_at, updated_at
    )
    VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,$9,NULLIF($10,''),$11,NULLIF($12,''),$13,$14,$15,$16,$17,$18,$18)
    RETURNING `+requestColumns,
		req.ID, req.EmployeeCode, string(req.RoleAtCreation), string(req.Kind), string(req.LeaveMode),
		req.StartDate, req.EndDate, clockParam(req.StartTime), clockParam(req.EndTime), string(req.Session),
		req.Reason, req.AlternateCode, string(req.Status), string(req.CurrentApprover),
		manager, hr, superAdmin, req.CreatedAt)
	stored, err := scanRequest(row)
	if err != nil {
		return Request{}, apperr.Store("insert request", err)
	}
	return stored, nil
}

func (s *Store) UpdateRequestApproval(ctx context.Context, id string, update ApprovalUpdate) (Request, error) {
	column, err := slotColumn(update.Tier)
	if err != nil {
		return Request{}, err
	}
	approval, err := json.Marshal(update.Approval)
	if err != nil {
		return Request{}, err
	}
	var first []byte
	if update.FirstApprover != nil {
		if first, err = json.Marshal(update.FirstApprover); err != nil {
			return Request{}, err
		}
	}

	// The slot guard makes concurrent writes to one slot resolve to a single
	// winner; writes to different slots touch different columns.
	row := s.DB.QueryRow(ctx, `
    UPDATE requests
    SET `+column+` = $2,
        status = $3,
        current_approver = $4,
        first_approver = COALESCE(first_approver, $5::jsonb),
        updated_at = now()
    WHERE id = $1 AND `+column+` IS NULL AND status <> 'rejected'
    RETURNING `+requestColumns,
		id, approval, string(update.Status), string(update.CurrentApprover), first)
	updated, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.GetRequestByID(ctx, id); getErr != nil {
			return Request{}, getErr
		}
		return Request{}, ErrSlotTaken
	}
	if err != nil {
		return Request{}, apperr.Store("update request approval", err)
	}
	return updated, nil
}

func (s *Store) ListApprovedOverlapping(ctx context.Context, employeeCode string, start, end time.Time, kinds []Kind) ([]Request, error) {
	return s.queryRequests(ctx, "list approved overlapping", `
    SELECT `+requestColumns+`
    FROM requests
    WHERE employee_code = $1
      AND status = 'approved'
      AND kind = ANY($2)
      AND start_date <= $4
      AND end_date >= $3
    ORDER BY start_date
  `, employeeCode, kindStrings(kinds), calendar.DateOf(start), calendar.DateOf(end))
}

func (s *Store) queryRequests(ctx context.Context, op, query string, args ...any) ([]Request, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, apperr.Store(op, err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store(op, err)
	}
	return out, nil
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var role, kind, mode, session, status, current string
	var startTime, endTime *string
	var manager, hr, superAdmin, first []byte
	err := row.Scan(&req.ID, &req.EmployeeCode, &role, &kind, &mode,
		&req.StartDate, &req.EndDate, &startTime, &endTime, &session,
		&req.Reason, &req.AlternateCode, &status, &current,
		&manager, &hr, &superAdmin, &first,
		&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return Request{}, err
	}
	req.RoleAtCreation = auth.Role(role)
	req.Kind = Kind(kind)
	req.LeaveMode = LeaveMode(mode)
	req.Session = Session(session)
	req.Status = Status(status)
	req.CurrentApprover = Tier(current)
	if req.StartTime, err = scanClock(startTime); err != nil {
		return Request{}, err
	}
	if req.EndTime, err = scanClock(endTime); err != nil {
		return Request{}, err
	}
	if req.ManagerApproval, err = unmarshalSlot(manager); err != nil {
		return Request{}, err
	}
	if req.HRApproval, err = unmarshalSlot(hr); err != nil {
		return Request{}, err
	}
	if req.SuperAdminApproval, err = unmarshalSlot(superAdmin); err != nil {
		return Request{}, err
	}
	if len(first) > 0 {
		var fa FirstApprover
		if err := json.Unmarshal(first, &fa); err != nil {
			return Request{}, err
		}
		req.FirstApprover = &fa
	}
	return req, nil
}

func slotColumn(tier Tier) (string, error) {
	switch tier {
	case TierManager:
		return "manager_approval", nil
	case TierHR:
		return "hr_approval", nil
	case TierSuperAdmin:
		return "superadmin_approval", nil
	}
	return "", fmt.Errorf("no approval slot for tier %q", tier)
}

func marshalSlot(a *Approval) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func unmarshalSlot(raw []byte) (*Approval, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var a Approval
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func clockParam(c *calendar.ClockTime) *string {
	if c == nil {
		return nil
	}
	v := c.String()
	return &v
}

func scanClock(raw *string) (*calendar.ClockTime, error) {
	if raw == nil {
		return nil, nil
	}
	return calendar.ParseOptionalClock(*raw)
}

func kindStrings(kinds []Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

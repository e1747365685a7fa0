package leave

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"hrflow/internal/domain/apperr"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/calendar"
	"hrflow/internal/domain/employee"
)

type Directory interface {
	GetEmployee(ctx context.Context, code string) (employee.Employee, error)
	ResolveName(ctx context.Context, code string) string
	ActiveByRole(ctx context.Context, role auth.Role) ([]employee.Employee, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID, message, kind, relatedRequestID string)
}

type EventPublisher interface {
	Publish(ctx context.Context, evt DecisionEvent) error
}

type DecisionRecorder interface {
	RecordDecision(event string, tier Tier)
}

type Service struct {
	Store     StoreAPI
	Directory Directory
	Notifier  Notifier
	Events    EventPublisher
	Recorder  DecisionRecorder

	now   func() time.Time
	newID func(time.Time) string
}

func NewService(store StoreAPI, dir Directory, notifier Notifier, events EventPublisher, recorder DecisionRecorder) *Service {
	return &Service{
		Store:     store,
		Directory: dir,
		Notifier:  notifier,
		Events:    events,
		Recorder:  recorder,
		now:       time.Now,
		newID:     newRequestID(),
	}
}

func newRequestID() func(time.Time) string {
	var mu sync.Mutex
	entropy := ulid.Monotonic(rand.Reader, 0)
	return func(t time.Time) string {
		mu.Lock()
		defer mu.Unlock()
		return ulid.MustNew(ulid.Timestamp(t), entropy).String()
	}
}

func (s *Service) Get(ctx context.Context, id string) (Request, error) {
	return s.Store.GetRequestByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter RequestFilter) ([]Request, error) {
	return s.Store.ListRequests(ctx, filter)
}

func (s *Service) ListForEmployee(ctx context.Context, code string, filter RequestFilter) ([]Request, error) {
	filter.EmployeeCode = code
	return s.Store.ListRequests(ctx, filter)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Request, error) {
	req, err := s.buildRequest(in)
	if err != nil {
		return Request{}, err
	}

	requester, err := s.Directory.GetEmployee(ctx, req.EmployeeCode)
	if err != nil {
		return Request{}, err
	}
	if !requester.IsActive() {
		return Request{}, apperr.Validation("employee %s is deactivated", requester.Code)
	}
	req.RoleAtCreation = requester.Role

	supervisorOnLeave := false
	if needsSupervisorCheck(requester.Role) && requester.ManagerCode != "" {
		overlapping, err := s.Store.ListApprovedOverlapping(ctx, requester.ManagerCode, req.StartDate, req.EndDate, AbsenceKinds)
		if err != nil {
			return Request{}, err
		}
		supervisorOnLeave = len(overlapping) > 0
	}

	route := RouteFor(requester.Role, supervisorOnLeave)
	now := s.now().UTC()
	req.ID = s.newID(now)
	req.Status = StatusPending
	req.CurrentApprover = route.Next
	req.CreatedAt = now
	req.UpdatedAt = now
	for _, b := range route.Bypassed {
		req.setSlot(b.Tier, &Approval{
			Status:       SlotBypassed,
			ApproverID:   SystemApproverID,
			ApproverName: SystemApproverName,
			Reason:       b.Reason,
			Timestamp:    now,
		})
	}

	stored, err := s.Store.InsertRequest(ctx, req)
	if err != nil {
		return Request{}, err
	}

	zerolog.Ctx(ctx).Info().
		Str("request_id", stored.ID).
		Str("employee", stored.EmployeeCode).
		Str("kind", string(stored.Kind)).
		Str("next", string(stored.CurrentApprover)).
		Int("bypassed", len(route.Bypassed)).
		Msg("request created")

	s.notifyNextApprovers(ctx, stored, requester)
	s.publish(ctx, EventCreated, stored, "", "")
	s.record(EventCreated, stored.CurrentApprover)
	return stored, nil
}

func (s *Service) buildRequest(in CreateInput) (Request, error) {
	code := strings.TrimSpace(in.EmployeeCode)
	if code == "" {
		return Request{}, apperr.Validation("employee code is required")
	}
	if !in.Kind.Valid() {
		return Request{}, apperr.Validation("unknown request kind %q", in.Kind)
	}
	start, err := calendar.ParseDate(in.StartDate)
	if err != nil {
		return Request{}, apperr.Validation("invalid start date %q", in.StartDate)
	}
	end := start
	if strings.TrimSpace(in.EndDate) != "" {
		if end, err = calendar.ParseDate(in.EndDate); err != nil {
			return Request{}, apperr.Validation("invalid end date %q", in.EndDate)
		}
	}
	if end.Before(start) {
		return Request{}, apperr.Validation("end date before start date")
	}

	req := Request{
		EmployeeCode:  code,
		Kind:          in.Kind,
		StartDate:     start,
		EndDate:       end,
		Reason:        strings.TrimSpace(in.Reason),
		AlternateCode: strings.TrimSpace(in.AlternateCode),
	}
	if req.AlternateCode == code {
		return Request{}, apperr.Validation("alternate cannot be the requester")
	}

	switch in.Kind {
	case KindLeave:
		req.LeaveMode = in.LeaveMode
		if req.LeaveMode == "" {
			req.LeaveMode = ModeCasual
		}
		if req.LeaveMode != ModeCasual && req.LeaveMode != ModeUnpaid {
			return Request{}, apperr.Validation("unknown leave mode %q", in.LeaveMode)
		}
	case KindHalfDay:
		if in.Session != SessionMorning && in.Session != SessionAfternoon {
			return Request{}, apperr.Validation("half day session must be morning or afternoon")
		}
		if !end.Equal(start) {
			return Request{}, apperr.Validation("half day covers a single date")
		}
		req.Session = in.Session
	case KindPermission:
		if !end.Equal(start) {
			return Request{}, apperr.Validation("permission covers a single date")
		}
		from, err := calendar.ParseClock(in.StartTime)
		if err != nil {
			return Request{}, err
		}
		to, err := calendar.ParseClock(in.EndTime)
		if err != nil {
			return Request{}, err
		}
		if to <= from {
			return Request{}, apperr.Validation("permission end time must be after start time")
		}
		req.StartTime, req.EndTime = &from, &to
	}
	return req, nil
}

// Approve fills the approver's slot. A filled slot or a rejected request
// makes the call a no-op returning the stored state, matching Reject.
func (s *Service) Approve(ctx context.Context, id string, approverRole auth.Role, approverID string) (Request, error) {
	tier, ok := TierForRole(approverRole)
	if !ok {
		return Request{}, apperr.ErrForbidden
	}
	req, err := s.Store.GetRequestByID(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status == StatusRejected || req.Slot(tier) != nil {
		return req, nil
	}

	now := s.now().UTC()
	approval := Approval{
		Status:       SlotApproved,
		ApproverID:   approverID,
		ApproverName: s.Directory.ResolveName(ctx, approverID),
		Timestamp:    now,
	}
	next := req
	next.setSlot(tier, &approval)
	status, current := closeWorkflow(next, CloseOnAnyApproval)

	update := ApprovalUpdate{Tier: tier, Approval: approval, Status: status, CurrentApprover: current}
	if req.FirstApprover == nil {
		update.FirstApprover = &FirstApprover{
			Role:         tier,
			ApproverID:   approverID,
			ApproverName: approval.ApproverName,
			Timestamp:    now,
		}
	}

	updated, err := s.Store.UpdateRequestApproval(ctx, id, update)
	if errors.Is(err, ErrSlotTaken) {
		return s.Store.GetRequestByID(ctx, id)
	}
	if err != nil {
		return Request{}, err
	}

	zerolog.Ctx(ctx).Info().
		Str("request_id", id).
		Str("tier", string(tier)).
		Str("approver", approverID).
		Str("status", string(updated.Status)).
		Msg("request approved")

	s.notify(ctx, updated.EmployeeCode, ApprovalMessage(updated, tier, approval.ApproverName), NotifyKindApproval, id)
	if tier == TierHR || tier == TierSuperAdmin {
		s.notifyLateral(ctx, updated, tier, approverID, approval.ApproverName)
	}
	s.publish(ctx, EventApproved, updated, tier, approverID)
	s.record(EventApproved, tier)
	return updated, nil
}

// Reject checks the reason before any store access.
func (s *Service) Reject(ctx context.Context, id string, approverRole auth.Role, approverID, reason string) (Request, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Request{}, apperr.Validation("rejection reason is required")
	}
	tier, ok := TierForRole(approverRole)
	if !ok {
		return Request{}, apperr.ErrForbidden
	}
	req, err := s.Store.GetRequestByID(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status == StatusRejected || req.Slot(tier) != nil {
		return req, nil
	}

	approval := Approval{
		Status:       SlotRejected,
		ApproverID:   approverID,
		ApproverName: s.Directory.ResolveName(ctx, approverID),
		Reason:       reason,
		Timestamp:    s.now().UTC(),
	}
	updated, err := s.Store.UpdateRequestApproval(ctx, id, ApprovalUpdate{
		Tier:            tier,
		Approval:        approval,
		Status:          StatusRejected,
		CurrentApprover: TierNone,
	})
	if errors.Is(err, ErrSlotTaken) {
		return s.Store.GetRequestByID(ctx, id)
	}
	if err != nil {
		return Request{}, err
	}

	zerolog.Ctx(ctx).Info().
		Str("request_id", id).
		Str("tier", string(tier)).
		Str("approver", approverID).
		Msg("request rejected")

	s.notify(ctx, updated.EmployeeCode, RejectionMessage(updated, tier, approval.ApproverName, reason), NotifyKindReject, id)
	s.publish(ctx, EventRejected, updated, tier, approverID)
	s.record(EventRejected, tier)
	return updated, nil
}

func (s *Service) Inbox(ctx context.Context, role auth.Role) ([]Request, error) {
	tier, ok := TierForRole(role)
	if !ok {
		return nil, apperr.ErrForbidden
	}
	pending, err := s.Store.ListRequests(ctx, RequestFilter{Status: StatusPending})
	if err != nil {
		return nil, err
	}
	switch tier {
	case TierManager:
		return filterRequests(pending, ManagerInbox), nil
	case TierHR:
		return filterRequests(pending, HRInbox), nil
	}
	hrOnLeave, err := s.HROnLeaveToday(ctx)
	if err != nil {
		return nil, err
	}
	return filterRequests(pending, func(r Request) bool { return SuperAdminInbox(r, hrOnLeave) }), nil
}

// HROnLeaveToday is true when there is at least one active HR employee and
// every one of them has an approved absence covering today.
func (s *Service) HROnLeaveToday(ctx context.Context) (bool, error) {
	roster, err := s.Directory.ActiveByRole(ctx, auth.RoleHR)
	if err != nil {
		return false, err
	}
	if len(roster) == 0 {
		return false, nil
	}
	today := calendar.DateOf(s.now())
	for _, hr := range roster {
		overlapping, err := s.Store.ListApprovedOverlapping(ctx, hr.Code, today, today, AbsenceKinds)
		if err != nil {
			return false, err
		}
		if len(overlapping) == 0 {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) notifyNextApprovers(ctx context.Context, req Request, requester employee.Employee) {
	var recipients []string
	switch req.CurrentApprover {
	case TierAny, TierManager:
		if requester.ManagerCode != "" {
			recipients = append(recipients, requester.ManagerCode)
		} else {
			recipients = s.roster(ctx, auth.RoleHR)
		}
	case TierHR:
		recipients = s.roster(ctx, auth.RoleHR)
	case TierSuperAdmin:
		recipients = s.roster(ctx, auth.RoleSuperAdmin)
	}
	msg := CreationMessage(req, requester.Name)
	for _, code := range uniqueExcept(recipients, req.EmployeeCode) {
		s.notify(ctx, code, msg, NotifyKindRequest, req.ID)
	}
}

func (s *Service) notifyLateral(ctx context.Context, req Request, tier Tier, approverID, approverName string) {
	requester, err := s.Directory.GetEmployee(ctx, req.EmployeeCode)
	requesterName := req.EmployeeCode
	var recipients []string
	if err == nil {
		requesterName = requester.Name
		if requester.ManagerCode != "" {
			recipients = append(recipients, requester.ManagerCode)
		}
	}
	switch tier {
	case TierHR:
		recipients = append(recipients, s.roster(ctx, auth.RoleSuperAdmin)...)
	case TierSuperAdmin:
		recipients = append(recipients, s.roster(ctx, auth.RoleHR)...)
	}
	msg := LateralMessage(req, requesterName, tier, approverName)
	for _, code := range uniqueExcept(recipients, req.EmployeeCode, approverID) {
		s.notify(ctx, code, msg, NotifyKindInfo, req.ID)
	}
}

func (s *Service) roster(ctx context.Context, role auth.Role) []string {
	list, err := s.Directory.ActiveByRole(ctx, role)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("role", string(role)).Msg("roster lookup failed")
		return nil
	}
	codes := make([]string, 0, len(list))
	for _, emp := range list {
		codes = append(codes, emp.Code)
	}
	return codes
}

func (s *Service) notify(ctx context.Context, userID, message, kind, requestID string) {
	if s.Notifier == nil || userID == "" {
		return
	}
	s.Notifier.Notify(ctx, userID, message, kind, requestID)
}

func (s *Service) publish(ctx context.Context, eventType string, req Request, tier Tier, actorID string) {
	if s.Events == nil {
		return
	}
	evt := DecisionEvent{
		Type:            eventType,
		RequestID:       req.ID,
		EmployeeCode:    req.EmployeeCode,
		Kind:            req.Kind,
		Status:          req.Status,
		CurrentApprover: req.CurrentApprover,
		Tier:            tier,
		ActorID:         actorID,
		OccurredAt:      s.now().UTC(),
	}
	if err := s.Events.Publish(ctx, evt); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("request_id", req.ID).Str("event", eventType).Msg("publish decision event failed")
	}
}

func (s *Service) record(event string, tier Tier) {
	if s.Recorder != nil {
		s.Recorder.RecordDecision(event, tier)
	}
}

func uniqueExcept(codes []string, exclude ...string) []string {
	seen := make(map[string]struct{}, len(codes)+len(exclude))
	for _, code := range exclude {
		seen[code] = struct{}{}
	}
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

package leave

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"hrflow/internal/domain/apperr"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/employee"
)

func leaveInput(code, start, end string) CreateInput {
	return CreateInput{EmployeeCode: code, Kind: KindLeave, LeaveMode: ModeCasual, StartDate: start, EndDate: end, Reason: "family"}
}

func TestCreateHRRequesterBypassesManagerAndHR(t *testing.T) {
	f := newFixture()
	req, err := f.svc.Create(context.Background(), leaveInput("H1", "2025-03-10", "2025-03-10"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.ManagerApproval == nil || req.ManagerApproval.Status != SlotBypassed || req.ManagerApproval.Reason != ReasonRequesterHR {
		t.Fatalf("unexpected manager slot %+v", req.ManagerApproval)
	}
	if req.HRApproval == nil || req.HRApproval.Status != SlotBypassed {
		t.Fatalf("unexpected hr slot %+v", req.HRApproval)
	}
	if req.CurrentApprover != TierSuperAdmin || req.Status != StatusPending {
		t.Fatalf("expected pending for super admin, got %s/%s", req.Status, req.CurrentApprover)
	}
	if req.RoleAtCreation != auth.RoleHR {
		t.Fatalf("expected role snapshot hr, got %s", req.RoleAtCreation)
	}
	if len(f.notifier.to("SA1")) != 1 {
		t.Fatalf("expected super admin to be told about the request, got %+v", f.notifier.sent)
	}
}

func TestCreateManagerRoutesToHR(t *testing.T) {
	f := newFixture()
	req, err := f.svc.Create(context.Background(), leaveInput("M1", "2025-03-10", "2025-03-11"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.ManagerApproval == nil || req.ManagerApproval.Reason != ReasonRequesterManager {
		t.Fatalf("expected manager bypass, got %+v", req.ManagerApproval)
	}
	if req.HRApproval != nil {
		t.Fatalf("expected empty hr slot, got %+v", req.HRApproval)
	}
	if req.CurrentApprover != TierHR {
		t.Fatalf("expected hr next, got %s", req.CurrentApprover)
	}
}

func TestCreateManagerEscalatesWhenHROnLeave(t *testing.T) {
	f := newFixture()
	f.approvedAbsence("L-H1", "H1", KindOD, day(11), day(14))
	req, err := f.svc.Create(context.Background(), leaveInput("M1", "2025-03-10", "2025-03-11"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.HRApproval == nil || req.HRApproval.Status != SlotBypassed || req.HRApproval.Reason != ReasonHROnLeave {
		t.Fatalf("expected hr bypass, got %+v", req.HRApproval)
	}
	if req.HRApproval.ApproverID != SystemApproverID {
		t.Fatalf("expected system approver, got %s", req.HRApproval.ApproverID)
	}
	if req.CurrentApprover != TierSuperAdmin {
		t.Fatalf("expected super admin next, got %s", req.CurrentApprover)
	}
}

func TestCreateEmployeeWithAvailableManager(t *testing.T) {
	f := newFixture()
	req, err := f.svc.Create(context.Background(), leaveInput("E1", "2025-03-10", "2025-03-12"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.Status != StatusPending || req.ManagerApproval != nil || req.CurrentApprover != TierAny {
		t.Fatalf("unexpected routing %+v", req)
	}
	notes := f.notifier.to("M1")
	if len(notes) != 1 || notes[0].kind != NotifyKindRequest {
		t.Fatalf("expected manager to be told, got %+v", f.notifier.sent)
	}
	if len(f.events.events) != 1 || f.events.events[0].Type != EventCreated {
		t.Fatalf("expected created event, got %+v", f.events.events)
	}
}

func TestCreateEmployeeWhenManagerOnLeave(t *testing.T) {
	f := newFixture()
	f.approvedAbsence("L-M1", "M1", KindLeave, day(10), day(11))
	req, err := f.svc.Create(context.Background(), CreateInput{
		EmployeeCode: "E1", Kind: KindPermission, StartDate: "2025-03-10", StartTime: "10:00", EndTime: "11:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.ManagerApproval == nil || req.ManagerApproval.Status != SlotBypassed || req.ManagerApproval.Reason != ReasonManagerOnLeave {
		t.Fatalf("expected manager bypass, got %+v", req.ManagerApproval)
	}
	if req.CurrentApprover != TierHR {
		t.Fatalf("expected hr next, got %s", req.CurrentApprover)
	}
	if len(f.notifier.to("H1")) != 1 || len(f.notifier.to("M1")) != 0 {
		t.Fatalf("expected only hr to be told, got %+v", f.notifier.sent)
	}
}

func TestCreateIgnoresNonBlockingManagerRequests(t *testing.T) {
	f := newFixture()
	f.store.put(Request{ID: "P1", EmployeeCode: "M1", Kind: KindLeave, StartDate: day(10), EndDate: day(10), Status: StatusPending})
	f.approvedAbsence("P2", "M1", KindPermission, day(10), day(10))
	f.approvedAbsence("P3", "M1", KindLeave, day(13), day(14))

	req, err := f.svc.Create(context.Background(), leaveInput("E1", "2025-03-10", "2025-03-12"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.ManagerApproval != nil {
		t.Fatalf("pending, permission and disjoint requests must not bypass: %+v", req.ManagerApproval)
	}
}

func TestCreateAbortsOnStoreFailure(t *testing.T) {
	f := newFixture()
	f.store.failOverlap = true
	if _, err := f.svc.Create(context.Background(), leaveInput("E1", "2025-03-10", "2025-03-10")); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("expected store error, got %v", err)
	}
	f.store.failOverlap = false
	f.store.failInsert = true
	if _, err := f.svc.Create(context.Background(), leaveInput("E1", "2025-03-10", "2025-03-10")); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("expected store error, got %v", err)
	}
	if len(f.store.rows) != 0 || len(f.notifier.sent) != 0 {
		t.Fatalf("expected no writes and no notifications, got %d rows %d notes", len(f.store.rows), len(f.notifier.sent))
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	f.dir.emps["E2"] = employee.Employee{Code: "E2", Name: "Gone", Role: auth.RoleEmployee, Status: employee.StatusDeactivated}
	cases := []CreateInput{
		{EmployeeCode: "E1", Kind: Kind("sabbatical"), StartDate: "2025-03-10"},
		{EmployeeCode: "E1", Kind: KindLeave, StartDate: "10/03/2025"},
		{EmployeeCode: "E1", Kind: KindLeave, StartDate: "2025-03-12", EndDate: "2025-03-10"},
		{EmployeeCode: "E1", Kind: KindLeave, LeaveMode: LeaveMode("paid"), StartDate: "2025-03-10"},
		{EmployeeCode: "E1", Kind: KindHalfDay, StartDate: "2025-03-10"},
		{EmployeeCode: "E1", Kind: KindHalfDay, Session: SessionMorning, StartDate: "2025-03-10", EndDate: "2025-03-11"},
		{EmployeeCode: "E1", Kind: KindPermission, StartDate: "2025-03-10", StartTime: "11:00", EndTime: "10:00"},
		{EmployeeCode: "E1", Kind: KindPermission, StartDate: "2025-03-10", StartTime: "ten", EndTime: "11:00"},
		{EmployeeCode: "E1", Kind: KindOD, StartDate: "2025-03-10", AlternateCode: "E1"},
		{EmployeeCode: "E2", Kind: KindOD, StartDate: "2025-03-10"},
	}
	for i, in := range cases {
		if _, err := f.svc.Create(context.Background(), in); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	if _, err := f.svc.Create(context.Background(), leaveInput("GHOST", "2025-03-10", "")); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected unknown requester to be not found, got %v", err)
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, err := f.svc.Create(ctx, leaveInput("E1", "2025-03-10", "2025-03-12"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := f.svc.Approve(ctx, req.ID, auth.RoleManager, "M1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	stored := f.store.rows[req.ID]
	second, err := f.svc.Approve(ctx, req.ID, auth.RoleManager, "M1")
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if !reflect.DeepEqual(stored, f.store.rows[req.ID]) || !reflect.DeepEqual(first, second) {
		t.Fatal("second approval changed stored state")
	}
	if f.store.updateCalls != 1 {
		t.Fatalf("expected a single write, got %d", f.store.updateCalls)
	}
	if len(f.notifier.to("E1")) != 1 {
		t.Fatalf("expected one approval notice, got %+v", f.notifier.to("E1"))
	}
}

func TestApproveClosesOnFirstApprovalAndRecordsFirstApprover(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, _ := f.svc.Create(ctx, leaveInput("E1", "2025-03-10", "2025-03-12"))

	approved, err := f.svc.Approve(ctx, req.ID, auth.RoleManager, "M1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != StatusApproved || approved.CurrentApprover != TierNone {
		t.Fatalf("expected closed request, got %s/%s", approved.Status, approved.CurrentApprover)
	}
	if approved.ManagerApproval.ApproverName != "Meera" || !approved.ManagerApproval.Timestamp.Equal(fixedNow) {
		t.Fatalf("unexpected manager slot %+v", approved.ManagerApproval)
	}
	if approved.FirstApprover == nil || approved.FirstApprover.Role != TierManager {
		t.Fatalf("expected manager first approver, got %+v", approved.FirstApprover)
	}

	later, err := f.svc.Approve(ctx, req.ID, auth.RoleHR, "H1")
	if err != nil {
		t.Fatalf("hr approve: %v", err)
	}
	if later.FirstApprover.Role != TierManager || later.FirstApprover.ApproverID != "M1" {
		t.Fatalf("first approver must be write-once, got %+v", later.FirstApprover)
	}
	if later.HRApproval == nil || later.HRApproval.Status != SlotApproved {
		t.Fatalf("expected hr slot filled, got %+v", later.HRApproval)
	}
}

func TestApproveByHRSendsLateralNotices(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.approvedAbsence("L-M1", "M1", KindLeave, day(10), day(10))
	req, _ := f.svc.Create(ctx, leaveInput("E1", "2025-03-10", "2025-03-10"))
	f.notifier.sent = nil

	if _, err := f.svc.Approve(ctx, req.ID, auth.RoleHR, "H1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	requester := f.notifier.to("E1")
	if len(requester) != 1 || !strings.Contains(requester[0].message, "approved by HR Hema") {
		t.Fatalf("unexpected requester notice %+v", requester)
	}
	if len(f.notifier.to("M1")) != 1 || len(f.notifier.to("SA1")) != 1 {
		t.Fatalf("expected lateral notices to manager and super admin, got %+v", f.notifier.sent)
	}
	if len(f.notifier.to("H1")) != 0 {
		t.Fatal("approver must not be notified about their own action")
	}
}

func TestApproveByManagerHasNoLateralNotices(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, _ := f.svc.Create(ctx, leaveInput("E1", "2025-03-10", "2025-03-10"))
	f.notifier.sent = nil

	if _, err := f.svc.Approve(ctx, req.ID, auth.RoleManager, "M1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].userID != "E1" {
		t.Fatalf("expected only the requester notice, got %+v", f.notifier.sent)
	}
}

func TestApproverNameFallsBackToRawID(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, _ := f.svc.Create(ctx, leaveInput("E1", "2025-03-10", "2025-03-10"))
	approved, err := f.svc.Approve(ctx, req.ID, auth.RoleManager, "X42")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.ManagerApproval.ApproverName != "X42" {
		t.Fatalf("expected raw id fallback, got %q", approved.ManagerApproval.ApproverName)
	}
}

func TestApproveErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Approve(ctx, "missing", auth.RoleManager, "M1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.Approve(ctx, "missing", auth.RoleEmployee, "E1"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	req, _ := f.svc.Create(ctx, leaveInput("E1", "2025-03-10", "2025-03-10"))
	before := f.store.rows[req.ID]
	f.store.failUpdate = true
	if _, err := f.svc.Approve(ctx, req.ID, auth.RoleManager, "M1"); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("expected store error, got %v", err)
	}
	if !reflect.DeepEqual(before, f.store.rows[req.ID]) {
		t.Fatal("failed approval must not change stored state")
	}
}

func TestConcurrentApprovalOfSameSlotHasOneWinner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, _ := f.svc.Create(ctx, leaveInput("E1", "2025-03-10", "2025-03-10"))
	f.notifier.sent = nil

	// Another manager lands first between our read and our write.
	f.store.beforeUpdate = func(m *memStore, id string) {
		m.beforeUpdate = nil
		stored := m.rows[id]
		stored.ManagerApproval = &Approval{Status: SlotApproved, ApproverID: "M2", ApproverName: "Other"}
		stored.Status = StatusApproved
		m.rows[id] = stored
	}
	got, err := f.svc.Approve(ctx, req.ID, auth.RoleManager, "M1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.ManagerApproval.ApproverID != "M2" {
		t.Fatalf("expected the first writer to win, got %+v", got.ManagerApproval)
	}
	if len(f.notifier.sent) != 0 {
		t.Fatalf("losing writer must not notify, got %+v", f.notifier.sent)
	}
}

func TestApproveLosesToConcurrentReject(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, _ := f.svc.Create(ctx, leaveInput("E1", "2025-03-10", "2025-03-10"))
	f.notifier.sent = nil

	f.store.beforeUpdate = func(m *memStore, id string) {
		m.beforeUpdate = nil
		stored := m.rows[id]
		stored.HRApproval = &Approval{Status: SlotRejected, ApproverID: "H1", ApproverName: "HR", Reason: "No cover"}
		stored.Status = StatusRejected
		stored.CurrentApprover = TierNone
		m.rows[id] = stored
	}
	got, err := f.svc.Approve(ctx, req.ID, auth.RoleManager, "M1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != StatusRejected || got.ManagerApproval != nil {
		t.Fatalf("expected the rejection to stand, got %s manager=%+v", got.Status, got.ManagerApproval)
	}
	if len(f.notifier.sent) != 0 {
		t.Fatalf("losing approval must not notify, got %+v", f.notifier.sent)
	}
}

func TestRejectRequiresReasonBeforeStoreAccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, _ := f.svc.Create(ctx, leaveInput("E1", "2025-03-10", "2025-03-10"))
	calls := f.store.getCalls

	for _, reason := range []string{"", "   "} {
		if _, err := f.svc.Reject(ctx, req.ID, auth.RoleManager, "M1", reason); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	}
	if f.store.getCalls != calls || f.store.updateCalls != 0 {
		t.Fatal("blank reason must not reach the store")
	}
}

func TestRejectIsTerminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, _ := f.svc.Create(ctx, leaveInput("E1", "2025-03-10", "2025-03-10"))
	f.notifier.sent = nil

	rejected, err := f.svc.Reject(ctx, req.ID, auth.RoleManager, "M1", "Quarter close")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != StatusRejected || rejected.CurrentApprover != TierNone {
		t.Fatalf("expected rejected/none, got %s/%s", rejected.Status, rejected.CurrentApprover)
	}
	if rejected.ManagerApproval.Status != SlotRejected || rejected.ManagerApproval.Reason != "Quarter close" {
		t.Fatalf("unexpected slot %+v", rejected.ManagerApproval)
	}
	notes := f.notifier.to("E1")
	if len(notes) != 1 || notes[0].kind != NotifyKindReject || !strings.Contains(notes[0].message, "Manager Meera") || !strings.Contains(notes[0].message, "Quarter close") {
		t.Fatalf("unexpected rejection notice %+v", notes)
	}

	stored := f.store.rows[req.ID]
	after, err := f.svc.Approve(ctx, req.ID, auth.RoleHR, "H1")
	if err != nil {
		t.Fatalf("approve after reject: %v", err)
	}
	if after.Status != StatusRejected || after.HRApproval != nil {
		t.Fatalf("approve after reject must return the stored request, got %s hr=%+v", after.Status, after.HRApproval)
	}
	again, err := f.svc.Reject(ctx, req.ID, auth.RoleSuperAdmin, "SA1", "Also no")
	if err != nil {
		t.Fatalf("repeat reject: %v", err)
	}
	if again.SuperAdminApproval != nil {
		t.Fatal("repeat reject must not fill another slot")
	}
	if !reflect.DeepEqual(stored, f.store.rows[req.ID]) {
		t.Fatal("terminal request changed")
	}
}

func TestRejectAfterApprovalByAnotherTier(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, _ := f.svc.Create(ctx, leaveInput("E1", "2025-03-10", "2025-03-10"))
	if _, err := f.svc.Approve(ctx, req.ID, auth.RoleManager, "M1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	rejected, err := f.svc.Reject(ctx, req.ID, auth.RoleHR, "H1", "Coverage gap")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != StatusRejected || rejected.ManagerApproval.Status != SlotApproved {
		t.Fatalf("unexpected state %+v", rejected)
	}
}

func TestInboxByRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	empReq, _ := f.svc.Create(ctx, leaveInput("E1", "2025-03-12", "2025-03-12"))
	mgrReq, _ := f.svc.Create(ctx, leaveInput("M1", "2025-03-12", "2025-03-12"))
	hrReq, _ := f.svc.Create(ctx, leaveInput("H1", "2025-03-12", "2025-03-12"))

	ids := func(reqs []Request) []string {
		out := make([]string, 0, len(reqs))
		for _, r := range reqs {
			out = append(out, r.ID)
		}
		return out
	}

	managers, err := f.svc.Inbox(ctx, auth.RoleManager)
	if err != nil || !reflect.DeepEqual(ids(managers), []string{empReq.ID}) {
		t.Fatalf("manager inbox %v %v", ids(managers), err)
	}
	hr, err := f.svc.Inbox(ctx, auth.RoleHR)
	if err != nil || !reflect.DeepEqual(ids(hr), []string{empReq.ID, mgrReq.ID}) {
		t.Fatalf("hr inbox %v %v", ids(hr), err)
	}
	admins, err := f.svc.Inbox(ctx, auth.RoleSuperAdmin)
	if err != nil || !reflect.DeepEqual(ids(admins), []string{hrReq.ID}) {
		t.Fatalf("super admin inbox %v %v", ids(admins), err)
	}
	if _, err := f.svc.Inbox(ctx, auth.RoleEmployee); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	// HR goes on leave today: every pending request now reaches the super admin.
	f.approvedAbsence("L-H1", "H1", KindLeave, day(10), day(10))
	admins, err = f.svc.Inbox(ctx, auth.RoleSuperAdmin)
	if err != nil || len(admins) != 3 {
		t.Fatalf("expected live hr absence to widen the inbox, got %v %v", ids(admins), err)
	}
}

func TestHROnLeaveTodayNeedsWholeRoster(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.dir.emps["H2"] = employee.Employee{Code: "H2", Name: "Hari", Role: auth.RoleHR, Status: employee.StatusActive}
	f.approvedAbsence("L-H1", "H1", KindLeave, day(9), day(11))

	onLeave, err := f.svc.HROnLeaveToday(ctx)
	if err != nil || onLeave {
		t.Fatalf("one hr still at work, got %v %v", onLeave, err)
	}
	f.approvedAbsence("L-H2", "H2", KindHalfDay, day(10), day(10))
	onLeave, err = f.svc.HROnLeaveToday(ctx)
	if err != nil || !onLeave {
		t.Fatalf("whole roster absent, got %v %v", onLeave, err)
	}

	empty := newFixture()
	delete(empty.dir.emps, "H1")
	if onLeave, _ := empty.svc.HROnLeaveToday(ctx); onLeave {
		t.Fatal("no hr roster means nobody is on leave")
	}
}

func TestNotificationAndEventFailuresAreSwallowed(t *testing.T) {
	f := newFixture()
	f.events.fail = true
	f.svc.Notifier = nil
	if _, err := f.svc.Create(context.Background(), leaveInput("E1", "2025-03-10", "2025-03-10")); err != nil {
		t.Fatalf("side effects must not fail creation: %v", err)
	}
}

package leave

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"hrflow/internal/domain/auth"
	"hrflow/internal/platform/config"
	"hrflow/internal/platform/db"
)

func integrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, config.Config{DatabaseURL: dsn})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := db.Migrate(ctx, pool, "../../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func insertEmployee(t *testing.T, pool *pgxpool.Pool, role auth.Role) string {
	t.Helper()
	code := "T" + strings.ToUpper(ulid.Make().String()[16:])
	_, err := pool.Exec(context.Background(),
		"INSERT INTO employees (code, name, role) VALUES ($1, $2, $3)", code, "Store Test "+code, string(role))
	if err != nil {
		t.Fatalf("insert employee: %v", err)
	}
	return code
}

func storedRequest(t *testing.T, store *Store, employeeCode string, start, end time.Time) Request {
	t.Helper()
	req, err := store.InsertRequest(context.Background(), Request{
		ID:              ulid.Make().String(),
		EmployeeCode:    employeeCode,
		RoleAtCreation:  auth.RoleEmployee,
		Kind:            KindLeave,
		LeaveMode:       ModeCasual,
		StartDate:       start,
		EndDate:         end,
		Reason:          "family",
		Status:          StatusPending,
		CurrentApprover: TierAny,
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	})
	if err != nil {
		t.Fatalf("insert request: %v", err)
	}
	return req
}

func slotApproval(status SlotStatus, approver string) Approval {
	return Approval{
		Status:       status,
		ApproverID:   approver,
		ApproverName: "Approver " + approver,
		Timestamp:    time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	}
}

func sameApproval(a, b Approval) bool {
	return a.Status == b.Status && a.ApproverID == b.ApproverID && a.ApproverName == b.ApproverName &&
		a.Reason == b.Reason && a.Timestamp.Equal(b.Timestamp)
}

func sameFirstApprover(a, b FirstApprover) bool {
	return a.Role == b.Role && a.ApproverID == b.ApproverID && a.ApproverName == b.ApproverName &&
		a.Timestamp.Equal(b.Timestamp)
}

func TestStoreSecondApproveOnFilledSlotIntegration(t *testing.T) {
	pool := integrationPool(t)
	store := NewStore(pool)
	ctx := context.Background()
	emp := insertEmployee(t, pool, auth.RoleEmployee)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	req := storedRequest(t, store, emp, day, day)

	update := ApprovalUpdate{
		Tier:            TierManager,
		Approval:        slotApproval(SlotApproved, "MGR1"),
		Status:          StatusPending,
		CurrentApprover: TierHR,
	}
	if _, err := store.UpdateRequestApproval(ctx, req.ID, update); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	update.Approval = slotApproval(SlotApproved, "MGR2")
	if _, err := store.UpdateRequestApproval(ctx, req.ID, update); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	got, err := store.GetRequestByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ManagerApproval == nil || got.ManagerApproval.ApproverID != "MGR1" {
		t.Fatalf("expected first writer to keep the slot, got %+v", got.ManagerApproval)
	}
}

func TestStoreApproveAfterRejectIntegration(t *testing.T) {
	pool := integrationPool(t)
	store := NewStore(pool)
	ctx := context.Background()
	emp := insertEmployee(t, pool, auth.RoleEmployee)
	day := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	req := storedRequest(t, store, emp, day, day)

	reject := ApprovalUpdate{
		Tier:            TierHR,
		Approval:        slotApproval(SlotRejected, "HR1"),
		Status:          StatusRejected,
		CurrentApprover: TierNone,
	}
	if _, err := store.UpdateRequestApproval(ctx, req.ID, reject); err != nil {
		t.Fatalf("reject: %v", err)
	}
	approve := ApprovalUpdate{
		Tier:            TierManager,
		Approval:        slotApproval(SlotApproved, "MGR1"),
		Status:          StatusApproved,
		CurrentApprover: TierNone,
	}
	if _, err := store.UpdateRequestApproval(ctx, req.ID, approve); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken on rejected request, got %v", err)
	}
	got, err := store.GetRequestByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusRejected || got.ManagerApproval != nil {
		t.Fatalf("expected rejected request untouched, got status=%s manager=%+v", got.Status, got.ManagerApproval)
	}
}

func TestStoreUpdateMissingRequestIntegration(t *testing.T) {
	pool := integrationPool(t)
	store := NewStore(pool)
	_, err := store.UpdateRequestApproval(context.Background(), ulid.Make().String(), ApprovalUpdate{
		Tier:     TierManager,
		Approval: slotApproval(SlotApproved, "MGR1"),
		Status:   StatusPending,
	})
	if err == nil || errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreSlotsRoundTripIntegration(t *testing.T) {
	pool := integrationPool(t)
	store := NewStore(pool)
	ctx := context.Background()
	emp := insertEmployee(t, pool, auth.RoleManager)
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	bypassed := slotApproval(SlotBypassed, "SYSTEM")
	bypassed.Reason = "manager on leave"
	req, err := store.InsertRequest(ctx, Request{
		ID:              ulid.Make().String(),
		EmployeeCode:    emp,
		RoleAtCreation:  auth.RoleManager,
		Kind:            KindLeave,
		LeaveMode:       ModeCasual,
		StartDate:       day,
		EndDate:         day,
		Status:          StatusPending,
		CurrentApprover: TierHR,
		ManagerApproval: &bypassed,
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if req.ManagerApproval == nil || !sameApproval(*req.ManagerApproval, bypassed) {
		t.Fatalf("bypassed slot changed on insert: %+v", req.ManagerApproval)
	}
	if req.HRApproval != nil || req.SuperAdminApproval != nil || req.FirstApprover != nil {
		t.Fatalf("expected empty slots to read back nil, got %+v", req)
	}

	approved := slotApproval(SlotApproved, "HR1")
	first := &FirstApprover{
		Role:         TierHR,
		ApproverID:   "HR1",
		ApproverName: "Approver HR1",
		Timestamp:    approved.Timestamp,
	}
	if _, err := store.UpdateRequestApproval(ctx, req.ID, ApprovalUpdate{
		Tier:            TierHR,
		Approval:        approved,
		Status:          StatusApproved,
		CurrentApprover: TierNone,
		FirstApprover:   first,
	}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, err := store.GetRequestByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ManagerApproval == nil || !sameApproval(*got.ManagerApproval, bypassed) {
		t.Fatalf("bypassed slot changed: %+v", got.ManagerApproval)
	}
	if got.HRApproval == nil || !sameApproval(*got.HRApproval, approved) {
		t.Fatalf("hr slot changed: %+v", got.HRApproval)
	}
	if got.FirstApprover == nil || !sameFirstApprover(*got.FirstApprover, *first) {
		t.Fatalf("first approver changed: %+v", got.FirstApprover)
	}

	// A later slot write must not replace the recorded first approver.
	later := &FirstApprover{Role: TierSuperAdmin, ApproverID: "SA1", ApproverName: "Approver SA1", Timestamp: approved.Timestamp}
	if _, err := store.UpdateRequestApproval(ctx, req.ID, ApprovalUpdate{
		Tier:            TierSuperAdmin,
		Approval:        slotApproval(SlotApproved, "SA1"),
		Status:          StatusApproved,
		CurrentApprover: TierNone,
		FirstApprover:   later,
	}); err != nil {
		t.Fatalf("super admin approve: %v", err)
	}
	got, err = store.GetRequestByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FirstApprover == nil || got.FirstApprover.ApproverID != "HR1" {
		t.Fatalf("expected first approver HR1, got %+v", got.FirstApprover)
	}
}

func TestStoreApprovedOverlapBoundariesIntegration(t *testing.T) {
	pool := integrationPool(t)
	store := NewStore(pool)
	ctx := context.Background()
	emp := insertEmployee(t, pool, auth.RoleHR)
	start := time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 8, 0, 0, 0, 0, time.UTC)
	req := storedRequest(t, store, emp, start, end)
	if _, err := store.UpdateRequestApproval(ctx, req.ID, ApprovalUpdate{
		Tier:            TierSuperAdmin,
		Approval:        slotApproval(SlotApproved, "SA1"),
		Status:          StatusApproved,
		CurrentApprover: TierNone,
	}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	cases := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"touches start", start.AddDate(0, 0, -2), start, 1},
		{"touches end", end, end.AddDate(0, 0, 3), 1},
		{"inside", start.AddDate(0, 0, 1), start.AddDate(0, 0, 1), 1},
		{"day before", start.AddDate(0, 0, -1), start.AddDate(0, 0, -1), 0},
		{"day after", end.AddDate(0, 0, 1), end.AddDate(0, 0, 1), 0},
	}
	for _, tc := range cases {
		got, err := store.ListApprovedOverlapping(ctx, emp, tc.start, tc.end, AbsenceKinds)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if len(got) != tc.want {
			t.Fatalf("%s: expected %d overlapping, got %d", tc.name, tc.want, len(got))
		}
	}

	got, err := store.ListApprovedOverlapping(ctx, emp, start, end, []Kind{KindPermission})
	if err != nil {
		t.Fatalf("permission filter: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected kind filter to exclude leave, got %d", len(got))
	}
}

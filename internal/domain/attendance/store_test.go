package attendance

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"hrflow/internal/domain/apperr"
	"hrflow/internal/domain/calendar"
	"hrflow/internal/platform/config"
	"hrflow/internal/platform/db"
)

func integrationStore(t *testing.T) (*Store, *pgxpool.Pool, string) {
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
	code := "A" + strings.ToUpper(ulid.Make().String()[16:])
	if _, err := pool.Exec(ctx, "INSERT INTO employees (code, name, role) VALUES ($1, $2, 'employee')", code, "Attendance "+code); err != nil {
		t.Fatalf("insert employee: %v", err)
	}
	return NewStore(pool), pool, code
}

func TestStoreUpsertReplacesRowIntegration(t *testing.T) {
	store, pool, code := integrationStore(t)
	ctx := context.Background()
	day := time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC)

	first := Record{EmployeeCode: code, Date: day, InTime: clock(t, "10:20"), OutTime: clock(t, "19:00")}
	first.Metrics = ComputeMetrics(first.InTime, first.OutTime)
	if err := store.UpsertAttendance(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}
	second := Record{EmployeeCode: code, Date: day, InTime: clock(t, "09:55"), OutTime: nil}
	second.Metrics = ComputeMetrics(second.InTime, second.OutTime)
	if err := store.UpsertAttendance(ctx, second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	var rows int
	var status string
	var late int
	if err := pool.QueryRow(ctx,
		"SELECT count(*), max(status), max(late_minutes) FROM attendance WHERE employee_code = $1 AND date = $2",
		code, day).Scan(&rows, &status, &late); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected one row per employee-day, got %d", rows)
	}
	if status != second.Metrics.Status || late != second.Metrics.LateMinutes {
		t.Fatalf("expected derived columns from second save, got status=%s late=%d", status, late)
	}

	got, err := store.GetAttendance(ctx, code, day)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if calendar.FormatClock(got.InTime) != "09:55" {
		t.Fatalf("expected in time 09:55, got %q", calendar.FormatClock(got.InTime))
	}
	if got.OutTime != nil {
		t.Fatalf("expected cleared out time, got %v", got.OutTime)
	}
	if !got.Date.Equal(day) {
		t.Fatalf("expected date %s, got %s", day, got.Date)
	}
}

func TestStoreGetMissingIntegration(t *testing.T) {
	store, _, code := integrationStore(t)
	_, err := store.GetAttendance(context.Background(), code, time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreListForDateIntegration(t *testing.T) {
	store, _, code := integrationStore(t)
	ctx := context.Background()
	day := time.Date(2026, 5, 13, 0, 0, 0, 0, time.UTC)
	rec := Record{EmployeeCode: code, Date: day, InTime: clock(t, "10:00"), OutTime: clock(t, "19:00")}
	rec.Metrics = ComputeMetrics(rec.InTime, rec.OutTime)
	if err := store.UpsertAttendance(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	list, err := store.ListAttendanceForDate(ctx, day)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := false
	for _, r := range list {
		if r.EmployeeCode == code {
			found = true
		}
		if !r.Date.Equal(day) {
			t.Fatalf("unexpected date %s in list", r.Date)
		}
	}
	if !found {
		t.Fatalf("expected %s in list for %s", code, calendar.FormatDate(day))
	}
}

package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"hrflow/internal/domain/apperr"
	"hrflow/internal/domain/calendar"
	"hrflow/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) GetAttendance(ctx context.Context, employeeCode string, date time.Time) (Record, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT employee_code, date, in_time, out_time, updated_at
    FROM attendance
    WHERE employee_code = $1 AND date = $2
  `, employeeCode, calendar.DateOf(date))
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, apperr.NotFound("attendance", employeeCode+"@"+calendar.FormatDate(date))
	}
	if err != nil {
		return Record{}, apperr.Store("get attendance", err)
	}
	return rec, nil
}

// UpsertAttendance writes the raw times together with their derived metrics.
// The derived columns exist for reporting queries; reads recompute them.
func (s *Store) UpsertAttendance(ctx context.Context, rec Record) error {
	m := rec.Metrics
	_, err := s.DB.Exec(ctx, `
    INSERT INTO attendance (
      employee_code, date, in_time, out_time, status, working_hours, late_minutes,
      permission_minutes, extra_minutes, is_late, is_permission, is_extra, is_full_present, updated_at
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now())
    ON CONFLICT (employee_code, date) DO UPDATE SET
      in_time = EXCLUDED.in_time,
      out_time = EXCLUDED.out_time,
      status = EXCLUDED.status,
      working_hours = EXCLUDED.working_hours,
      late_minutes = EXCLUDED.late_minutes,
      permission_minutes = EXCLUDED.permission_minutes,
      extra_minutes = EXCLUDED.extra_minutes,
      is_late = EXCLUDED.is_late,
      is_permission = EXCLUDED.is_permission,
      is_extra = EXCLUDED.is_extra,
      is_full_present = EXCLUDED.is_full_present,
      updated_at = now()
  `, rec.EmployeeCode, calendar.DateOf(rec.Date), clockParam(rec.InTime), clockParam(rec.OutTime),
		m.Status, m.WorkingHours, m.LateMinutes, m.PermissionMinutes, m.ExtraMinutes,
		m.IsLate, m.IsPermission, m.IsExtra, m.IsFullPresent)
	if err != nil {
		return apperr.Store("upsert attendance", err)
	}
	return nil
}

func (s *Store) ListAttendanceForDate(ctx context.Context, date time.Time) ([]Record, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT employee_code, date, in_time, out_time, updated_at
    FROM attendance
    WHERE date = $1
    ORDER BY employee_code
  `, calendar.DateOf(date))
	if err != nil {
		return nil, apperr.Store("list attendance", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperr.Store("scan attendance", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("list attendance", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var in, out *string
	if err := row.Scan(&rec.EmployeeCode, &rec.Date, &in, &out, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	var err error
	if in != nil {
		if rec.InTime, err = calendar.ParseOptionalClock(*in); err != nil {
			return Record{}, err
		}
	}
	if out != nil {
		if rec.OutTime, err = calendar.ParseOptionalClock(*out); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}

func clockParam(c *calendar.ClockTime) *string {
	if c == nil {
		return nil
	}
	v := c.String()
	return &v
}

package calendar

import (
	"context"
	"time"

	"hrflow/internal/domain/apperr"
	"hrflow/internal/platform/querier"
)

type StoreAPI interface {
	ListHolidays(ctx context.Context, from, to time.Time) ([]Holiday, error)
	CreateHoliday(ctx context.Context, h Holiday) (Holiday, error)
	DeleteHoliday(ctx context.Context, id string) error
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) ListHolidays(ctx context.Context, from, to time.Time) ([]Holiday, error) {
	query := `
    SELECT id, name, start_date, end_date, type, created_at
    FROM holidays
  `
	var args []any
	if !from.IsZero() && !to.IsZero() {
		query += " WHERE start_date <= $2 AND end_date >= $1"
		args = append(args, from, to)
	}
	query += " ORDER BY start_date"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Store("list holidays", err)
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Name, &h.StartDate, &h.EndDate, &h.Type, &h.CreatedAt); err != nil {
			return nil, apperr.Store("scan holiday", err)
		}
		h.Days, _ = InclusiveDays(h.StartDate, h.EndDate)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) CreateHoliday(ctx context.Context, h Holiday) (Holiday, error) {
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO holidays (name, start_date, end_date, type)
    VALUES ($1,$2,$3,$4)
    RETURNING id, created_at
  `, h.Name, h.StartDate, h.EndDate, h.Type).Scan(&h.ID, &h.CreatedAt); err != nil {
		return Holiday{}, apperr.Store("insert holiday", err)
	}
	return h, nil
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM holidays WHERE id = $1", id)
	if err != nil {
		return apperr.Store("delete holiday", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("holiday", id)
	}
	return nil
}

package notifications

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"hrflow/internal/domain/apperr"
	"hrflow/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateNotification(ctx context.Context, n Notification) (Notification, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO notifications (user_code, kind, message, request_id)
    VALUES ($1,$2,$3,NULLIF($4,''))
    RETURNING id, created_at
  `, n.UserID, n.Kind, n.Message, n.RequestID).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return Notification{}, apperr.Store("create notification", err)
	}
	return n, nil
}

func (s *Store) UserEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := s.DB.QueryRow(ctx, "SELECT COALESCE(email, '') FROM employees WHERE code = $1", userID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("employee", userID)
	}
	if err != nil {
		return "", apperr.Store("user email", err)
	}
	return email, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]Notification, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, user_code, kind, message, COALESCE(request_id, ''), read_at, created_at
    FROM notifications
    WHERE user_code = $1 AND ($2 = false OR read_at IS NULL)
    ORDER BY created_at DESC
    LIMIT $3 OFFSET $4
  `, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, apperr.Store("list notifications", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &n.RequestID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, apperr.Store("list notifications", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("list notifications", err)
	}
	return out, nil
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM notifications WHERE user_code = $1 AND read_at IS NULL", userID).Scan(&total); err != nil {
		return 0, apperr.Store("count notifications", err)
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, userID, notificationID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = COALESCE(read_at, now())
    WHERE user_code = $1 AND id = $2
  `, userID, notificationID)
	if err != nil {
		return apperr.Store("mark notification read", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification", notificationID)
	}
	return nil
}

package notifications

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"hrflow/internal/domain/apperr"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Dispatcher runs work off the request path. The jobs service satisfies it.
type Dispatcher interface {
	Enqueue(jobType string, run func(context.Context) (any, error)) bool
}

type Service struct {
	store  StoreAPI
	Mailer Mailer
	Jobs   Dispatcher
}

func New(store StoreAPI, mailer Mailer, jobs Dispatcher) *Service {
	return &Service{store: store, Mailer: mailer, Jobs: jobs}
}

// Notify stores an inbox entry and queues the matching email. Nothing here
// is allowed to fail the caller, so errors end up in the log.
func (s *Service) Notify(ctx context.Context, userID, message, kind, relatedRequestID string) {
	n, err := s.Create(ctx, Notification{UserID: userID, Kind: kind, Message: message, RequestID: relatedRequestID})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user", userID).Str("kind", kind).Msg("notification create failed")
		return
	}
	s.sendEmail(ctx, n)
}

func (s *Service) Create(ctx context.Context, n Notification) (Notification, error) {
	n.UserID = strings.TrimSpace(n.UserID)
	n.Message = strings.TrimSpace(n.Message)
	if n.UserID == "" {
		return Notification{}, apperr.Validation("notification user is required")
	}
	if n.Message == "" {
		return Notification{}, apperr.Validation("notification message is required")
	}
	if n.Kind == "" {
		n.Kind = KindInfo
	}
	return s.store.CreateNotification(ctx, n)
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, userID, unreadOnly, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}

func (s *Service) sendEmail(ctx context.Context, n Notification) {
	if s.Mailer == nil {
		return
	}
	logger := zerolog.Ctx(ctx).With().Str("user", n.UserID).Str("notification_id", n.ID).Logger()
	deliver := func(ctx context.Context) (any, error) {
		email, err := s.store.UserEmail(ctx, n.UserID)
		if err != nil {
			return nil, err
		}
		if email == "" {
			return map[string]any{"skipped": "no email"}, nil
		}
		if err := s.Mailer.Send(ctx, email, subjectFor(n.Kind), n.Message); err != nil {
			return nil, err
		}
		return map[string]any{"to": email, "notificationId": n.ID}, nil
	}

	if s.Jobs == nil {
		if _, err := deliver(ctx); err != nil {
			logger.Warn().Err(err).Msg("notification email send failed")
		}
		return
	}
	if !s.Jobs.Enqueue(JobSendEmail, func(jobCtx context.Context) (any, error) {
		return deliver(logger.WithContext(jobCtx))
	}) {
		logger.Warn().Msg("notification email dropped, job queue full")
	}
}

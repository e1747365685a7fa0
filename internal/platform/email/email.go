package email

import (
	"context"

	"hrflow/internal/domain/notifications"
	"hrflow/internal/platform/config"
)

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, to, subject, body string) error {
	return nil
}

// New picks the mailer for cfg.EmailProvider. Real providers sit behind a
// circuit breaker so a dead relay does not back up the job queue.
func New(cfg config.Config, sesClient SESClient) notifications.Mailer {
	switch cfg.EmailProvider {
	case config.EmailProviderSMTP:
		if cfg.SMTPHost == "" {
			return noopMailer{}
		}
		return WithBreaker("smtp", NewSMTP(cfg))
	case config.EmailProviderSES:
		if sesClient == nil {
			return noopMailer{}
		}
		return WithBreaker("ses", NewSES(sesClient, cfg.EmailFrom))
	}
	return noopMailer{}
}

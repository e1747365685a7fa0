package email

import (
	"context"
	"strings"

	"gopkg.in/gomail.v2"

	"hrflow/internal/domain/notifications"
	"hrflow/internal/platform/config"
)

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpMailer struct {
	from   string
	dialer sender
}

func NewSMTP(cfg config.Config) notifications.Mailer {
	return &smtpMailer{
		from:   cfg.EmailFrom,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
	}
}

func (s *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.dialer.DialAndSend(buildMessage(s.from, to, subject, body))
}

func buildMessage(from, to, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}

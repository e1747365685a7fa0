package email

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"hrflow/internal/domain/notifications"
)

type breakerMailer struct {
	next notifications.Mailer
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker trips after at least 10 sends in a window with half of them
// failing, then rejects sends with gobreaker.ErrOpenState for 30s.
func WithBreaker(name string, next notifications.Mailer) notifications.Mailer {
	settings := gobreaker.Settings{
		Name:        "mailer-" + name,
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
	}
	return &breakerMailer{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breakerMailer) Send(ctx context.Context, to, subject, body string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, to, subject, body)
	})
	return err
}

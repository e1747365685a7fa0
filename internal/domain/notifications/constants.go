package notifications

import "time"

// Kinds mirror the values the approval router passes to Notify.
const (
	KindRequest   = "request"
	KindApproval  = "approval"
	KindRejection = "rejection"
	KindInfo      = "info"
)

const JobSendEmail = "notification_email"

type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Kind      string     `json:"kind"`
	Message   string     `json:"message"`
	RequestID string     `json:"requestId,omitempty"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func subjectFor(kind string) string {
	switch kind {
	case KindRequest:
		return "Approval needed"
	case KindApproval:
		return "Request approved"
	case KindRejection:
		return "Request rejected"
	}
	return "Request update"
}

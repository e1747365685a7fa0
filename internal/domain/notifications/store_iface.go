package notifications

import "context"

type StoreAPI interface {
	CreateNotification(ctx context.Context, n Notification) (Notification, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	UserEmail(ctx context.Context, userID string) (string, error)
}

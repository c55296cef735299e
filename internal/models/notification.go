package models

import "time"

type NotificationType string

const (
	NotificationTaskAssigned NotificationType = "task_assigned"
	NotificationTaskUpdated  NotificationType = "task_updated"
	NotificationTaskDeleted  NotificationType = "task_deleted"
)

// NotificationTTL is the retention horizon of a notification.
const NotificationTTL = 15 * 24 * time.Hour

type Notification struct {
	ID        int64            `json:"id" db:"id"`
	UserID    int64            `json:"user_id" db:"user_id"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"type" db:"type"`
	TaskID    *int64           `json:"task_id,omitempty" db:"task_id"`
	ProjectID *int64           `json:"project_id,omitempty" db:"project_id"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	ExpiresAt time.Time        `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the notification is past its retention horizon at now.
func (n *Notification) Expired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}

package jobs

import (
	"context"
	"log"

	"taskhub/internal/services"
)

const NamePurgeNotifications = "purge-notifications"

// PurgeNotifications deletes notifications past their expiry.
type PurgeNotifications struct {
	Notifications services.NotificationService
}

func (j *PurgeNotifications) Name() string { return NamePurgeNotifications }

func (j *PurgeNotifications) Run(ctx context.Context) error {
	n, err := j.Notifications.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	log.Printf("[jobs][%s] removed %d", NamePurgeNotifications, n)
	return nil
}

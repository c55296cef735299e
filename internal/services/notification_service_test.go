package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/models"
)

func seedNotifications(t *testing.T, repo *fakeNotifications, now time.Time) {
	t.Helper()
	items := []*models.Notification{
		{UserID: aliceID, Message: "one", Type: models.NotificationTaskAssigned, CreatedAt: now, ExpiresAt: now.Add(models.NotificationTTL)},
		{UserID: aliceID, Message: "two", Type: models.NotificationTaskUpdated, CreatedAt: now, ExpiresAt: now.Add(models.NotificationTTL)},
		{UserID: bobID, Message: "three", Type: models.NotificationTaskDeleted, CreatedAt: now, ExpiresAt: now.Add(models.NotificationTTL)},
		{UserID: bobID, Message: "old", Type: models.NotificationTaskUpdated, CreatedAt: now.Add(-20 * 24 * time.Hour), ExpiresAt: now.Add(-5 * 24 * time.Hour)},
	}
	require.NoError(t, repo.CreateMany(context.Background(), items))
}

func TestNotificationService_Inbox(t *testing.T) {
	repo := &fakeNotifications{}
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seedNotifications(t, repo, now)
	svc := NewNotificationService(repo).(*notificationService)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	inbox, err := svc.ListOwn(ctx, alice)
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 2)
	assert.Equal(t, "two", inbox.Notifications[0].Message)
	assert.Equal(t, 2, inbox.UnreadCount)

	n, err := svc.MarkRead(ctx, alice, inbox.Notifications[0].ID)
	require.NoError(t, err)
	assert.True(t, n.IsRead)

	count, err := svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, svc.MarkAllRead(ctx, alice))
	count, err = svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	// admin count is global and skips bob's expired row
	count, err = svc.UnreadCount(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNotificationService_EmptyInboxIsNotNil(t *testing.T) {
	svc := NewNotificationService(&fakeNotifications{})
	inbox, err := svc.ListOwn(context.Background(), alice)
	require.NoError(t, err)
	assert.NotNil(t, inbox.Notifications)
	assert.Empty(t, inbox.Notifications)
}

func TestNotificationService_Ownership(t *testing.T) {
	repo := &fakeNotifications{}
	seedNotifications(t, repo, time.Now())
	svc := NewNotificationService(repo)
	ctx := context.Background()

	_, err := svc.MarkRead(ctx, bob, 1)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "not authorized", Reason(err))

	err = svc.Delete(ctx, bob, 1)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.MarkRead(ctx, alice, 999)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "notification not found", Reason(err))

	require.NoError(t, svc.Delete(ctx, admin, 1), "admin may delete any notification")
	_, err = repo.FindByID(ctx, 1, time.Now())
	assert.Error(t, err)
}

func TestNotificationService_ListAllIsAdminOnly(t *testing.T) {
	repo := &fakeNotifications{}
	seedNotifications(t, repo, time.Now())
	svc := NewNotificationService(repo)

	_, err := svc.ListAll(context.Background(), alice)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "only admin can view all notifications", Reason(err))

	items, err := svc.ListAll(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, items, 3, "expired rows stay hidden until purged")
}

func TestNotificationService_ExpiryFollowsServiceClock(t *testing.T) {
	repo := &fakeNotifications{}
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seedNotifications(t, repo, created)
	svc := NewNotificationService(repo).(*notificationService)
	ctx := context.Background()

	svc.now = func() time.Time { return created.Add(models.NotificationTTL - time.Second) }
	inbox, err := svc.ListOwn(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, inbox.Notifications, 2)
	assert.Equal(t, 2, inbox.UnreadCount)

	svc.now = func() time.Time { return created.Add(models.NotificationTTL) }
	inbox, err = svc.ListOwn(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, inbox.Notifications)
	assert.Zero(t, inbox.UnreadCount)

	_, err = svc.MarkRead(ctx, alice, 1)
	require.ErrorIs(t, err, ErrNotFound)

	count, err := svc.UnreadCount(ctx, admin)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotificationService_PurgeExpired(t *testing.T) {
	repo := &fakeNotifications{}
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seedNotifications(t, repo, now)
	svc := NewNotificationService(repo).(*notificationService)
	svc.now = func() time.Time { return now }

	n, err := svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, repo.all(), 3)
}

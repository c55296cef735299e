package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"taskhub/internal/models"
)

// NotificationRepository hides rows expired as of now from every read. The
// caller supplies now, the same clock that stamped ExpiresAt.
type NotificationRepository interface {
	CreateMany(ctx context.Context, items []*models.Notification) error
	FindByID(ctx context.Context, id int64, now time.Time) (*models.Notification, error)
	ListByUser(ctx context.Context, userID int64, limit int, now time.Time) ([]models.Notification, error)
	ListAll(ctx context.Context, limit int, now time.Time) ([]models.Notification, error)
	// CountUnread counts for one user, or for everyone when userID is nil.
	CountUnread(ctx context.Context, userID *int64, now time.Time) (int, error)
	MarkRead(ctx context.Context, id int64, now time.Time) error
	MarkAllRead(ctx context.Context, userID int64) error
	Delete(ctx context.Context, id int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, user_id, message, type, task_id, project_id, is_read, created_at, expires_at`

func (r *notificationRepository) CreateMany(ctx context.Context, items []*models.Notification) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const q = `
		INSERT INTO notifications (user_id, message, type, task_id, project_id, is_read, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)
		RETURNING id`
	for _, n := range items {
		if err := tx.QueryRowxContext(ctx, q,
			n.UserID, n.Message, n.Type, n.TaskID, n.ProjectID, n.CreatedAt, n.ExpiresAt,
		).Scan(&n.ID); err != nil {
			return fmt.Errorf("insert notification: %w", mapPQError(err))
		}
	}
	return tx.Commit()
}

func (r *notificationRepository) FindByID(ctx context.Context, id int64, now time.Time) (*models.Notification, error) {
	n := &models.Notification{}
	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1 AND expires_at > $2`
	if err := r.db.GetContext(ctx, n, q, id, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int64, limit int, now time.Time) ([]models.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE user_id = $1 AND expires_at > $3
		ORDER BY created_at DESC, id DESC LIMIT $2`
	var out []models.Notification
	if err := r.db.SelectContext(ctx, &out, q, userID, limit, now); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (r *notificationRepository) ListAll(ctx context.Context, limit int, now time.Time) ([]models.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE expires_at > $2
		ORDER BY created_at DESC, id DESC LIMIT $1`
	var out []models.Notification
	if err := r.db.SelectContext(ctx, &out, q, limit, now); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID *int64, now time.Time) (int, error) {
	var count int
	var err error
	if userID == nil {
		err = r.db.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM notifications WHERE is_read = FALSE AND expires_at > $1`, now)
	} else {
		err = r.db.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE AND expires_at > $2`, *userID, now)
	}
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id int64, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND expires_at > $2`, id, now)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

func (r *notificationRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *notificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	return res.RowsAffected()
}

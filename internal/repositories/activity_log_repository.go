package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"taskhub/internal/models"
)

// ActivityLogRepository is append-only: there is no update or delete.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error)
}

type activityLogRepository struct {
	db *sqlx.DB
}

func NewActivityLogRepository(db *sqlx.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	const q = `
		INSERT INTO activity_logs (task_id, updated_by, changes, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowxContext(ctx, q, entry.TaskID, entry.UpdatedBy, entry.Changes, entry.UpdatedAt).
		Scan(&entry.ID); err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

func (r *activityLogRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT a.id, a.task_id, a.updated_by, a.changes, a.updated_at,
		       COALESCE(t.title, '') AS task_title,
		       COALESCE(u.name, '') AS updated_by_name
		FROM activity_logs a
		LEFT JOIN tasks t ON t.id = a.task_id
		LEFT JOIN users u ON u.id = a.updated_by`
	args := []interface{}{}
	if filter.TaskID != nil {
		q += ` WHERE a.task_id = $1`
		args = append(args, *filter.TaskID)
	}
	q += fmt.Sprintf(` ORDER BY a.updated_at DESC, a.id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var out []models.ActivityLog
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	return out, nil
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"taskhub/internal/models"
)

type TaskRepository interface {
	Store(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id int64) (*models.Task, error)
	FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	// SoftDelete returns ErrAlreadyDeleted when the row is already marked deleted.
	SoftDelete(ctx context.Context, id int64, at time.Time) error

	ListDueBetween(ctx context.Context, from, to time.Time) ([]models.Task, error)
	ListTouchedInProject(ctx context.Context, projectID int64, from, to time.Time) ([]models.Task, error)
}

type taskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `id, title, description, status, priority, due_date, project_id,
       assigned_to, created_by, is_deleted, created_at, updated_at`

func (r *taskRepository) Store(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (
			title, description, status, priority, due_date, project_id,
			assigned_to, created_by, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, query,
		task.Title, task.Description, task.Status, task.Priority, task.DueDate, task.ProjectID,
		task.AssignedTo, task.CreatedBy, task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", mapPQError(err))
	}
	return nil
}

func (r *taskRepository) FindByID(ctx context.Context, id int64) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task := &models.Task{}
	if err := r.db.GetContext(ctx, task, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (r *taskRepository) FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	baseQuery := `SELECT ` + taskColumns + ` FROM tasks`

	conditions := []string{"is_deleted = FALSE"}
	args := []interface{}{}
	argID := 1

	if filter.AssignedTo != nil {
		conditions = append(conditions, fmt.Sprintf("assigned_to = $%d", argID))
		args = append(args, *filter.AssignedTo)
		argID++
	}
	if filter.ProjectID != nil {
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", argID))
		args = append(args, *filter.ProjectID)
		argID++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argID))
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Priority != nil {
		conditions = append(conditions, fmt.Sprintf("priority = $%d", argID))
		args = append(args, *filter.Priority)
		argID++
	}

	baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	baseQuery += " ORDER BY created_at DESC"

	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, baseQuery, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks SET
			title=$1, description=$2, status=$3, priority=$4, due_date=$5,
			project_id=$6, assigned_to=$7, updated_at=$8
		WHERE id=$9 AND is_deleted = FALSE`
	res, err := r.db.ExecContext(ctx, query,
		task.Title, task.Description, task.Status, task.Priority, task.DueDate,
		task.ProjectID, task.AssignedTo, task.UpdatedAt, task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", mapPQError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET is_deleted = TRUE, updated_at = $2 WHERE id = $1 AND is_deleted = FALSE`, id, at)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// distinguish a missing row from a concurrent delete
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return ErrAlreadyDeleted
}

func (r *taskRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]models.Task, error) {
	q := `SELECT ` + taskColumns + `
FROM tasks
WHERE is_deleted = FALSE
  AND assigned_to IS NOT NULL
  AND due_date BETWEEN $1 AND $2
  AND status <> 'Done'
ORDER BY due_date ASC`
	var out []models.Task
	if err := r.db.SelectContext(ctx, &out, q, from, to); err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	return out, nil
}

func (r *taskRepository) ListTouchedInProject(ctx context.Context, projectID int64, from, to time.Time) ([]models.Task, error) {
	q := `SELECT ` + taskColumns + `
FROM tasks
WHERE project_id = $1
  AND is_deleted = FALSE
  AND (created_at BETWEEN $2 AND $3
    OR updated_at BETWEEN $2 AND $3
    OR due_date BETWEEN $2 AND $3)
ORDER BY updated_at DESC`
	var out []models.Task
	if err := r.db.SelectContext(ctx, &out, q, projectID, from, to); err != nil {
		return nil, fmt.Errorf("list project tasks: %w", err)
	}
	return out, nil
}

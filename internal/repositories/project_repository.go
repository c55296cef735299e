package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"taskhub/internal/models"
)

type ProjectRepository interface {
	Create(ctx context.Context, p *models.Project) error
	FindByID(ctx context.Context, id int64) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	// ListPage returns one page of active projects, newest first, and the active total.
	ListPage(ctx context.Context, limit, offset int) ([]models.Project, int, error)
	Update(ctx context.Context, p *models.Project) error
	SoftDelete(ctx context.Context, id int64) error
}

const projectColumns = `id, name, description, created_by, members, is_deleted, created_at, updated_at`

type projectRepository struct {
	db *sqlx.DB
}

func NewProjectRepository(db *sqlx.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, p *models.Project) error {
	const q = `
		INSERT INTO projects (name, description, created_by, members)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	if p.Members == nil {
		p.Members = pq.Int64Array{}
	}
	if err := r.db.QueryRowxContext(ctx, q, p.Name, p.Description, p.CreatedBy, p.Members).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("insert project: %w", mapPQError(err))
	}
	return nil
}

func (r *projectRepository) FindByID(ctx context.Context, id int64) (*models.Project, error) {
	q := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	p := &models.Project{}
	if err := r.db.GetContext(ctx, p, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (r *projectRepository) List(ctx context.Context) ([]models.Project, error) {
	q := `SELECT ` + projectColumns + ` FROM projects WHERE is_deleted = FALSE ORDER BY created_at DESC`
	var out []models.Project
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

func (r *projectRepository) ListPage(ctx context.Context, limit, offset int) ([]models.Project, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM projects WHERE is_deleted = FALSE`); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}
	q := `SELECT ` + projectColumns + ` FROM projects WHERE is_deleted = FALSE
		ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	var out []models.Project
	if err := r.db.SelectContext(ctx, &out, q, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list projects page: %w", err)
	}
	return out, total, nil
}

func (r *projectRepository) Update(ctx context.Context, p *models.Project) error {
	const q = `
		UPDATE projects SET name = $1, description = $2, members = $3, updated_at = NOW()
		WHERE id = $4 AND is_deleted = FALSE
		RETURNING updated_at`
	if p.Members == nil {
		p.Members = pq.Int64Array{}
	}
	err := r.db.QueryRowxContext(ctx, q, p.Name, p.Description, p.Members, p.ID).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update project: %w", mapPQError(err))
	}
	return nil
}

func (r *projectRepository) SoftDelete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

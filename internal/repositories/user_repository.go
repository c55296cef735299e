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

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)

	// refresh helpers
	UpdateRefresh(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	GetByRefreshToken(ctx context.Context, token string) (*models.User, error)
	ClearRefresh(ctx context.Context, userID int64) error

	// Telegram helpers
	SetTelegramChat(ctx context.Context, userID int64, chatID *int64) error
	GetByTelegramChat(ctx context.Context, chatID int64) (*models.User, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, email, password_hash, role_id, telegram_chat_id,
	refresh_token, refresh_expires_at, created_at`

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (name, email, password_hash, role_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, q, user.Name, user.Email, user.PasswordHash, user.RoleID).
		Scan(&user.ID, &user.CreatedAt); err != nil {
		return fmt.Errorf("insert user: %w", mapPQError(err))
	}
	return nil
}

func (r *userRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	u := &models.User{}
	if err := r.db.GetContext(ctx, u, `SELECT `+userColumns+` FROM users WHERE `+where, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "lower(email) = lower($1)", email)
}

func (r *userRepository) GetByTelegramChat(ctx context.Context, chatID int64) (*models.User, error) {
	return r.getOne(ctx, "telegram_chat_id = $1", chatID)
}

func (r *userRepository) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, "refresh_token = $1", token)
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := r.db.SelectContext(ctx, &out, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (r *userRepository) UpdateRefresh(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = $1, refresh_expires_at = $2 WHERE id = $3`,
		token, expiresAt, userID)
	return err
}

func (r *userRepository) ClearRefresh(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = NULL, refresh_expires_at = NULL WHERE id = $1`, userID)
	return err
}

func (r *userRepository) SetTelegramChat(ctx context.Context, userID int64, chatID *int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET telegram_chat_id = $1 WHERE id = $2`, chatID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// TelegramLink is a one-time code that binds a Telegram chat to a user.
type TelegramLink struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Code      string    `db:"code"`
	ExpiresAt time.Time `db:"expires_at"`
	Used      bool      `db:"used"`
	CreatedAt time.Time `db:"created_at"`
}

type TelegramLinkRepository interface {
	Create(ctx context.Context, userID int64, code string, ttl time.Duration) (*TelegramLink, error)
	// UseByCode marks the code used and returns it; unknown, used or
	// expired codes give ErrNotFound.
	UseByCode(ctx context.Context, code string) (*TelegramLink, error)
}

type telegramLinkRepository struct{ db *sqlx.DB }

func NewTelegramLinkRepository(db *sqlx.DB) TelegramLinkRepository {
	return &telegramLinkRepository{db: db}
}

func (r *telegramLinkRepository) Create(ctx context.Context, userID int64, code string, ttl time.Duration) (*TelegramLink, error) {
	var l TelegramLink
	err := r.db.GetContext(ctx, &l, `
		INSERT INTO telegram_links (user_id, code, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, code, expires_at, used, created_at`,
		userID, code, time.Now().Add(ttl))
	if err != nil {
		return nil, fmt.Errorf("insert telegram link: %w", mapPQError(err))
	}
	return &l, nil
}

func (r *telegramLinkRepository) UseByCode(ctx context.Context, code string) (*TelegramLink, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	var l TelegramLink
	err = tx.GetContext(ctx, &l, `
		SELECT id, user_id, code, expires_at, used, created_at
		FROM telegram_links
		WHERE code = $1
		FOR UPDATE`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if l.Used || time.Now().After(l.ExpiresAt) {
		return nil, ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `UPDATE telegram_links SET used = TRUE WHERE id = $1`, l.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	l.Used = true
	return &l, nil
}

package repositories

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role_id INTEGER NOT NULL DEFAULT 10,
		telegram_chat_id BIGINT,
		refresh_token TEXT UNIQUE,
		refresh_expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_by BIGINT NOT NULL REFERENCES users(id),
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`ALTER TABLE projects ADD COLUMN IF NOT EXISTS members BIGINT[] NOT NULL DEFAULT '{}'`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Todo' CHECK (status IN ('Todo','In-Progress','Done')),
		priority TEXT NOT NULL DEFAULT 'Medium' CHECK (priority IN ('Low','Medium','High')),
		due_date TIMESTAMPTZ,
		project_id BIGINT NOT NULL REFERENCES projects(id),
		assigned_to BIGINT REFERENCES users(id),
		created_by BIGINT NOT NULL REFERENCES users(id),
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS tasks_assigned_to_idx ON tasks (assigned_to) WHERE NOT is_deleted`,
	`CREATE TABLE IF NOT EXISTS activity_logs (
		id BIGSERIAL PRIMARY KEY,
		task_id BIGINT NOT NULL,
		updated_by BIGINT NOT NULL,
		changes JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS activity_logs_task_idx ON activity_logs (task_id, updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		message TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('task_assigned','task_updated','task_deleted')),
		task_id BIGINT,
		project_id BIGINT,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS notifications_expires_idx ON notifications (expires_at)`,
	`CREATE TABLE IF NOT EXISTS telegram_links (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		code TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		used BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	log.Printf("[db][migrate] applying %d statements", len(migrations))
	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	log.Printf("[db][migrate] done")
	return nil
}

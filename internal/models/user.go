package models

import "time"

type User struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"` // не отдаём наружу
	RoleID       int    `json:"role_id" db:"role_id"`

	// chat for task notifications, nil when Telegram is not linked
	TelegramChatID *int64 `json:"-" db:"telegram_chat_id"`

	// refresh-хранение в БД
	RefreshToken     *string    `json:"-" db:"refresh_token"`
	RefreshExpiresAt *time.Time `json:"-" db:"refresh_expires_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

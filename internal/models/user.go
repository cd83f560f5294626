package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user. ChatID is the Telegram chat the
// user's reminders are delivered to.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ChatID       int64     `json:"chat_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

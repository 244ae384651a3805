package models

import "time"

// ProfileStatus represents the lifecycle state of a VPN profile
type ProfileStatus string

const (
	// StatusActive means the peer is provisioned and usable
	StatusActive ProfileStatus = "active"
	// StatusSuspended means the peer is temporarily disabled
	StatusSuspended ProfileStatus = "suspended"
)

// User represents a Telegram user known to the bot
type User struct {
	ID         int64   `db:"id"`
	TelegramID int64   `db:"telegram_id"`
	Token      *string `db:"token"`
}

// Profile represents a named VPN profile owned by one user
type Profile struct {
	ID         int64         `db:"id"`
	TelegramID int64         `db:"telegram_id"`
	Name       string        `db:"name"`
	Status     ProfileStatus `db:"status"`
	CreatedAt  time.Time     `db:"created_at"`
}

// Token represents a prepaid access token issued administratively
type Token struct {
	ID        int64     `db:"id"`
	Token     string    `db:"token"`
	Balance   int64     `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
}

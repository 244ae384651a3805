package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"wg-access-bot/internal/errors"
	"wg-access-bot/internal/models"
)

// UserRepository manages user records and their token links
type UserRepository interface {
	// Ensure creates the user on first contact and returns the record
	Ensure(ctx context.Context, telegramID int64) (models.User, error)
	// LinkToken links an existing token to the user and returns its balance
	LinkToken(ctx context.Context, telegramID int64, token string) (int64, error)
	// UnlinkToken clears the user's token link and returns the token
	UnlinkToken(ctx context.Context, telegramID int64) (string, error)
	// LinkedToken returns the user's token record, or nil if none is linked
	LinkedToken(ctx context.Context, telegramID int64) (*models.Token, error)
	// TelegramIDsWithoutCredit lists users lacking a positive-balance token
	TelegramIDsWithoutCredit(ctx context.Context) ([]int64, error)
}

type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a Postgres-backed user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Ensure(ctx context.Context, telegramID int64) (models.User, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (telegram_id) VALUES ($1) ON CONFLICT (telegram_id) DO NOTHING`,
		telegramID)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to ensure user: %w", err)
	}

	var user models.User
	err = r.db.GetContext(ctx, &user,
		`SELECT id, telegram_id, token FROM users WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (r *userRepository) LinkToken(ctx context.Context, telegramID int64, token string) (int64, error) {
	user, err := r.Ensure(ctx, telegramID)
	if err != nil {
		return 0, err
	}

	if user.Token != nil {
		return 0, &errors.ConflictError{
			Kind:    "token",
			Key:     *user.Token,
			Message: "user already has a linked token",
		}
	}

	var balance int64
	err = r.db.GetContext(ctx, &balance,
		`SELECT balance FROM access_tokens WHERE token = $1`, token)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, &errors.NotFoundError{Kind: "token", Key: token}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up token: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE users SET token = $1 WHERE telegram_id = $2`, token, telegramID)
	if err != nil {
		return 0, fmt.Errorf("failed to link token: %w", err)
	}
	return balance, nil
}

func (r *userRepository) UnlinkToken(ctx context.Context, telegramID int64) (string, error) {
	user, err := r.Ensure(ctx, telegramID)
	if err != nil {
		return "", err
	}

	if user.Token == nil {
		return "", &errors.NotFoundError{Kind: "token link", Key: fmt.Sprintf("%d", telegramID)}
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE users SET token = NULL WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return "", fmt.Errorf("failed to unlink token: %w", err)
	}
	return *user.Token, nil
}

func (r *userRepository) LinkedToken(ctx context.Context, telegramID int64) (*models.Token, error) {
	var token models.Token
	err := r.db.GetContext(ctx, &token,
		`SELECT t.id, t.token, t.balance, t.created_at
		 FROM users u JOIN access_tokens t ON t.token = u.token
		 WHERE u.telegram_id = $1`, telegramID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load linked token: %w", err)
	}
	return &token, nil
}

func (r *userRepository) TelegramIDsWithoutCredit(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		`SELECT u.telegram_id FROM users u
		 LEFT JOIN access_tokens t ON t.token = u.token
		 WHERE t.token IS NULL OR t.balance <= 0`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users without credit: %w", err)
	}
	return ids, nil
}

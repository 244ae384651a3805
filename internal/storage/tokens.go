package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"wg-access-bot/internal/errors"
	"wg-access-bot/internal/models"
)

// TokenRepository manages prepaid access tokens; it is driven by the
// administrative CLI, never by the chat surface
type TokenRepository interface {
	// Generate creates a new random token with the given balance
	Generate(ctx context.Context, balance int64) (models.Token, error)
	// AdjustBalance adds delta to the token's balance, clamping at zero,
	// and returns the new balance
	AdjustBalance(ctx context.Context, token string, delta int64) (int64, error)
	// SetBalance replaces the token's balance
	SetBalance(ctx context.Context, token string, balance int64) error
	// Get returns a token record
	Get(ctx context.Context, token string) (models.Token, error)
	// List returns all tokens in creation order
	List(ctx context.Context) ([]models.Token, error)
}

type tokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository creates a Postgres-backed token repository
func NewTokenRepository(db *sqlx.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Generate(ctx context.Context, balance int64) (models.Token, error) {
	if balance < 0 {
		return models.Token{}, &errors.ValidationError{
			Field:   "balance",
			Message: "balance must be non-negative",
		}
	}

	value := strings.ReplaceAll(uuid.NewString(), "-", "")

	var token models.Token
	err := r.db.GetContext(ctx, &token,
		`INSERT INTO access_tokens (token, balance)
		 VALUES ($1, $2)
		 RETURNING id, token, balance, created_at`,
		value, balance)
	if err != nil {
		return models.Token{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

func (r *tokenRepository) AdjustBalance(ctx context.Context, token string, delta int64) (int64, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance,
		`UPDATE access_tokens SET balance = GREATEST(balance + $1, 0)
		 WHERE token = $2
		 RETURNING balance`,
		delta, token)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, &errors.NotFoundError{Kind: "token", Key: token}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return balance, nil
}

func (r *tokenRepository) SetBalance(ctx context.Context, token string, balance int64) error {
	if balance < 0 {
		return &errors.ValidationError{
			Field:   "balance",
			Message: "balance must be non-negative",
		}
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE access_tokens SET balance = $1 WHERE token = $2`,
		balance, token)
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return &errors.NotFoundError{Kind: "token", Key: token}
	}
	return nil
}

func (r *tokenRepository) Get(ctx context.Context, token string) (models.Token, error) {
	var record models.Token
	err := r.db.GetContext(ctx, &record,
		`SELECT id, token, balance, created_at FROM access_tokens WHERE token = $1`,
		token)
	if stderrors.Is(err, sql.ErrNoRows) {
		return models.Token{}, &errors.NotFoundError{Kind: "token", Key: token}
	}
	if err != nil {
		return models.Token{}, fmt.Errorf("failed to load token: %w", err)
	}
	return record, nil
}

func (r *tokenRepository) List(ctx context.Context) ([]models.Token, error) {
	var tokens []models.Token
	err := r.db.SelectContext(ctx, &tokens,
		`SELECT id, token, balance, created_at FROM access_tokens ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	return tokens, nil
}

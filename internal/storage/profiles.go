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

// ProfileRepository manages VPN profile records
type ProfileRepository interface {
	// Create inserts a new active profile for (telegramID, name)
	Create(ctx context.Context, telegramID int64, name string) (models.Profile, error)
	// Get returns the profile for (telegramID, name)
	Get(ctx context.Context, telegramID int64, name string) (models.Profile, error)
	// List returns the user's profiles in insertion order
	List(ctx context.Context, telegramID int64) ([]models.Profile, error)
	// Delete removes the profile for (telegramID, name)
	Delete(ctx context.Context, telegramID int64, name string) error
	// SetStatus flips the profile status
	SetStatus(ctx context.Context, telegramID int64, name string, status models.ProfileStatus) error
	// ListActive returns the user's active profiles
	ListActive(ctx context.Context, telegramID int64) ([]models.Profile, error)
}

type profileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a Postgres-backed profile repository
func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, telegramID int64, name string) (models.Profile, error) {
	existing, err := r.Get(ctx, telegramID, name)
	if err == nil {
		return existing, &errors.ConflictError{
			Kind:    "profile",
			Key:     name,
			Message: "profile already exists",
		}
	}
	if !errors.IsNotFound(err) {
		return models.Profile{}, err
	}

	var profile models.Profile
	err = r.db.GetContext(ctx, &profile,
		`INSERT INTO vpn_profiles (telegram_id, name, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, telegram_id, name, status, created_at`,
		telegramID, name, models.StatusActive)
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile, nil
}

func (r *profileRepository) Get(ctx context.Context, telegramID int64, name string) (models.Profile, error) {
	var profile models.Profile
	err := r.db.GetContext(ctx, &profile,
		`SELECT id, telegram_id, name, status, created_at
		 FROM vpn_profiles WHERE telegram_id = $1 AND name = $2`,
		telegramID, name)
	if stderrors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, &errors.NotFoundError{Kind: "profile", Key: name}
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

func (r *profileRepository) List(ctx context.Context, telegramID int64) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.SelectContext(ctx, &profiles,
		`SELECT id, telegram_id, name, status, created_at
		 FROM vpn_profiles WHERE telegram_id = $1 ORDER BY id`,
		telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

func (r *profileRepository) Delete(ctx context.Context, telegramID int64, name string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM vpn_profiles WHERE telegram_id = $1 AND name = $2`,
		telegramID, name)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if rows == 0 {
		return &errors.NotFoundError{Kind: "profile", Key: name}
	}
	return nil
}

func (r *profileRepository) SetStatus(ctx context.Context, telegramID int64, name string, status models.ProfileStatus) error {
	profile, err := r.Get(ctx, telegramID, name)
	if err != nil {
		return err
	}

	if profile.Status == status {
		return &errors.ConflictError{
			Kind:    "profile",
			Key:     name,
			Message: fmt.Sprintf("profile already %s", status),
		}
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE vpn_profiles SET status = $1 WHERE telegram_id = $2 AND name = $3`,
		status, telegramID, name)
	if err != nil {
		return fmt.Errorf("failed to update profile status: %w", err)
	}
	return nil
}

func (r *profileRepository) ListActive(ctx context.Context, telegramID int64) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.SelectContext(ctx, &profiles,
		`SELECT id, telegram_id, name, status, created_at
		 FROM vpn_profiles WHERE telegram_id = $1 AND status = $2 ORDER BY id`,
		telegramID, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active profiles: %w", err)
	}
	return profiles, nil
}

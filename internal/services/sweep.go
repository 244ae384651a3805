package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"wg-access-bot/internal/errors"
	"wg-access-bot/internal/models"
	"wg-access-bot/internal/storage"
	"wg-access-bot/internal/wireguard"
)

// Sweeper suspends the active profiles of users who no longer hold a
// positive-balance token. It runs on a schedule while the balance gate
// is enabled.
type Sweeper struct {
	users       storage.UserRepository
	profiles    storage.ProfileRepository
	provisioner wireguard.Provisioner
	logger      *logrus.Logger
}

// NewSweeper creates an enforcement sweeper
func NewSweeper(
	users storage.UserRepository,
	profiles storage.ProfileRepository,
	provisioner wireguard.Provisioner,
	logger *logrus.Logger,
) *Sweeper {
	return &Sweeper{
		users:       users,
		profiles:    profiles,
		provisioner: provisioner,
		logger:      logger,
	}
}

// Run performs one sweep over all users without credit
func (s *Sweeper) Run(ctx context.Context) error {
	ids, err := s.users.TelegramIDsWithoutCredit(ctx)
	if err != nil {
		return err
	}

	suspended := 0
	for _, telegramID := range ids {
		profiles, err := s.profiles.ListActive(ctx, telegramID)
		if err != nil {
			s.logger.Errorf("Sweep: failed to list profiles for %d: %v", telegramID, err)
			continue
		}

		for _, profile := range profiles {
			err := s.profiles.SetStatus(ctx, telegramID, profile.Name, models.StatusSuspended)
			if err != nil {
				if errors.IsConflict(err) {
					continue
				}
				s.logger.Errorf("Sweep: failed to suspend %s for %d: %v", profile.Name, telegramID, err)
				continue
			}

			peerID := wireguard.PeerID(telegramID, profile.Name)
			if err := s.provisioner.Suspend(ctx, peerID); err != nil {
				// Registry already updated; peer state is best-effort.
				s.logger.Errorf("Sweep: peer suspend failed for %s: %v", peerID, err)
			}
			suspended++
		}
	}

	s.logger.Infof("Sweep finished: %d users checked, %d profiles suspended", len(ids), suspended)
	return nil
}

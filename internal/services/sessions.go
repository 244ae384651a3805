package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"wg-access-bot/internal/models"
)

// SessionService manages per-user conversation sessions. A session holds
// the pending verb of the two-step prompt flow and expires on its own, so
// an abandoned prompt cannot capture a later unrelated message.
type SessionService struct {
	cache  *cache.Cache
	logger *logrus.Logger
}

// NewSessionService creates a session service with the given TTL
func NewSessionService(ttl, cleanup time.Duration, logger *logrus.Logger) *SessionService {
	return &SessionService{
		cache:  cache.New(ttl, cleanup),
		logger: logger,
	}
}

// Get returns a user's session, or the idle session if none is stored
func (s *SessionService) Get(userID int64) models.Session {
	key := sessionKey(userID)

	if data, found := s.cache.Get(key); found {
		if session, ok := data.(models.Session); ok {
			return session
		}
	}

	return models.Session{Pending: models.PendingNone}
}

// SetPending stores the verb awaiting its argument
func (s *SessionService) SetPending(userID int64, pending models.PendingCommand) {
	s.cache.Set(sessionKey(userID), models.Session{Pending: pending}, cache.DefaultExpiration)
	s.logger.Debugf("Set pending command %d for user %d", pending, userID)
}

// Clear returns a user to the idle state
func (s *SessionService) Clear(userID int64) {
	s.cache.Delete(sessionKey(userID))
	s.logger.Debugf("Cleared session for user %d", userID)
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("session_%d", userID)
}

package session

import (
	"context"
	"fmt"

	"github.com/aula-ai-tutor-go/internal/config"
	"github.com/aula-ai-tutor-go/internal/models"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// MemoryStore keeps sessions in process memory with expiration. Suited
// to single-instance deployments.
type MemoryStore struct {
	cache  *cache.Cache
	logger *logrus.Logger
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(cfg *config.MemoryConfig, logger *logrus.Logger) *MemoryStore {
	logger.WithFields(logrus.Fields{
		"expiration": cfg.DefaultExpiration,
		"cleanup":    cfg.CleanupInterval,
	}).Info("Memory session store initialized")

	return &MemoryStore{
		cache:  cache.New(cfg.DefaultExpiration, cfg.CleanupInterval),
		logger: logger,
	}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("session:%d", userID)
}

// Get returns a copy of the stored session or nil when none exists.
// Copying matches the redis backend: unsaved mutations never leak back
// into the store.
func (s *MemoryStore) Get(_ context.Context, userID int64) (*models.Session, error) {
	value, found := s.cache.Get(sessionKey(userID))
	if !found {
		return nil, nil
	}

	session, ok := value.(*models.Session)
	if !ok {
		return nil, fmt.Errorf("invalid session data for user %d", userID)
	}
	return session.Clone(), nil
}

// Save stores a copy of the session with the default expiration.
func (s *MemoryStore) Save(_ context.Context, session *models.Session) error {
	s.cache.Set(sessionKey(session.UserID), session.Clone(), cache.DefaultExpiration)
	return nil
}

// Delete removes the session.
func (s *MemoryStore) Delete(_ context.Context, userID int64) error {
	s.cache.Delete(sessionKey(userID))
	return nil
}

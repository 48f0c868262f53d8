package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aula-ai-tutor-go/internal/config"
	"github.com/aula-ai-tutor-go/internal/models"
	"github.com/sirupsen/logrus"
)

// Store persists per-student conversation state.
type Store interface {
	Get(ctx context.Context, userID int64) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, userID int64) error
}

// Manager wraps a Store with per-student locking so a full routed turn
// reads, mutates and writes session state without interleaving.
type Manager struct {
	store  Store
	mu     sync.Mutex
	locks  map[int64]*sync.Mutex
	logger *logrus.Logger
}

// NewManager creates a session manager over the given store.
func NewManager(store Store, logger *logrus.Logger) *Manager {
	return &Manager{
		store:  store,
		locks:  make(map[int64]*sync.Mutex),
		logger: logger,
	}
}

// NewStore builds the configured session store backend.
func NewStore(cfg *config.SessionConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Type {
	case "redis":
		return NewRedisStore(&cfg.Redis, logger)
	case "memory", "":
		return NewMemoryStore(&cfg.Memory, logger), nil
	default:
		return nil, fmt.Errorf("unknown session store type: %s", cfg.Type)
	}
}

// Lock acquires the per-student lock and returns the unlock function.
func (m *Manager) Lock(userID int64) func() {
	m.mu.Lock()
	lock, ok := m.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// GetOrCreate loads the student's session, creating a fresh one when
// none exists.
func (m *Manager) GetOrCreate(ctx context.Context, userID int64) (*models.Session, error) {
	session, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = models.NewSession(userID)
		m.logger.WithField("user_id", userID).Debug("Created new session")
	}
	return session, nil
}

// Save persists the session after stamping its activity time.
func (m *Manager) Save(ctx context.Context, session *models.Session) error {
	session.LastActivity = time.Now()
	return m.store.Save(ctx, session)
}

// Delete removes the student's session.
func (m *Manager) Delete(ctx context.Context, userID int64) error {
	return m.store.Delete(ctx, userID)
}

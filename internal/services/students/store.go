package students

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aula-ai-tutor-go/internal/config"
	"github.com/aula-ai-tutor-go/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a student does not exist.
var ErrNotFound = errors.New("student not found")

// Store is the student record boundary.
type Store interface {
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
	// AddXP increments the student's XP and returns the new total.
	AddXP(ctx context.Context, id int64, amount int) (int, error)
	// ListMaterials returns the study documents uploaded for a subject.
	ListMaterials(ctx context.Context, subjectID int64) ([]models.Material, error)
}

// NewStore builds the configured student store backend.
func NewStore(cfg *config.StudentsConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLiteStore(cfg.Path, logger)
	case "memory":
		return NewMemoryStore(logger), nil
	default:
		return nil, fmt.Errorf("unknown students driver: %s", cfg.Driver)
	}
}

// MemoryStore is an in-memory student store for tests and local runs.
type MemoryStore struct {
	mu        sync.RWMutex
	students  map[int64]*models.Student
	materials map[int64][]models.Material
	logger    *logrus.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *logrus.Logger) *MemoryStore {
	return &MemoryStore{
		students:  make(map[int64]*models.Student),
		materials: make(map[int64][]models.Material),
		logger:    logger,
	}
}

// PutStudent inserts or replaces a student record.
func (s *MemoryStore) PutStudent(student *models.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *student
	s.students[student.ID] = &copied
}

// PutMaterials replaces the materials of a subject.
func (s *MemoryStore) PutMaterials(subjectID int64, materials []models.Material) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials[subjectID] = materials
}

func (s *MemoryStore) GetStudent(_ context.Context, id int64) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	student, ok := s.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *student
	return &copied, nil
}

func (s *MemoryStore) AddXP(_ context.Context, id int64, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, ok := s.students[id]
	if !ok {
		return 0, ErrNotFound
	}
	student.XP += amount
	return student.XP, nil
}

func (s *MemoryStore) ListMaterials(_ context.Context, subjectID int64) ([]models.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.materials[subjectID], nil
}

package students

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aula-ai-tutor-go/internal/models"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// studyMimeTypes are the document types surfaced to students.
var studyMimeTypes = []string{
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// SQLiteStore is a student store backed by a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewSQLiteStore opens the database and creates the schema when missing.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	logger.WithField("path", path).Info("SQLite student store initialized")
	return store, nil
}

func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		xp INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS materials (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_materials_subject ON materials(subject_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	var student models.Student
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, xp FROM students WHERE id = ?", id,
	).Scan(&student.ID, &student.Name, &student.XP)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query student: %w", err)
	}
	return &student, nil
}

func (s *SQLiteStore) AddXP(ctx context.Context, id int64, amount int) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE students SET xp = xp + ? WHERE id = ?", amount, id)
	if err != nil {
		return 0, fmt.Errorf("failed to update xp: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check update: %w", err)
	}
	if affected == 0 {
		return 0, ErrNotFound
	}

	var xp int
	if err := s.db.QueryRowContext(ctx,
		"SELECT xp FROM students WHERE id = ?", id).Scan(&xp); err != nil {
		return 0, fmt.Errorf("failed to read xp: %w", err)
	}
	return xp, nil
}

func (s *SQLiteStore) ListMaterials(ctx context.Context, subjectID int64) ([]models.Material, error) {
	query := `SELECT id, name, mime_type, url, created_at FROM materials
		WHERE subject_id = ? AND mime_type IN (?, ?, ?, ?)
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, subjectID,
		studyMimeTypes[0], studyMimeTypes[1], studyMimeTypes[2], studyMimeTypes[3])
	if err != nil {
		return nil, fmt.Errorf("failed to query materials: %w", err)
	}
	defer rows.Close()

	var materials []models.Material
	for rows.Next() {
		var m models.Material
		if err := rows.Scan(&m.ID, &m.Name, &m.MimeType, &m.URL, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read materials: %w", err)
	}
	return materials, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

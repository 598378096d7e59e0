package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grades-calculator-api/internal/models"
)

const gradeColumns = `id, course_id, student_id, component_type, score, created_at`

// GradeRepository stores immutable grade entries.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Create inserts a grade entry.
func (r *GradeRepository) Create(ctx context.Context, entry *models.GradeEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO grade_entries (id, course_id, student_id, component_type, score, created_at) VALUES (:id, :course_id, :student_id, :component_type, :score, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create grade entry: %w", err)
	}
	return nil
}

// ListByCourse returns the student's entries for a course in recording order.
func (r *GradeRepository) ListByCourse(ctx context.Context, studentID, courseID string) ([]models.GradeEntry, error) {
	const query = `SELECT ` + gradeColumns + ` FROM grade_entries WHERE course_id = $1 AND student_id = $2 ORDER BY created_at ASC, id ASC`
	entries := []models.GradeEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, courseID, studentID); err != nil {
		return nil, fmt.Errorf("list grade entries: %w", err)
	}
	return entries, nil
}

// FindByID returns an entry owned by the student.
func (r *GradeRepository) FindByID(ctx context.Context, studentID, id string) (*models.GradeEntry, error) {
	const query = `SELECT ` + gradeColumns + ` FROM grade_entries WHERE id = $1 AND student_id = $2`
	var entry models.GradeEntry
	if err := r.db.GetContext(ctx, &entry, query, id, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find grade entry: %w", err)
	}
	return &entry, nil
}

// Delete removes an entry owned by the student. sql.ErrNoRows is returned when nothing matched.
func (r *GradeRepository) Delete(ctx context.Context, studentID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM grade_entries WHERE id = $1 AND student_id = $2`, id, studentID)
	if err != nil {
		return fmt.Errorf("delete grade entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete grade entry: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

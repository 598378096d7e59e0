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

const courseColumns = `id, student_id, name, professor_email, scheme_version, created_at, updated_at`

// CourseRepository persists courses and their grading schemes.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create inserts a course and its scheme components atomically.
// ErrDuplicate is returned when the student already has a course with the same name.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	if course.SchemeVersion == 0 {
		course.SchemeVersion = 1
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	const insertCourse = `INSERT INTO courses (id, student_id, name, professor_email, scheme_version, created_at, updated_at) VALUES (:id, :student_id, :name, :professor_email, :scheme_version, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertCourse, course); err != nil {
		tx.Rollback() //nolint:errcheck
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert course: %w", err)
	}
	if err := r.insertComponentsTx(ctx, tx, course.ID, course.Components); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit course: %w", err)
	}
	return nil
}

// ListByStudent returns the student's courses with their components, ordered by name.
func (r *CourseRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	const query = `SELECT ` + courseColumns + ` FROM courses WHERE student_id = $1 ORDER BY name ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	if len(courses) == 0 {
		return courses, nil
	}

	const componentsQuery = `SELECT cc.course_id, cc.component_type, cc.weight, cc.expected_count FROM course_components cc JOIN courses c ON c.id = cc.course_id WHERE c.student_id = $1`
	var components []models.CourseComponent
	if err := r.db.SelectContext(ctx, &components, componentsQuery, studentID); err != nil {
		return nil, fmt.Errorf("list course components: %w", err)
	}
	byCourse := make(map[string][]models.CourseComponent, len(courses))
	for _, comp := range components {
		byCourse[comp.CourseID] = append(byCourse[comp.CourseID], comp)
	}
	for i := range courses {
		courses[i].Components = byCourse[courses[i].ID]
	}
	return courses, nil
}

// ListNames returns the names of the student's courses in alphabetical order.
func (r *CourseRepository) ListNames(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT name FROM courses WHERE student_id = $1 ORDER BY name ASC`
	names := []string{}
	if err := r.db.SelectContext(ctx, &names, query, studentID); err != nil {
		return nil, fmt.Errorf("list course names: %w", err)
	}
	return names, nil
}

// FindByID returns a course owned by the student. sql.ErrNoRows is returned otherwise.
func (r *CourseRepository) FindByID(ctx context.Context, studentID, courseID string) (*models.Course, error) {
	const query = `SELECT ` + courseColumns + ` FROM courses WHERE id = $1 AND student_id = $2`
	return r.findOne(ctx, query, courseID, studentID)
}

// FindByName returns the student's course with the given name.
func (r *CourseRepository) FindByName(ctx context.Context, studentID, name string) (*models.Course, error) {
	const query = `SELECT ` + courseColumns + ` FROM courses WHERE student_id = $1 AND name = $2`
	return r.findOne(ctx, query, studentID, name)
}

// ReplaceComponents swaps the course scheme in one transaction and bumps scheme_version.
// It returns the new version.
func (r *CourseRepository) ReplaceComponents(ctx context.Context, studentID, courseID string, components []models.CourseComponent) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}

	const bump = `UPDATE courses SET scheme_version = scheme_version + 1, updated_at = $3 WHERE id = $1 AND student_id = $2`
	res, err := tx.ExecContext(ctx, bump, courseID, studentID, time.Now().UTC())
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, fmt.Errorf("bump scheme version: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		tx.Rollback() //nolint:errcheck
		if err != nil {
			return 0, fmt.Errorf("bump scheme version: %w", err)
		}
		return 0, sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM course_components WHERE course_id = $1`, courseID); err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, fmt.Errorf("clear course components: %w", err)
	}
	if err := r.insertComponentsTx(ctx, tx, courseID, components); err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, err
	}

	var version int
	if err := tx.GetContext(ctx, &version, `SELECT scheme_version FROM courses WHERE id = $1`, courseID); err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, fmt.Errorf("read scheme version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit scheme replace: %w", err)
	}
	return version, nil
}

// Delete removes the course together with its scheme and grade entries.
func (r *CourseRepository) Delete(ctx context.Context, studentID, courseID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM grade_entries WHERE course_id = $1 AND student_id = $2`, courseID, studentID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete course grades: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM course_components WHERE course_id IN (SELECT id FROM courses WHERE id = $1 AND student_id = $2)`, courseID, studentID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete course components: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1 AND student_id = $2`, courseID, studentID)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete course: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		tx.Rollback() //nolint:errcheck
		if err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit course delete: %w", err)
	}
	return nil
}

func (r *CourseRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}

	const componentsQuery = `SELECT course_id, component_type, weight, expected_count FROM course_components WHERE course_id = $1`
	if err := r.db.SelectContext(ctx, &course.Components, componentsQuery, course.ID); err != nil {
		return nil, fmt.Errorf("load course components: %w", err)
	}
	return &course, nil
}

func (r *CourseRepository) insertComponentsTx(ctx context.Context, tx *sqlx.Tx, courseID string, components []models.CourseComponent) error {
	const insert = `INSERT INTO course_components (course_id, component_type, weight, expected_count) VALUES ($1, $2, $3, $4)`
	for _, comp := range components {
		if _, err := tx.ExecContext(ctx, insert, courseID, comp.ComponentType, comp.Weight, comp.ExpectedCount); err != nil {
			return fmt.Errorf("insert course component %s: %w", comp.ComponentType, err)
		}
	}
	return nil
}

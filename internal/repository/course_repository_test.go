package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grades-calculator-api/internal/grading"
	"github.com/noah-isme/grades-calculator-api/internal/models"
)

var courseRowColumns = []string{"id", "student_id", "name", "professor_email", "scheme_version", "created_at", "updated_at"}
var componentRowColumns = []string{"course_id", "component_type", "weight", "expected_count"}

func TestCourseRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO courses").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_components (course_id, component_type, weight, expected_count) VALUES ($1, $2, $3, $4)")).
		WithArgs(sqlmock.AnyArg(), "PARCIAL", 60, 3).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO course_components").
		WithArgs(sqlmock.AnyArg(), "SEMESTRAL", 40, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	course := &models.Course{StudentID: "s1", Name: "Cálculo", Components: []models.CourseComponent{
		{ComponentType: grading.ComponentExam, Weight: 60, ExpectedCount: 3},
		{ComponentType: grading.ComponentFinal, Weight: 40},
	}}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.NotEmpty(t, course.ID)
	assert.Equal(t, 1, course.SchemeVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreateDuplicateName(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO courses").WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: courses.student_id, courses.name (2067)"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Course{StudentID: "s1", Name: "Cálculo"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE student_id = $1 ORDER BY name ASC")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(courseRowColumns).
			AddRow("c1", "s1", "Álgebra", nil, 1, now, now).
			AddRow("c2", "s1", "Física", "prof@example.com", 2, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_components cc JOIN courses c ON c.id = cc.course_id WHERE c.student_id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(componentRowColumns).
			AddRow("c1", "PARCIAL", 100, 2).
			AddRow("c2", "ASIGNACION", 50, 10).
			AddRow("c2", "SEMESTRAL", 50, 0))

	courses, err := repo.ListByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Len(t, courses[0].Components, 1)
	assert.Len(t, courses[1].Components, 2)
	require.NotNil(t, courses[1].ProfessorEmail)
	assert.Equal(t, grading.ComponentAssignment, courses[1].Components[0].ComponentType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDNotOwned(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id = $1 AND student_id = $2")).
		WithArgs("c1", "other").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "other", "c1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByName(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE student_id = $1 AND name = $2")).
		WithArgs("s1", "Física").
		WillReturnRows(sqlmock.NewRows(courseRowColumns).AddRow("c2", "s1", "Física", nil, 1, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_components WHERE course_id = $1")).
		WithArgs("c2").
		WillReturnRows(sqlmock.NewRows(componentRowColumns).AddRow("c2", "PARCIAL", 100, 0))

	course, err := repo.FindByName(context.Background(), "s1", "Física")
	require.NoError(t, err)
	assert.Equal(t, "c2", course.ID)
	require.Len(t, course.Components, 1)
	assert.Equal(t, 100, course.Components[0].Weight)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryReplaceComponents(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET scheme_version = scheme_version + 1")).
		WithArgs("c1", "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_components WHERE course_id = $1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO course_components").
		WithArgs("c1", "PARCIAL", 100, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT scheme_version FROM courses WHERE id = $1")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"scheme_version"}).AddRow(3))
	mock.ExpectCommit()

	version, err := repo.ReplaceComponents(context.Background(), "s1", "c1", []models.CourseComponent{{ComponentType: grading.ComponentExam, Weight: 100}})
	require.NoError(t, err)
	assert.Equal(t, 3, version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryReplaceComponentsMissingCourse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE courses SET scheme_version").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.ReplaceComponents(context.Background(), "s1", "missing", nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grade_entries WHERE course_id = $1 AND student_id = $2")).
		WithArgs("c1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("DELETE FROM course_components").WithArgs("c1", "s1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1 AND student_id = $2")).
		WithArgs("c1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "s1", "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListNames(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM courses WHERE student_id = $1 ORDER BY name ASC")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Álgebra").AddRow("Física"))

	names, err := repo.ListNames(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Álgebra", "Física"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

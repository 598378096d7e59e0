package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grades-calculator-api/internal/grading"
	"github.com/noah-isme/grades-calculator-api/internal/models"
	"github.com/noah-isme/grades-calculator-api/internal/repository"
	appErrors "github.com/noah-isme/grades-calculator-api/pkg/errors"
)

type courseRepoMock struct {
	courses    map[string]*models.Course
	createErr  error
	replaced   []models.CourseComponent
	deletedIDs []string
}

func newCourseRepoMock(courses ...*models.Course) *courseRepoMock {
	m := &courseRepoMock{courses: make(map[string]*models.Course)}
	for _, c := range courses {
		m.courses[c.ID] = c
	}
	return m
}

func (m *courseRepoMock) Create(ctx context.Context, course *models.Course) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.courses {
		if existing.StudentID == course.StudentID && existing.Name == course.Name {
			return repository.ErrDuplicate
		}
	}
	if course.ID == "" {
		course.ID = "course-new"
	}
	course.SchemeVersion = 1
	m.courses[course.ID] = course
	return nil
}

func (m *courseRepoMock) ListByStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	var out []models.Course
	for _, c := range m.courses {
		if c.StudentID == studentID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *courseRepoMock) ListNames(ctx context.Context, studentID string) ([]string, error) {
	names := []string{}
	for _, c := range m.courses {
		if c.StudentID == studentID {
			names = append(names, c.Name)
		}
	}
	return names, nil
}

func (m *courseRepoMock) FindByID(ctx context.Context, studentID, courseID string) (*models.Course, error) {
	c, ok := m.courses[courseID]
	if !ok || c.StudentID != studentID {
		return nil, sql.ErrNoRows
	}
	clone := *c
	return &clone, nil
}

func (m *courseRepoMock) FindByName(ctx context.Context, studentID, name string) (*models.Course, error) {
	for _, c := range m.courses {
		if c.StudentID == studentID && c.Name == name {
			clone := *c
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *courseRepoMock) ReplaceComponents(ctx context.Context, studentID, courseID string, components []models.CourseComponent) (int, error) {
	c, ok := m.courses[courseID]
	if !ok || c.StudentID != studentID {
		return 0, sql.ErrNoRows
	}
	m.replaced = components
	c.Components = components
	c.SchemeVersion++
	return c.SchemeVersion, nil
}

func (m *courseRepoMock) Delete(ctx context.Context, studentID, courseID string) error {
	c, ok := m.courses[courseID]
	if !ok || c.StudentID != studentID {
		return sql.ErrNoRows
	}
	delete(m.courses, courseID)
	m.deletedIDs = append(m.deletedIDs, courseID)
	return nil
}

func mathCourse() *models.Course {
	return &models.Course{
		ID:            "c1",
		StudentID:     "s1",
		Name:          "Matemáticas",
		SchemeVersion: 1,
		Components: []models.CourseComponent{
			{CourseID: "c1", ComponentType: grading.ComponentExam, Weight: 60},
			{CourseID: "c1", ComponentType: grading.ComponentFinal, Weight: 40},
		},
	}
}

func TestCourseServiceCreate(t *testing.T) {
	repo := newCourseRepoMock()
	svc := NewCourseService(repo, nil, nil, nil, nil, nil)

	course, err := svc.Create(context.Background(), "s1", models.CreateCourseRequest{
		Name: "  Física  ",
		Components: []models.ComponentInput{
			{Type: "semestral", Weight: 40},
			{Type: "Parcial", Weight: 60, ExpectedCount: 3},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Física", course.Name)
	require.Len(t, course.Components, 2)
	assert.Equal(t, grading.ComponentExam, course.Components[0].ComponentType)
	assert.Equal(t, 3, course.Components[0].ExpectedCount)
	assert.Equal(t, grading.ComponentFinal, course.Components[1].ComponentType)
}

func TestCourseServiceCreateRejectsWeights(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCourseService(newCourseRepoMock(), nil, metrics, nil, nil, nil)

	_, err := svc.Create(context.Background(), "s1", models.CreateCourseRequest{
		Name:       "Química",
		Components: []models.ComponentInput{{Type: "PARCIAL", Weight: 50}, {Type: "SEMESTRAL", Weight: 40}},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidWeights.Code, appErr.Code)
	assert.Equal(t, grading.ReasonSumNotHundred, appErr.Details["reason"])
	assert.Equal(t, 90, appErr.Details["sum"])
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.schemesRejected.WithLabelValues(string(grading.ReasonSumNotHundred))))
}

func TestCourseServiceCreateRejectsWeightOutOfRange(t *testing.T) {
	svc := NewCourseService(newCourseRepoMock(), nil, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), "s1", models.CreateCourseRequest{
		Name:       "Química",
		Components: []models.ComponentInput{{Type: "PARCIAL", Weight: 120}, {Type: "SEMESTRAL", Weight: -20}},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidWeights.Code, appErr.Code)
	assert.Equal(t, grading.ReasonWeightOutOfRange, appErr.Details["reason"])
}

func TestCourseServiceCreateBoundaryErrors(t *testing.T) {
	catalog, err := grading.NewCatalog([]string{"PARCIAL", "SEMESTRAL"})
	require.NoError(t, err)
	svc := NewCourseService(newCourseRepoMock(), nil, nil, catalog, nil, nil)

	cases := map[string][]models.ComponentInput{
		"unknown type":       {{Type: "EXAMEN", Weight: 100}},
		"disabled type":      {{Type: "ASISTENCIA", Weight: 100}},
		"duplicate type":     {{Type: "PARCIAL", Weight: 50}, {Type: "parcial", Weight: 50}},
		"too many parciales": {{Type: "PARCIAL", Weight: 100, ExpectedCount: 6}},
	}
	for name, components := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "s1", models.CreateCourseRequest{Name: "Historia", Components: components})
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestCourseServiceCreateBlankName(t *testing.T) {
	svc := NewCourseService(newCourseRepoMock(), nil, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), "s1", models.CreateCourseRequest{Name: "   ", Components: []models.ComponentInput{{Type: "PARCIAL", Weight: 100}}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceCreateDuplicateName(t *testing.T) {
	svc := NewCourseService(newCourseRepoMock(mathCourse()), nil, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), "s1", models.CreateCourseRequest{Name: "Matemáticas", Components: []models.ComponentInput{{Type: "PARCIAL", Weight: 100}}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
}

func TestCourseServiceGetNotOwned(t *testing.T) {
	svc := NewCourseService(newCourseRepoMock(mathCourse()), nil, nil, nil, nil, nil)

	_, err := svc.Get(context.Background(), "someone-else", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceReplaceSchemeInvalidatesCache(t *testing.T) {
	repo := newCourseRepoMock(mathCourse())
	cacheRepo := newMemoryCacheRepo()
	cacheRepo.values[SummaryKey("s1", "c1")] = []byte(`{}`)
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewCourseService(repo, cache, nil, nil, nil, nil)

	course, err := svc.ReplaceScheme(context.Background(), "s1", "c1", models.ReplaceSchemeRequest{Components: []models.ComponentInput{
		{Type: "PARCIAL", Weight: 30},
		{Type: "ASIGNACION", Weight: 30},
		{Type: "SEMESTRAL", Weight: 40},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, course.SchemeVersion)
	assert.Len(t, repo.replaced, 3)
	_, cached := cacheRepo.values[SummaryKey("s1", "c1")]
	assert.False(t, cached)
}

func TestCourseServiceReplaceSchemeInvalidLeavesCourse(t *testing.T) {
	repo := newCourseRepoMock(mathCourse())
	svc := NewCourseService(repo, nil, nil, nil, nil, nil)

	_, err := svc.ReplaceScheme(context.Background(), "s1", "c1", models.ReplaceSchemeRequest{Components: []models.ComponentInput{{Type: "PARCIAL", Weight: 99}}})
	require.Error(t, err)
	assert.Nil(t, repo.replaced)
	assert.Equal(t, 1, repo.courses["c1"].SchemeVersion)
}

func TestCourseServiceDelete(t *testing.T) {
	repo := newCourseRepoMock(mathCourse())
	svc := NewCourseService(repo, nil, nil, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "s1", "c1"))
	assert.Equal(t, []string{"c1"}, repo.deletedIDs)

	err := svc.Delete(context.Background(), "s1", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceValidateScheme(t *testing.T) {
	svc := NewCourseService(newCourseRepoMock(), nil, nil, nil, nil, nil)

	result, err := svc.ValidateScheme(context.Background(), models.ValidateSchemeRequest{Components: []models.ComponentInput{
		{Type: "PARCIAL", Weight: 60},
		{Type: "SEMESTRAL", Weight: 40},
	}})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 100, result.Sum)
	assert.Len(t, result.Components, 2)

	result, err = svc.ValidateScheme(context.Background(), models.ValidateSchemeRequest{Components: []models.ComponentInput{
		{Type: "PARCIAL", Weight: 60},
		{Type: "SEMESTRAL", Weight: 50},
	}})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, 110, result.Sum)
	assert.Equal(t, grading.ReasonSumNotHundred, result.Reason)

	result, err = svc.ValidateScheme(context.Background(), models.ValidateSchemeRequest{Components: []models.ComponentInput{
		{Type: "PARCIAL", Weight: 150},
		{Type: "SEMESTRAL", Weight: -50},
	}})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, grading.ReasonWeightOutOfRange, result.Reason)
	require.NotNil(t, result.Value)
}

func TestCourseServiceValidateSchemeEmpty(t *testing.T) {
	svc := NewCourseService(newCourseRepoMock(), nil, nil, nil, nil, nil)

	result, err := svc.ValidateScheme(context.Background(), models.ValidateSchemeRequest{Components: []models.ComponentInput{}})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, 0, result.Sum)
}

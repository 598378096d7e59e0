package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grades-calculator-api/internal/grading"
	"github.com/noah-isme/grades-calculator-api/internal/models"
	appErrors "github.com/noah-isme/grades-calculator-api/pkg/errors"
	"github.com/noah-isme/grades-calculator-api/pkg/jobs"
)

type countingGradeStore struct {
	*gradeRepoMock
	calls atomic.Int32
	err   error
}

func (c *countingGradeStore) ListByCourse(ctx context.Context, studentID, courseID string) ([]models.GradeEntry, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.gradeRepoMock.ListByCourse(ctx, studentID, courseID)
}

func physicsCourse() *models.Course {
	return &models.Course{
		ID:        "c2",
		StudentID: "s1",
		Name:      "Física",
		Components: []models.CourseComponent{
			{CourseID: "c2", ComponentType: grading.ComponentAssignment, Weight: 100},
		},
	}
}

type summaryFixture struct {
	svc       *SummaryService
	grades    *countingGradeStore
	cacheRepo *memoryCacheRepo
}

func newSummaryFixture(t *testing.T, cacheEnabled bool) summaryFixture {
	t.Helper()
	grades := &countingGradeStore{gradeRepoMock: &gradeRepoMock{entries: []models.GradeEntry{
		{ID: "g1", CourseID: "c1", StudentID: "s1", ComponentType: grading.ComponentExam, Score: 80},
		{ID: "g2", CourseID: "c1", StudentID: "s1", ComponentType: grading.ComponentExam, Score: 91},
		{ID: "g3", CourseID: "c1", StudentID: "s1", ComponentType: grading.ComponentFinal, Score: 70},
		{ID: "g4", CourseID: "c1", StudentID: "s1", ComponentType: grading.ComponentAttendance, Score: 100},
	}}}
	students := &studentRepoMock{students: map[string]models.Student{"s1": {ID: "s1", FirstName: "Ana", LastName: "Pérez"}}}
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, cacheEnabled)
	svc := NewSummaryService(newCourseRepoMock(mathCourse(), physicsCourse()), grades, students, cache, NewMetricsService(), nil, SummaryServiceConfig{Concurrency: 2})
	svc.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	return summaryFixture{svc: svc, grades: grades, cacheRepo: cacheRepo}
}

func TestSummaryServiceCourseSummary(t *testing.T) {
	f := newSummaryFixture(t, false)

	summary, hit, err := f.svc.CourseSummary(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "Matemáticas", summary.CourseName)
	require.Len(t, summary.Components, 2)
	assert.Equal(t, 2, summary.Components[0].Count)
	require.NotNil(t, summary.Components[0].Average.Value)
	assert.Equal(t, 86, *summary.Components[0].Average.Value)
	require.NotNil(t, summary.Overall.Value)
	// (85.5 * 60 + 70 * 40) / 100 = 79.3
	assert.Equal(t, 79, *summary.Overall.Value)
	assert.Equal(t, 100, summary.CoveredWeight)
	require.Len(t, summary.Extras, 1)
	assert.Equal(t, grading.ComponentAttendance, summary.Extras[0].Component)
}

func TestSummaryServiceCourseSummaryCaches(t *testing.T) {
	f := newSummaryFixture(t, true)
	ctx := context.Background()

	first, hit, err := f.svc.CourseSummary(ctx, "s1", "c1")
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := f.svc.CourseSummary(ctx, "s1", "c1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, *first.Overall.Value, *second.Overall.Value)
	assert.Equal(t, int32(1), f.grades.calls.Load())
}

func TestSummaryServiceCourseSummaryNoGrades(t *testing.T) {
	f := newSummaryFixture(t, false)

	summary, _, err := f.svc.CourseSummary(context.Background(), "s1", "c2")
	require.NoError(t, err)
	assert.Nil(t, summary.Overall.Value)
	assert.Equal(t, grading.BandNone, summary.Overall.Band)
	assert.Equal(t, 0, summary.CoveredWeight)
}

func TestSummaryServiceCourseSummaryNotFound(t *testing.T) {
	f := newSummaryFixture(t, false)

	_, _, err := f.svc.CourseSummary(context.Background(), "s2", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSummaryServiceOverviewOrdersByName(t *testing.T) {
	f := newSummaryFixture(t, false)

	overview, err := f.svc.Overview(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Pérez", overview.StudentName)
	require.Len(t, overview.Courses, 2)
	assert.Equal(t, "Física", overview.Courses[0].CourseName)
	assert.Equal(t, "Matemáticas", overview.Courses[1].CourseName)
}

func TestSummaryServiceOverviewPropagatesErrors(t *testing.T) {
	f := newSummaryFixture(t, false)
	f.grades.err = errors.New("db down")

	_, err := f.svc.Overview(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestSummaryServiceExportCSV(t *testing.T) {
	f := newSummaryFixture(t, false)

	file, err := f.svc.Export(context.Background(), "s1", "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "transcript-20240506.csv", file.Filename)

	records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, transcriptHeaders, records[0])
	// Física: 1 component + overall, Matemáticas: 2 components + 1 extra + overall.
	assert.Len(t, records, 1+2+4)
	assert.Equal(t, []string{"Física", "ASIGNACION", "100", "0", "-", "none"}, records[1])
	assert.Equal(t, []string{"Matemáticas", "OVERALL", "100", "3", "79", "medium"}, records[6])
}

func TestSummaryServiceExportPDFAndBadFormat(t *testing.T) {
	f := newSummaryFixture(t, false)

	file, err := f.svc.Export(context.Background(), "s1", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))

	_, err = f.svc.Export(context.Background(), "s1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSummaryServiceHandleRefreshJob(t *testing.T) {
	f := newSummaryFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleRefreshJob(ctx, jobs.Job{Type: SummaryRefreshJob, Payload: RefreshPayload{StudentID: "s1", CourseID: "c1"}}))
	_, cached := f.cacheRepo.values[SummaryKey("s1", "c1")]
	assert.True(t, cached)

	require.NoError(t, f.svc.HandleRefreshJob(ctx, jobs.Job{Type: SummaryRefreshJob, Payload: RefreshPayload{StudentID: "s1", CourseID: "gone"}}))
	require.NoError(t, f.svc.HandleRefreshJob(ctx, jobs.Job{Type: "other"}))
}

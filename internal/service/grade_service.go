package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/grades-calculator-api/internal/grading"
	"github.com/noah-isme/grades-calculator-api/internal/models"
	appErrors "github.com/noah-isme/grades-calculator-api/pkg/errors"
	"github.com/noah-isme/grades-calculator-api/pkg/jobs"
)

// SummaryRefreshJob is the job type used to recompute a cached course summary.
const SummaryRefreshJob = "summary.refresh"

type gradeRepository interface {
	Create(ctx context.Context, entry *models.GradeEntry) error
	ListByCourse(ctx context.Context, studentID, courseID string) ([]models.GradeEntry, error)
	FindByID(ctx context.Context, studentID, id string) (*models.GradeEntry, error)
	Delete(ctx context.Context, studentID, id string) error
}

type gradeCourseLookup interface {
	FindByID(ctx context.Context, studentID, courseID string) (*models.Course, error)
	FindByName(ctx context.Context, studentID, name string) (*models.Course, error)
}

type refreshDispatcher interface {
	TryEnqueue(job jobs.Job) bool
}

// RefreshPayload identifies the summary a refresh job recomputes.
type RefreshPayload struct {
	StudentID string
	CourseID  string
}

// GradeService records and lists grade entries.
type GradeService struct {
	repo      gradeRepository
	courses   gradeCourseLookup
	cache     *CacheService
	refresher refreshDispatcher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs the grade service. refresher may be nil to disable background refreshes.
func NewGradeService(repo gradeRepository, courses gradeCourseLookup, cache *CacheService, refresher refreshDispatcher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, courses: courses, cache: cache, refresher: refresher, metrics: metrics, validator: validate, logger: logger}
}

// Record stores a score for a component of the course's scheme.
func (s *GradeService) Record(ctx context.Context, studentID string, req models.RecordGradeRequest) (*models.GradeEntry, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	req.CourseName = strings.TrimSpace(req.CourseName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if req.CourseID == "" && req.CourseName == "" {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "course_id or course_name is required"), map[string]interface{}{"field": "course_id"})
	}

	course, err := s.resolveCourse(ctx, studentID, req)
	if err != nil {
		return nil, err
	}

	component, err := grading.ParseComponentType(req.Component)
	if err != nil {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, err.Error()), map[string]interface{}{"field": "component"})
	}
	scheme, err := grading.NewScheme(course.SchemeComponents())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored scheme is invalid")
	}
	if !scheme.Has(component) {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("component %s is not part of course %q", component, course.Name)),
			map[string]interface{}{"field": "component"},
		)
	}

	entry := &models.GradeEntry{
		CourseID:      course.ID,
		StudentID:     studentID,
		ComponentType: component,
		Score:         *req.Score,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}

	s.metrics.RecordGrade(component)
	s.afterChange(ctx, studentID, course.ID)
	return entry, nil
}

// ListByCourse returns the course's entries grouped by component type.
func (s *GradeService) ListByCourse(ctx context.Context, studentID, courseID string) (*models.CourseGrades, error) {
	course, err := s.courses.FindByID(ctx, studentID, courseID)
	if err != nil {
		return nil, courseLookupError(err)
	}
	entries, err := s.repo.ListByCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}

	grouped := make(map[grading.ComponentType][]models.GradeEntry)
	for _, c := range course.Components {
		grouped[c.ComponentType] = []models.GradeEntry{}
	}
	for _, e := range entries {
		grouped[e.ComponentType] = append(grouped[e.ComponentType], e)
	}
	return &models.CourseGrades{CourseID: course.ID, CourseName: course.Name, Entries: grouped}, nil
}

// Delete removes a grade entry owned by the student.
func (s *GradeService) Delete(ctx context.Context, studentID, entryID string) error {
	entry, err := s.repo.FindByID(ctx, studentID, entryID)
	if err != nil {
		return gradeLookupError(err)
	}
	if err := s.repo.Delete(ctx, studentID, entryID); err != nil {
		return gradeLookupError(err)
	}
	s.afterChange(ctx, studentID, entry.CourseID)
	return nil
}

func (s *GradeService) resolveCourse(ctx context.Context, studentID string, req models.RecordGradeRequest) (*models.Course, error) {
	var (
		course *models.Course
		err    error
	)
	if req.CourseID != "" {
		course, err = s.courses.FindByID(ctx, studentID, req.CourseID)
	} else {
		course, err = s.courses.FindByName(ctx, studentID, req.CourseName)
	}
	if err != nil {
		return nil, courseLookupError(err)
	}
	return course, nil
}

func (s *GradeService) afterChange(ctx context.Context, studentID, courseID string) {
	if err := s.cache.Invalidate(ctx, SummaryKey(studentID, courseID)); err != nil {
		s.logger.Warn("summary cache not invalidated", zap.String("course_id", courseID), zap.Error(err))
	}
	if s.refresher == nil || !s.cache.Enabled() {
		return
	}
	job := jobs.Job{
		ID:      SummaryKey(studentID, courseID),
		Type:    SummaryRefreshJob,
		Payload: RefreshPayload{StudentID: studentID, CourseID: courseID},
	}
	if !s.refresher.TryEnqueue(job) {
		s.metrics.RecordRefreshDropped()
		s.logger.Debug("summary refresh dropped", zap.String("course_id", courseID))
	}
}

func gradeLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "grade entry not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade entry")
}

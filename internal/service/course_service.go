package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/grades-calculator-api/internal/dto"
	"github.com/noah-isme/grades-calculator-api/internal/grading"
	"github.com/noah-isme/grades-calculator-api/internal/models"
	"github.com/noah-isme/grades-calculator-api/internal/repository"
	appErrors "github.com/noah-isme/grades-calculator-api/pkg/errors"
)

type courseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	ListByStudent(ctx context.Context, studentID string) ([]models.Course, error)
	ListNames(ctx context.Context, studentID string) ([]string, error)
	FindByID(ctx context.Context, studentID, courseID string) (*models.Course, error)
	FindByName(ctx context.Context, studentID, name string) (*models.Course, error)
	ReplaceComponents(ctx context.Context, studentID, courseID string, components []models.CourseComponent) (int, error)
	Delete(ctx context.Context, studentID, courseID string) error
}

// CourseService manages courses and their grading schemes.
type CourseService struct {
	repo      courseRepository
	cache     *CacheService
	metrics   *MetricsService
	catalog   *grading.Catalog
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service. A nil catalog enables every known component type.
func NewCourseService(repo courseRepository, cache *CacheService, metrics *MetricsService, catalog *grading.Catalog, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, metrics: metrics, catalog: catalog, validator: validate, logger: logger}
}

// Create registers a course for the student after validating its scheme.
func (s *CourseService) Create(ctx context.Context, studentID string, req models.CreateCourseRequest) (*models.Course, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.ProfessorEmail != nil {
		trimmed := strings.TrimSpace(*req.ProfessorEmail)
		if trimmed == "" {
			req.ProfessorEmail = nil
		} else {
			req.ProfessorEmail = &trimmed
		}
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	scheme, err := s.buildScheme(req.Components)
	if err != nil {
		return nil, err
	}

	course := &models.Course{
		StudentID:      studentID,
		Name:           req.Name,
		ProfessorEmail: req.ProfessorEmail,
		Components:     componentRows(scheme),
	}
	if err := s.repo.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("course %q already exists", req.Name))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.logger.Info("course created", zap.String("student_id", studentID), zap.String("course_id", course.ID))
	return course, nil
}

// List returns the student's courses with their schemes.
func (s *CourseService) List(ctx context.Context, studentID string) ([]models.Course, error) {
	courses, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

// Names returns the names of the student's courses.
func (s *CourseService) Names(ctx context.Context, studentID string) ([]string, error) {
	names, err := s.repo.ListNames(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course names")
	}
	return names, nil
}

// Get returns a course owned by the student.
func (s *CourseService) Get(ctx context.Context, studentID, courseID string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, studentID, courseID)
	if err != nil {
		return nil, courseLookupError(err)
	}
	return course, nil
}

// ReplaceScheme validates and stores a new scheme for the course.
func (s *CourseService) ReplaceScheme(ctx context.Context, studentID, courseID string, req models.ReplaceSchemeRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scheme payload")
	}
	scheme, err := s.buildScheme(req.Components)
	if err != nil {
		return nil, err
	}

	version, err := s.repo.ReplaceComponents(ctx, studentID, courseID, componentRows(scheme))
	if err != nil {
		return nil, courseLookupError(err)
	}
	if err := s.cache.Invalidate(ctx, SummaryKey(studentID, courseID)); err != nil {
		s.logger.Warn("summary cache not invalidated", zap.String("course_id", courseID), zap.Error(err))
	}

	course, err := s.Get(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("course scheme replaced", zap.String("course_id", courseID), zap.Int("version", version))
	return course, nil
}

// Delete removes the course together with its scheme and grades.
func (s *CourseService) Delete(ctx context.Context, studentID, courseID string) error {
	if err := s.repo.Delete(ctx, studentID, courseID); err != nil {
		return courseLookupError(err)
	}
	if err := s.cache.Invalidate(ctx, SummaryKey(studentID, courseID)); err != nil {
		s.logger.Warn("summary cache not invalidated", zap.String("course_id", courseID), zap.Error(err))
	}
	return nil
}

// ValidateScheme checks a candidate scheme without persisting it.
// Boundary problems such as unknown types are returned as errors; weight problems are reported in the result.
func (s *CourseService) ValidateScheme(ctx context.Context, req models.ValidateSchemeRequest) (*dto.SchemeValidation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scheme payload")
	}
	components, err := s.parseComponents(req.Components)
	if err != nil {
		return nil, err
	}

	result := &dto.SchemeValidation{}
	for _, c := range components {
		result.Sum += c.Weight
	}

	scheme, err := grading.NewScheme(components)
	if err != nil {
		invalid, ok := grading.AsInvalidScheme(err)
		if !ok {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate scheme")
		}
		result.Reason = invalid.Reason
		if invalid.Reason == grading.ReasonWeightOutOfRange {
			value := invalid.Value
			result.Component = invalid.Component
			result.Value = &value
		}
		return result, nil
	}

	result.Valid = true
	result.Components = scheme.Components()
	return result, nil
}

func (s *CourseService) buildScheme(inputs []models.ComponentInput) (grading.Scheme, error) {
	components, err := s.parseComponents(inputs)
	if err != nil {
		return grading.Scheme{}, err
	}
	scheme, err := grading.NewScheme(components)
	if err != nil {
		if invalid, ok := grading.AsInvalidScheme(err); ok {
			s.metrics.RecordSchemeRejected(invalid.Reason)
			return grading.Scheme{}, appErrors.WithDetails(appErrors.Clone(appErrors.ErrInvalidWeights, invalid.Error()), invalid.Details())
		}
		return grading.Scheme{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate scheme")
	}
	return scheme, nil
}

// parseComponents enforces catalog membership, uniqueness and expected count limits.
func (s *CourseService) parseComponents(inputs []models.ComponentInput) ([]grading.Component, error) {
	seen := make(map[grading.ComponentType]struct{}, len(inputs))
	components := make([]grading.Component, 0, len(inputs))
	for i, in := range inputs {
		t, err := s.catalog.Parse(in.Type)
		if err != nil {
			return nil, componentError(i, "type", err.Error())
		}
		if _, dup := seen[t]; dup {
			return nil, componentError(i, "type", fmt.Sprintf("duplicate component %s", t))
		}
		seen[t] = struct{}{}
		if limit := t.MaxExpectedCount(); in.ExpectedCount > limit {
			return nil, componentError(i, "expected_count", fmt.Sprintf("expected_count for %s must be at most %d", t, limit))
		}
		components = append(components, grading.Component{Type: t, Weight: in.Weight, ExpectedCount: in.ExpectedCount})
	}
	return components, nil
}

func componentError(index int, field, message string) error {
	return appErrors.WithDetails(
		appErrors.Clone(appErrors.ErrValidation, message),
		map[string]interface{}{"field": fmt.Sprintf("components[%d].%s", index, field)},
	)
}

func componentRows(scheme grading.Scheme) []models.CourseComponent {
	components := scheme.Components()
	rows := make([]models.CourseComponent, 0, len(components))
	for _, c := range components {
		rows = append(rows, models.CourseComponent{ComponentType: c.Type, Weight: c.Weight, ExpectedCount: c.ExpectedCount})
	}
	return rows
}

func courseLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
}

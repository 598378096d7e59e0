package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/grades-calculator-api/internal/dto"
	"github.com/noah-isme/grades-calculator-api/internal/grading"
	"github.com/noah-isme/grades-calculator-api/internal/models"
	appErrors "github.com/noah-isme/grades-calculator-api/pkg/errors"
	"github.com/noah-isme/grades-calculator-api/pkg/export"
	"github.com/noah-isme/grades-calculator-api/pkg/jobs"
)

type summaryCourseStore interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Course, error)
	FindByID(ctx context.Context, studentID, courseID string) (*models.Course, error)
}

type summaryGradeStore interface {
	ListByCourse(ctx context.Context, studentID, courseID string) ([]models.GradeEntry, error)
}

type summaryStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// SummaryServiceConfig tunes summary loading.
type SummaryServiceConfig struct {
	Concurrency int
	CacheTTL    time.Duration
}

// ExportFile is a rendered transcript ready to be streamed to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// SummaryService derives per-course and per-student grade summaries.
type SummaryService struct {
	courses  summaryCourseStore
	grades   summaryGradeStore
	students summaryStudentStore
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      SummaryServiceConfig
	now      func() time.Time
}

// NewSummaryService constructs the summary service.
func NewSummaryService(courses summaryCourseStore, grades summaryGradeStore, students summaryStudentStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg SummaryServiceConfig) *SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &SummaryService{
		courses:  courses,
		grades:   grades,
		students: students,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CourseSummary returns the summary of one course. The boolean reports a cache hit.
func (s *SummaryService) CourseSummary(ctx context.Context, studentID, courseID string) (*dto.CourseSummary, bool, error) {
	var cached dto.CourseSummary
	if hit, _ := s.cache.Get(ctx, SummaryKey(studentID, courseID), &cached); hit {
		return &cached, true, nil
	}

	course, err := s.courses.FindByID(ctx, studentID, courseID)
	if err != nil {
		return nil, false, courseLookupError(err)
	}
	summary, err := s.compute(ctx, course)
	if err != nil {
		return nil, false, err
	}
	s.store(ctx, studentID, summary)
	return summary, false, nil
}

// Overview summarises every course of the student ordered by course name.
func (s *SummaryService) Overview(ctx context.Context, studentID string) (*dto.StudentOverview, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	courses, err := s.courses.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	results := make([]dto.CourseSummary, len(courses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i := range courses {
		course := courses[i]
		g.Go(func() error {
			var cached dto.CourseSummary
			if hit, _ := s.cache.Get(gctx, SummaryKey(studentID, course.ID), &cached); hit {
				results[i] = cached
				return nil
			}
			summary, err := s.compute(gctx, &course)
			if err != nil {
				return err
			}
			s.store(gctx, studentID, summary)
			results[i] = *summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(a, b int) bool { return results[a].CourseName < results[b].CourseName })
	return &dto.StudentOverview{
		StudentID:   student.ID,
		StudentName: student.FullName(),
		Courses:     results,
		GeneratedAt: s.now(),
	}, nil
}

// Export renders the student's overview as a transcript in the requested format.
func (s *SummaryService) Export(ctx context.Context, studentID, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, err.Error()), map[string]interface{}{"field": "format"})
	}
	overview, err := s.Overview(ctx, studentID)
	if err != nil {
		return nil, err
	}

	renderer, err := export.NewRenderer(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prepare export")
	}
	body, err := renderer.Render(transcriptDataset(overview))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("transcript-%s.%s", overview.GeneratedAt.Format("20060102"), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// Refresh recomputes and caches a course summary. Missing courses are ignored.
func (s *SummaryService) Refresh(ctx context.Context, studentID, courseID string) error {
	if !s.cache.Enabled() {
		return nil
	}
	course, err := s.courses.FindByID(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("load course %s: %w", courseID, err)
	}
	summary, err := s.compute(ctx, course)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, SummaryKey(studentID, courseID), summary, s.cfg.CacheTTL)
}

// HandleRefreshJob adapts Refresh to the background job queue.
func (s *SummaryService) HandleRefreshJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(RefreshPayload)
	if !ok || job.Type != SummaryRefreshJob {
		s.logger.Warn("unexpected job ignored", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	return s.Refresh(ctx, payload.StudentID, payload.CourseID)
}

func (s *SummaryService) compute(ctx context.Context, course *models.Course) (*dto.CourseSummary, error) {
	start := time.Now()
	scheme, err := grading.NewScheme(course.SchemeComponents())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored scheme is invalid")
	}

	queryStart := time.Now()
	rows, err := s.grades.ListByCourse(ctx, course.StudentID, course.ID)
	s.metrics.ObserveDBQuery("grades_by_course", time.Since(queryStart))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}
	entries := make([]grading.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, grading.Entry{Component: row.ComponentType, Score: row.Score})
	}

	result, err := grading.Summarize(scheme, entries)
	if err != nil {
		s.logger.Error("summary aggregation failed", zap.String("course_id", course.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize course")
	}
	s.metrics.RecordSummaryComputed(time.Since(start))

	return &dto.CourseSummary{
		CourseID:      course.ID,
		CourseName:    course.Name,
		SchemeVersion: course.SchemeVersion,
		Components:    result.Components,
		Overall:       result.Overall,
		CoveredWeight: result.CoveredWeight,
		Extras:        result.Extras,
		GeneratedAt:   s.now(),
	}, nil
}

func (s *SummaryService) store(ctx context.Context, studentID string, summary *dto.CourseSummary) {
	if err := s.cache.Set(ctx, SummaryKey(studentID, summary.CourseID), summary, s.cfg.CacheTTL); err != nil {
		s.logger.Debug("summary not cached", zap.String("course_id", summary.CourseID), zap.Error(err))
	}
}

var transcriptHeaders = []string{"Course", "Component", "Weight", "Entries", "Average", "Band"}

func transcriptDataset(overview *dto.StudentOverview) export.Dataset {
	data := export.Dataset{
		Title:    "Grade transcript",
		Subtitle: fmt.Sprintf("%s - generated %s", overview.StudentName, overview.GeneratedAt.Format(time.RFC1123)),
		Headers:  transcriptHeaders,
	}
	for _, course := range overview.Courses {
		for _, c := range course.Components {
			data.Rows = append(data.Rows, transcriptRow(course.CourseName, string(c.Component), strconv.Itoa(c.Weight), c.Count, c.Average))
		}
		for _, c := range course.Extras {
			data.Rows = append(data.Rows, transcriptRow(course.CourseName, string(c.Component), "-", c.Count, c.Average))
		}
		data.Rows = append(data.Rows, transcriptRow(course.CourseName, "OVERALL", strconv.Itoa(course.CoveredWeight), totalCount(course.Components), course.Overall))
	}
	return data
}

func transcriptRow(course, component, weight string, count int, score grading.Score) map[string]string {
	average := "-"
	if score.Value != nil {
		average = strconv.Itoa(*score.Value)
	}
	return map[string]string{
		"Course":    course,
		"Component": component,
		"Weight":    weight,
		"Entries":   strconv.Itoa(count),
		"Average":   average,
		"Band":      string(score.Band),
	}
}

func totalCount(results []grading.ComponentResult) int {
	total := 0
	for _, r := range results {
		total += r.Count
	}
	return total
}

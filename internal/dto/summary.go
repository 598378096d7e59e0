package dto

import (
	"time"

	"github.com/noah-isme/grades-calculator-api/internal/grading"
)

// CourseSummary is the aggregated view of one course.
type CourseSummary struct {
	CourseID      string                    `json:"course_id"`
	CourseName    string                    `json:"course_name"`
	SchemeVersion int                       `json:"scheme_version"`
	Components    []grading.ComponentResult `json:"components"`
	Overall       grading.Score             `json:"overall"`
	CoveredWeight int                       `json:"covered_weight"`
	Extras        []grading.ComponentResult `json:"extras,omitempty"`
	GeneratedAt   time.Time                 `json:"generated_at"`
}

// StudentOverview aggregates every course of a student ordered by course name.
type StudentOverview struct {
	StudentID   string          `json:"student_id"`
	StudentName string          `json:"student_name"`
	Courses     []CourseSummary `json:"courses"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// SchemeValidation reports the outcome of a dry-run scheme check.
type SchemeValidation struct {
	Valid      bool                  `json:"valid"`
	Sum        int                   `json:"sum"`
	Reason     grading.Reason        `json:"reason,omitempty"`
	Component  grading.ComponentType `json:"component,omitempty"`
	Value      *int                  `json:"value,omitempty"`
	Components []grading.Component   `json:"components,omitempty"`
}

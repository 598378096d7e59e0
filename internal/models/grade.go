package models

import (
	"time"

	"github.com/noah-isme/grades-calculator-api/internal/grading"
)

// GradeEntry is a single immutable score recorded against a course component.
type GradeEntry struct {
	ID            string                `db:"id" json:"id"`
	CourseID      string                `db:"course_id" json:"course_id"`
	StudentID     string                `db:"student_id" json:"student_id"`
	ComponentType grading.ComponentType `db:"component_type" json:"component_type"`
	Score         float64               `db:"score" json:"score"`
	CreatedAt     time.Time             `db:"created_at" json:"created_at"`
}

// RecordGradeRequest records a score. The course is addressed by id or, as a fallback, by name.
type RecordGradeRequest struct {
	CourseID   string   `json:"course_id" validate:"omitempty,uuid"`
	CourseName string   `json:"course_name" validate:"omitempty,max=120"`
	Component  string   `json:"component" validate:"required"`
	Score      *float64 `json:"score" validate:"required,min=0,max=100"`
}

// CourseGrades lists a course's entries grouped by component type.
type CourseGrades struct {
	CourseID   string                                 `json:"course_id"`
	CourseName string                                 `json:"course_name"`
	Entries    map[grading.ComponentType][]GradeEntry `json:"entries"`
}

package models

import (
	"time"

	"github.com/noah-isme/grades-calculator-api/internal/grading"
)

// Course is a subject tracked by a student together with its grading scheme.
type Course struct {
	ID             string            `db:"id" json:"id"`
	StudentID      string            `db:"student_id" json:"student_id"`
	Name           string            `db:"name" json:"name"`
	ProfessorEmail *string           `db:"professor_email" json:"professor_email,omitempty"`
	SchemeVersion  int               `db:"scheme_version" json:"scheme_version"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
	Components     []CourseComponent `json:"components"`
}

// CourseComponent is one persisted row of a course's grading scheme.
type CourseComponent struct {
	CourseID      string                `db:"course_id" json:"-"`
	ComponentType grading.ComponentType `db:"component_type" json:"type"`
	Weight        int                   `db:"weight" json:"weight"`
	ExpectedCount int                   `db:"expected_count" json:"expected_count,omitempty"`
}

// SchemeComponents converts the persisted rows into grading components.
func (c Course) SchemeComponents() []grading.Component {
	out := make([]grading.Component, 0, len(c.Components))
	for _, comp := range c.Components {
		out = append(out, grading.Component{Type: comp.ComponentType, Weight: comp.Weight, ExpectedCount: comp.ExpectedCount})
	}
	return out
}

// ComponentInput is a client-submitted scheme component.
type ComponentInput struct {
	Type          string `json:"type" validate:"required"`
	Weight        int    `json:"weight"`
	ExpectedCount int    `json:"expected_count" validate:"min=0"`
}

// CreateCourseRequest registers a course and its grading scheme.
type CreateCourseRequest struct {
	Name           string           `json:"name" validate:"required,max=120"`
	ProfessorEmail *string          `json:"professor_email,omitempty" validate:"omitempty,email"`
	Components     []ComponentInput `json:"components" validate:"required,min=1,dive"`
}

// ReplaceSchemeRequest swaps the grading scheme of an existing course.
type ReplaceSchemeRequest struct {
	Components []ComponentInput `json:"components" validate:"required,min=1,dive"`
}

// ValidateSchemeRequest is a dry-run check of a candidate scheme.
type ValidateSchemeRequest struct {
	Components []ComponentInput `json:"components" validate:"required,dive"`
}

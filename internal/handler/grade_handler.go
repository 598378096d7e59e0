package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grades-calculator-api/internal/models"
	appErrors "github.com/noah-isme/grades-calculator-api/pkg/errors"
	"github.com/noah-isme/grades-calculator-api/pkg/response"
)

type gradeService interface {
	Record(ctx context.Context, studentID string, req models.RecordGradeRequest) (*models.GradeEntry, error)
	ListByCourse(ctx context.Context, studentID, courseID string) (*models.CourseGrades, error)
	Delete(ctx context.Context, studentID, entryID string) error
}

// GradeHandler exposes grade entry endpoints.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Record godoc
// @Summary Record a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body models.RecordGradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Record(c *gin.Context) {
	studentID, ok := currentStudentID(c)
	if !ok {
		return
	}
	var req models.RecordGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.grades.Record(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// ListByCourse godoc
// @Summary List grades of a course grouped by component
// @Tags Grades
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/grades [get]
func (h *GradeHandler) ListByCourse(c *gin.Context) {
	studentID, ok := currentStudentID(c)
	if !ok {
		return
	}
	grades, err := h.grades.ListByCourse(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Delete godoc
// @Summary Delete a grade entry
// @Tags Grades
// @Param id path string true "Grade entry ID"
// @Success 204
// @Router /grades/{id} [delete]
func (h *GradeHandler) Delete(c *gin.Context) {
	studentID, ok := currentStudentID(c)
	if !ok {
		return
	}
	if err := h.grades.Delete(c.Request.Context(), studentID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

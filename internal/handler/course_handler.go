package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grades-calculator-api/internal/dto"
	"github.com/noah-isme/grades-calculator-api/internal/models"
	appErrors "github.com/noah-isme/grades-calculator-api/pkg/errors"
	"github.com/noah-isme/grades-calculator-api/pkg/response"
)

type courseService interface {
	Create(ctx context.Context, studentID string, req models.CreateCourseRequest) (*models.Course, error)
	List(ctx context.Context, studentID string) ([]models.Course, error)
	Names(ctx context.Context, studentID string) ([]string, error)
	Get(ctx context.Context, studentID, courseID string) (*models.Course, error)
	ReplaceScheme(ctx context.Context, studentID, courseID string, req models.ReplaceSchemeRequest) (*models.Course, error)
	Delete(ctx context.Context, studentID, courseID string) error
	ValidateScheme(ctx context.Context, req models.ValidateSchemeRequest) (*dto.SchemeValidation, error)
}

// CourseHandler exposes course and grading scheme endpoints.
type CourseHandler struct {
	courses courseService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List my courses
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	studentID, ok := currentStudentID(c)
	if !ok {
		return
	}
	courses, err := h.courses.List(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Names godoc
// @Summary List my course names
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses/names [get]
func (h *CourseHandler) Names(c *gin.Context) {
	studentID, ok := currentStudentID(c)
	if !ok {
		return
	}
	names, err := h.courses.Names(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, names, nil)
}

// Create godoc
// @Summary Register a course with its grading scheme
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	studentID, ok := currentStudentID(c)
	if !ok {
		return
	}
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Get godoc
// @Summary Get course detail
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	studentID, ok := currentStudentID(c)
	if !ok {
		return
	}
	course, err := h.courses.Get(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// ReplaceScheme godoc
// @Summary Replace the grading scheme of a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.ReplaceSchemeRequest true "Scheme payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses/{id}/scheme [put]
func (h *CourseHandler) ReplaceScheme(c *gin.Context) {
	studentID, ok := currentStudentID(c)
	if !ok {
		return
	}
	var req models.ReplaceSchemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.ReplaceScheme(c.Request.Context(), studentID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete a course with its scheme and grades
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	studentID, ok := currentStudentID(c)
	if !ok {
		return
	}
	if err := h.courses.Delete(c.Request.Context(), studentID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ValidateScheme godoc
// @Summary Check a candidate grading scheme
// @Description Reports whether the weights are acceptable without storing anything
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body models.ValidateSchemeRequest true "Scheme payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schemes/validate [post]
func (h *CourseHandler) ValidateScheme(c *gin.Context) {
	var req models.ValidateSchemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.courses.ValidateScheme(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

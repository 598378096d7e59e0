package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grades-calculator-api/internal/dto"
	"github.com/noah-isme/grades-calculator-api/internal/service"
	"github.com/noah-isme/grades-calculator-api/pkg/response"
)

type summaryService interface {
	CourseSummary(ctx context.Context, studentID, courseID string) (*dto.CourseSummary, bool, error)
	Overview(ctx context.Context, studentID string) (*dto.StudentOverview, error)
	Export(ctx context.Context, studentID, format string) (*service.ExportFile, error)
}

// SummaryHandler exposes grade summaries.
type SummaryHandler struct {
	summaries summaryService
}

// NewSummaryHandler constructs SummaryHandler.
func NewSummaryHandler(summaries summaryService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries}
}

// Course godoc
// @Summary Summary of one course
// @Tags Summaries
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/summary [get]
func (h *SummaryHandler) Course(c *gin.Context) {
	studentID, ok := currentStudentID(c)
	if !ok {
		return
	}
	summary, hit, err := h.summaries.CourseSummary(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, cacheMeta(c, hit))
}

// Mine godoc
// @Summary Summaries of all my courses
// @Tags Summaries
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /summaries [get]
func (h *SummaryHandler) Mine(c *gin.Context) {
	studentID, ok := currentStudentID(c)
	if !ok {
		return
	}
	h.overview(c, studentID)
}

// ForStudent godoc
// @Summary Summaries of a student's courses
// @Tags Summaries
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/summaries [get]
func (h *SummaryHandler) ForStudent(c *gin.Context) {
	h.overview(c, c.Param("id"))
}

// Export godoc
// @Summary Export my transcript
// @Tags Summaries
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /summaries/export [get]
func (h *SummaryHandler) Export(c *gin.Context) {
	studentID, ok := currentStudentID(c)
	if !ok {
		return
	}
	file, err := h.summaries.Export(c.Request.Context(), studentID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.ContentType, file.Filename, file.Body)
}

func (h *SummaryHandler) overview(c *gin.Context, studentID string) {
	overview, err := h.summaries.Overview(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/middleware"
	"github.com/noah-isme/sma-grading-api/internal/models"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
	"github.com/noah-isme/sma-grading-api/pkg/response"
)

type gradeService interface {
	CreateAssessment(ctx context.Context, req dto.CreateAssessmentRequest) (*models.Assessment, error)
	ListAssessments(ctx context.Context, classID string) (*dto.AssessmentListResponse, error)
	RecordScore(ctx context.Context, req dto.RecordScoreRequest) (*models.Score, error)
	BulkRecordScores(ctx context.Context, req dto.BulkScoreRequest) (*dto.BulkScoreResponse, error)
	StudentFinalGrade(ctx context.Context, classID, studentID string) (*dto.FinalGradeResponse, error)
	StudentSubjects(ctx context.Context, studentID string) (*dto.ReportCardResponse, error)
	ClassReport(ctx context.Context, classID string, passThreshold *float64) (*dto.ClassGradeReport, bool, error)
}

// GradeHandler exposes assessment, score and grade report endpoints.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// CreateAssessment godoc
// @Summary Create assessment
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.CreateAssessmentRequest true "Assessment payload"
// @Success 201 {object} response.Envelope
// @Router /assessments [post]
func (h *GradeHandler) CreateAssessment(c *gin.Context) {
	var req dto.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assessment, err := h.grades.CreateAssessment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assessment)
}

// ListAssessments godoc
// @Summary List a class's assessments
// @Tags Grades
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/assessments [get]
func (h *GradeHandler) ListAssessments(c *gin.Context) {
	list, err := h.grades.ListAssessments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list)
}

// RecordScore godoc
// @Summary Record or replace one score
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.RecordScoreRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Router /scores [post]
func (h *GradeHandler) RecordScore(c *gin.Context) {
	var req dto.RecordScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	score, err := h.grades.RecordScore(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score)
}

// BulkScores godoc
// @Summary Bulk record scores for one assessment
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.BulkScoreRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /scores/bulk [post]
func (h *GradeHandler) BulkScores(c *gin.Context) {
	var req dto.BulkScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.grades.BulkRecordScores(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// FinalGrade godoc
// @Summary Student final grade in a class
// @Tags Grades
// @Produce json
// @Param id path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/students/{studentId}/final-grade [get]
func (h *GradeHandler) FinalGrade(c *gin.Context) {
	grade, err := h.grades.StudentFinalGrade(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade)
}

// ReportCard godoc
// @Summary Student report card across subjects
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/report-card [get]
func (h *GradeHandler) ReportCard(c *gin.Context) {
	card, err := h.grades.StudentSubjects(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card)
}

// GradeReport godoc
// @Summary Class grade report
// @Tags Grades
// @Produce json
// @Param id path string true "Class ID"
// @Param passThreshold query number false "Pass threshold percentage (0-100)"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/grade-report [get]
func (h *GradeHandler) GradeReport(c *gin.Context) {
	var threshold *float64
	if raw := strings.TrimSpace(c.Query("passThreshold")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "passThreshold must be a number"))
			return
		}
		threshold = &parsed
	}
	report, cacheHit, err := h.grades.ClassReport(c.Request.Context(), c.Param("id"), threshold)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, report, middleware.ExtractMeta(c))
}

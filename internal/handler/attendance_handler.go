package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
	"github.com/noah-isme/sma-grading-api/pkg/response"
)

type attendanceService interface {
	Record(ctx context.Context, req dto.RecordAttendanceRequest) (*dto.RecordAttendanceResponse, error)
	ClassStats(ctx context.Context, classID string, query dto.AttendanceQuery) (*dto.AttendanceStatsResponse, error)
	StudentStats(ctx context.Context, studentID string, query dto.AttendanceQuery) (*dto.AttendanceStatsResponse, error)
}

// AttendanceHandler exposes daily attendance endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// Record godoc
// @Summary Record a day of attendance marks for a class
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.RecordAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	var req dto.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// ClassStats godoc
// @Summary Class attendance tally
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/attendance [get]
func (h *AttendanceHandler) ClassStats(c *gin.Context) {
	query := dto.AttendanceQuery{From: c.Query("from"), To: c.Query("to")}
	stats, err := h.service.ClassStats(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// StudentStats godoc
// @Summary Student attendance tally
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attendance [get]
func (h *AttendanceHandler) StudentStats(c *gin.Context) {
	query := dto.AttendanceQuery{From: c.Query("from"), To: c.Query("to")}
	stats, err := h.service.StudentStats(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

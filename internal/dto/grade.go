package dto

import (
	"time"

	"github.com/noah-isme/sma-grading-api/internal/grading"
	"github.com/noah-isme/sma-grading-api/internal/models"
)

// CreateAssessmentRequest is the POST /assessments payload.
type CreateAssessmentRequest struct {
	ClassID  string     `json:"classId" validate:"required"`
	Name     string     `json:"name" validate:"required,max=120"`
	Type     string     `json:"type" validate:"required"`
	MaxScore float64    `json:"maxScore" validate:"gt=0"`
	Weight   float64    `json:"weight" validate:"gte=0"`
	Position int        `json:"position" validate:"gte=0"`
	DueDate  *time.Time `json:"dueDate,omitempty"`
}

// RecordScoreRequest is the POST /scores payload.
type RecordScoreRequest struct {
	AssessmentID string   `json:"assessmentId" validate:"required"`
	StudentID    string   `json:"studentId" validate:"required"`
	Score        *float64 `json:"score" validate:"required"`
}

// BulkMode selects how BulkRecordScores handles invalid items.
type BulkMode string

const (
	// BulkModeAtomic rejects the whole batch when any item is invalid.
	BulkModeAtomic BulkMode = "atomic"
	// BulkModePartialOnError stores valid items and reports the rest.
	BulkModePartialOnError BulkMode = "partialOnError"
)

// BulkScoreItem is one {studentId, value} pair, as produced by manual entry or input adapters.
type BulkScoreItem struct {
	StudentID string   `json:"studentId" validate:"required"`
	Value     *float64 `json:"value" validate:"required"`
}

// BulkScoreRequest is the POST /scores/bulk payload.
type BulkScoreRequest struct {
	AssessmentID string          `json:"assessmentId" validate:"required"`
	Mode         BulkMode        `json:"mode"`
	Items        []BulkScoreItem `json:"items" validate:"required,min=1,dive"`
}

// BulkScoreFailure explains why one item was not stored.
type BulkScoreFailure struct {
	Index     int    `json:"index"`
	StudentID string `json:"studentId"`
	Reason    string `json:"reason"`
}

// BulkScoreResponse summarises a bulk upsert.
type BulkScoreResponse struct {
	AssessmentID string             `json:"assessmentId"`
	Mode         BulkMode           `json:"mode"`
	Stored       int                `json:"stored"`
	Failed       []BulkScoreFailure `json:"failed"`
}

// FinalGradeResponse wraps a student's final grade in a class.
type FinalGradeResponse struct {
	ClassID string                        `json:"classId"`
	Grade   grading.FinalGradeCalculation `json:"grade"`
}

// ReportCardResponse lists a student's per-subject results.
type ReportCardResponse struct {
	StudentID   string                  `json:"studentId"`
	StudentName string                  `json:"studentName"`
	Subjects    []grading.SubjectResult `json:"subjects"`
}

// ClassGradeReport is the full class report consumed by dashboards and exports.
type ClassGradeReport struct {
	Summary          grading.ClassGradeSummary   `json:"summary"`
	Assessments      []grading.AssessmentSummary `json:"assessments"`
	AssessmentRollup grading.AssessmentRollup    `json:"assessmentRollup"`
	UngradedStudents []UngradedStudent           `json:"ungradedStudents"`
	GeneratedAt      time.Time                   `json:"generatedAt"`
}

// UngradedStudent is a student without any positively weighted work yet.
type UngradedStudent struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	Reason      string `json:"reason"`
}

// AssessmentListResponse lists a class's assessments.
type AssessmentListResponse struct {
	ClassID     string              `json:"classId"`
	Assessments []models.Assessment `json:"assessments"`
	TotalWeight float64             `json:"totalWeight"`
}

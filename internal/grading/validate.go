package grading

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

var validate = validator.New()

// RawAssessmentScore is an untrusted score payload as received from clients
// or input adapters. Pointer fields distinguish "missing" from zero.
type RawAssessmentScore struct {
	StudentID      string   `json:"studentId" validate:"required"`
	AssessmentID   string   `json:"assessmentId" validate:"required"`
	AssessmentName string   `json:"assessmentName"`
	AssessmentType string   `json:"assessmentType" validate:"required"`
	ClassID        string   `json:"classId" validate:"required"`
	Score          *float64 `json:"score" validate:"required,gte=0"`
	MaxScore       *float64 `json:"maxScore" validate:"required,gt=0"`
	Weight         *float64 `json:"weight" validate:"required,gte=0"`
}

// Validate turns a raw payload into a typed AssessmentScore or returns a
// VALIDATION_ERROR describing the first problem found.
func Validate(raw RawAssessmentScore) (AssessmentScore, error) {
	raw.StudentID = strings.TrimSpace(raw.StudentID)
	raw.AssessmentID = strings.TrimSpace(raw.AssessmentID)
	raw.AssessmentName = strings.TrimSpace(raw.AssessmentName)
	raw.AssessmentType = strings.TrimSpace(raw.AssessmentType)
	raw.ClassID = strings.TrimSpace(raw.ClassID)
	if err := validate.Struct(raw); err != nil {
		return AssessmentScore{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment score")
	}
	assessmentType := AssessmentType(strings.ToLower(raw.AssessmentType))
	if !assessmentType.Valid() {
		return AssessmentScore{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown assessment type %q", raw.AssessmentType))
	}
	if *raw.Score > *raw.MaxScore {
		return AssessmentScore{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score %.2f exceeds max score %.2f", *raw.Score, *raw.MaxScore))
	}
	return AssessmentScore{
		StudentID:      raw.StudentID,
		AssessmentID:   raw.AssessmentID,
		AssessmentName: raw.AssessmentName,
		AssessmentType: assessmentType,
		ClassID:        raw.ClassID,
		Score:          *raw.Score,
		MaxScore:       *raw.MaxScore,
		Weight:         *raw.Weight,
	}, nil
}

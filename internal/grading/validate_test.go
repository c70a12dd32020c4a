package grading

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

func ptr(v float64) *float64 { return &v }

func rawScore() RawAssessmentScore {
	return RawAssessmentScore{
		StudentID:      " stu-1 ",
		AssessmentID:   "quiz-1",
		AssessmentName: "Quiz 1",
		AssessmentType: " Exam",
		ClassID:        "class-1",
		Score:          ptr(0),
		MaxScore:       ptr(20),
		Weight:         ptr(0),
	}
}

func TestValidateAcceptsZeroScoreAndWeight(t *testing.T) {
	got, err := Validate(rawScore())
	require.NoError(t, err)
	assert.Equal(t, "stu-1", got.StudentID)
	assert.Equal(t, AssessmentExam, got.AssessmentType)
	assert.Equal(t, 0.0, got.Score)
	assert.Equal(t, 20.0, got.MaxScore)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*RawAssessmentScore){
		"missing student":  func(r *RawAssessmentScore) { r.StudentID = "" },
		"missing score":    func(r *RawAssessmentScore) { r.Score = nil },
		"negative score":   func(r *RawAssessmentScore) { r.Score = ptr(-1) },
		"zero max":         func(r *RawAssessmentScore) { r.MaxScore = ptr(0) },
		"negative weight":  func(r *RawAssessmentScore) { r.Weight = ptr(-2) },
		"unknown type":     func(r *RawAssessmentScore) { r.AssessmentType = "quiz-show" },
		"score above max":  func(r *RawAssessmentScore) { r.Score = ptr(21) },
		"missing class id": func(r *RawAssessmentScore) { r.ClassID = "" },
		"blank student":    func(r *RawAssessmentScore) { r.StudentID = "   " },
		"blank assessment": func(r *RawAssessmentScore) { r.AssessmentID = "\t" },
		"blank class id":   func(r *RawAssessmentScore) { r.ClassID = " \n " },
		"blank type":       func(r *RawAssessmentScore) { r.AssessmentType = "  " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			raw := rawScore()
			mutate(&raw)
			_, err := Validate(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}
}

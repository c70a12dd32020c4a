package grading

import (
	"fmt"

	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

func invalidInput(format string, args ...interface{}) error {
	return appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// percentage converts a raw score to a 0-100 percentage rounded to one decimal.
func percentage(s AssessmentScore) (float64, error) {
	if s.MaxScore <= 0 {
		return 0, invalidInput("assessment %s has non-positive max score", s.AssessmentID)
	}
	return round(s.Score/s.MaxScore*100, 1), nil
}

// ComputeFinalGrade combines a student's assessments into a weighted final grade.
//
// Weights are normalised by the sum of weights actually present, so a student
// with a missing assessment still receives a consistent percentage over the
// work recorded. The breakdown keeps the input order. StudentName is left for
// the caller to fill in.
func ComputeFinalGrade(studentID string, assessments []AssessmentScore) (FinalGradeCalculation, error) {
	var weightSum float64
	grades := make([]float64, len(assessments))
	for i, a := range assessments {
		if a.StudentID != studentID {
			return FinalGradeCalculation{}, invalidInput("assessment %s belongs to student %s, not %s", a.AssessmentID, a.StudentID, studentID)
		}
		if a.Weight < 0 {
			return FinalGradeCalculation{}, invalidInput("assessment %s has negative weight", a.AssessmentID)
		}
		pct, err := percentage(a)
		if err != nil {
			return FinalGradeCalculation{}, err
		}
		grades[i] = pct
		weightSum += a.Weight
	}
	if weightSum <= 0 {
		return FinalGradeCalculation{}, invalidInput("student %s has no positively weighted assessments", studentID)
	}

	breakdown := make([]GradeContribution, len(assessments))
	var total float64
	for i, a := range assessments {
		contribution := grades[i] * a.Weight / weightSum
		total += contribution
		breakdown[i] = GradeContribution{
			AssessmentID:   a.AssessmentID,
			AssessmentType: a.AssessmentType,
			AssessmentName: a.AssessmentName,
			Grade:          grades[i],
			Weight:         a.Weight,
			Contribution:   contribution,
		}
	}

	final := round(total, 1)
	return FinalGradeCalculation{
		StudentID:        studentID,
		FinalPercentage:  final,
		FinalLetterGrade: LetterGrade(final),
		Breakdown:        breakdown,
	}, nil
}

// GroupByStudent splits scores per student, keeping the relative order of
// each student's scores and the first-seen order of students.
func GroupByStudent(scores []AssessmentScore) ([]string, map[string][]AssessmentScore) {
	order := make([]string, 0)
	grouped := make(map[string][]AssessmentScore)
	for _, s := range scores {
		if _, ok := grouped[s.StudentID]; !ok {
			order = append(order, s.StudentID)
		}
		grouped[s.StudentID] = append(grouped[s.StudentID], s)
	}
	return order, grouped
}

package grading

import (
	"math"

	"github.com/montanaflynn/stats"
)

// DefaultPassThreshold is the final percentage at or above which a student passes.
const DefaultPassThreshold = 50.0

type summaryConfig struct {
	passThreshold float64
}

// SummaryOption customises class summaries.
type SummaryOption func(*summaryConfig)

// WithPassThreshold overrides DefaultPassThreshold.
func WithPassThreshold(threshold float64) SummaryOption {
	return func(c *summaryConfig) {
		c.passThreshold = threshold
	}
}

// NewGradeDistribution returns a distribution with every letter bucket present.
func NewGradeDistribution() GradeDistribution {
	dist := make(GradeDistribution, len(Letters))
	for _, l := range Letters {
		dist[l] = 0
	}
	return dist
}

// SummarizeClass rolls per-student final grades up into class statistics.
// An empty input yields a zero-valued summary, never an error.
func SummarizeClass(classID string, students []FinalGradeCalculation, opts ...SummaryOption) ClassGradeSummary {
	cfg := summaryConfig{passThreshold: DefaultPassThreshold}
	for _, opt := range opts {
		opt(&cfg)
	}

	summary := ClassGradeSummary{
		ClassID:           classID,
		Students:          make([]StudentGradeReport, 0, len(students)),
		PassThreshold:     cfg.passThreshold,
		GradeDistribution: NewGradeDistribution(),
	}
	if len(students) == 0 {
		return summary
	}

	finals := make(stats.Float64Data, 0, len(students))
	passed := 0
	var sum float64
	for _, st := range students {
		grades := make([]float64, len(st.Breakdown))
		for i, c := range st.Breakdown {
			grades[i] = c.Grade
		}
		// letters always derive from FinalPercentage, not the incoming label
		letter := LetterGrade(st.FinalPercentage)
		ok := st.FinalPercentage >= cfg.passThreshold
		if ok {
			passed++
		}
		summary.GradeDistribution[letter]++
		summary.Students = append(summary.Students, StudentGradeReport{
			StudentID:        st.StudentID,
			StudentName:      st.StudentName,
			Average:          SubjectAverage(grades),
			FinalPercentage:  st.FinalPercentage,
			FinalLetterGrade: letter,
			Passed:           ok,
		})
		finals = append(finals, st.FinalPercentage)
		sum += st.FinalPercentage
	}

	n := float64(len(students))
	summary.AveragePercentage = round(sum/n, 1)
	summary.PassRate = math.Round(100 * float64(passed) / n)
	if median, err := stats.Median(finals); err == nil {
		summary.MedianPercentage = round(median, 1)
	}
	if maxVal, err := stats.Max(finals); err == nil {
		summary.HighestPercentage = maxVal
	}
	if minVal, err := stats.Min(finals); err == nil {
		summary.LowestPercentage = minVal
	}
	return summary
}

// SummarizeAssessment computes the average percentage and pass rate of one
// assessment across the students who sat it.
func SummarizeAssessment(scores []AssessmentScore, passThreshold float64) (AssessmentSummary, error) {
	if len(scores) == 0 {
		return AssessmentSummary{}, nil
	}
	first := scores[0]
	summary := AssessmentSummary{
		AssessmentID:   first.AssessmentID,
		AssessmentName: first.AssessmentName,
		AssessmentType: first.AssessmentType,
		Submissions:    len(scores),
	}
	var sum float64
	passed := 0
	for _, s := range scores {
		if s.AssessmentID != first.AssessmentID {
			return AssessmentSummary{}, invalidInput("mixed assessments %s and %s", first.AssessmentID, s.AssessmentID)
		}
		pct, err := percentage(s)
		if err != nil {
			return AssessmentSummary{}, err
		}
		sum += pct
		if pct >= passThreshold {
			passed++
		}
	}
	n := float64(len(scores))
	summary.AverageScore = round(sum/n, 1)
	summary.PassRate = math.Round(100 * float64(passed) / n)
	return summary, nil
}

// SummarizeAssessments averages assessment-level statistics without
// weighting. An empty input yields the zero value.
func SummarizeAssessments(items []AssessmentSummary) AssessmentRollup {
	if len(items) == 0 {
		return AssessmentRollup{}
	}
	var scoreSum, passSum float64
	for _, item := range items {
		scoreSum += item.AverageScore
		passSum += item.PassRate
	}
	n := float64(len(items))
	return AssessmentRollup{
		AverageScore:     round(scoreSum/n, 1),
		AveragePassRate:  round(passSum/n, 1),
		TotalAssessments: len(items),
	}
}

// MergeDistributions adds several grade distributions bucket by bucket.
func MergeDistributions(dists ...GradeDistribution) GradeDistribution {
	merged := NewGradeDistribution()
	for _, d := range dists {
		for letter, count := range d {
			merged[letter] += count
		}
	}
	return merged
}

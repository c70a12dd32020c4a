// Package grading turns raw assessment scores into weighted final grades,
// letter classifications and class/institution rollups.
//
// Every function in this package is pure: it only reads its arguments and
// returns freshly allocated results, so callers may invoke it concurrently
// for different students or classes without coordination.
package grading

// AssessmentType classifies an assessment.
type AssessmentType string

const (
	AssessmentExam       AssessmentType = "exam"
	AssessmentAssignment AssessmentType = "assignment"
	AssessmentPractical  AssessmentType = "practical"
	AssessmentProblemSet AssessmentType = "problem-set"
	AssessmentProject    AssessmentType = "project"
	AssessmentEssay      AssessmentType = "essay"
)

// Valid reports whether t is a supported assessment type.
func (t AssessmentType) Valid() bool {
	switch t {
	case AssessmentExam, AssessmentAssignment, AssessmentPractical, AssessmentProblemSet, AssessmentProject, AssessmentEssay:
		return true
	default:
		return false
	}
}

// AssessmentScore is one student's validated result for one assessment.
type AssessmentScore struct {
	StudentID      string         `json:"studentId"`
	AssessmentID   string         `json:"assessmentId"`
	AssessmentName string         `json:"assessmentName"`
	AssessmentType AssessmentType `json:"assessmentType"`
	ClassID        string         `json:"classId"`
	Score          float64        `json:"score"`
	MaxScore       float64        `json:"maxScore"`
	Weight         float64        `json:"weight"`
}

// GradeContribution is an assessment's share of a final grade after weight normalisation.
type GradeContribution struct {
	AssessmentID   string         `json:"assessmentId"`
	AssessmentType AssessmentType `json:"assessmentType"`
	AssessmentName string         `json:"assessmentName"`
	Grade          float64        `json:"grade"`
	Weight         float64        `json:"weight"`
	Contribution   float64        `json:"contribution"`
}

// FinalGradeCalculation is an immutable snapshot of one student's final grade computation.
type FinalGradeCalculation struct {
	StudentID        string              `json:"studentId"`
	StudentName      string              `json:"studentName"`
	FinalPercentage  float64             `json:"finalPercentage"`
	FinalLetterGrade Letter              `json:"finalLetterGrade"`
	Breakdown        []GradeContribution `json:"breakdown"`
}

// StudentGradeReport is one student's row inside a class summary.
// Average is the unweighted mean of assessment percentages and is reported
// alongside, not instead of, the weighted FinalPercentage.
type StudentGradeReport struct {
	StudentID        string  `json:"studentId"`
	StudentName      string  `json:"studentName"`
	Average          float64 `json:"average"`
	FinalPercentage  float64 `json:"finalPercentage"`
	FinalLetterGrade Letter  `json:"finalLetterGrade"`
	Passed           bool    `json:"passed"`
}

// GradeDistribution counts students per letter grade.
type GradeDistribution map[Letter]int

// ClassGradeSummary aggregates final grades for one class.
type ClassGradeSummary struct {
	ClassID           string               `json:"classId"`
	Students          []StudentGradeReport `json:"students"`
	AveragePercentage float64              `json:"averagePercentage"`
	MedianPercentage  float64              `json:"medianPercentage"`
	HighestPercentage float64              `json:"highestPercentage"`
	LowestPercentage  float64              `json:"lowestPercentage"`
	PassRate          float64              `json:"passRate"`
	PassThreshold     float64              `json:"passThreshold"`
	GradeDistribution GradeDistribution    `json:"gradeDistribution"`
}

// AssessmentSummary holds per-assessment statistics across a class.
type AssessmentSummary struct {
	AssessmentID   string         `json:"assessmentId"`
	AssessmentName string         `json:"assessmentName"`
	AssessmentType AssessmentType `json:"assessmentType"`
	AverageScore   float64        `json:"averageScore"`
	PassRate       float64        `json:"passRate"`
	Submissions    int            `json:"submissions"`
}

// AssessmentRollup is the institution-level view over assessment summaries.
type AssessmentRollup struct {
	AverageScore     float64 `json:"averageScore"`
	AveragePassRate  float64 `json:"averagePassRate"`
	TotalAssessments int     `json:"totalAssessments"`
}

// SubjectResult is a student's aggregate for one subject (class).
type SubjectResult struct {
	ClassID     string  `json:"classId"`
	Average     float64 `json:"average"`
	LetterGrade Letter  `json:"letterGrade"`
	Assessments int     `json:"assessments"`
}

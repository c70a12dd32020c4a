package models

import (
	"time"

	"github.com/noah-isme/sma-grading-api/internal/grading"
)

// Assessment is a gradable piece of work within a class.
type Assessment struct {
	ID        string                 `db:"id" json:"id"`
	ClassID   string                 `db:"class_id" json:"classId"`
	Name      string                 `db:"name" json:"name"`
	Type      grading.AssessmentType `db:"type" json:"type"`
	MaxScore  float64                `db:"max_score" json:"maxScore"`
	Weight    float64                `db:"weight" json:"weight"`
	Position  int                    `db:"position" json:"position"`
	DueDate   *time.Time             `db:"due_date" json:"dueDate,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time              `db:"updated_at" json:"updatedAt"`
}

// Score is a student's raw mark on one assessment.
type Score struct {
	ID           string    `db:"id" json:"id"`
	AssessmentID string    `db:"assessment_id" json:"assessmentId"`
	StudentID    string    `db:"student_id" json:"studentId"`
	Score        float64   `db:"score" json:"score"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// ScoreRow is a score joined with its assessment and student, the shape the grading engine consumes.
type ScoreRow struct {
	StudentID      string                 `db:"student_id"`
	StudentName    string                 `db:"student_name"`
	AssessmentID   string                 `db:"assessment_id"`
	AssessmentName string                 `db:"assessment_name"`
	AssessmentType grading.AssessmentType `db:"assessment_type"`
	ClassID        string                 `db:"class_id"`
	Score          float64                `db:"score"`
	MaxScore       float64                `db:"max_score"`
	Weight         float64                `db:"weight"`
}

// ToAssessmentScore converts the row into the engine input type.
func (r ScoreRow) ToAssessmentScore() grading.AssessmentScore {
	return grading.AssessmentScore{
		StudentID:      r.StudentID,
		AssessmentID:   r.AssessmentID,
		AssessmentName: r.AssessmentName,
		AssessmentType: r.AssessmentType,
		ClassID:        r.ClassID,
		Score:          r.Score,
		MaxScore:       r.MaxScore,
		Weight:         r.Weight,
	}
}

// ToAssessmentScores converts a batch of rows preserving order.
func ToAssessmentScores(rows []ScoreRow) []grading.AssessmentScore {
	out := make([]grading.AssessmentScore, len(rows))
	for i, r := range rows {
		out[i] = r.ToAssessmentScore()
	}
	return out
}

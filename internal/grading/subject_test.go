package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLetterGradeThresholds(t *testing.T) {
	cases := []struct {
		pct    float64
		letter Letter
	}{
		{100, LetterA},
		{90, LetterA},
		{89.9, LetterB},
		{80, LetterB},
		{79.99, LetterC},
		{70, LetterC},
		{60, LetterD},
		{59.9, LetterE},
		{50, LetterE},
		{49.9, LetterF},
		{0, LetterF},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.letter, LetterGrade(tc.pct), "percentage %.2f", tc.pct)
	}
}

func TestLetterGradeOutOfRangeNotRejected(t *testing.T) {
	assert.Equal(t, LetterA, LetterGrade(140))
	assert.Equal(t, LetterF, LetterGrade(-3))
}

func TestLetterGradeMonotonic(t *testing.T) {
	prev := LetterGrade(0)
	for p := 0.0; p <= 100.0; p += 0.1 {
		current := LetterGrade(p)
		assert.GreaterOrEqual(t, current.Rank(), prev.Rank(), "letter dropped at %.1f", p)
		prev = current
	}
}

func TestLetterRank(t *testing.T) {
	assert.Equal(t, 5, LetterA.Rank())
	assert.Equal(t, 0, LetterF.Rank())
	assert.Equal(t, -1, Letter("Z").Rank())
}

func TestSubjectAverage(t *testing.T) {
	assert.Equal(t, 0.0, SubjectAverage(nil))
	assert.Equal(t, 0.0, SubjectAverage([]float64{}))
	assert.Equal(t, 85.0, SubjectAverage([]float64{80, 90}))
	assert.Equal(t, 66.67, SubjectAverage([]float64{100, 50, 50}))
}

func TestSummarizeSubjects(t *testing.T) {
	math := score("stu-1", "m1", 90, 100, 50)
	math.ClassID = "math"
	math2 := score("stu-1", "m2", 35, 50, 50)
	math2.ClassID = "math"
	bio := score("stu-1", "b1", 18, 20, 100)
	bio.ClassID = "bio"

	results, err := SummarizeSubjects([]AssessmentScore{bio, math, math2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "bio", results[0].ClassID)
	assert.Equal(t, 90.0, results[0].Average)
	assert.Equal(t, LetterA, results[0].LetterGrade)
	assert.Equal(t, "math", results[1].ClassID)
	assert.Equal(t, 80.0, results[1].Average)
	assert.Equal(t, LetterB, results[1].LetterGrade)
	assert.Equal(t, 2, results[1].Assessments)
}

func TestSummarizeSubjectsRejectsZeroMax(t *testing.T) {
	_, err := SummarizeSubjects([]AssessmentScore{score("stu-1", "a", 1, 0, 10)})
	require.Error(t, err)
}

package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-grading-api/internal/grading"
)

const sampleScores = `[
  {"studentId":"stu-1","assessmentId":"mid","assessmentName":"Midterm","assessmentType":"exam","classId":"class-1","score":80,"maxScore":100,"weight":60},
  {"studentId":"stu-1","assessmentId":"hw","assessmentName":"Homework","assessmentType":"assignment","classId":"class-1","score":30,"maxScore":50,"weight":40},
  {"studentId":"stu-2","assessmentId":"mid","assessmentName":"Midterm","assessmentType":"exam","classId":"class-1","score":40,"maxScore":100,"weight":60},
  {"studentId":"stu-2","assessmentId":"hw","assessmentName":"Homework","assessmentType":"assignment","classId":"class-1","score":20,"maxScore":50,"weight":40},
  {"studentId":"stu-3","assessmentId":"mid","assessmentName":"Midterm","assessmentType":"exam","classId":"class-1","score":120,"maxScore":100,"weight":60},
  {"studentId":"stu-4","assessmentId":"quiz","assessmentName":"Pop quiz","assessmentType":"exam","classId":"class-2","score":5,"maxScore":10,"weight":0}
]`

func TestComputeRollsUpPerClass(t *testing.T) {
	raw, err := decodeScores(strings.NewReader(sampleScores))
	require.NoError(t, err)

	result, err := compute(raw, 50)
	require.NoError(t, err)

	require.Len(t, result.rejected, 1)
	assert.Equal(t, 4, result.rejected[0].index)
	assert.Contains(t, result.rejected[0].reason, "exceeds max score")

	require.Len(t, result.classes, 2)
	class1 := result.classes[0]
	assert.Equal(t, "class-1", class1.classID)
	require.Len(t, class1.summary.Students, 2)
	assert.Equal(t, 72.0, class1.summary.Students[0].FinalPercentage)
	assert.Equal(t, grading.LetterC, class1.summary.Students[0].FinalLetterGrade)
	assert.Equal(t, 40.0, class1.summary.Students[1].FinalPercentage)
	assert.Equal(t, 56.0, class1.summary.AveragePercentage)
	assert.Equal(t, 50.0, class1.summary.PassRate)
	assert.Equal(t, grading.AssessmentRollup{AverageScore: 55, AveragePassRate: 50, TotalAssessments: 2}, class1.rollup)
	assert.Empty(t, class1.ungraded)

	class2 := result.classes[1]
	assert.Empty(t, class2.summary.Students)
	require.Len(t, class2.ungraded, 1)
	assert.Equal(t, "stu-4", class2.ungraded[0].studentID)
}

func TestRunRendersTables(t *testing.T) {
	color.NoColor = true
	path := filepath.Join(t.TempDir(), "scores.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleScores), 0o600))

	var out bytes.Buffer
	require.NoError(t, run(path, 60, strings.NewReader(""), &out))

	text := out.String()
	assert.Contains(t, text, "=== Class class-1 ===")
	assert.Contains(t, text, "Midterm")
	assert.Contains(t, text, "1 record(s) skipped")
	assert.Contains(t, text, "ungraded stu-4")
	assert.Contains(t, strings.ToUpper(text), "ROLLUP (2 ASSESSMENTS)")
}

func TestRunReadsStdin(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	require.NoError(t, run("", 50, strings.NewReader(sampleScores), &out))
	assert.Contains(t, out.String(), "class-2")
}

func TestRunRejectsBadInput(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run("", 120, strings.NewReader(sampleScores), &out))
	assert.Error(t, run("", math.NaN(), strings.NewReader(sampleScores), &out))
	assert.Error(t, run("", 50, strings.NewReader(`{"not":"an array"}`), &out))
	assert.Error(t, run(filepath.Join(t.TempDir(), "missing.json"), 50, nil, &out))
}

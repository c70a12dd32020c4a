package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/grading"
	"github.com/noah-isme/sma-grading-api/internal/models"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

func TestGradeServiceCreateAssessment(t *testing.T) {
	f := newGradingFixture()
	svc := f.gradeService(nil)

	created, err := svc.CreateAssessment(context.Background(), dto.CreateAssessmentRequest{
		ClassID:  "class-1",
		Name:     " Final exam ",
		Type:     "EXAM",
		MaxScore: 100,
		Weight:   30,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Final exam", created.Name)
	assert.Equal(t, grading.AssessmentExam, created.Type)
	assert.Contains(t, f.cache.invalidated, "grading:class:class-1:*")
	assert.Contains(t, f.cache.invalidated, "grading:dashboard:*")
}

func TestGradeServiceCreateAssessmentValidation(t *testing.T) {
	f := newGradingFixture()
	svc := f.gradeService(nil)
	ctx := context.Background()

	_, err := svc.CreateAssessment(ctx, dto.CreateAssessmentRequest{ClassID: "class-1", Name: "Quiz", Type: "quiz", MaxScore: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateAssessment(ctx, dto.CreateAssessmentRequest{ClassID: "class-1", Name: "Quiz", Type: "exam", MaxScore: 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateAssessment(ctx, dto.CreateAssessmentRequest{ClassID: "class-1", Name: "Quiz", Type: "exam", MaxScore: 10, Weight: -1})
	require.Error(t, err)

	_, err = svc.CreateAssessment(ctx, dto.CreateAssessmentRequest{ClassID: "missing", Name: "Quiz", Type: "exam", MaxScore: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, f.assessments.created)
}

func TestGradeServiceListAssessments(t *testing.T) {
	f := newGradingFixture()
	resp, err := f.gradeService(nil).ListAssessments(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Len(t, resp.Assessments, 3)
	assert.Equal(t, 110.0, resp.TotalWeight)
}

func TestGradeServiceRecordScore(t *testing.T) {
	f := newGradingFixture()
	svc := f.gradeService(nil)
	ctx := context.Background()

	score, err := svc.RecordScore(ctx, dto.RecordScoreRequest{AssessmentID: "essay", StudentID: "stu-3", Score: fptr(15)})
	require.NoError(t, err)
	assert.Equal(t, 15.0, score.Score)
	assert.Equal(t, 1, f.scores.upserts)

	_, err = svc.RecordScore(ctx, dto.RecordScoreRequest{AssessmentID: "essay", StudentID: "stu-3", Score: fptr(21)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.RecordScore(ctx, dto.RecordScoreRequest{AssessmentID: "essay", StudentID: "stu-3", Score: fptr(-1)})
	require.Error(t, err)

	_, err = svc.RecordScore(ctx, dto.RecordScoreRequest{AssessmentID: "essay", StudentID: "stu-4", Score: fptr(5)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enrolled")

	_, err = svc.RecordScore(ctx, dto.RecordScoreRequest{AssessmentID: "nope", StudentID: "stu-1", Score: fptr(5)})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Equal(t, 1, f.scores.upserts)
}

func TestGradeServiceBulkAtomicRejectsBatch(t *testing.T) {
	f := newGradingFixture()
	svc := f.gradeService(nil)

	_, err := svc.BulkRecordScores(context.Background(), dto.BulkScoreRequest{
		AssessmentID: "essay",
		Items: []dto.BulkScoreItem{
			{StudentID: "stu-1", Value: fptr(10)},
			{StudentID: "stu-2", Value: fptr(25)},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "item 1 (stu-2)")
	assert.Zero(t, f.scores.bulkCalls)
}

func TestGradeServiceBulkPartialStoresValidItems(t *testing.T) {
	f := newGradingFixture()
	svc := f.gradeService(nil)

	resp, err := svc.BulkRecordScores(context.Background(), dto.BulkScoreRequest{
		AssessmentID: "essay",
		Mode:         dto.BulkModePartialOnError,
		Items: []dto.BulkScoreItem{
			{StudentID: "stu-1", Value: fptr(10)},
			{StudentID: "stu-4", Value: fptr(10)},
			{StudentID: "stu-2", Value: fptr(25)},
			{StudentID: "stu-1", Value: fptr(12)},
			{StudentID: "stu-3", Value: fptr(20)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Stored)
	require.Len(t, resp.Failed, 3)
	assert.Equal(t, 1, resp.Failed[0].Index)
	assert.Equal(t, "student is not enrolled in the assessment's class", resp.Failed[0].Reason)
	assert.Equal(t, 2, resp.Failed[1].Index)
	assert.Equal(t, "duplicate student in batch", resp.Failed[2].Reason)
	assert.Equal(t, 1, f.scores.bulkCalls)
}

func TestGradeServiceBulkRejectsUnknownMode(t *testing.T) {
	f := newGradingFixture()
	_, err := f.gradeService(nil).BulkRecordScores(context.Background(), dto.BulkScoreRequest{
		AssessmentID: "essay",
		Mode:         "sometimes",
		Items:        []dto.BulkScoreItem{{StudentID: "stu-1", Value: fptr(1)}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestGradeServiceStudentFinalGrade(t *testing.T) {
	f := newGradingFixture()
	resp, err := f.gradeService(nil).StudentFinalGrade(context.Background(), "class-1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "Ayu", resp.Grade.StudentName)
	assert.Equal(t, 72.0, resp.Grade.FinalPercentage)
	assert.Equal(t, grading.LetterC, resp.Grade.FinalLetterGrade)
	require.Len(t, resp.Grade.Breakdown, 2)
}

func TestGradeServiceStudentFinalGradeWithoutScores(t *testing.T) {
	f := newGradingFixture()
	metrics := NewMetricsService()
	_, err := f.gradeService(metrics).StudentFinalGrade(context.Background(), "class-1", "stu-3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidInput))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.gradeComputations.WithLabelValues(OutcomeInvalidInput)))

	_, err = f.gradeService(nil).StudentFinalGrade(context.Background(), "class-2", "stu-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestGradeServiceStudentSubjects(t *testing.T) {
	f := newGradingFixture()
	resp, err := f.gradeService(nil).StudentSubjects(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "Ayu", resp.StudentName)
	require.Len(t, resp.Subjects, 1)
	assert.Equal(t, "class-1", resp.Subjects[0].ClassID)
	assert.Equal(t, 70.0, resp.Subjects[0].Average)
}

func TestGradeServiceClassReport(t *testing.T) {
	f := newGradingFixture()
	metrics := NewMetricsService()
	svc := f.gradeService(metrics)

	report, hit, err := svc.ClassReport(context.Background(), "class-1", nil)
	require.NoError(t, err)
	assert.False(t, hit)

	summary := report.Summary
	require.Len(t, summary.Students, 2)
	assert.Equal(t, "stu-1", summary.Students[0].StudentID)
	assert.Equal(t, "Ayu", summary.Students[0].StudentName)
	assert.Equal(t, 72.0, summary.Students[0].FinalPercentage)
	assert.Equal(t, 70.0, summary.Students[0].Average)
	assert.Equal(t, 56.0, summary.AveragePercentage)
	assert.Equal(t, 50.0, summary.PassRate)
	assert.Equal(t, 1, summary.GradeDistribution[grading.LetterC])
	assert.Equal(t, 1, summary.GradeDistribution[grading.LetterF])

	require.Len(t, report.UngradedStudents, 1)
	assert.Equal(t, "stu-3", report.UngradedStudents[0].StudentID)
	assert.Equal(t, reasonNoScores, report.UngradedStudents[0].Reason)

	require.Len(t, report.Assessments, 3)
	assert.Equal(t, "mid", report.Assessments[0].AssessmentID)
	assert.Equal(t, 60.0, report.Assessments[0].AverageScore)
	assert.Equal(t, 0, report.Assessments[2].Submissions)
	assert.Equal(t, grading.AssessmentRollup{AverageScore: 55, AveragePassRate: 50, TotalAssessments: 2}, report.AssessmentRollup)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.gradeComputations.WithLabelValues(OutcomeOK)))

	cached, hit, err := svc.ClassReport(context.Background(), "class-1", fptr(50))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, report.Summary.AveragePercentage, cached.Summary.AveragePercentage)
}

func TestGradeServiceClassReportThreshold(t *testing.T) {
	f := newGradingFixture()
	svc := f.gradeService(nil)

	report, _, err := svc.ClassReport(context.Background(), "class-1", fptr(30))
	require.NoError(t, err)
	assert.Equal(t, 100.0, report.Summary.PassRate)
	assert.Equal(t, 30.0, report.Summary.PassThreshold)

	_, _, err = svc.ClassReport(context.Background(), "class-1", fptr(101))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestGradeServiceClassReportZeroWeightStudentIsUngraded(t *testing.T) {
	f := newGradingFixture()
	f.assessments.assessments = append(f.assessments.assessments, zeroWeightAssessment())
	f.scores.scores = append(f.scores.scores, scoreFor("bonus", "stu-3", 5))

	report, _, err := f.gradeService(nil).ClassReport(context.Background(), "class-1", nil)
	require.NoError(t, err)
	require.Len(t, report.UngradedStudents, 1)
	assert.Equal(t, "stu-3", report.UngradedStudents[0].StudentID)
	assert.NotEqual(t, reasonNoScores, report.UngradedStudents[0].Reason)
	assert.Len(t, report.Summary.Students, 2)
}

func TestGradeServiceScoreInvalidatesReport(t *testing.T) {
	f := newGradingFixture()
	svc := f.gradeService(nil)
	ctx := context.Background()

	_, _, err := svc.ClassReport(ctx, "class-1", nil)
	require.NoError(t, err)
	require.True(t, f.cache.has(classReportKey("class-1", 50)))

	_, err = svc.RecordScore(ctx, dto.RecordScoreRequest{AssessmentID: "mid", StudentID: "stu-3", Score: fptr(90)})
	require.NoError(t, err)
	assert.False(t, f.cache.has(classReportKey("class-1", 50)))

	report, hit, err := svc.ClassReport(ctx, "class-1", nil)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, report.UngradedStudents)
}

func TestGradeServiceClassReportStoreFailure(t *testing.T) {
	f := newGradingFixture()
	f.scores.err = errors.New("connection reset")
	_, _, err := f.gradeService(nil).ClassReport(context.Background(), "class-1", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func zeroWeightAssessment() models.Assessment {
	return models.Assessment{ID: "bonus", ClassID: "class-1", Name: "Bonus", Type: grading.AssessmentProject, MaxScore: 10, Weight: 0, Position: 4}
}

func scoreFor(assessmentID, studentID string, value float64) models.Score {
	return models.Score{AssessmentID: assessmentID, StudentID: studentID, Score: value}
}

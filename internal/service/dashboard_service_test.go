package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/grading"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

func newDashboardServiceForTest(f *gradingFixture) *DashboardService {
	svc := NewDashboardService(DashboardServiceParams{
		Classes:    f.classes,
		Grades:     f.gradeService(nil),
		Attendance: f.attendanceService(),
		Cache:      f.cache,
		Config: DashboardServiceConfig{
			LowAttendance: 75,
			LowPassRate:   60,
			PassThreshold: 50,
			Workers:       2,
		},
	})
	svc.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestDashboardServiceClass(t *testing.T) {
	f := newGradingFixture()
	svc := newDashboardServiceForTest(f)

	dash, hit, err := svc.Class(context.Background(), "class-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "XI IPA 1 Math", dash.ClassName)
	assert.Equal(t, 3, dash.Students)
	assert.Equal(t, 1, dash.Ungraded)
	assert.Equal(t, 56.0, dash.AveragePercentage)
	assert.Equal(t, 50.0, dash.PassRate)
	assert.Equal(t, 50.0, dash.AttendanceRate)
	assert.Equal(t, 2, dash.AssessmentRollup.TotalAssessments)

	_, hit, err = svc.Class(context.Background(), "class-1")
	require.NoError(t, err)
	assert.True(t, hit)

	_, _, err = svc.Class(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDashboardServiceOverview(t *testing.T) {
	f := newGradingFixture()
	svc := newDashboardServiceForTest(f)

	overview, hit, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, overview.Classes, 2)
	assert.Equal(t, "class-1", overview.Classes[0].ClassID)

	assert.Equal(t, 67.3, overview.AveragePercentage)
	assert.Equal(t, 67.0, overview.PassRate)
	assert.Equal(t, 60.0, overview.AttendanceRate)
	assert.Equal(t, 1, overview.GradeDistribution[grading.LetterA])
	assert.Equal(t, 1, overview.GradeDistribution[grading.LetterC])
	assert.Equal(t, 1, overview.GradeDistribution[grading.LetterF])
	assert.Equal(t, grading.AssessmentRollup{AverageScore: 66.7, AveragePassRate: 66.7, TotalAssessments: 3}, overview.AssessmentRollup)

	require.Len(t, overview.Alerts, 2)
	assert.Equal(t, dto.AlertLowPassRate, overview.Alerts[0].Kind)
	assert.Equal(t, "class-1", overview.Alerts[0].ClassID)
	assert.Equal(t, dto.AlertLowAttendance, overview.Alerts[1].Kind)
	assert.Equal(t, time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC), overview.GeneratedAt)

	_, hit, err = svc.Overview(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestDashboardServiceOverviewWithoutClasses(t *testing.T) {
	f := newGradingFixture()
	f.classes.classes = nil
	overview, _, err := newDashboardServiceForTest(f).Overview(context.Background())
	require.NoError(t, err)
	assert.Empty(t, overview.Classes)
	assert.Empty(t, overview.Alerts)
	assert.Equal(t, 0.0, overview.PassRate)
	assert.Equal(t, 0.0, overview.AttendanceRate)
	assert.Len(t, overview.GradeDistribution, len(grading.Letters))
}

func TestDashboardServiceSkipsAlertsWithoutData(t *testing.T) {
	f := newGradingFixture()
	f.scores.scores = nil
	f.attendance.records = nil
	overview, _, err := newDashboardServiceForTest(f).Overview(context.Background())
	require.NoError(t, err)
	assert.Empty(t, overview.Alerts)
}

func TestDashboardServiceListFailure(t *testing.T) {
	f := newGradingFixture()
	f.classes.err = errors.New("db down")
	_, _, err := newDashboardServiceForTest(f).Overview(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

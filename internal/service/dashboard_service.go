package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/grading"
	"github.com/noah-isme/sma-grading-api/internal/models"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

type classLister interface {
	List(ctx context.Context) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type gradeReportSource interface {
	ClassReport(ctx context.Context, classID string, passThreshold *float64) (*dto.ClassGradeReport, bool, error)
}

type attendanceSource interface {
	ClassStats(ctx context.Context, classID string, query dto.AttendanceQuery) (*dto.AttendanceStatsResponse, error)
}

const (
	dashboardOverviewKey = cacheKeyPrefix + "dashboard:overview"
	dashboardClassKey    = cacheKeyPrefix + "dashboard:class:"
)

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL      time.Duration
	LowAttendance float64
	LowPassRate   float64
	PassThreshold float64
	Workers       int
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Classes    classLister
	Grades     gradeReportSource
	Attendance attendanceSource
	Cache      reportCache
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// DashboardService composes class and institution dashboards from grade reports and attendance.
type DashboardService struct {
	classes    classLister
	grades     gradeReportSource
	attendance attendanceSource
	cache      reportCache
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.LowAttendance <= 0 {
		cfg.LowAttendance = 75
	}
	if cfg.LowPassRate <= 0 {
		cfg.LowPassRate = 60
	}
	if cfg.PassThreshold < 0 || cfg.PassThreshold > 100 {
		cfg.PassThreshold = grading.DefaultPassThreshold
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := params.Cache
	if cache == nil {
		cache = (*CacheService)(nil)
	}
	return &DashboardService{
		classes:    params.Classes,
		grades:     params.Grades,
		attendance: params.Attendance,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// classSnapshot keeps the raw inputs behind a ClassDashboard for institution rollups.
type classSnapshot struct {
	dashboard   dto.ClassDashboard
	finals      []grading.FinalGradeCalculation
	assessments []grading.AssessmentSummary
	attendance  grading.AttendanceStats
}

// Class returns one class's dashboard and whether it came from cache.
func (s *DashboardService) Class(ctx context.Context, classID string) (*dto.ClassDashboard, bool, error) {
	key := dashboardClassKey + classID
	var cached dto.ClassDashboard
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, false, lookupError(err, "class not found", "failed to load class")
	}
	snap, err := s.snapshot(ctx, *class)
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, key, snap.dashboard, s.cfg.CacheTTL)
	return &snap.dashboard, false, nil
}

// Overview rolls every class up into the institution dashboard.
func (s *DashboardService) Overview(ctx context.Context) (*dto.InstitutionDashboard, bool, error) {
	var cached dto.InstitutionDashboard
	if hit, _ := s.cache.Get(ctx, dashboardOverviewKey, &cached); hit {
		return &cached, true, nil
	}
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to list classes")
	}

	snaps := make([]classSnapshot, len(classes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, class := range classes {
		i, class := i, class
		g.Go(func() error {
			snap, err := s.snapshot(gctx, class)
			if err != nil {
				return err
			}
			snaps[i] = *snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	result := s.rollup(snaps)
	if err := s.cache.Set(ctx, dashboardOverviewKey, result, s.cfg.CacheTTL); err != nil {
		s.logger.Debug("dashboard overview not cached", zap.Error(err))
	}
	return result, false, nil
}

func (s *DashboardService) snapshot(ctx context.Context, class models.Class) (*classSnapshot, error) {
	threshold := s.cfg.PassThreshold
	report, _, err := s.grades.ClassReport(ctx, class.ID, &threshold)
	if err != nil {
		return nil, err
	}
	attendance, err := s.attendance.ClassStats(ctx, class.ID, dto.AttendanceQuery{})
	if err != nil {
		return nil, err
	}

	finals := make([]grading.FinalGradeCalculation, len(report.Summary.Students))
	for i, st := range report.Summary.Students {
		finals[i] = grading.FinalGradeCalculation{
			StudentID:        st.StudentID,
			StudentName:      st.StudentName,
			FinalPercentage:  st.FinalPercentage,
			FinalLetterGrade: st.FinalLetterGrade,
		}
	}
	assessments := make([]grading.AssessmentSummary, 0, len(report.Assessments))
	for _, a := range report.Assessments {
		if a.Submissions > 0 {
			assessments = append(assessments, a)
		}
	}
	return &classSnapshot{
		dashboard: dto.ClassDashboard{
			ClassID:           class.ID,
			ClassName:         class.Name,
			Students:          len(report.Summary.Students) + len(report.UngradedStudents),
			AveragePercentage: report.Summary.AveragePercentage,
			PassRate:          report.Summary.PassRate,
			AttendanceRate:    attendance.Rate,
			GradeDistribution: report.Summary.GradeDistribution,
			AssessmentRollup:  report.AssessmentRollup,
			Ungraded:          len(report.UngradedStudents),
		},
		finals:      finals,
		assessments: assessments,
		attendance:  attendance.Stats,
	}, nil
}

func (s *DashboardService) rollup(snaps []classSnapshot) *dto.InstitutionDashboard {
	var (
		finals      []grading.FinalGradeCalculation
		assessments []grading.AssessmentSummary
		attendance  grading.AttendanceStats
	)
	classes := make([]dto.ClassDashboard, 0, len(snaps))
	distributions := make([]grading.GradeDistribution, 0, len(snaps))
	alerts := make([]dto.DashboardAlert, 0)
	for _, snap := range snaps {
		classes = append(classes, snap.dashboard)
		distributions = append(distributions, snap.dashboard.GradeDistribution)
		finals = append(finals, snap.finals...)
		assessments = append(assessments, snap.assessments...)
		attendance = attendance.Add(snap.attendance)
		alerts = append(alerts, s.alertsFor(snap)...)
	}

	summary := grading.SummarizeClass("", finals, grading.WithPassThreshold(s.cfg.PassThreshold))
	return &dto.InstitutionDashboard{
		Classes:           classes,
		AveragePercentage: summary.AveragePercentage,
		PassRate:          summary.PassRate,
		AttendanceRate:    grading.AttendanceRate(attendance),
		GradeDistribution: grading.MergeDistributions(distributions...),
		AssessmentRollup:  grading.SummarizeAssessments(assessments),
		Alerts:            alerts,
		GeneratedAt:       s.now().UTC(),
	}
}

// alertsFor flags classes below the configured floors. Classes without graded
// students or attendance marks raise nothing for that metric.
func (s *DashboardService) alertsFor(snap classSnapshot) []dto.DashboardAlert {
	var alerts []dto.DashboardAlert
	d := snap.dashboard
	if len(snap.finals) > 0 && d.PassRate < s.cfg.LowPassRate {
		alerts = append(alerts, dto.DashboardAlert{ClassID: d.ClassID, ClassName: d.ClassName, Kind: dto.AlertLowPassRate, Value: d.PassRate, Threshold: s.cfg.LowPassRate})
	}
	if snap.attendance.Total > 0 && d.AttendanceRate < s.cfg.LowAttendance {
		alerts = append(alerts, dto.DashboardAlert{ClassID: d.ClassID, ClassName: d.ClassName, Kind: dto.AlertLowAttendance, Value: d.AttendanceRate, Threshold: s.cfg.LowAttendance})
	}
	return alerts
}

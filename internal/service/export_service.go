package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/grading"
	"github.com/noah-isme/sma-grading-api/internal/models"
	"github.com/noah-isme/sma-grading-api/pkg/export"
	"github.com/noah-isme/sma-grading-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService turns a report job into a rendered file in storage and
// issues the signed token that downloads it.
type ExportService struct {
	classes    classReader
	grades     gradeReportSource
	attendance attendanceSource
	storage    fileStorage
	renderers  map[models.ReportFormat]datasetRenderer
	signer     *storage.SignedURLSigner
	logger     *zap.Logger
	cfg        ExportConfig
	now        func() time.Time
}

// ExportServiceParams groups ExportService dependencies. Nil renderers default to pkg/export.
type ExportServiceParams struct {
	Classes    classReader
	Grades     gradeReportSource
	Attendance attendanceSource
	Storage    fileStorage
	Signer     *storage.SignedURLSigner
	CSV        datasetRenderer
	PDF        datasetRenderer
	Logger     *zap.Logger
	Config     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	cfg.APIPrefix = strings.TrimRight(cfg.APIPrefix, "/")
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	renderers := map[models.ReportFormat]datasetRenderer{
		models.ReportFormatCSV: export.NewCSVExporter(),
		models.ReportFormatPDF: export.NewPDFExporter(),
	}
	if params.CSV != nil {
		renderers[models.ReportFormatCSV] = params.CSV
	}
	if params.PDF != nil {
		renderers[models.ReportFormatPDF] = params.PDF
	}
	return &ExportService{
		classes:    params.Classes,
		grades:     params.Grades,
		attendance: params.Attendance,
		storage:    params.Storage,
		renderers:  renderers,
		signer:     params.Signer,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Generate renders the job's dataset in its requested format, saves it and
// signs a download token for it.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, errors.New("export: nil job")
	}
	renderer, ok := s.renderers[job.Params.Format]
	if !ok {
		return nil, fmt.Errorf("export: unsupported format %q", job.Params.Format)
	}
	dataset, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, fmt.Errorf("export: render %s: %w", job.Params.Format, err)
	}
	relPath, err := s.storage.Save(s.exportName(job), payload)
	if err != nil {
		return nil, fmt.Errorf("export: save: %w", err)
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, fmt.Errorf("export: sign: %w", err)
	}
	s.logger.Debug("export stored", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("bytes", len(payload)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          s.cfg.APIPrefix + "/export/" + token,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken verifies a download token and returns what it points at.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes stored files older than ttl, or older than the configured
// ResultTTL when ttl is not positive.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// exportName is <type>_<class>_<utc timestamp>.<format>.
func (s *ExportService) exportName(job *models.ReportJob) string {
	return fmt.Sprintf("%s_%s_%s.%s",
		job.Type,
		sanitizeFilename(job.Params.ClassID),
		s.now().UTC().Format("20060102_150405"),
		job.Params.Format,
	)
}

// sanitizeFilename keeps letters, digits, '-' and '_', turns spaces into '_'
// and everything else into '-', capped at 100 bytes.
func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r == '-' || r == '_', r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			return r
		default:
			return '-'
		}
	}, raw)
	if len(cleaned) > 100 {
		cleaned = cleaned[:100]
	}
	return cleaned
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, error) {
	class, err := s.classes.FindByID(ctx, job.Params.ClassID)
	if err != nil {
		return export.Dataset{}, lookupError(err, "class not found", "failed to load class")
	}
	switch job.Type {
	case models.ReportTypeClassGrades:
		return s.buildGradeDataset(ctx, class, job.Params)
	case models.ReportTypeAssessments:
		return s.buildAssessmentDataset(ctx, class, job.Params)
	case models.ReportTypeAttendance:
		return s.buildAttendanceDataset(ctx, class, job.Params)
	default:
		return export.Dataset{}, fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildGradeDataset(ctx context.Context, class *models.Class, params models.ReportJobParams) (export.Dataset, error) {
	report, _, err := s.grades.ClassReport(ctx, class.ID, params.PassThreshold)
	if err != nil {
		return export.Dataset{}, err
	}
	summary := report.Summary
	rows := make([]map[string]string, 0, len(summary.Students)+len(report.UngradedStudents))
	for _, st := range summary.Students {
		rows = append(rows, map[string]string{
			"Student ID": st.StudentID,
			"Student":    st.StudentName,
			"Average":    formatFloat(st.Average),
			"Final (%)":  formatFloat(st.FinalPercentage),
			"Letter":     string(st.FinalLetterGrade),
			"Passed":     yesNo(st.Passed),
		})
	}
	for _, st := range report.UngradedStudents {
		rows = append(rows, map[string]string{
			"Student ID": st.StudentID,
			"Student":    st.StudentName,
			"Letter":     "-",
			"Passed":     st.Reason,
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Class Grade Report %s", class.Name),
		Headers: []string{"Student ID", "Student", "Average", "Final (%)", "Letter", "Passed"},
		Numeric: []string{"Average", "Final (%)"},
		Rows:    rows,
		Summary: [][2]string{
			{"Average (%)", formatFloat(summary.AveragePercentage)},
			{"Median (%)", formatFloat(summary.MedianPercentage)},
			{"Highest (%)", formatFloat(summary.HighestPercentage)},
			{"Lowest (%)", formatFloat(summary.LowestPercentage)},
			{"Pass rate (%)", formatFloat(summary.PassRate)},
			{"Pass threshold", formatFloat(summary.PassThreshold)},
			{"Distribution", formatDistribution(summary.GradeDistribution)},
			{"Ungraded", strconv.Itoa(len(report.UngradedStudents))},
		},
	}, nil
}

func (s *ExportService) buildAssessmentDataset(ctx context.Context, class *models.Class, params models.ReportJobParams) (export.Dataset, error) {
	report, _, err := s.grades.ClassReport(ctx, class.ID, params.PassThreshold)
	if err != nil {
		return export.Dataset{}, err
	}
	rows := make([]map[string]string, 0, len(report.Assessments))
	for _, a := range report.Assessments {
		rows = append(rows, map[string]string{
			"Assessment":    a.AssessmentName,
			"Type":          string(a.AssessmentType),
			"Submissions":   strconv.Itoa(a.Submissions),
			"Average (%)":   formatFloat(a.AverageScore),
			"Pass Rate (%)": formatFloat(a.PassRate),
		})
	}
	rollup := report.AssessmentRollup
	return export.Dataset{
		Title:   fmt.Sprintf("Assessment Report %s", class.Name),
		Headers: []string{"Assessment", "Type", "Submissions", "Average (%)", "Pass Rate (%)"},
		Numeric: []string{"Submissions", "Average (%)", "Pass Rate (%)"},
		Rows:    rows,
		Summary: [][2]string{
			{"Assessments sat", strconv.Itoa(rollup.TotalAssessments)},
			{"Average (%)", formatFloat(rollup.AverageScore)},
			{"Average pass rate (%)", formatFloat(rollup.AveragePassRate)},
		},
	}, nil
}

func (s *ExportService) buildAttendanceDataset(ctx context.Context, class *models.Class, params models.ReportJobParams) (export.Dataset, error) {
	stats, err := s.attendance.ClassStats(ctx, class.ID, dto.AttendanceQuery{From: params.From, To: params.To})
	if err != nil {
		return export.Dataset{}, err
	}
	rows := make([]map[string]string, 0, len(stats.Students))
	for _, st := range stats.Students {
		rows = append(rows, attendanceRow(st.StudentID, st.StudentName, st.Stats, st.Rate))
	}
	title := fmt.Sprintf("Attendance Report %s", class.Name)
	if params.From != "" || params.To != "" {
		title = fmt.Sprintf("%s (%s to %s)", title, orDash(params.From), orDash(params.To))
	}
	return export.Dataset{
		Title:   title,
		Headers: []string{"Student ID", "Student", "Present", "Late", "Absent", "Excused", "Total", "Rate (%)"},
		Numeric: []string{"Present", "Late", "Absent", "Excused", "Total", "Rate (%)"},
		Rows:    rows,
		Summary: [][2]string{
			{"Marks", strconv.Itoa(stats.Stats.Total)},
			{"Attendance rate (%)", formatFloat(stats.Rate)},
		},
	}, nil
}

func attendanceRow(id, name string, stats grading.AttendanceStats, rate float64) map[string]string {
	return map[string]string{
		"Student ID": id,
		"Student":    name,
		"Present":    strconv.Itoa(stats.Present),
		"Late":       strconv.Itoa(stats.Late),
		"Absent":     strconv.Itoa(stats.Absent),
		"Excused":    strconv.Itoa(stats.Excused),
		"Total":      strconv.Itoa(stats.Total),
		"Rate (%)":   formatFloat(rate),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDistribution(dist grading.GradeDistribution) string {
	parts := make([]string, 0, len(grading.Letters))
	for _, l := range grading.Letters {
		parts = append(parts, fmt.Sprintf("%s:%d", l, dist[l]))
	}
	return strings.Join(parts, " ")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

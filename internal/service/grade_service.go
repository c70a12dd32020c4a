package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/grading"
	"github.com/noah-isme/sma-grading-api/internal/models"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

type assessmentStore interface {
	Create(ctx context.Context, a *models.Assessment) error
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
	ListByClass(ctx context.Context, classID string) ([]models.Assessment, error)
}

type scoreStore interface {
	FetchScores(ctx context.Context, classID string) ([]models.ScoreRow, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.ScoreRow, error)
	Upsert(ctx context.Context, score *models.Score) error
	BulkUpsert(ctx context.Context, scores []models.Score) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

const reasonNoScores = "no scores recorded"

// GradeServiceConfig tunes grade computations.
type GradeServiceConfig struct {
	PassThreshold float64
	CacheTTL      time.Duration
	Workers       int
}

// GradeServiceParams bundles GradeService dependencies.
type GradeServiceParams struct {
	Assessments assessmentStore
	Scores      scoreStore
	Students    studentReader
	Classes     classReader
	Cache       reportCache
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Config      GradeServiceConfig
	Now         func() time.Time
}

// GradeService records assessment scores and turns them into final grades and class reports.
type GradeService struct {
	assessments assessmentStore
	scores      scoreStore
	students    studentReader
	classes     classReader
	cache       reportCache
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         GradeServiceConfig
	now         func() time.Time
}

// NewGradeService constructs GradeService.
func NewGradeService(params GradeServiceParams) *GradeService {
	cfg := params.Config
	if cfg.PassThreshold < 0 || cfg.PassThreshold > 100 {
		cfg.PassThreshold = grading.DefaultPassThreshold
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := params.Cache
	if cache == nil {
		cache = (*CacheService)(nil)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &GradeService{
		assessments: params.Assessments,
		scores:      params.Scores,
		students:    params.Students,
		classes:     params.Classes,
		cache:       cache,
		metrics:     params.Metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		now:         now,
	}
}

// CreateAssessment adds an assessment to a class.
func (s *GradeService) CreateAssessment(ctx context.Context, req dto.CreateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	assessmentType := grading.AssessmentType(strings.ToLower(strings.TrimSpace(req.Type)))
	if !assessmentType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown assessment type %q", req.Type))
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	assessment := &models.Assessment{
		ClassID:  req.ClassID,
		Name:     strings.TrimSpace(req.Name),
		Type:     assessmentType,
		MaxScore: req.MaxScore,
		Weight:   req.Weight,
		Position: req.Position,
		DueDate:  req.DueDate,
	}
	if err := s.assessments.Create(ctx, assessment); err != nil {
		return nil, appErrors.Internal(err, "failed to create assessment")
	}
	s.invalidateClass(ctx, req.ClassID)
	return assessment, nil
}

// ListAssessments returns a class's assessments in display order.
func (s *GradeService) ListAssessments(ctx context.Context, classID string) (*dto.AssessmentListResponse, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	items, err := s.assessments.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list assessments")
	}
	var total float64
	for _, a := range items {
		total += a.Weight
	}
	return &dto.AssessmentListResponse{ClassID: classID, Assessments: items, TotalWeight: total}, nil
}

// RecordScore stores a single score after validating it against its assessment.
func (s *GradeService) RecordScore(ctx context.Context, req dto.RecordScoreRequest) (*models.Score, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}
	assessment, err := s.assessments.FindByID(ctx, req.AssessmentID)
	if err != nil {
		return nil, lookupError(err, "assessment not found", "failed to load assessment")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	if student.ClassID != assessment.ClassID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not enrolled in the assessment's class")
	}
	if _, err := grading.Validate(rawScore(assessment, student.ID, req.Score)); err != nil {
		return nil, err
	}
	score := &models.Score{AssessmentID: assessment.ID, StudentID: student.ID, Score: *req.Score}
	if err := s.scores.Upsert(ctx, score); err != nil {
		return nil, appErrors.Internal(err, "failed to store score")
	}
	s.invalidateClass(ctx, assessment.ClassID)
	return score, nil
}

// BulkRecordScores stores many scores for one assessment. Atomic mode rejects
// the batch on the first invalid item; partialOnError stores the valid items
// and reports the rest.
func (s *GradeService) BulkRecordScores(ctx context.Context, req dto.BulkScoreRequest) (*dto.BulkScoreResponse, error) {
	if req.Mode == "" {
		req.Mode = dto.BulkModeAtomic
	}
	if req.Mode != dto.BulkModeAtomic && req.Mode != dto.BulkModePartialOnError {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown mode %q", req.Mode))
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk score payload")
	}
	assessment, err := s.assessments.FindByID(ctx, req.AssessmentID)
	if err != nil {
		return nil, lookupError(err, "assessment not found", "failed to load assessment")
	}
	roster, err := s.students.ListByClass(ctx, assessment.ClassID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load class roster")
	}
	enrolled := make(map[string]struct{}, len(roster))
	for _, st := range roster {
		enrolled[st.ID] = struct{}{}
	}

	result := &dto.BulkScoreResponse{AssessmentID: assessment.ID, Mode: req.Mode, Failed: make([]dto.BulkScoreFailure, 0)}
	valid := make([]models.Score, 0, len(req.Items))
	seen := make(map[string]struct{}, len(req.Items))
	for i, item := range req.Items {
		reason := s.checkBulkItem(assessment, item, enrolled, seen)
		if reason != "" {
			if req.Mode == dto.BulkModeAtomic {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %d (%s): %s", i, item.StudentID, reason))
			}
			result.Failed = append(result.Failed, dto.BulkScoreFailure{Index: i, StudentID: item.StudentID, Reason: reason})
			continue
		}
		seen[item.StudentID] = struct{}{}
		valid = append(valid, models.Score{AssessmentID: assessment.ID, StudentID: item.StudentID, Score: *item.Value})
	}

	if len(valid) > 0 {
		if err := s.scores.BulkUpsert(ctx, valid); err != nil {
			return nil, appErrors.Internal(err, "failed to store scores")
		}
		s.invalidateClass(ctx, assessment.ClassID)
	}
	result.Stored = len(valid)
	if len(result.Failed) > 0 {
		s.logger.Info("bulk scores partially stored",
			zap.String("assessment_id", assessment.ID),
			zap.Int("stored", result.Stored),
			zap.Int("failed", len(result.Failed)))
	}
	return result, nil
}

func (s *GradeService) checkBulkItem(assessment *models.Assessment, item dto.BulkScoreItem, enrolled, seen map[string]struct{}) string {
	if _, ok := enrolled[item.StudentID]; !ok {
		return "student is not enrolled in the assessment's class"
	}
	if _, dup := seen[item.StudentID]; dup {
		return "duplicate student in batch"
	}
	if _, err := grading.Validate(rawScore(assessment, item.StudentID, item.Value)); err != nil {
		return appErrors.FromError(err).Message
	}
	return ""
}

// StudentFinalGrade computes one student's weighted final grade in a class.
func (s *GradeService) StudentFinalGrade(ctx context.Context, classID, studentID string) (*dto.FinalGradeResponse, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	if student.ClassID != classID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in class")
	}
	rows, err := s.scores.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load scores")
	}
	scores := make([]grading.AssessmentScore, 0, len(rows))
	for _, row := range rows {
		if row.ClassID == classID {
			scores = append(scores, row.ToAssessmentScore())
		}
	}
	calc, err := s.compute(studentID, scores)
	if err != nil {
		return nil, err
	}
	calc.StudentName = student.FullName
	return &dto.FinalGradeResponse{ClassID: classID, Grade: calc}, nil
}

// StudentSubjects builds a student's report card across all classes with scores.
func (s *GradeService) StudentSubjects(ctx context.Context, studentID string) (*dto.ReportCardResponse, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	rows, err := s.scores.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load scores")
	}
	subjects, err := grading.SummarizeSubjects(models.ToAssessmentScores(rows))
	if err != nil {
		return nil, err
	}
	return &dto.ReportCardResponse{StudentID: student.ID, StudentName: student.FullName, Subjects: subjects}, nil
}

// ClassReport computes every student's final grade in a class, rolls them up
// and summarises each assessment. The bool reports a cache hit.
func (s *GradeService) ClassReport(ctx context.Context, classID string, passThreshold *float64) (*dto.ClassGradeReport, bool, error) {
	threshold := s.cfg.PassThreshold
	if passThreshold != nil {
		threshold = *passThreshold
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 100 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "passThreshold must be between 0 and 100")
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return nil, false, lookupError(err, "class not found", "failed to load class")
	}

	key := classReportKey(classID, threshold)
	var cached dto.ClassGradeReport
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	var (
		roster      []models.Student
		rows        []models.ScoreRow
		assessments []models.Assessment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roster, err = s.students.ListByClass(gctx, classID)
		return err
	})
	g.Go(func() error {
		var err error
		start := time.Now()
		rows, err = s.scores.FetchScores(gctx, classID)
		s.metrics.ObserveDBQuery("fetch_scores", time.Since(start))
		return err
	})
	g.Go(func() error {
		var err error
		assessments, err = s.assessments.ListByClass(gctx, classID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, appErrors.Internal(err, "failed to load class data")
	}

	scores := models.ToAssessmentScores(rows)
	finals, ungraded := s.computeClass(ctx, roster, rows, scores)
	summaries, rollup, err := summarizeAssessments(assessments, scores, threshold)
	if err != nil {
		return nil, false, err
	}

	report := &dto.ClassGradeReport{
		Summary:          grading.SummarizeClass(classID, finals, grading.WithPassThreshold(threshold)),
		Assessments:      summaries,
		AssessmentRollup: rollup,
		UngradedStudents: ungraded,
		GeneratedAt:      s.now().UTC(),
	}
	if err := s.cache.Set(ctx, key, report, s.cfg.CacheTTL); err != nil {
		s.logger.Debug("class report not cached", zap.String("class_id", classID), zap.Error(err))
	}
	return report, false, nil
}

// computeClass runs final grade computations concurrently, keeping roster order.
// Students listed in scores but missing from the roster are appended after it.
func (s *GradeService) computeClass(ctx context.Context, roster []models.Student, rows []models.ScoreRow, scores []grading.AssessmentScore) ([]grading.FinalGradeCalculation, []dto.UngradedStudent) {
	order, grouped := grading.GroupByStudent(scores)
	names := make(map[string]string, len(roster))
	for _, row := range rows {
		names[row.StudentID] = row.StudentName
	}
	ids := make([]string, 0, len(order))
	ungraded := make([]dto.UngradedStudent, 0)
	onRoster := make(map[string]struct{}, len(roster))
	for _, st := range roster {
		onRoster[st.ID] = struct{}{}
		names[st.ID] = st.FullName
		if _, ok := grouped[st.ID]; ok {
			ids = append(ids, st.ID)
			continue
		}
		ungraded = append(ungraded, dto.UngradedStudent{StudentID: st.ID, StudentName: st.FullName, Reason: reasonNoScores})
	}
	for _, id := range order {
		if _, ok := onRoster[id]; !ok {
			ids = append(ids, id)
		}
	}

	results := make([]grading.FinalGradeCalculation, len(ids))
	failures := make([]error, len(ids))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			calc, err := s.compute(id, grouped[id])
			if err != nil {
				failures[i] = err
				return nil
			}
			calc.StudentName = names[id]
			results[i] = calc
			return nil
		})
	}
	_ = g.Wait()

	finals := make([]grading.FinalGradeCalculation, 0, len(ids))
	for i, id := range ids {
		if failures[i] != nil {
			ungraded = append(ungraded, dto.UngradedStudent{StudentID: id, StudentName: names[id], Reason: appErrors.FromError(failures[i]).Message})
			continue
		}
		finals = append(finals, results[i])
	}
	return finals, ungraded
}

func (s *GradeService) compute(studentID string, scores []grading.AssessmentScore) (grading.FinalGradeCalculation, error) {
	calc, err := grading.ComputeFinalGrade(studentID, scores)
	switch {
	case err == nil:
		s.metrics.ObserveGradeComputation(OutcomeOK)
	case errors.Is(err, appErrors.ErrInvalidInput):
		s.metrics.ObserveGradeComputation(OutcomeInvalidInput)
	default:
		s.metrics.ObserveGradeComputation(OutcomeError)
	}
	return calc, err
}

// summarizeAssessments keeps the class's assessment order. Assessments nobody
// has sat are listed with zero submissions and left out of the rollup.
func summarizeAssessments(assessments []models.Assessment, scores []grading.AssessmentScore, threshold float64) ([]grading.AssessmentSummary, grading.AssessmentRollup, error) {
	byAssessment := make(map[string][]grading.AssessmentScore)
	for _, sc := range scores {
		byAssessment[sc.AssessmentID] = append(byAssessment[sc.AssessmentID], sc)
	}
	summaries := make([]grading.AssessmentSummary, 0, len(assessments))
	sat := make([]grading.AssessmentSummary, 0, len(assessments))
	for _, a := range assessments {
		items := byAssessment[a.ID]
		if len(items) == 0 {
			summaries = append(summaries, grading.AssessmentSummary{AssessmentID: a.ID, AssessmentName: a.Name, AssessmentType: a.Type})
			continue
		}
		summary, err := grading.SummarizeAssessment(items, threshold)
		if err != nil {
			return nil, grading.AssessmentRollup{}, err
		}
		summaries = append(summaries, summary)
		sat = append(sat, summary)
	}
	return summaries, grading.SummarizeAssessments(sat), nil
}

func (s *GradeService) invalidateClass(ctx context.Context, classID string) {
	_ = s.cache.Invalidate(ctx, classCachePattern(classID))
	_ = s.cache.Invalidate(ctx, dashboardCacheKeys)
}

func classReportKey(classID string, threshold float64) string {
	return cacheKeyPrefix + "class:" + classID + ":report:" + strconv.FormatFloat(threshold, 'f', -1, 64)
}

func rawScore(a *models.Assessment, studentID string, value *float64) grading.RawAssessmentScore {
	maxScore, weight := a.MaxScore, a.Weight
	return grading.RawAssessmentScore{
		StudentID:      studentID,
		AssessmentID:   a.ID,
		AssessmentName: a.Name,
		AssessmentType: string(a.Type),
		ClassID:        a.ClassID,
		Score:          value,
		MaxScore:       &maxScore,
		Weight:         &weight,
	}
}

func lookupError(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Internal(err, internal)
}

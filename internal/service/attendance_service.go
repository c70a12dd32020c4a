package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/grading"
	"github.com/noah-isme/sma-grading-api/internal/models"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type attendanceStore interface {
	BulkUpsert(ctx context.Context, records []models.AttendanceRecord) error
	ListByClass(ctx context.Context, classID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

// AttendanceService records daily marks and tallies them into attendance rates.
type AttendanceService struct {
	records   attendanceStore
	students  studentReader
	classes   classReader
	cache     reportCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(records attendanceStore, students studentReader, classes classReader, cache reportCache, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = (*CacheService)(nil)
	}
	svc := &AttendanceService{records: records, students: students, classes: classes, cache: cache, validator: validate, logger: logger}
	if err := registerAttendanceStatus(svc.validator); err != nil {
		panic(fmt.Sprintf("attendance service: %v", err))
	}
	return svc
}

// registerAttendanceStatus installs the attendance_status tag used by dto.AttendanceMark.
func registerAttendanceStatus(v *validator.Validate) error {
	if err := v.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return parseStatus(fl.Field().String()).Valid()
	}); err != nil {
		return fmt.Errorf("register attendance_status validation: %w", err)
	}
	return nil
}

// Record stores one day of marks for a class. A repeated mark for the same
// student and day replaces the earlier one.
func (s *AttendanceService) Record(ctx context.Context, req dto.RecordAttendanceRequest) (*dto.RecordAttendanceResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	roster, err := s.students.ListByClass(ctx, req.ClassID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load class roster")
	}
	enrolled := make(map[string]struct{}, len(roster))
	for _, st := range roster {
		enrolled[st.ID] = struct{}{}
	}

	records := make([]models.AttendanceRecord, 0, len(req.Marks))
	seen := make(map[string]struct{}, len(req.Marks))
	for i, mark := range req.Marks {
		if _, ok := enrolled[mark.StudentID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("mark %d: student %s is not enrolled in class", i, mark.StudentID))
		}
		if _, dup := seen[mark.StudentID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("mark %d: duplicate student %s", i, mark.StudentID))
		}
		seen[mark.StudentID] = struct{}{}
		records = append(records, models.AttendanceRecord{
			ClassID:   req.ClassID,
			StudentID: mark.StudentID,
			Date:      date,
			Status:    parseStatus(mark.Status),
			Notes:     mark.Notes,
		})
	}
	if err := s.records.BulkUpsert(ctx, records); err != nil {
		return nil, appErrors.Internal(err, "failed to store attendance")
	}
	_ = s.cache.Invalidate(ctx, dashboardCacheKeys)
	s.logger.Debug("attendance recorded", zap.String("class_id", req.ClassID), zap.String("date", req.Date), zap.Int("marks", len(records)))
	return &dto.RecordAttendanceResponse{ClassID: req.ClassID, Date: req.Date, Stored: len(records)}, nil
}

// ClassStats tallies a class's marks in the date range, with a per-student breakdown in roster order.
func (s *AttendanceService) ClassStats(ctx context.Context, classID string, query dto.AttendanceQuery) (*dto.AttendanceStatsResponse, error) {
	filter, err := parseRange(query)
	if err != nil {
		return nil, err
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	records, err := s.records.ListByClass(ctx, classID, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}
	roster, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load class roster")
	}

	perStudent := make(map[string][]grading.AttendanceStatus, len(roster))
	all := make([]grading.AttendanceStatus, len(records))
	for i, r := range records {
		all[i] = r.Status
		perStudent[r.StudentID] = append(perStudent[r.StudentID], r.Status)
	}
	stats := grading.Tally(all)
	resp := &dto.AttendanceStatsResponse{
		ClassID:  classID,
		From:     query.From,
		To:       query.To,
		Stats:    stats,
		Rate:     grading.AttendanceRate(stats),
		Students: make([]dto.StudentAttendanceStats, 0, len(roster)),
	}
	for _, st := range roster {
		tally := grading.Tally(perStudent[st.ID])
		resp.Students = append(resp.Students, dto.StudentAttendanceStats{
			StudentID:   st.ID,
			StudentName: st.FullName,
			Stats:       tally,
			Rate:        grading.AttendanceRate(tally),
		})
	}
	return resp, nil
}

// StudentStats tallies one student's marks in the date range.
func (s *AttendanceService) StudentStats(ctx context.Context, studentID string, query dto.AttendanceQuery) (*dto.AttendanceStatsResponse, error) {
	filter, err := parseRange(query)
	if err != nil {
		return nil, err
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	records, err := s.records.ListByStudent(ctx, studentID, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}
	statuses := make([]grading.AttendanceStatus, len(records))
	for i, r := range records {
		statuses[i] = r.Status
	}
	stats := grading.Tally(statuses)
	return &dto.AttendanceStatsResponse{
		StudentID: studentID,
		From:      query.From,
		To:        query.To,
		Stats:     stats,
		Rate:      grading.AttendanceRate(stats),
	}, nil
}

func parseStatus(raw string) grading.AttendanceStatus {
	return grading.AttendanceStatus(strings.ToUpper(strings.TrimSpace(raw)))
}

func parseRange(query dto.AttendanceQuery) (models.AttendanceFilter, error) {
	var filter models.AttendanceFilter
	if query.From != "" {
		from, err := time.Parse(dateLayout, query.From)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
		}
		filter.From = &from
	}
	if query.To != "" {
		to, err := time.Parse(dateLayout, query.To)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	return filter, nil
}

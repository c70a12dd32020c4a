package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-grading-api/internal/grading"
	"github.com/noah-isme/sma-grading-api/internal/models"
)

type classStoreStub struct {
	classes []models.Class
	err     error
}

func (s *classStoreStub) List(ctx context.Context) ([]models.Class, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.classes, nil
}

func (s *classStoreStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	for _, c := range s.classes {
		if c.ID == id {
			class := c
			return &class, nil
		}
	}
	return nil, fmt.Errorf("find class %s: %w", id, sql.ErrNoRows)
}

type studentStoreStub struct {
	students []models.Student
}

func (s *studentStoreStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for _, st := range s.students {
		if st.ID == id {
			student := st
			return &student, nil
		}
	}
	return nil, fmt.Errorf("find student %s: %w", id, sql.ErrNoRows)
}

func (s *studentStoreStub) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	out := make([]models.Student, 0)
	for _, st := range s.students {
		if st.ClassID == classID {
			out = append(out, st)
		}
	}
	return out, nil
}

type assessmentStoreStub struct {
	assessments []models.Assessment
	created     []models.Assessment
}

func (s *assessmentStoreStub) Create(ctx context.Context, a *models.Assessment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.created = append(s.created, *a)
	s.assessments = append(s.assessments, *a)
	return nil
}

func (s *assessmentStoreStub) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	for _, a := range s.assessments {
		if a.ID == id {
			assessment := a
			return &assessment, nil
		}
	}
	return nil, fmt.Errorf("find assessment %s: %w", id, sql.ErrNoRows)
}

func (s *assessmentStoreStub) ListByClass(ctx context.Context, classID string) ([]models.Assessment, error) {
	out := make([]models.Assessment, 0)
	for _, a := range s.assessments {
		if a.ClassID == classID {
			out = append(out, a)
		}
	}
	return out, nil
}

// scoreStoreStub joins stored scores with the assessment and student stubs like the SQL view does.
type scoreStoreStub struct {
	mu          sync.Mutex
	assessments *assessmentStoreStub
	students    *studentStoreStub
	scores      []models.Score
	upserts     int
	bulkCalls   int
	err         error
}

func (s *scoreStoreStub) rows(match func(models.ScoreRow) bool) []models.ScoreRow {
	out := make([]models.ScoreRow, 0)
	for _, a := range s.assessments.assessments {
		for _, sc := range s.scores {
			if sc.AssessmentID != a.ID {
				continue
			}
			row := models.ScoreRow{
				StudentID:      sc.StudentID,
				AssessmentID:   a.ID,
				AssessmentName: a.Name,
				AssessmentType: a.Type,
				ClassID:        a.ClassID,
				Score:          sc.Score,
				MaxScore:       a.MaxScore,
				Weight:         a.Weight,
			}
			if st, err := s.students.FindByID(context.Background(), sc.StudentID); err == nil {
				row.StudentName = st.FullName
			}
			if match(row) {
				out = append(out, row)
			}
		}
	}
	return out
}

func (s *scoreStoreStub) FetchScores(ctx context.Context, classID string) ([]models.ScoreRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows(func(r models.ScoreRow) bool { return r.ClassID == classID }), nil
}

func (s *scoreStoreStub) ListByStudent(ctx context.Context, studentID string) ([]models.ScoreRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows(func(r models.ScoreRow) bool { return r.StudentID == studentID }), nil
}

func (s *scoreStoreStub) Upsert(ctx context.Context, score *models.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	s.put(*score)
	return nil
}

func (s *scoreStoreStub) BulkUpsert(ctx context.Context, scores []models.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkCalls++
	for _, sc := range scores {
		s.put(sc)
	}
	return nil
}

func (s *scoreStoreStub) put(score models.Score) {
	for i, existing := range s.scores {
		if existing.AssessmentID == score.AssessmentID && existing.StudentID == score.StudentID {
			s.scores[i].Score = score.Score
			return
		}
	}
	s.scores = append(s.scores, score)
}

type attendanceStoreStub struct {
	records []models.AttendanceRecord
	filters []models.AttendanceFilter
}

func (s *attendanceStoreStub) BulkUpsert(ctx context.Context, records []models.AttendanceRecord) error {
	s.records = append(s.records, records...)
	return nil
}

func (s *attendanceStoreStub) ListByClass(ctx context.Context, classID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	s.filters = append(s.filters, filter)
	out := make([]models.AttendanceRecord, 0)
	for _, r := range s.records {
		if r.ClassID == classID && inRange(r.Date, filter) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *attendanceStoreStub) ListByStudent(ctx context.Context, studentID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	s.filters = append(s.filters, filter)
	out := make([]models.AttendanceRecord, 0)
	for _, r := range s.records {
		if r.StudentID == studentID && inRange(r.Date, filter) {
			out = append(out, r)
		}
	}
	return out, nil
}

func inRange(date time.Time, filter models.AttendanceFilter) bool {
	if filter.From != nil && date.Before(*filter.From) {
		return false
	}
	if filter.To != nil && date.After(*filter.To) {
		return false
	}
	return true
}

// memoryCache is a reportCache keeping JSON payloads in a map, mirroring the redis repository.
type memoryCache struct {
	mu          sync.Mutex
	items       map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(payload, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = payload
	return nil
}

func (c *memoryCache) Invalidate(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, pattern)
	for key := range c.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.items, key)
		}
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

func fptr(v float64) *float64 {
	return &v
}

func day(raw string) time.Time {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		panic(err)
	}
	return t
}

// gradingFixture is a class of three students with a weighted exam and assignment.
type gradingFixture struct {
	classes     *classStoreStub
	students    *studentStoreStub
	assessments *assessmentStoreStub
	scores      *scoreStoreStub
	attendance  *attendanceStoreStub
	cache       *memoryCache
}

func newGradingFixture() *gradingFixture {
	classes := &classStoreStub{classes: []models.Class{
		{ID: "class-1", Name: "XI IPA 1 Math"},
		{ID: "class-2", Name: "XI IPA 2 Biology"},
	}}
	students := &studentStoreStub{students: []models.Student{
		{ID: "stu-1", ClassID: "class-1", FullName: "Ayu"},
		{ID: "stu-2", ClassID: "class-1", FullName: "Budi"},
		{ID: "stu-3", ClassID: "class-1", FullName: "Citra"},
		{ID: "stu-4", ClassID: "class-2", FullName: "Dewi"},
	}}
	assessments := &assessmentStoreStub{assessments: []models.Assessment{
		{ID: "mid", ClassID: "class-1", Name: "Midterm", Type: grading.AssessmentExam, MaxScore: 100, Weight: 60, Position: 1},
		{ID: "hw", ClassID: "class-1", Name: "Homework", Type: grading.AssessmentAssignment, MaxScore: 50, Weight: 40, Position: 2},
		{ID: "essay", ClassID: "class-1", Name: "Essay", Type: grading.AssessmentEssay, MaxScore: 20, Weight: 10, Position: 3},
		{ID: "lab", ClassID: "class-2", Name: "Lab", Type: grading.AssessmentPractical, MaxScore: 10, Weight: 100, Position: 1},
	}}
	scores := &scoreStoreStub{
		assessments: assessments,
		students:    students,
		scores: []models.Score{
			{AssessmentID: "mid", StudentID: "stu-1", Score: 80},
			{AssessmentID: "hw", StudentID: "stu-1", Score: 30},
			{AssessmentID: "mid", StudentID: "stu-2", Score: 40},
			{AssessmentID: "hw", StudentID: "stu-2", Score: 20},
			{AssessmentID: "lab", StudentID: "stu-4", Score: 9},
		},
	}
	attendance := &attendanceStoreStub{records: []models.AttendanceRecord{
		{ClassID: "class-1", StudentID: "stu-1", Date: day("2026-08-03"), Status: grading.AttendancePresent},
		{ClassID: "class-1", StudentID: "stu-2", Date: day("2026-08-03"), Status: grading.AttendanceAbsent},
		{ClassID: "class-1", StudentID: "stu-3", Date: day("2026-08-03"), Status: grading.AttendanceLate},
		{ClassID: "class-1", StudentID: "stu-1", Date: day("2026-08-04"), Status: grading.AttendanceExcused},
		{ClassID: "class-2", StudentID: "stu-4", Date: day("2026-08-03"), Status: grading.AttendancePresent},
	}}
	return &gradingFixture{
		classes:     classes,
		students:    students,
		assessments: assessments,
		scores:      scores,
		attendance:  attendance,
		cache:       newMemoryCache(),
	}
}

func (f *gradingFixture) gradeService(metrics *MetricsService) *GradeService {
	return NewGradeService(GradeServiceParams{
		Assessments: f.assessments,
		Scores:      f.scores,
		Students:    f.students,
		Classes:     f.classes,
		Cache:       f.cache,
		Metrics:     metrics,
		Config:      GradeServiceConfig{PassThreshold: 50, Workers: 2},
		Now:         func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) },
	})
}

func (f *gradingFixture) attendanceService() *AttendanceService {
	return NewAttendanceService(f.attendance, f.students, f.classes, f.cache, nil, nil)
}

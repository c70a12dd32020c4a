package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-grading-api/internal/models"
)

const attendanceColumns = `id, class_id, student_id, date, status, notes, created_at, updated_at`

// AttendanceRepository stores daily attendance marks.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// BulkUpsert records marks in one transaction; a second mark for the same student and day replaces the first.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	const query = `INSERT INTO attendance_records (` + attendanceColumns + `)
        VALUES (:id, :class_id, :student_id, :date, :status, :notes, :created_at, :updated_at)
        ON CONFLICT (student_id, date)
        DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, class_id = EXCLUDED.class_id, updated_at = EXCLUDED.updated_at`
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance batch: %w", err)
	}
	now := time.Now().UTC()
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		if records[i].CreatedAt.IsZero() {
			records[i].CreatedAt = now
		}
		records[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, records[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert attendance: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance: %w", err)
	}
	return nil
}

// ListByClass returns the class's marks within the filter's date range.
func (r *AttendanceRepository) ListByClass(ctx context.Context, classID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	filter.ClassID = classID
	filter.StudentID = ""
	return r.list(ctx, filter)
}

// ListByStudent returns a student's marks within the filter's date range.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	filter.StudentID = studentID
	filter.ClassID = ""
	return r.list(ctx, filter)
}

func (r *AttendanceRepository) list(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE 1=1`
	var args []interface{}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		query += fmt.Sprintf(" AND class_id = $%d", len(args))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		query += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY date ASC, student_id ASC"
	records := make([]models.AttendanceRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-grading-api/internal/models"
)

const assessmentColumns = `id, class_id, name, type, max_score, weight, position, due_date, created_at, updated_at`

// AssessmentRepository persists assessment definitions.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository creates a new assessment repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Create inserts an assessment, filling ID and timestamps when empty.
func (r *AssessmentRepository) Create(ctx context.Context, a *models.Assessment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	const query = `INSERT INTO assessments (` + assessmentColumns + `)
        VALUES (:id, :class_id, :name, :type, :max_score, :weight, :position, :due_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

// FindByID returns an assessment or an error wrapping sql.ErrNoRows.
func (r *AssessmentRepository) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	const query = `SELECT ` + assessmentColumns + ` FROM assessments WHERE id = $1`
	var a models.Assessment
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		return nil, fmt.Errorf("find assessment %s: %w", id, err)
	}
	return &a, nil
}

// ListByClass returns the class's assessments in syllabus order.
func (r *AssessmentRepository) ListByClass(ctx context.Context, classID string) ([]models.Assessment, error) {
	const query = `SELECT ` + assessmentColumns + ` FROM assessments WHERE class_id = $1
        ORDER BY position ASC, due_date ASC NULLS LAST, created_at ASC`
	assessments := make([]models.Assessment, 0)
	if err := r.db.SelectContext(ctx, &assessments, query, classID); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return assessments, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-grading-api/internal/models"
)

const scoreRowSelect = `SELECT sc.student_id, st.full_name AS student_name, a.id AS assessment_id, a.name AS assessment_name,
        a.type AS assessment_type, a.class_id, sc.score, a.max_score, a.weight
        FROM assessment_scores sc
        JOIN assessments a ON a.id = sc.assessment_id
        JOIN students st ON st.id = sc.student_id`

const upsertScoreQuery = `INSERT INTO assessment_scores (id, assessment_id, student_id, score, created_at, updated_at)
        VALUES (:id, :assessment_id, :student_id, :score, :created_at, :updated_at)
        ON CONFLICT (assessment_id, student_id)
        DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at`

// ScoreRepository stores raw scores and serves them joined for grade computation.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository creates a new score repository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// FetchScores returns every recorded score of a class, ordered by assessment
// chronology and then by student.
func (r *ScoreRepository) FetchScores(ctx context.Context, classID string) ([]models.ScoreRow, error) {
	query := scoreRowSelect + `
        WHERE a.class_id = $1
        ORDER BY a.position ASC, a.due_date ASC NULLS LAST, a.created_at ASC, a.id ASC, st.full_name ASC, sc.student_id ASC`
	rows := make([]models.ScoreRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, fmt.Errorf("fetch class scores: %w", err)
	}
	return rows, nil
}

// ListByStudent returns a student's scores across all classes.
func (r *ScoreRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ScoreRow, error) {
	query := scoreRowSelect + `
        WHERE sc.student_id = $1
        ORDER BY a.class_id ASC, a.position ASC, a.due_date ASC NULLS LAST, a.created_at ASC, a.id ASC`
	rows := make([]models.ScoreRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student scores: %w", err)
	}
	return rows, nil
}

// Upsert inserts or replaces a student's score on an assessment.
func (r *ScoreRepository) Upsert(ctx context.Context, score *models.Score) error {
	stampScore(score, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, upsertScoreQuery, score); err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

// BulkUpsert writes all scores in a single transaction.
func (r *ScoreRepository) BulkUpsert(ctx context.Context, scores []models.Score) error {
	if len(scores) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin score batch: %w", err)
	}
	now := time.Now().UTC()
	for i := range scores {
		stampScore(&scores[i], now)
		if _, err := tx.NamedExecContext(ctx, upsertScoreQuery, scores[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk upsert score: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scores: %w", err)
	}
	return nil
}

func stampScore(score *models.Score, now time.Time) {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	if score.CreatedAt.IsZero() {
		score.CreatedAt = now
	}
	score.UpdatedAt = now
}

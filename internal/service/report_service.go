package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/models"
	"github.com/noah-isme/sma-grading-api/internal/repository"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
	"github.com/noah-isme/sma-grading-api/pkg/jobs"
)

const (
	recoverBatch = 50
	sweepBatch   = 100
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.ReportJobUpdate) error
	ListUnfinished(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportFiles interface {
	ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	Cleanup(ttl time.Duration) ([]string, error)
}

// ReportService accepts class report requests, tracks their jobs and
// resolves signed download tokens.
type ReportService struct {
	repo    reportJobStore
	classes classReader
	queue   jobDispatcher
	files   exportFiles
	logger  *zap.Logger
	cfg     ReportServiceConfig
	now     func() time.Time
}

// ReportServiceConfig sets how long exports live and how often they are swept.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ReportDownload is an opened export ready to stream. Callers close File.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// NewReportService wires the service. ResultTTL defaults to one day.
func NewReportService(repo reportJobStore, classes classReader, queue jobDispatcher, files exportFiles, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		repo:    repo,
		classes: classes,
		queue:   queue,
		files:   files,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// CreateJob stores a queued job for the request and hands it to the worker
// queue. A job that cannot be dispatched is stored as failed.
func (s *ReportService) CreateJob(ctx context.Context, req dto.ReportRequest, actorID string) (*dto.ReportJobResponse, error) {
	if err := s.checkRequest(ctx, req); err != nil {
		return nil, err
	}
	job := &models.ReportJob{
		Type:      req.Type,
		Params:    reportParams(req),
		Status:    models.ReportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Internal(err, "failed to create report job")
	}
	if err := s.queue.Enqueue(dispatchOf(job)); err != nil {
		if markErr := s.repo.Update(ctx, job.ID, failedTransition("failed to enqueue job").apply(s.now())); markErr != nil {
			s.logger.Warn("report job left queued after dispatch failure", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Internal(err, "failed to enqueue report job")
	}
	s.logger.Debug("report job queued", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.String("class_id", req.ClassID))
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus returns progress for a job. Teachers only see jobs they created.
func (s *ReportService) GetStatus(ctx context.Context, id string, actorID string, role models.UserRole) (*dto.ReportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "report job not found", "failed to load report job")
	}
	if role == models.RoleTeacher && job.CreatedBy != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report job belongs to another user")
	}
	status := &dto.ReportStatusResponse{
		ID:        job.ID,
		Type:      job.Type,
		Status:    job.Status,
		Progress:  job.Progress,
		ResultURL: job.ResultURL,
	}
	if msg := job.ErrorMessage; msg != nil && *msg != "" {
		status.Error = msg
	}
	return status, nil
}

// ResolveDownload checks token against the finished job it was issued for
// and opens the export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.files.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, lookupError(err, "report job not found", "failed to load report job")
	}
	switch {
	case job.Status == models.ReportStatusExpired:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report expired")
	case job.ResultURL == nil || tokenOf(*job.ResultURL) != token:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	case job.Status != models.ReportStatusFinished:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs re-dispatches jobs left QUEUED or PROCESSING by a
// previous run. PROCESSING jobs were interrupted mid-export and go back to
// QUEUED first.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListUnfinished(ctx, recoverBatch)
	if err != nil {
		s.logger.Warn("list unfinished report jobs", zap.Error(err))
		return
	}
	recovered := 0
	for i := range pending {
		job := &pending[i]
		if job.Status == models.ReportStatusProcessing {
			if err := s.repo.Update(ctx, job.ID, retryTransition("interrupted before completion").apply(s.now())); err != nil {
				s.logger.Warn("reset interrupted report job", zap.String("job_id", job.ID), zap.Error(err))
				continue
			}
		}
		if err := s.queue.Enqueue(dispatchOf(job)); err != nil {
			s.logger.Warn("requeue report job", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		recovered++
	}
	if recovered > 0 {
		s.logger.Info("recovered unfinished report jobs", zap.Int("count", recovered))
	}
}

// StartCleanup sweeps expired exports every CleanupInterval until ctx ends.
// A non-positive interval disables the sweep.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

// cleanupExpired deletes the files of jobs finished before the TTL cutoff and
// moves those jobs to EXPIRED, then removes orphaned files older than the TTL.
// A batch in which no job could be moved ends the sweep; the next tick retries.
func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	expired := 0
	for ctx.Err() == nil {
		batch, err := s.repo.ListFinishedBefore(ctx, cutoff, sweepBatch)
		if err != nil {
			s.logger.Warn("list expired report jobs", zap.Error(err))
			break
		}
		moved := 0
		for i := range batch {
			if s.expireJob(ctx, &batch[i]) {
				moved++
			}
		}
		expired += moved
		if len(batch) < sweepBatch || moved == 0 {
			break
		}
	}
	orphans, err := s.files.Cleanup(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("sweep export directory", zap.Error(err))
	}
	if expired+len(orphans) > 0 {
		s.logger.Info("expired exports removed", zap.Int("jobs", expired), zap.Int("orphans", len(orphans)))
	}
}

// expireJob removes the job's export file, if any, and marks the job EXPIRED.
// It reports whether the job row was updated.
func (s *ReportService) expireJob(ctx context.Context, job *models.ReportJob) bool {
	if job.ResultURL != nil {
		if token := tokenOf(*job.ResultURL); token != "" {
			if _, relPath, _, err := s.files.ParseToken(token, true); err == nil {
				if err := s.files.Delete(relPath); err != nil {
					s.logger.Warn("delete expired export", zap.String("job_id", job.ID), zap.Error(err))
				}
			}
		}
	}
	if err := s.repo.Update(ctx, job.ID, expiredTransition().apply(s.now())); err != nil {
		s.logger.Warn("mark report job expired", zap.String("job_id", job.ID), zap.Error(err))
		return false
	}
	return true
}

func (s *ReportService) checkRequest(ctx context.Context, req dto.ReportRequest) error {
	switch {
	case !req.Type.Valid():
		return appErrors.Clone(appErrors.ErrValidation, "unsupported report type")
	case req.Format != models.ReportFormatCSV && req.Format != models.ReportFormatPDF:
		return appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	case strings.TrimSpace(req.ClassID) == "":
		return appErrors.Clone(appErrors.ErrValidation, "classId is required")
	case req.PassThreshold != nil && (*req.PassThreshold < 0 || *req.PassThreshold > 100):
		return appErrors.Clone(appErrors.ErrValidation, "passThreshold must be between 0 and 100")
	}
	if _, err := parseRange(dto.AttendanceQuery{From: req.From, To: req.To}); err != nil {
		return err
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		return lookupError(err, "class not found", "failed to load class")
	}
	return nil
}

func reportParams(req dto.ReportRequest) models.ReportJobParams {
	return models.ReportJobParams{
		ClassID:       req.ClassID,
		Format:        req.Format,
		From:          req.From,
		To:            req.To,
		PassThreshold: req.PassThreshold,
	}
}

func dispatchOf(job *models.ReportJob) jobs.Job {
	return jobs.Job{ID: job.ID, Type: string(job.Type)}
}

// tokenOf returns the last path segment of a download URL.
func tokenOf(url string) string {
	return url[strings.LastIndex(url, "/")+1:]
}

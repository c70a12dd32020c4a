package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-grading-api/internal/models"
	"github.com/noah-isme/sma-grading-api/internal/repository"
	"github.com/noah-isme/sma-grading-api/pkg/jobs"
)

const exhaustedWriteTimeout = 5 * time.Second

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

// jobTransition describes one status change of a report job.
type jobTransition struct {
	status   models.ReportStatus
	progress int
	url      *string
	message  *string
	terminal bool
}

// apply renders the transition as a repository update stamped at now.
func (t jobTransition) apply(now time.Time) repository.ReportJobUpdate {
	upd := repository.ReportJobUpdate{
		Status:       &t.status,
		Progress:     &t.progress,
		ResultURL:    t.url,
		ErrorMessage: t.message,
	}
	if t.terminal {
		at := now.UTC()
		upd.FinishedAt = &at
	}
	return upd
}

func processingTransition() jobTransition {
	return jobTransition{status: models.ReportStatusProcessing, progress: 10}
}

func retryTransition(reason string) jobTransition {
	return jobTransition{status: models.ReportStatusQueued, message: &reason}
}

func failedTransition(reason string) jobTransition {
	return jobTransition{status: models.ReportStatusFailed, progress: 100, message: &reason, terminal: true}
}

func finishedTransition(url string) jobTransition {
	cleared := ""
	return jobTransition{status: models.ReportStatusFinished, progress: 100, url: &url, message: &cleared, terminal: true}
}

// expiredTransition clears the download URL of a swept job.
func expiredTransition() jobTransition {
	cleared := ""
	return jobTransition{status: models.ReportStatusExpired, progress: 100, url: &cleared}
}

// ReportWorker runs queued report jobs through the exporter.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
	now        func() time.Time
}

// NewReportWorker builds a worker. maxRetries must equal the queue's
// MaxRetries so the final attempt is the one that fails the job.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		metrics:    metrics,
		logger:     logger,
		maxRetries: max(maxRetries, 0),
		now:        time.Now,
	}
}

// Handle is the queue handler for report jobs.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if err := w.repo.Update(ctx, job.ID, processingTransition().apply(w.now())); err != nil {
		return err
	}
	log := w.logger.With(zap.String("job_id", job.ID), zap.String("type", string(record.Type)), zap.Int("attempt", job.Attempt))

	result, genErr := w.exporter.Generate(ctx, record)
	if genErr != nil {
		next := retryTransition(genErr.Error())
		if job.Attempt >= w.maxRetries {
			next = failedTransition(genErr.Error())
		}
		if err := w.repo.Update(ctx, job.ID, next.apply(w.now())); err != nil {
			log.Warn("record report job error", zap.String("status", string(next.status)), zap.Error(err))
		}
		if next.terminal {
			w.metrics.ObserveReportJob(string(record.Type), next.status)
		}
		return genErr
	}

	done := finishedTransition(result.URL)
	if err := w.repo.Update(ctx, job.ID, done.apply(w.now())); err != nil {
		log.Warn("record report job result", zap.Error(err))
		return err
	}
	w.metrics.ObserveReportJob(string(record.Type), done.status)
	log.Info("report job finished")
	return nil
}

// Exhausted is the queue's OnExhausted hook. Handle stores the failure when
// the export itself fails; any other final error (lost job row, failed status
// write) would leave the job QUEUED or PROCESSING, so it is failed here.
func (w *ReportWorker) Exhausted(job jobs.Job, err error) {
	log := w.logger.With(zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempts", job.Attempt))
	log.Error("report job exhausted retries", zap.Error(err))

	ctx, cancel := context.WithTimeout(context.Background(), exhaustedWriteTimeout)
	defer cancel()
	if record, getErr := w.repo.GetByID(ctx, job.ID); getErr == nil && isTerminal(record.Status) {
		return
	}
	reason := "report generation failed"
	if err != nil {
		reason = err.Error()
	}
	failed := failedTransition(reason)
	if updErr := w.repo.Update(ctx, job.ID, failed.apply(w.now())); updErr != nil {
		log.Warn("record exhausted report job", zap.Error(updErr))
		return
	}
	w.metrics.ObserveReportJob(job.Type, failed.status)
}

func isTerminal(status models.ReportStatus) bool {
	switch status {
	case models.ReportStatusFinished, models.ReportStatusFailed, models.ReportStatusExpired:
		return true
	}
	return false
}

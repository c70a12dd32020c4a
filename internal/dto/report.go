package dto

import "github.com/noah-isme/sma-grading-api/internal/models"

// ReportRequest is the POST /reports payload.
type ReportRequest struct {
	Type          models.ReportType   `json:"type" validate:"required"`
	ClassID       string              `json:"classId" validate:"required"`
	Format        models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	From          string              `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To            string              `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PassThreshold *float64            `json:"passThreshold,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Type      models.ReportType   `json:"type"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}

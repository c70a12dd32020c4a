package models

import (
	"time"

	"github.com/noah-isme/sma-grading-api/internal/grading"
)

// AttendanceRecord is one student's mark for one day.
type AttendanceRecord struct {
	ID        string                   `db:"id" json:"id"`
	ClassID   string                   `db:"class_id" json:"classId"`
	StudentID string                   `db:"student_id" json:"studentId"`
	Date      time.Time                `db:"date" json:"date"`
	Status    grading.AttendanceStatus `db:"status" json:"status"`
	Notes     *string                  `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time                `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time                `db:"updated_at" json:"updatedAt"`
}

// AttendanceFilter scopes attendance queries. Zero dates are unbounded.
type AttendanceFilter struct {
	ClassID   string
	StudentID string
	From      *time.Time
	To        *time.Time
}

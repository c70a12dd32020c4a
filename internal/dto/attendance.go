package dto

import "github.com/noah-isme/sma-grading-api/internal/grading"

// AttendanceMark is one student's status on the request date.
type AttendanceMark struct {
	StudentID string  `json:"studentId" validate:"required"`
	Status    string  `json:"status" validate:"required,attendance_status"`
	Notes     *string `json:"notes,omitempty"`
}

// RecordAttendanceRequest is the POST /attendance payload. Date is YYYY-MM-DD.
type RecordAttendanceRequest struct {
	ClassID string           `json:"classId" validate:"required"`
	Date    string           `json:"date" validate:"required,datetime=2006-01-02"`
	Marks   []AttendanceMark `json:"marks" validate:"required,min=1,dive"`
}

// RecordAttendanceResponse reports how many marks were stored.
type RecordAttendanceResponse struct {
	ClassID string `json:"classId"`
	Date    string `json:"date"`
	Stored  int    `json:"stored"`
}

// AttendanceQuery carries optional YYYY-MM-DD bounds.
type AttendanceQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// AttendanceStatsResponse pairs a tally with its attendance rate.
type AttendanceStatsResponse struct {
	ClassID   string                   `json:"classId,omitempty"`
	StudentID string                   `json:"studentId,omitempty"`
	From      string                   `json:"from,omitempty"`
	To        string                   `json:"to,omitempty"`
	Stats     grading.AttendanceStats  `json:"stats"`
	Rate      float64                  `json:"rate"`
	Students  []StudentAttendanceStats `json:"students,omitempty"`
}

// StudentAttendanceStats is one roster entry in a class attendance breakdown.
type StudentAttendanceStats struct {
	StudentID   string                  `json:"studentId"`
	StudentName string                  `json:"studentName"`
	Stats       grading.AttendanceStats `json:"stats"`
	Rate        float64                 `json:"rate"`
}

package dto

import (
	"time"

	"github.com/noah-isme/sma-grading-api/internal/grading"
)

// ClassDashboard summarises one class for dashboards.
type ClassDashboard struct {
	ClassID           string                    `json:"classId"`
	ClassName         string                    `json:"className"`
	Students          int                       `json:"students"`
	AveragePercentage float64                   `json:"averagePercentage"`
	PassRate          float64                   `json:"passRate"`
	AttendanceRate    float64                   `json:"attendanceRate"`
	GradeDistribution grading.GradeDistribution `json:"gradeDistribution"`
	AssessmentRollup  grading.AssessmentRollup  `json:"assessmentRollup"`
	Ungraded          int                       `json:"ungraded"`
}

// DashboardAlert flags a class that fell below a configured threshold.
type DashboardAlert struct {
	ClassID   string  `json:"classId"`
	ClassName string  `json:"className"`
	Kind      string  `json:"kind"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// Alert kinds.
const (
	AlertLowPassRate   = "LOW_PASS_RATE"
	AlertLowAttendance = "LOW_ATTENDANCE"
)

// InstitutionDashboard is the school-wide rollup across classes.
type InstitutionDashboard struct {
	Classes           []ClassDashboard          `json:"classes"`
	AveragePercentage float64                   `json:"averagePercentage"`
	PassRate          float64                   `json:"passRate"`
	AttendanceRate    float64                   `json:"attendanceRate"`
	GradeDistribution grading.GradeDistribution `json:"gradeDistribution"`
	AssessmentRollup  grading.AssessmentRollup  `json:"assessmentRollup"`
	Alerts            []DashboardAlert          `json:"alerts"`
	GeneratedAt       time.Time                 `json:"generatedAt"`
}

package grading

// AttendanceStatus is the recorded status of one attendance mark.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	default:
		return false
	}
}

// AttendanceStats is a pure tally of attendance marks. For well-formed input
// Present+Absent+Late+Excused == Total.
type AttendanceStats struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Excused int `json:"excused"`
}

// Tally counts statuses. Total is always len(statuses); unrecognised statuses
// are counted in Total only.
func Tally(statuses []AttendanceStatus) AttendanceStats {
	stats := AttendanceStats{Total: len(statuses)}
	for _, s := range statuses {
		switch s {
		case AttendancePresent:
			stats.Present++
		case AttendanceAbsent:
			stats.Absent++
		case AttendanceLate:
			stats.Late++
		case AttendanceExcused:
			stats.Excused++
		}
	}
	return stats
}

// AttendanceRate is the share of marks where the student attended (present or
// late), as a percentage with one decimal. Zero when there are no marks.
func AttendanceRate(stats AttendanceStats) float64 {
	if stats.Total == 0 {
		return 0
	}
	return round(float64(stats.Present+stats.Late)/float64(stats.Total)*100, 1)
}

// Add merges two tallies.
func (s AttendanceStats) Add(other AttendanceStats) AttendanceStats {
	return AttendanceStats{
		Total:   s.Total + other.Total,
		Present: s.Present + other.Present,
		Absent:  s.Absent + other.Absent,
		Late:    s.Late + other.Late,
		Excused: s.Excused + other.Excused,
	}
}

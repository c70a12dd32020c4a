package grading

import "math"

// Letter is a discrete grade classification.
type Letter string

const (
	LetterA Letter = "A"
	LetterB Letter = "B"
	LetterC Letter = "C"
	LetterD Letter = "D"
	LetterE Letter = "E"
	LetterF Letter = "F"
)

// Letters lists every letter from best to worst.
var Letters = []Letter{LetterA, LetterB, LetterC, LetterD, LetterE, LetterF}

// letterThresholds is the only place letter cut-offs are defined.
var letterThresholds = []struct {
	min    float64
	letter Letter
}{
	{90, LetterA},
	{80, LetterB},
	{70, LetterC},
	{60, LetterD},
	{50, LetterE},
}

// LetterGrade classifies a percentage. Values outside [0,100] are not
// rejected; callers validate before classifying.
func LetterGrade(percentage float64) Letter {
	for _, t := range letterThresholds {
		if percentage >= t.min {
			return t.letter
		}
	}
	return LetterF
}

// Rank orders letters so that a better letter has a higher rank (A=5 ... F=0).
// Unknown letters rank below F.
func (l Letter) Rank() int {
	for i, letter := range Letters {
		if letter == l {
			return len(Letters) - 1 - i
		}
	}
	return -1
}

// SubjectAverage returns the mean of already-normalised percentage scores
// rounded to two decimals, or 0 for an empty slice.
func SubjectAverage(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return round(sum/float64(len(scores)), 2)
}

// SummarizeSubjects groups one student's scores by class and averages the
// per-assessment percentages. Subjects appear in first-seen order.
func SummarizeSubjects(scores []AssessmentScore) ([]SubjectResult, error) {
	order := make([]string, 0)
	grouped := make(map[string][]float64)
	for _, s := range scores {
		pct, err := percentage(s)
		if err != nil {
			return nil, err
		}
		if _, ok := grouped[s.ClassID]; !ok {
			order = append(order, s.ClassID)
		}
		grouped[s.ClassID] = append(grouped[s.ClassID], pct)
	}
	results := make([]SubjectResult, 0, len(order))
	for _, classID := range order {
		avg := SubjectAverage(grouped[classID])
		results = append(results, SubjectResult{
			ClassID:     classID,
			Average:     avg,
			LetterGrade: LetterGrade(avg),
			Assessments: len(grouped[classID]),
		})
	}
	return results, nil
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

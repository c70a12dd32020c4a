package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/noah-isme/sma-grading-api/internal/grading"
)

// rejected is an input record that failed validation.
type rejected struct {
	index  int
	reason string
}

// classResult is the computed view of one class.
type classResult struct {
	classID     string
	summary     grading.ClassGradeSummary
	assessments []grading.AssessmentSummary
	rollup      grading.AssessmentRollup
	ungraded    []ungradedStudent
}

type ungradedStudent struct {
	studentID string
	reason    string
}

// batch holds everything computed from one input file.
type batch struct {
	classes  []classResult
	rejected []rejected
}

func decodeScores(r io.Reader) ([]grading.RawAssessmentScore, error) {
	var raw []grading.RawAssessmentScore
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	return raw, nil
}

// compute validates every record, skipping invalid ones, and rolls the rest up per class in input order.
func compute(raw []grading.RawAssessmentScore, threshold float64) (batch, error) {
	var out batch
	classOrder := make([]string, 0)
	byClass := make(map[string][]grading.AssessmentScore)
	for i, r := range raw {
		score, err := grading.Validate(r)
		if err != nil {
			out.rejected = append(out.rejected, rejected{index: i, reason: err.Error()})
			continue
		}
		if _, ok := byClass[score.ClassID]; !ok {
			classOrder = append(classOrder, score.ClassID)
		}
		byClass[score.ClassID] = append(byClass[score.ClassID], score)
	}

	for _, classID := range classOrder {
		result, err := computeClass(classID, byClass[classID], threshold)
		if err != nil {
			return batch{}, err
		}
		out.classes = append(out.classes, result)
	}
	return out, nil
}

func computeClass(classID string, scores []grading.AssessmentScore, threshold float64) (classResult, error) {
	result := classResult{classID: classID}

	order, grouped := grading.GroupByStudent(scores)
	finals := make([]grading.FinalGradeCalculation, 0, len(order))
	for _, studentID := range order {
		final, err := grading.ComputeFinalGrade(studentID, grouped[studentID])
		if err != nil {
			result.ungraded = append(result.ungraded, ungradedStudent{studentID: studentID, reason: err.Error()})
			continue
		}
		finals = append(finals, final)
	}
	result.summary = grading.SummarizeClass(classID, finals, grading.WithPassThreshold(threshold))

	assessmentOrder := make([]string, 0)
	byAssessment := make(map[string][]grading.AssessmentScore)
	for _, s := range scores {
		if _, ok := byAssessment[s.AssessmentID]; !ok {
			assessmentOrder = append(assessmentOrder, s.AssessmentID)
		}
		byAssessment[s.AssessmentID] = append(byAssessment[s.AssessmentID], s)
	}
	for _, id := range assessmentOrder {
		summary, err := grading.SummarizeAssessment(byAssessment[id], threshold)
		if err != nil {
			return classResult{}, fmt.Errorf("class %s assessment %s: %w", classID, id, err)
		}
		result.assessments = append(result.assessments, summary)
	}
	result.rollup = grading.SummarizeAssessments(result.assessments)
	return result, nil
}

func render(w io.Writer, b batch) {
	heading := color.New(color.FgCyan, color.Bold)
	section := color.New(color.FgYellow)
	warn := color.New(color.FgRed)

	for _, class := range b.classes {
		heading.Fprintf(w, "\n=== Class %s ===\n", class.classID) //nolint:errcheck

		section.Fprintln(w, "Final grades") //nolint:errcheck
		students := tablewriter.NewWriter(w)
		students.SetHeader([]string{"Student", "Average", "Final (%)", "Letter", "Passed"})
		for _, st := range class.summary.Students {
			students.Append([]string{
				st.StudentID,
				formatFloat(st.Average),
				formatFloat(st.FinalPercentage),
				string(st.FinalLetterGrade),
				strconv.FormatBool(st.Passed),
			})
		}
		students.Render()

		section.Fprintln(w, "Class summary") //nolint:errcheck
		summary := tablewriter.NewWriter(w)
		summary.SetHeader([]string{"Metric", "Value"})
		s := class.summary
		summary.AppendBulk([][]string{
			{"Average (%)", formatFloat(s.AveragePercentage)},
			{"Median (%)", formatFloat(s.MedianPercentage)},
			{"Highest (%)", formatFloat(s.HighestPercentage)},
			{"Lowest (%)", formatFloat(s.LowestPercentage)},
			{"Pass rate (%)", formatFloat(s.PassRate)},
			{"Pass threshold", formatFloat(s.PassThreshold)},
		})
		for _, letter := range grading.Letters {
			summary.Append([]string{"Grade " + string(letter), strconv.Itoa(s.GradeDistribution[letter])})
		}
		summary.Render()

		section.Fprintln(w, "Assessments") //nolint:errcheck
		assessments := tablewriter.NewWriter(w)
		assessments.SetHeader([]string{"Assessment", "Type", "Submissions", "Average (%)", "Pass rate (%)"})
		for _, a := range class.assessments {
			name := a.AssessmentName
			if name == "" {
				name = a.AssessmentID
			}
			assessments.Append([]string{name, string(a.AssessmentType), strconv.Itoa(a.Submissions), formatFloat(a.AverageScore), formatFloat(a.PassRate)})
		}
		assessments.SetFooter([]string{fmt.Sprintf("Rollup (%d assessments)", class.rollup.TotalAssessments), "", "", formatFloat(class.rollup.AverageScore), formatFloat(class.rollup.AveragePassRate)})
		assessments.Render()

		for _, u := range class.ungraded {
			warn.Fprintf(w, "ungraded %s: %s\n", u.studentID, u.reason) //nolint:errcheck
		}
	}

	if len(b.rejected) > 0 {
		warn.Fprintf(w, "\n%d record(s) skipped\n", len(b.rejected)) //nolint:errcheck
		for _, r := range b.rejected {
			warn.Fprintf(w, "  #%d: %s\n", r.index, r.reason) //nolint:errcheck
		}
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

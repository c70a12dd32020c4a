package export

import "fmt"

// Dataset is tabular report content shared by the CSV and PDF renderers.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
	// Numeric lists headers whose cells are right aligned in PDF output.
	Numeric []string
	// Summary holds trailing label/value pairs such as class averages.
	Summary [][2]string
}

func (d Dataset) validate(format string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", format)
	}
	return nil
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, h := range d.Headers {
		out[i] = row[h]
	}
	return out
}

func (d Dataset) isNumeric(header string) bool {
	for _, h := range d.Numeric {
		if h == header {
			return true
		}
	}
	return false
}

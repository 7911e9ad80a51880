package helpers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/hookprof/internal/constants"
)

// Row is one report line keyed by field name.
type Row map[string]any

// Report is a set of rows and the fields to show for them.
type Report struct {
	// Fields are the columns, in display order.
	Fields []string
	// Totals adds a totals footer to table output.
	Totals bool
	Rows   []Row

	// totalField carries the "total (N)" label in the footer.
	totalField string
}

// NewReport creates a report showing defaults, or the comma-separated
// selection when one is given. The first default field labels the totals
// footer unless it is "time" or was not selected.
func NewReport(defaults []string, selection string, totals bool) *Report {
	fields := defaults
	if strings.TrimSpace(selection) != "" {
		fields = nil
		for f := range strings.SplitSeq(selection, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}
	r := &Report{Fields: fields, Totals: totals}
	if len(defaults) > 0 && defaults[0] != "time" && slices.Contains(fields, defaults[0]) {
		r.totalField = defaults[0]
	}
	return r
}

// Validate checks that every selected field exists in at least one row.
func (r *Report) Validate() error {
	if len(r.Rows) == 0 {
		return nil
	}
	for _, f := range r.Fields {
		found := false
		for _, row := range r.Rows {
			if _, ok := row[f]; ok {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("invalid field: %s", f)
		}
	}
	return nil
}

// Sort orders the rows by field. Numbers compare at four decimal places,
// anything else as strings. An empty field leaves the order unchanged.
func (r *Report) Sort(order, field string) {
	if field == "" {
		return
	}
	desc := strings.EqualFold(order, constants.OrderDesc)
	slices.SortStableFunc(r.Rows, func(a, b Row) int {
		if desc {
			a, b = b, a
		}
		return compareValues(a[field], b[field])
	})
}

func compareValues(a, b any) int {
	fa, aok := number(a)
	fb, bok := number(b)
	if aok && bok {
		return compareFloat(fa, fb)
	}
	return strings.Compare(str(a), str(b))
}

func compareFloat(a, b float64) int {
	d := round(a, 4) - round(b, 4)
	switch {
	case math.Abs(d) < 1e-9:
		return 0
	case d < 0:
		return -1
	default:
		return 1
	}
}

// Formatter renders a report.
type Formatter interface {
	Format(r *Report, w io.Writer) error
}

// NewFormatter creates a new Formatter for the given format.
func NewFormatter(format string) (Formatter, error) {
	switch format {
	case constants.FormatTable:
		return &TableFormatter{}, nil
	case constants.FormatJSON:
		return &JSONFormatter{}, nil
	case constants.FormatYAML:
		return &YAMLFormatter{}, nil
	case constants.FormatCSV:
		return &CSVFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// TableFormatter renders a bordered table with durations in seconds and an
// optional totals footer.
type TableFormatter struct{}

func (f *TableFormatter) Format(r *Report, w io.Writer) error {
	rows := make([][]string, 0, len(r.Rows)+1)
	for _, row := range r.Rows {
		cells := make([]string, len(r.Fields))
		for i, field := range r.Fields {
			cells[i] = cell(field, row[field])
		}
		rows = append(rows, cells)
	}
	footer := -1
	if r.Totals {
		footer = len(rows)
		rows = append(rows, r.totals())
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(r.Fields...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == footer {
				style = style.Bold(true)
			}
			return style
		})

	_, err := fmt.Fprintln(w, t.String())
	return err
}

// totals sums numeric columns, averages ratio columns and labels the total
// column. Location columns are left blank.
func (r *Report) totals() []string {
	out := make([]string, len(r.Fields))
	for i, field := range r.Fields {
		switch {
		case field == r.totalField:
			out[i] = fmt.Sprintf("total (%d)", len(r.Rows))
		case field == "location":
		case isRatio(field):
			var sum float64
			var n int
			for _, row := range r.Rows {
				if v, ok := ratio(row[field]); ok {
					sum += v
					n++
				}
			}
			if n > 0 {
				out[i] = formatFloat(round(sum/float64(n), 2)) + "%"
			}
		default:
			var sum float64
			numeric := false
			for _, row := range r.Rows {
				if v, ok := number(row[field]); ok {
					sum += v
					numeric = true
				}
			}
			if numeric {
				out[i] = cell(field, sum)
			}
		}
	}
	return out
}

// JSONFormatter renders the rows as a JSON array, keeping field order.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(r *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.ordered())
}

// YAMLFormatter renders the rows as a YAML sequence, keeping field order.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(r *Report, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.ordered()); err != nil {
		return err
	}
	return enc.Close()
}

func (r *Report) ordered() []*orderedmap.OrderedMap[string, any] {
	out := make([]*orderedmap.OrderedMap[string, any], 0, len(r.Rows))
	for _, row := range r.Rows {
		m := orderedmap.New[string, any]()
		for _, field := range r.Fields {
			m.Set(field, row[field])
		}
		out = append(out, m)
	}
	return out
}

// CSVFormatter renders a header line and one line per row.
type CSVFormatter struct{}

func (f *CSVFormatter) Format(r *Report, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Fields); err != nil {
		return err
	}
	for _, row := range r.Rows {
		values := make([]string, len(r.Fields))
		for i, field := range r.Fields {
			values[i] = str(row[field])
		}
		if err := cw.Write(values); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func isTime(field string) bool {
	return field == "time" || strings.Contains(field, "_time")
}

func isRatio(field string) bool {
	return strings.Contains(field, "_ratio")
}

// cell renders a table value. Durations are rounded to four places and
// suffixed with "s".
func cell(field string, v any) string {
	if isTime(field) {
		if f, ok := number(v); ok {
			return formatFloat(round(f, 4)) + "s"
		}
	}
	return str(v)
}

func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatFloat(x)
	default:
		return fmt.Sprint(x)
	}
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// ratio reads a "93.5%" cell.
func ratio(v any) (float64, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return number(v)
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	return f, err == nil
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

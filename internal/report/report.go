package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"goab/adapters/excel"
	"goab/domain/run"
)

// DefaultAlpha is the significance level used when rendering verdicts.
const DefaultAlpha = 0.05

// Format is an output encoding for a report.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ParseFormat resolves a format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unsupported report format %q (csv, xlsx, md, html)", s)
}

// New assembles a report from a manifest and its results.
func New(manifest run.Manifest, results []run.MetricResult) *run.Report {
	return &run.Report{Manifest: manifest, Results: results}
}

// Write encodes the report in the given format.
func Write(w io.Writer, report *run.Report, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, report)
	case FormatXLSX:
		return excel.WriteReport(w, report)
	case FormatMarkdown:
		_, err := w.Write(RenderMarkdown(report, DefaultAlpha))
		return err
	case FormatHTML:
		_, err := w.Write(RenderHTML(report, DefaultAlpha))
		return err
	}
	return fmt.Errorf("unsupported report format %q", format)
}

// WriteCSV writes one line per result in run.ResultColumns order.
// Missing statistics and p-values are empty cells.
func WriteCSV(w io.Writer, report *run.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(run.ResultColumns); err != nil {
		return err
	}
	for _, res := range report.Results {
		if err := cw.Write(record(res)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(res run.MetricResult) []string {
	cells := res.Cells()
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = formatCell(c)
	}
	return out
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

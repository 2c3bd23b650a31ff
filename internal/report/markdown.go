package report

import (
	"bytes"
	"fmt"
	"strings"

	"goab/domain/run"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderMarkdown renders a human readable summary table.
func RenderMarkdown(report *run.Report, alpha float64) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Experiment report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", report.RunID)
	if report.Preset != "" {
		fmt.Fprintf(&b, "- Preset: %s\n", report.Preset)
	}
	if report.Source != "" {
		fmt.Fprintf(&b, "- Data: %s\n", report.Source)
	}
	fmt.Fprintf(&b, "- Metrics: %d, results without verdict: %d\n", report.MetricCount, report.Failed())
	fmt.Fprintf(&b, "- Significance level: %g\n\n", alpha)

	b.WriteString("| Experiment | Metric | Estimator | Mean 0 | Mean 1 | Lift | Statistic | p-value | Verdict |\n")
	b.WriteString("|---|---|---|---:|---:|---:|---:|---:|---|\n")
	for _, res := range report.Results {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			cellText(res.Experiment),
			cellText(res.Metric),
			res.Estimator,
			number(res.Mean0),
			number(res.Mean1),
			lift(res),
			number(res.Statistic),
			number(res.PValue),
			verdict(res, alpha),
		)
	}
	return b.Bytes()
}

// RenderHTML renders the markdown summary as a complete HTML page.
func RenderHTML(report *run.Report, alpha float64) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse(RenderMarkdown(report, alpha))

	renderer := html.NewRenderer(html.RendererOptions{
		Title: "Experiment report " + report.RunID.String(),
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.Render(doc, renderer)
}

func number(v *float64) string {
	if v == nil {
		return "–"
	}
	return fmt.Sprintf("%.4g", *v)
}

func lift(res run.MetricResult) string {
	if res.Mean0 == nil || res.Mean1 == nil || *res.Mean0 == 0 {
		return "–"
	}
	return fmt.Sprintf("%+.2f%%", (*res.Mean1 / *res.Mean0 - 1) * 100)
}

func verdict(res run.MetricResult, alpha float64) string {
	switch {
	case !res.OK():
		if res.Error == "" {
			return "no result"
		}
		return "no result: " + cellText(res.Error)
	case res.Significant(alpha):
		return "**significant**"
	default:
		return "not significant"
	}
}

func cellText(s string) string {
	return strings.NewReplacer("|", "\\|", "\n", " ").Replace(s)
}

package excel

import (
	"fmt"
	"io"

	"goab/domain/run"

	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet = "Results"
	runSheet     = "Run"
)

// WriteReport writes the report as a workbook with a results sheet and a run sheet.
func WriteReport(w io.Writer, report *run.Report) error {
	f, err := buildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteReportFile writes the workbook to path.
func WriteReportFile(path string, report *run.Report) error {
	f, err := buildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func buildWorkbook(report *run.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, err
	}

	header := make([]any, len(run.ResultColumns))
	for i, col := range run.ResultColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, res := range report.Results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := res.Cells()
		if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	if err := f.SetPanes(resultsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(runSheet); err != nil {
		return nil, err
	}
	meta := [][]any{
		{"run_id", report.RunID.String()},
		{"preset", report.Preset},
		{"source", report.Source},
		{"metric_count", report.MetricCount},
		{"config_hash", report.ConfigHash.String()},
		{"created_at", report.CreatedAt.String()},
	}
	for i, row := range meta {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(runSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

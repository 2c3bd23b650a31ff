package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"goab/domain/dataset"
	"goab/internal/logging"
	"goab/ports"

	"github.com/xuri/excelize/v2"
)

var _ ports.TableReader = (*DataReader)(nil)

// DataReader reads raw experiment data from Excel or CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *logging.Logger
}

// NewDataReader creates a reader; the file type follows the extension.
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType, logger: logging.NewNop()}
}

// WithLogger sets the logger used for read timings.
func (r *DataReader) WithLogger(logger *logging.Logger) *DataReader {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// ReadTable reads the file into a raw table. The first row is the header.
func (r *DataReader) ReadTable() (*dataset.Table, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	start := time.Now()
	var (
		rows [][]string
		err  error
	)
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}

	table, err := tableFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.filePath, err)
	}
	r.logger.Info("read %s (%d columns, %d rows) in %.2fms",
		r.filePath, len(table.Columns()), table.Len(), float64(time.Since(start).Nanoseconds())/1e6)
	return table, nil
}

// readExcelRows reads the first sheet of the workbook
func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file %s has no sheets", r.filePath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return ReadCSV(file)
}

// ReadCSV reads CSV rows, tolerating ragged records.
func ReadCSV(in io.Reader) ([][]string, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// tableFromRows treats the first row as header. Cells are trimmed; empty
// cells stay empty and count as missing values downstream.
func tableFromRows(rows [][]string) (*dataset.Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("file must have at least a header row")
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, strings.TrimSpace(cell))
		}
		if len(cells) > len(headers) {
			cells = cells[:len(headers)]
		}
		data = append(data, cells)
	}
	return dataset.NewTable(headers, data)
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

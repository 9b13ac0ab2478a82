// ============================================================================
// internal/ingest/parser.go
// Spreadsheet ingestion: CSV and Excel files into ordered row records
// ============================================================================

package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned when the file extension matches neither
// the delimited-text nor the spreadsheet-binary family.
var ErrUnsupportedFormat = errors.New("unsupported file format: expected .csv, .xlsx or .xls")

// Row is one data row keyed by trimmed column header. Cell values stay raw
// strings here; numeric coercion is the normalizer's job so the same rows
// can be re-normalized under a different exam kind without re-parsing.
type Row map[string]string

// ParseFile reads a CSV or Excel file into row records. The first row is the
// header row; blank rows are skipped; missing cells become empty strings.
func ParseFile(filename string, r io.Reader) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(r)
	case ".xlsx", ".xls":
		return parseExcel(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func parseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged historical files
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	headers := trimHeaders(header)

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows)+2, err)
		}

		row := recordToRow(headers, record)
		if row != nil {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

func parseExcel(r io.Reader) ([]Row, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	// First sheet only, matching the upload flow
	records, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := trimHeaders(records[0])

	var rows []Row
	for _, record := range records[1:] {
		row := recordToRow(headers, record)
		if row != nil {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

func trimHeaders(record []string) []string {
	headers := make([]string, len(record))
	for i, h := range record {
		headers[i] = strings.TrimSpace(h)
	}
	return headers
}

// recordToRow maps one record onto the header set. Returns nil for blank rows.
func recordToRow(headers, record []string) Row {
	row := make(Row, len(headers))
	blank := true

	for i, h := range headers {
		if h == "" {
			continue
		}
		value := ""
		if i < len(record) {
			value = strings.TrimSpace(record[i])
		}
		if value != "" {
			blank = false
		}
		row[h] = value
	}

	if blank {
		return nil
	}
	return row
}

// Package importer reads CSV and Excel files and turns their rows into
// prospects or properties.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxRows bounds a single import file.
const MaxRows = 5000

var (
	ErrUnsupportedFormat = errors.New("please select a CSV or Excel file (.csv, .xlsx)")
	ErrLegacyExcel       = errors.New("legacy .xls files are not supported; save as .xlsx or .csv")
	ErrNoRows            = errors.New("the file contains no data rows")
	ErrTooManyRows       = fmt.Errorf("the file has more than %d data rows", MaxRows)
)

// Row maps a header name to the raw cell text.
type Row map[string]string

type Table struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// ReadTable parses a CSV or XLSX upload. The first row is the header row and
// blank rows are skipped.
func ReadTable(filename string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSV(r)
	case ".xlsx":
		return readXLSX(r)
	case ".xls":
		return nil, ErrLegacyExcel
	default:
		return nil, ErrUnsupportedFormat
	}
}

func readCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	firstLine, _ := br.Peek(4096)

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(firstLine)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSV parsing error: %w", err)
	}
	return buildTable(records)
}

// sniffDelimiter picks ';' when the header line uses it more than ','.
// Spreadsheets exported with a French locale write semicolons.
func sniffDelimiter(head []byte) rune {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	if bytes.Count(head, []byte(";")) > bytes.Count(head, []byte(",")) {
		return ';'
	}
	return ','
}

func readXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoRows
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return buildTable(records)
}

func buildTable(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrNoRows
	}

	header := records[0]
	columns := make([]int, 0, len(header))
	headers := make([]string, 0, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			continue
		}
		columns = append(columns, i)
		headers = append(headers, h)
	}
	if len(headers) == 0 {
		return nil, ErrNoRows
	}

	t := &Table{Headers: headers, Rows: make([]Row, 0, len(records)-1)}
	for _, record := range records[1:] {
		row := make(Row, len(headers))
		blank := true
		for k, col := range columns {
			var cell string
			if col < len(record) {
				cell = strings.TrimSpace(record[col])
			}
			if cell != "" {
				blank = false
			}
			row[headers[k]] = cell
		}
		if blank {
			continue
		}
		if len(t.Rows) == MaxRows {
			return nil, ErrTooManyRows
		}
		t.Rows = append(t.Rows, row)
	}
	if len(t.Rows) == 0 {
		return nil, ErrNoRows
	}
	return t, nil
}

// Preview returns at most n leading rows.
func (t *Table) Preview(n int) []Row {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

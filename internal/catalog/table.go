package catalog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a header-addressed view over a parsed sheet or delimited file.
// Columns are looked up case-insensitively after trimming.
type Table struct {
	Header []string
	Rows   [][]string
	colIdx map[string]int
}

// NewTable drops "Unnamed*" and blank columns and indexes the rest.
func NewTable(header []string, rows [][]string) *Table {
	keep := make([]int, 0, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" || strings.HasPrefix(strings.ToLower(name), "unnamed") {
			continue
		}
		keep = append(keep, i)
	}

	t := &Table{
		Header: make([]string, 0, len(keep)),
		Rows:   make([][]string, 0, len(rows)),
		colIdx: make(map[string]int, len(keep)),
	}
	for _, i := range keep {
		name := strings.TrimSpace(header[i])
		if _, dup := t.colIdx[strings.ToLower(name)]; !dup {
			t.colIdx[strings.ToLower(name)] = len(t.Header)
		}
		t.Header = append(t.Header, name)
	}

	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		out := make([]string, len(keep))
		for j, i := range keep {
			if i < len(row) {
				out[j] = row[i]
			}
		}
		t.Rows = append(t.Rows, out)
	}
	return t
}

// Has reports whether the table carries column name.
func (t *Table) Has(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.colIdx[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Get returns the trimmed cell of row i in column name, or "" when absent.
func (t *Table) Get(i int, name string) string {
	idx, ok := t.colIdx[strings.ToLower(strings.TrimSpace(name))]
	if !ok || i < 0 || i >= len(t.Rows) || idx >= len(t.Rows[i]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[i][idx])
}

// Len is the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ReadDelimited parses a comma separated file, falling back to semicolons
// when the header comes out as a single column.
func ReadDelimited(r io.Reader) (*Table, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	// Skip UTF-8 BOM if present (0xEF 0xBB 0xBF)
	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("read delimited data: %w", err)
	}

	records, err := parseRecords(data, ',')
	if err != nil {
		return nil, err
	}
	if len(records) > 0 && len(records[0]) == 1 && strings.Contains(records[0][0], ";") {
		if records, err = parseRecords(data, ';'); err != nil {
			return nil, err
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("delimited data has no header")
	}
	return NewTable(records[0], records[1:]), nil
}

func parseRecords(data []byte, sep rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sep
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited data: %w", err)
	}
	return records, nil
}

// ReadDelimitedFile opens path and parses it with ReadDelimited.
func ReadDelimitedFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	t, err := ReadDelimited(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// ReadSheet reads one worksheet of an .xlsx workbook. The first row is the
// header.
func ReadSheet(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	return NewTable(rows[0], rows[1:]), nil
}

// ReadTable dispatches on the file extension: .xlsx goes through ReadSheet,
// everything else through ReadDelimitedFile.
func ReadTable(path, sheet string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadSheet(path, sheet)
	default:
		return ReadDelimitedFile(path)
	}
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

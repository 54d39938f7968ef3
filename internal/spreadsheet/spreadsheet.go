package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNoSheets  = errors.New("workbook has no sheets")
	ErrNoHeader  = errors.New("first sheet has no header row")
	ErrRowLength = errors.New("column length does not match row count")
)

const defaultSheet = "Sheet1"

// Table is a header row plus data rows, every row padded to the header width.
type Table struct {
	Header []string
	Rows   [][]string
}

// Read parses the first sheet of an xlsx workbook. Cell values are read raw so
// long numeric identifiers keep all their digits. Blank rows between data rows
// are kept; trailing blank rows are dropped.
func Read(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	if len(rows) == 0 || isBlank(rows[0]) {
		return nil, ErrNoHeader
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	t := &Table{Header: pad(trimAll(rows[0]), width)}
	for i, h := range t.Header {
		if h == "" {
			t.Header[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	data := rows[1:]
	for len(data) > 0 && isBlank(data[len(data)-1]) {
		data = data[:len(data)-1]
	}
	for _, row := range data {
		t.Rows = append(t.Rows, pad(row, width))
	}

	return t, nil
}

func ReadFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return Read(file)
}

// ColumnIndex returns the position of the named header, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Column returns the values of the named column; nil when it is absent.
func (t *Table) Column(name string) []string {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}

	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values
}

// AddColumn appends a column; values must align with Rows.
func (t *Table) AddColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("%w: column %q has %d values for %d rows", ErrRowLength, name, len(values), len(t.Rows))
	}

	t.Header = append(t.Header, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	return nil
}

// SetColumn overwrites the named column in place, or appends it when the
// header is absent.
func (t *Table) SetColumn(name string, values []string) error {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return t.AddColumn(name, values)
	}
	if len(values) != len(t.Rows) {
		return fmt.Errorf("%w: column %q has %d values for %d rows", ErrRowLength, name, len(values), len(t.Rows))
	}

	for i := range t.Rows {
		t.Rows[i][idx] = values[i]
	}
	return nil
}

// Clone returns a deep copy so derived columns never touch the source rows.
func (t *Table) Clone() *Table {
	out := &Table{
		Header: append([]string(nil), t.Header...),
		Rows:   make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

func (t *Table) Write(w io.Writer) error {
	f, err := t.workbook()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (t *Table) WriteFile(path string) error {
	f, err := t.workbook()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func (t *Table) workbook() (*excelize.File, error) {
	f := excelize.NewFile()

	if err := setRow(f, 1, t.Header); err != nil {
		_ = f.Close()
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil && len(t.Header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
		_ = f.SetCellStyle(defaultSheet, "A1", last, bold)
	}

	for i, row := range t.Rows {
		if err := setRow(f, i+2, row); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	return f, nil
}

func setRow(f *excelize.File, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("invalid row %d: %w", rowNum, err)
	}

	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}

	if err := f.SetSheetRow(defaultSheet, cell, &row); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimAll(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func pad(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

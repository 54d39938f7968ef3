package spreadsheet

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes rows into the first sheet of a new workbook.
func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}

	buf := new(bytes.Buffer)
	require.NoError(t, f.Write(buf))
	return buf
}

func TestReadKeepsLongNumericIdentifiers(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"ISBN", "TITLE", "BRN", "RETAIL"},
		{9780143127741, "Sapiens", "B-1", 18.99},
		{"0374533555", "Thinking, Fast and Slow", nil, nil},
	})

	table, err := Read(buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"ISBN", "TITLE", "BRN", "RETAIL"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "9780143127741", table.Rows[0][0])
	assert.Equal(t, "18.99", table.Rows[0][3])
	assert.Equal(t, []string{"0374533555", "Thinking, Fast and Slow", "", ""}, table.Rows[1])
}

func TestReadKeepsInteriorBlankRowsAndNamesMissingHeaders(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{" ISBN "},
		{"111"},
		{""},
		{"222", "extra"},
		{""},
		{"  "},
	})

	table, err := Read(buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"ISBN", "Unnamed: 1"}, table.Header)
	assert.Equal(t, [][]string{{"111", ""}, {"", ""}, {"222", "extra"}}, table.Rows)
}

func TestReadRejectsEmptySheet(t *testing.T) {
	buf := buildWorkbook(t, nil)

	_, err := Read(buf)
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadRejectsNonWorkbook(t *testing.T) {
	_, err := Read(bytes.NewBufferString("ISBN,TITLE\n1,foo\n"))
	assert.Error(t, err)
}

func TestColumnHelpers(t *testing.T) {
	table := &Table{
		Header: []string{"ISBN", "TITLE"},
		Rows:   [][]string{{"1", "a"}, {"2", "b"}},
	}

	assert.Equal(t, 1, table.ColumnIndex("TITLE"))
	assert.Equal(t, -1, table.ColumnIndex("title"))
	assert.True(t, table.HasColumn("ISBN"))
	assert.Equal(t, []string{"1", "2"}, table.Column("ISBN"))
	assert.Nil(t, table.Column("BRN"))
}

func TestAddColumn(t *testing.T) {
	table := &Table{Header: []string{"ISBN"}, Rows: [][]string{{"1"}, {"2"}}}

	require.NoError(t, table.AddColumn("BSR", []string{"#1", "Error"}))
	assert.Equal(t, []string{"ISBN", "BSR"}, table.Header)
	assert.Equal(t, [][]string{{"1", "#1"}, {"2", "Error"}}, table.Rows)

	err := table.AddColumn("Price", []string{"x"})
	assert.ErrorIs(t, err, ErrRowLength)
}

func TestSetColumn(t *testing.T) {
	table := &Table{Header: []string{"ISBN", "BSR"}, Rows: [][]string{{"1", "old"}, {"2", "older"}}}

	require.NoError(t, table.SetColumn("BSR", []string{"#1", "Error"}))
	require.NoError(t, table.SetColumn("Amazon Price", []string{"9.", "Error"}))

	assert.Equal(t, []string{"ISBN", "BSR", "Amazon Price"}, table.Header)
	assert.Equal(t, [][]string{{"1", "#1", "9."}, {"2", "Error", "Error"}}, table.Rows)

	err := table.SetColumn("BSR", []string{"x"})
	assert.ErrorIs(t, err, ErrRowLength)
}

func TestCloneIsIndependent(t *testing.T) {
	table := &Table{Header: []string{"ISBN"}, Rows: [][]string{{"1"}}}
	clone := table.Clone()

	require.NoError(t, clone.AddColumn("BSR", []string{"#1"}))

	assert.Equal(t, []string{"ISBN"}, table.Header)
	assert.Equal(t, [][]string{{"1"}}, table.Rows)
}

func TestWriteFileRoundTrip(t *testing.T) {
	table := &Table{
		Header: []string{"ISBN", "BSR"},
		Rows:   [][]string{{"9780143127741", "Best Sellers Rank: #1"}, {"0000", "No link"}},
	}

	path := filepath.Join(t.TempDir(), "output_bsr.xlsx")
	require.NoError(t, table.WriteFile(path))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, table.Header, got.Header)
	assert.Equal(t, table.Rows, got.Rows)
}

func TestWriteToBuffer(t *testing.T) {
	table := &Table{Header: []string{"ISBN"}, Rows: [][]string{{"1"}, {"2"}}}

	buf := new(bytes.Buffer)
	require.NoError(t, table.Write(buf))

	got, err := Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, got.Column("ISBN"))
}

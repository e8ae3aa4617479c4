package bulk

// reader.go turns a spreadsheet or CSV file into a header row plus a lazy
// sequence of data rows. Rows stream from the source so multi-thousand-row
// files never live in memory at once, and both pipeline phases re-open the
// file with a fresh reader instead of sharing a cursor.
//
// A template file may carry a human-readable instruction row right under the
// header; the reader detects and drops it (see isInstructionRow).

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// RowReader is a lazy sequence of data rows. Next returns io.EOF after the
// last row.
type RowReader interface {
	Next() ([]string, error)
	Close() error
}

// OpenTable opens a tabular file by extension and returns its header row and
// a streaming reader positioned at the first data row. The instruction row,
// when present, is already skipped. Unsupported extensions fail with
// ErrUnsupportedFormat.
func OpenTable(path string) ([]string, RowReader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return openCSV(path)
	case ".xlsx":
		return openXLSX(path)
	case ".xls":
		return openXLS(path)
	default:
		return nil, nil, ErrUnsupportedFormat
	}
}

// instructionKeywords is the small fixed vocabulary that marks a cell as
// instructional rather than data.
var instructionKeywords = []string{
	"required", "optional", "separate with", "default", "yes/no",
}

// isInstructionRow treats a row as non-data instructions when at least 60%
// of its cells are empty or contain an instructional keyword.
func isInstructionRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	hits := 0
	for _, cell := range row {
		raw := strings.ToLower(strings.TrimSpace(cell))
		if raw == "" {
			hits++
			continue
		}
		for _, key := range instructionKeywords {
			if strings.Contains(raw, key) {
				hits++
				break
			}
		}
	}
	threshold := (len(row)*6 + 9) / 10
	if threshold < 1 {
		threshold = 1
	}
	return hits >= threshold
}

// instructionSkipper defers the instruction-row check until the first Next
// call so the underlying source stays lazy.
type instructionSkipper struct {
	inner   RowReader
	started bool
}

func (s *instructionSkipper) Next() ([]string, error) {
	if !s.started {
		s.started = true
		row, err := s.inner.Next()
		if err != nil {
			return nil, err
		}
		if !isInstructionRow(row) {
			return row, nil
		}
	}
	return s.inner.Next()
}

func (s *instructionSkipper) Close() error { return s.inner.Close() }

// ---------------------------------------------------------------------------
// CSV

// utf8BOM is prepended by several Windows spreadsheet editors.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomSkippingReader strips a UTF-8 BOM from the start of the stream.
type bomSkippingReader struct {
	reader  io.Reader
	checked bool
	pending []byte
}

func (r *bomSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		buf := make([]byte, 3)
		n, err := io.ReadFull(r.reader, buf)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, err
		}
		buf = buf[:n]
		if n == 3 && buf[0] == utf8BOM[0] && buf[1] == utf8BOM[1] && buf[2] == utf8BOM[2] {
			buf = buf[:0]
		}
		r.pending = buf
	}
	if len(r.pending) > 0 {
		n := copy(p, r.pending)
		r.pending = r.pending[n:]
		return n, nil
	}
	return r.reader.Read(p)
}

type csvRows struct {
	file   *os.File
	reader *csv.Reader
}

func (c *csvRows) Next() ([]string, error) {
	record, err := c.reader.Read()
	if err != nil {
		return nil, err
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	return record, nil
}

func (c *csvRows) Close() error { return c.file.Close() }

func openCSV(path string) ([]string, RowReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	reader := csv.NewReader(&bomSkippingReader{reader: f})
	reader.FieldsPerRecord = -1

	rows := &csvRows{file: f, reader: reader}
	header, err := rows.Next()
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("file has no header row")
		}
		return nil, nil, err
	}
	return header, &instructionSkipper{inner: rows}, nil
}

// ---------------------------------------------------------------------------
// XLSX

type xlsxRows struct {
	file *excelize.File
	rows *excelize.Rows
}

func (x *xlsxRows) Next() ([]string, error) {
	if !x.rows.Next() {
		if err := x.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	cells, err := x.rows.Columns()
	if err != nil {
		return nil, err
	}
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells, nil
}

func (x *xlsxRows) Close() error {
	x.rows.Close()
	return x.file.Close()
}

func openXLSX(path string) ([]string, RowReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	iter, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	rows := &xlsxRows{file: f, rows: iter}
	header, err := rows.Next()
	if err != nil {
		rows.Close()
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("file has no header row")
		}
		return nil, nil, err
	}
	return header, &instructionSkipper{inner: rows}, nil
}

// ---------------------------------------------------------------------------
// Legacy XLS
//
// The cell-oriented BIFF format has no streaming reader; the whole sheet is
// decoded up front, which is acceptable for the legacy files still using it.

type xlsRows struct {
	rows [][]string
	pos  int
}

func (x *xlsRows) Next() ([]string, error) {
	if x.pos >= len(x.rows) {
		return nil, io.EOF
	}
	row := x.rows[x.pos]
	x.pos++
	return row, nil
}

func (x *xlsRows) Close() error { return nil }

func openXLS(path string) ([]string, RowReader, error) {
	workbook, err := xls.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, nil, err
	}

	var all [][]string
	for i := 0; i < sheet.GetNumberRows(); i++ {
		r, err := sheet.GetRow(i)
		if err != nil {
			return nil, nil, err
		}
		var cells []string
		for _, c := range r.GetCols() {
			cells = append(cells, strings.TrimSpace(c.GetString()))
		}
		all = append(all, cells)
	}
	if len(all) == 0 {
		return nil, nil, errors.New("file has no header row")
	}
	return all[0], &instructionSkipper{inner: &xlsRows{rows: all[1:]}}, nil
}

// isBlankRow reports whether every cell is empty after trimming.
func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

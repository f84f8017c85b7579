// Package batch reads uploaded student tables (CSV or XLSX) into batch rows.
package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/okian/dropout/internal/domain/model"
)

// Sentinel errors.
var (
	ErrMissingColumns    = errors.New("missing columns")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmpty             = errors.New("empty file")
	ErrInvalidCell       = errors.New("invalid cell")
	ErrTooManyRows       = errors.New("too many rows")
)

// Column names.
const (
	ColFaculty   = "faculty"
	ColGender    = "gender"
	ColGPAX      = "gpax"
	ColCountF    = "count_f"
	ColStudentID = "student_id"
	ColName      = "name"
)

// TermColumns are the grade columns in term order. The first eight are
// required; year 5 is optional.
var TermColumns = []string{
	"year1_term1", "year1_term2",
	"year2_term1", "year2_term2",
	"year3_term1", "year3_term2",
	"year4_term1", "year4_term2",
	"year5_term1", "year5_term2",
}

const requiredTerms = 8

// Required lists the columns every upload must carry, in reporting order.
func Required() []string {
	out := []string{ColFaculty, ColGender, ColGPAX, ColCountF}
	return append(out, TermColumns[:requiredTerms]...)
}

// Format is an upload encoding.
type Format int

const (
	CSV Format = iota
	XLSX
)

// FormatOf picks the format from a file name. Unknown extensions are read
// as CSV; legacy .xls workbooks are rejected.
func FormatOf(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return XLSX, nil
	case ".xls":
		return 0, fmt.Errorf("%w: .xls (save as .xlsx)", ErrUnsupportedFormat)
	default:
		return CSV, nil
	}
}

// Option configures Read.
type Option func(*reader)

// WithMaxRows limits the number of data rows; 0 means no limit.
func WithMaxRows(n int) Option {
	return func(r *reader) {
		if n >= 0 {
			r.maxRows = n
		}
	}
}

type reader struct {
	maxRows int
}

// Read parses an upload named filename.
func Read(src io.Reader, filename string, opts ...Option) ([]model.BatchRow, error) {
	f, err := FormatOf(filename)
	if err != nil {
		return nil, err
	}
	var table [][]string
	switch f {
	case XLSX:
		table, err = readXLSX(src)
	default:
		table, err = readCSV(src)
	}
	if err != nil {
		return nil, err
	}
	r := &reader{}
	for _, opt := range opts {
		opt(r)
	}
	return r.rows(table)
}

func readCSV(src io.Reader) ([][]string, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	table, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cannot parse csv: %w", err)
	}
	return table, nil
}

func readXLSX(src io.Reader) ([][]string, error) {
	wb, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("cannot parse xlsx: %w", err)
	}
	defer wb.Close()
	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}
	table, err := wb.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("cannot read sheet %q: %w", sheets[0], err)
	}
	return table, nil
}

// rows maps a header-first table onto batch rows.
func (r *reader) rows(table [][]string) ([]model.BatchRow, error) {
	if len(table) == 0 {
		return nil, ErrEmpty
	}
	cols := make(map[string]int, len(table[0]))
	for i, h := range table[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.ToLower(strings.TrimSpace(h))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	var missing []string
	for _, c := range Required() {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	out := make([]model.BatchRow, 0, len(table)-1)
	for line, cells := range table[1:] {
		if blank(cells) {
			continue
		}
		if r.maxRows > 0 && len(out) >= r.maxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, r.maxRows)
		}
		c := cellReader{cells: cells, cols: cols, line: line + 2}
		row := model.BatchRow{
			Index:     len(out),
			StudentID: c.text(ColStudentID),
			Name:      c.text(ColName),
			Record: model.StudentRecord{
				Faculty: c.text(ColFaculty),
				Gender:  c.text(ColGender),
				GPAX:    c.number(ColGPAX),
				CountF:  int(c.number(ColCountF)),
			},
		}
		for _, tc := range TermColumns {
			if _, ok := cols[tc]; !ok {
				continue
			}
			row.Record.Terms = append(row.Record.Terms, c.grade(tc))
		}
		if c.err != nil {
			return nil, c.err
		}
		out = append(out, row)
	}
	return out, nil
}

// cellReader reads typed cells from one row and keeps the first error.
type cellReader struct {
	cells []string
	cols  map[string]int
	line  int
	err   error
}

func (c *cellReader) text(col string) string {
	i, ok := c.cols[col]
	if !ok || i >= len(c.cells) {
		return ""
	}
	return strings.TrimSpace(c.cells[i])
}

// number reads a numeric cell; blank reads as zero.
func (c *cellReader) number(col string) float64 {
	v, ok := c.parse(col)
	if !ok {
		return 0
	}
	return v
}

// grade reads a term grade; blank is a missing term.
func (c *cellReader) grade(col string) *float64 {
	v, ok := c.parse(col)
	if !ok {
		return nil
	}
	return model.Grade(v)
}

func (c *cellReader) parse(col string) (float64, bool) {
	s := c.text(col)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		if c.err == nil {
			c.err = fmt.Errorf("%w: line %d column %s: %q", ErrInvalidCell, c.line, col, s)
		}
		return 0, false
	}
	return v, true
}

func blank(cells []string) bool {
	for _, s := range cells {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

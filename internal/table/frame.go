// Package table provides the in-memory columnar frame that all analysis
// functions operate on: a mapping from column name to a column of values,
// rows aligned by position.
package table

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Frame is a column-oriented table. Cells are untyped; numeric access goes
// through Numeric, which coerces malformed values to 0 instead of failing,
// since tax-roll data routinely has blanks and stray text.
type Frame struct {
	cols  map[string][]any
	order []string
	n     int
}

// New creates an empty frame with capacity for n rows. Columns added via Set
// must have exactly n values.
func New(n int) *Frame {
	return &Frame{cols: make(map[string][]any), n: n}
}

// FromRecords builds a frame from a header row and positional records.
// Short records are padded with nil; long records are an error.
func FromRecords(header []string, rows [][]string) (*Frame, error) {
	for r, row := range rows {
		if len(row) > len(header) {
			return nil, eris.Errorf("table: record %d has %d fields, header has %d", r, len(row), len(header))
		}
	}
	f := New(len(rows))
	for i, name := range header {
		col := make([]any, len(rows))
		for r, row := range rows {
			if i < len(row) {
				col[r] = row[i]
			}
		}
		f.cols[name] = col
		f.order = append(f.order, name)
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.n }

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Has reports whether the column exists. An empty name never exists.
func (f *Frame) Has(name string) bool {
	if name == "" {
		return false
	}
	_, ok := f.cols[name]
	return ok
}

// Column returns the raw column values, or nil if absent.
func (f *Frame) Column(name string) []any {
	return f.cols[name]
}

// Set adds or replaces a column. The value count must match the row count.
func (f *Frame) Set(name string, values []any) error {
	if name == "" {
		return eris.New("table: empty column name")
	}
	if len(values) != f.n {
		return eris.Errorf("table: column %q has %d values, frame has %d rows", name, len(values), f.n)
	}
	if _, exists := f.cols[name]; !exists {
		f.order = append(f.order, name)
	}
	f.cols[name] = values
	return nil
}

// Rename changes a column's name in place, keeping its position.
func (f *Frame) Rename(old, new string) error {
	if !f.Has(old) {
		return eris.Errorf("table: no column %q", old)
	}
	if new == "" {
		return eris.New("table: empty column name")
	}
	if f.Has(new) {
		return eris.Errorf("table: column %q already exists", new)
	}
	f.cols[new] = f.cols[old]
	delete(f.cols, old)
	for i, name := range f.order {
		if name == old {
			f.order[i] = new
			break
		}
	}
	return nil
}

// Numeric returns the column coerced to float64. Missing column, nil cells,
// blanks, and unparseable strings all coerce to 0.
func (f *Frame) Numeric(name string) []float64 {
	out := make([]float64, f.n)
	col, ok := f.cols[name]
	if !ok {
		return out
	}
	for i, v := range col {
		out[i] = ToFloat(v)
	}
	return out
}

// Strings returns the column rendered as strings. Missing column yields
// empty strings; nil cells render as "".
func (f *Frame) Strings(name string) []string {
	out := make([]string, f.n)
	col, ok := f.cols[name]
	if !ok {
		return out
	}
	for i, v := range col {
		out[i] = ToString(v)
	}
	return out
}

// Filter returns a new frame holding only rows where mask is true.
// The mask length must match the row count.
func (f *Frame) Filter(mask []bool) (*Frame, error) {
	if len(mask) != f.n {
		return nil, eris.Errorf("table: mask has %d entries, frame has %d rows", len(mask), f.n)
	}
	kept := 0
	for _, m := range mask {
		if m {
			kept++
		}
	}
	out := New(kept)
	out.order = make([]string, len(f.order))
	copy(out.order, f.order)
	for name, col := range f.cols {
		sub := make([]any, 0, kept)
		for i, m := range mask {
			if m {
				sub = append(sub, col[i])
			}
		}
		out.cols[name] = sub
	}
	return out, nil
}

// Records exports the frame as a header row plus positional string records,
// suitable for CSV encoding. Column order is insertion order.
func (f *Frame) Records() ([]string, [][]string) {
	header := f.Columns()
	rows := make([][]string, f.n)
	for i := range rows {
		row := make([]string, len(header))
		for j, name := range header {
			row[j] = ToString(f.cols[name][i])
		}
		rows[i] = row
	}
	return header, rows
}

// SortedColumns returns column names sorted alphabetically. Used where a
// deterministic order matters more than insertion order.
func (f *Frame) SortedColumns() []string {
	out := f.Columns()
	sort.Strings(out)
	return out
}

// ToFloat coerces a cell to float64. Non-numeric values become 0.
func ToFloat(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0
		}
		return parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		// Tolerate currency formatting in raw rolls.
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimPrefix(s, "$")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// ToString renders a cell as a string. Floats that carry integral values
// render without a decimal point.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

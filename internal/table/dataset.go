package table

import (
	"refundmerge/internal/util"
)

// Dataset is a loaded sheet: ordered headers and row-aligned columns. Header
// lookups go through a case- and whitespace-insensitive index.
type Dataset struct {
	headers []string
	columns []Column
	rows    int
	index   map[string]int
}

// New builds a dataset. Columns shorter than the longest one are padded with NaN.
func New(headers []string, columns []Column) *Dataset {
	rows := 0
	for _, col := range columns {
		if len(col) > rows {
			rows = len(col)
		}
	}

	d := &Dataset{
		headers: append([]string(nil), headers...),
		columns: make([]Column, len(headers)),
		rows:    rows,
	}
	for i := range headers {
		var col Column
		if i < len(columns) {
			col = columns[i]
		}
		for len(col) < rows {
			col = append(col, NaN())
		}
		d.columns[i] = col
	}
	d.reindex()
	return d
}

func (d *Dataset) reindex() {
	d.index = make(map[string]int, len(d.headers))
	for i, h := range d.headers {
		key := util.HeaderKey(h)
		if _, ok := d.index[key]; !ok {
			d.index[key] = i
		}
	}
}

func (d *Dataset) Headers() []string {
	return append([]string(nil), d.headers...)
}

func (d *Dataset) RowCount() int { return d.rows }

func (d *Dataset) position(name string) (int, bool) {
	i, ok := d.index[util.HeaderKey(name)]
	return i, ok
}

// Lookup returns the first column whose header matches name ignoring case and
// surrounding whitespace.
func (d *Dataset) Lookup(name string) (Column, bool) {
	i, ok := d.position(name)
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Find is Lookup that never fails: a miss yields an all-Null column of RowCount length.
func (d *Dataset) Find(name string) Column {
	if col, ok := d.Lookup(name); ok {
		return col
	}
	return NullColumn(d.rows)
}

// FindContaining returns the first column, in header order, whose lower-cased
// header contains sub. A miss yields an all-Null column.
func (d *Dataset) FindContaining(sub string) Column {
	for i, h := range d.headers {
		if util.HeaderContains(h, sub) {
			return d.columns[i]
		}
	}
	return NullColumn(d.rows)
}

// Rename renames the first header matching oldName. Missing headers are a
// silent no-op; the return value only reports whether anything changed.
func (d *Dataset) Rename(oldName, newName string) bool {
	i, ok := d.position(oldName)
	if !ok {
		return false
	}
	d.headers[i] = newName
	d.reindex()
	return true
}

// Clone copies the header list so renames on the clone leave d untouched.
// Column data is shared and must be treated as read-only.
func (d *Dataset) Clone() *Dataset {
	c := &Dataset{
		headers: append([]string(nil), d.headers...),
		columns: append([]Column(nil), d.columns...),
		rows:    d.rows,
	}
	c.reindex()
	return c
}

// Row returns the values of row i in header order.
func (d *Dataset) Row(i int) []Value {
	out := make([]Value, len(d.columns))
	for j, col := range d.columns {
		out[j] = col[i]
	}
	return out
}

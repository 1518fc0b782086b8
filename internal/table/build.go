package table

import (
	"strconv"
	"strings"

	"refundmerge/internal/util"
)

type CellType uint8

const (
	CellEmpty CellType = iota
	CellText
	CellNumber
	CellBool
)

// Cell is a raw cell as a loader saw it, before column typing.
type Cell struct {
	Text string
	Type CellType
}

func TextCell(s string) Cell {
	if s == "" {
		return Cell{Type: CellEmpty}
	}
	return Cell{Text: s, Type: CellText}
}

func (c Cell) blank() bool {
	return c.Type == CellEmpty || (c.Type == CellText && strings.TrimSpace(c.Text) == "")
}

// missing reports whether the cell reads as NA, following the default NA token list.
func (c Cell) missing() bool {
	if c.Type == CellEmpty {
		return true
	}
	return c.Type == CellText && util.IsNAToken(c.Text)
}

// FromCells turns a grid of raw cells into a typed dataset. Fully blank rows
// are skipped, the first remaining row is the header, and each column is typed
// as a whole: all-integer columns without gaps become Int, numeric columns
// with gaps or fractions become Float, anything else keeps per-cell values.
func FromCells(grid [][]Cell) *Dataset {
	rows := make([][]Cell, 0, len(grid))
	for _, row := range grid {
		if !blankRow(row) {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return New(nil, nil)
	}

	width := 0
	for _, row := range rows {
		if n := trimmedLen(row); n > width {
			width = n
		}
	}

	headers := headerNames(rows[0], width)
	body := rows[1:]
	columns := make([]Column, width)
	for j := 0; j < width; j++ {
		cells := make([]Cell, len(body))
		for i, row := range body {
			if j < len(row) {
				cells[i] = row[j]
			}
		}
		columns[j] = typeColumn(cells)
	}
	return New(headers, columns)
}

func blankRow(row []Cell) bool {
	for _, c := range row {
		if !c.blank() {
			return false
		}
	}
	return true
}

func trimmedLen(row []Cell) int {
	n := len(row)
	for n > 0 && row[n-1].blank() {
		n--
	}
	return n
}

// headerNames renders header cells as text, names empty headers
// "Unnamed: <i>" and mangles duplicates as "SKU", "SKU.1", "SKU.2".
func headerNames(row []Cell, width int) []string {
	out := make([]string, width)
	seen := make(map[string]int, width)
	for j := 0; j < width; j++ {
		name := ""
		if j < len(row) {
			name = headerText(row[j])
		}
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(j)
		}
		base := name
		for {
			n, dup := seen[name]
			if !dup {
				break
			}
			seen[name] = n + 1
			name = base + "." + strconv.Itoa(n+1)
		}
		seen[name] = 0
		out[j] = name
	}
	return out
}

func headerText(c Cell) string {
	if c.Type == CellNumber {
		return numberValue(c).String()
	}
	return c.Text
}

func typeColumn(cells []Cell) Column {
	var (
		missing  int
		numeric  = true
		integral = true
		boolean  = true
	)
	for _, c := range cells {
		if c.missing() {
			missing++
			continue
		}
		switch c.Type {
		case CellNumber:
			boolean = false
			if v := numberValue(c); v.Kind != KindInt {
				integral = false
			}
		case CellBool:
			numeric, integral = false, false
		default:
			boolean = boolean && isBoolText(c.Text)
			if _, ok := util.ParseInt(c.Text); ok {
				continue
			}
			integral = false
			if _, ok := util.ParseNumber(c.Text); !ok {
				numeric = false
			}
		}
	}

	col := make(Column, len(cells))
	if missing == len(cells) {
		for i := range col {
			col[i] = NaN()
		}
		return col
	}

	switch {
	case numeric && integral && missing == 0:
		for i, c := range cells {
			col[i] = intValue(c)
		}
	case numeric:
		for i, c := range cells {
			if c.missing() {
				col[i] = NaN()
				continue
			}
			col[i] = Float(floatValue(c))
		}
	case boolean && missing == 0:
		for i, c := range cells {
			col[i] = Boolean(parseBool(c))
		}
	default:
		for i, c := range cells {
			col[i] = objectValue(c)
		}
	}
	return col
}

// objectValue keeps a cell's own type inside a mixed column: text stays text
// even when it looks numeric, while typed numbers and booleans stay typed.
func objectValue(c Cell) Value {
	if c.missing() {
		return NaN()
	}
	switch c.Type {
	case CellNumber:
		return numberValue(c)
	case CellBool:
		return Boolean(parseBool(c))
	default:
		return Text(c.Text)
	}
}

// numberValue reads a typed numeric cell; integral values come back as Int.
func numberValue(c Cell) Value {
	if i, ok := util.ParseInt(c.Text); ok {
		return Int(i)
	}
	f, ok := util.ParseNumber(c.Text)
	if !ok {
		return Text(c.Text)
	}
	if util.IsIntegral(f) {
		return Int(int64(f))
	}
	return Float(f)
}

func intValue(c Cell) Value {
	if i, ok := util.ParseInt(c.Text); ok {
		return Int(i)
	}
	return numberValue(c)
}

func floatValue(c Cell) float64 {
	v := numberValue(c)
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	if v.Kind == KindFloat {
		return v.Float
	}
	f, _ := util.ParseNumber(c.Text)
	return f
}

func isBoolText(s string) bool {
	switch strings.TrimSpace(s) {
	case "True", "TRUE", "true", "False", "FALSE", "false":
		return true
	}
	return false
}

func parseBool(c Cell) bool {
	switch strings.ToLower(strings.TrimSpace(c.Text)) {
	case "true", "1":
		return true
	}
	return false
}

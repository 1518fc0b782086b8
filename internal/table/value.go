package table

import (
	"strconv"

	"refundmerge/internal/util"
)

type Kind uint8

const (
	// KindNull is an absent column (Python None).
	KindNull Kind = iota
	// KindNaN is an empty or NA cell.
	KindNaN
	KindString
	KindInt
	KindFloat
	KindBool
)

// Value is one cell of a loaded dataset.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

func Null() Value { return Value{Kind: KindNull} }
func NaN() Value { return Value{Kind: KindNaN} }
func Text(s string) Value { return Value{Kind: KindString, Str: s} }
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func Boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// IsMissing matches pandas isna: both absent columns and empty cells.
func (v Value) IsMissing() bool {
	return v.Kind == KindNull || v.Kind == KindNaN
}

// String renders the value the way Python's str() does, so downstream string
// concatenation matches the legacy exports byte for byte.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "None"
	case KindNaN:
		return "nan"
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return util.PyFloat(v.Float)
	case KindBool:
		if v.Bool {
			return "True"
		}
		return "False"
	default:
		return ""
	}
}

// Column is one column of values, row-aligned with its dataset.
type Column []Value

// NullColumn is what the resolver hands back for a header that does not exist.
func NullColumn(n int) Column {
	col := make(Column, n)
	for i := range col {
		col[i] = Null()
	}
	return col
}

func (c Column) Strings() []string {
	out := make([]string, len(c))
	for i, v := range c {
		out[i] = v.String()
	}
	return out
}

package pipeline

import (
	"strings"

	"refundmerge/internal/table"
)

var orderIDCleaner = strings.NewReplacer(",", "")

// NormalizeOrderID cleans one stringified order id: thousands separators,
// every literal ".0" and all spaces are removed, then the result is trimmed.
// The ".0" removal is substring based, so "12.0.0" becomes "12" and "1.00"
// becomes "10".
func NormalizeOrderID(raw string) string {
	s := orderIDCleaner.Replace(raw)
	s = strings.ReplaceAll(s, ".0", "")
	s = strings.ReplaceAll(s, " ", "")
	return strings.TrimSpace(s)
}

// NormalizeOrderIDs applies NormalizeOrderID to the textual form of each
// value. Missing cells come out as "nan" and absent columns as "None".
func NormalizeOrderIDs(values table.Column) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = NormalizeOrderID(v.String())
	}
	return out
}

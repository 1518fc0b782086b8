package pipeline

import (
	"testing"

	"refundmerge/internal/table"
)

func TestNormalizeOrderIDs(t *testing.T) {
	in := table.Column{
		table.Text("123,456.0"),
		table.Float(123456),
		table.Int(7),
		table.Text(" 112-3456789 -1234567 "),
		table.Text("12.0.0"),
		table.Text("1.00"),
		table.NaN(),
		table.Null(),
	}
	want := []string{"123456", "123456", "7", "112-3456789-1234567", "12", "10", "nan", "None"}

	got := NormalizeOrderIDs(in)
	if len(got) != len(want) {
		t.Fatalf("len=%d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("[%d] got %q want %q", i, got[i], want[i])
		}
	}
}

func TestNormalizeOrderIDIdempotent(t *testing.T) {
	for _, raw := range []string{"123,456.0", "A 1.0 B", "1.00.0", "PO-778", "nan"} {
		once := NormalizeOrderID(raw)
		if twice := NormalizeOrderID(once); twice != once {
			t.Fatalf("%q: %q then %q", raw, once, twice)
		}
	}
}

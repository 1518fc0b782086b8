package pipeline

import (
	"errors"
	"testing"
)

func TestRunAmazonBuyerReturnEndToEnd(t *testing.T) {
	blob := mkXLSX([][]any{
		{"order-id", "平台sku", "reason"},
		{"123,456.0", "SKU-1", "unwanted_item"},
	})
	out, err := NewRunner(nil, nil).Run([]InputFile{{Name: "Amazon买家退货0301.xlsx", Content: blob}})
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 1 {
		t.Fatalf("len=%d", out.Len())
	}
	rec := out.Records[0]
	if rec.OrderID != "123456" || deref(rec.Reason) != "不想要的商品" || rec.Platform != "Amazon" ||
		rec.PlatformRefundReason != "Amazon不想要的商品" || rec.SourceFile != "amazon买家退货0301.xlsx" {
		t.Fatalf("record=%+v", rec)
	}
}

func TestRunMergesInUploadOrder(t *testing.T) {
	walmart := mkXLSX([][]any{
		{"CUSTOMER_ORDER_NO", "RETURN_REASON"},
		{"W1", "Changed mind"},
		{"W2", "Damaged"},
	})
	vc := mkWorkbook(
		sheetRows{name: "Payments下退款", rows: [][]any{{"Distributor Shipment Id", "Reason"}, {"P1", "Late"}}},
		sheetRows{name: "Orders下退款", rows: [][]any{{"Order ID", "SKU", "Return Reason"}, {"O1", "S1", "Broken"}}},
	)
	files := []InputFile{
		{Name: "walmart后台退款表.xlsx", Content: walmart},
		{Name: "readme.txt", Content: []byte("not a table at all")},
		{Name: "vc退款核查.xlsx", Content: vc},
	}

	out, err := NewRunner(nil, nil).Run(files)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, rec := range out.Records {
		ids = append(ids, rec.OrderID)
	}
	want := []string{"W1", "W2", "O1", "P1"}
	if len(ids) != len(want) {
		t.Fatalf("ids=%v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids=%v want %v", ids, want)
		}
	}

	if len(out.Files) != 3 || out.Files[1].Matched || out.Files[2].Records != 2 {
		t.Fatalf("files=%+v", out.Files)
	}
	counts := out.Counts()
	if counts["Walmart"] != 2 || counts["VC"] != 2 {
		t.Fatalf("counts=%v", counts)
	}
}

func TestRunUnreadableAbortsBatch(t *testing.T) {
	good := mkXLSX([][]any{{"Order ID", "Return Reason"}, {"1", "x"}})
	files := []InputFile{
		{Name: "tiktok后台退款表.xlsx", Content: good},
		{Name: "overstock后台退货单.xlsx", Content: []byte("garbage")},
	}
	out, err := NewRunner(nil, nil).Run(files)
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("no partial result expected, got %d records", out.Len())
	}
}

func TestRunNothingMatched(t *testing.T) {
	out, err := NewRunner(nil, nil).Run([]InputFile{{Name: "库存.xlsx", Content: []byte("x")}})
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("len=%d", out.Len())
	}
}

func TestDetect(t *testing.T) {
	reg := DefaultSources()
	got := Detect(reg, []string{"temu后台退款表.xlsx", "logo.png"})
	if !got[0].Matched || got[0].Source != "temu_refund" || got[1].Matched {
		t.Fatalf("detections=%+v", got)
	}
	if HasRefundExports(reg, []string{"logo.png"}) {
		t.Fatal("no refund exports expected")
	}
}

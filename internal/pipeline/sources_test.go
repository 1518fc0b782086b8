package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"refundmerge/internal"
	"refundmerge/internal/table"
)

func workbookOf(name string, headers []string, rows ...[]table.Value) *table.Workbook {
	cols := make([]table.Column, len(headers))
	for _, row := range rows {
		for j := range headers {
			v := table.NaN()
			if j < len(row) {
				v = row[j]
			}
			cols[j] = append(cols[j], v)
		}
	}
	return table.NewWorkbook(table.Sheet{Name: name, Data: table.New(headers, cols)})
}

func sourceByName(t *testing.T, name string) Source {
	t.Helper()
	for _, src := range DefaultSources().Sources() {
		if src.Name == name {
			return src
		}
	}
	t.Fatalf("source %s not found", name)
	return Source{}
}

func deref(v *string) string {
	if v == nil {
		return "<nil>"
	}
	return *v
}

func TestDefaultSourcesPriority(t *testing.T) {
	want := []string{
		"amazon买家退货", "amazont退货报告", "平台amazon后台换货表", "overstock后台退货单",
		"temu后台退款表", "tiktok后台退款表", "vc退款核查", "walmart后台退款表", "wayfair后台退款表",
	}
	got := DefaultSources().Sources()
	if len(got) != len(want) {
		t.Fatalf("len=%d", len(got))
	}
	for i, src := range got {
		if src.Match != want[i] {
			t.Fatalf("[%d] match=%q want %q", i, src.Match, want[i])
		}
	}
}

func TestRegistryMatch(t *testing.T) {
	reg := DefaultSources()
	cases := []struct{ file, want string }{
		{"Amazon买家退货_2026-03.xlsx", "amazon_buyer_return"},
		{"AMAZONT退货报告.xlsx", "amazon_return_report"},
		{"平台Amazon后台换货表.xls", "amazon_replacement"},
		{"TEMU后台退款表(3月).csv", "temu_refund"},
		{"VC退款核查.xlsx", "vc_refund_check"},
		{"Wayfair后台退款表.xlsx", "wayfair_refund"},
		{"amazon买家退货 and walmart后台退款表.xlsx", "amazon_buyer_return"},
	}
	for _, tc := range cases {
		src, ok := reg.Match(tc.file)
		if !ok || src.Name != tc.want {
			t.Fatalf("%s => %s %v, want %s", tc.file, src.Name, ok, tc.want)
		}
	}
	if _, ok := reg.Match("库存表.xlsx"); ok {
		t.Fatal("unknown file should not match")
	}
}

func TestLoadSourcesValidation(t *testing.T) {
	cases := []struct{ name, doc string }{
		{"empty", `sources: []`},
		{"no match", "sources:\n  - name: a\n    platform: X\n    sheets:\n      - order_id: {column: id}\n        reason: {column: r}\n"},
		{"both lookups", "sources:\n  - name: a\n    match: a\n    platform: X\n    sheets:\n      - order_id: {column: id, contains: po}\n        reason: {column: r}\n"},
		{"unknown table", "sources:\n  - name: a\n    match: a\n    platform: X\n    sheets:\n      - order_id: {column: id}\n        reason: {column: r, table: nope}\n"},
		{"bad split", "sources:\n  - name: a\n    match: a\n    platform: X\n    sheets:\n      - order_id: {column: id}\n        sku: {column: s, split: {sep: _, index: 2, min_parts: 2}}\n        reason: {column: r}\n"},
		{"duplicate", "sources:\n" +
			"  - {name: a, match: a, platform: X, sheets: [{order_id: {column: id}, reason: {column: r}}]}\n" +
			"  - {name: a, match: b, platform: X, sheets: [{order_id: {column: id}, reason: {column: r}}]}\n"},
	}
	for _, tc := range cases {
		if _, err := LoadSources([]byte(tc.doc)); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}

	reg, err := LoadSources([]byte("sources:\n  - {name: shein, match: SHEIN退款, platform: Shein, sheets: [{order_id: {column: id}, reason: {column: r}}]}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.Match("shein退款-03.xlsx"); !ok {
		t.Fatal("match patterns are case-insensitive")
	}
}

func TestAmazonBuyerReturnExtract(t *testing.T) {
	wb := workbookOf("Sheet1", []string{"Order-ID", "平台SKU", "Reason"},
		[]table.Value{table.Text("123,456.0"), table.Text("SKU-1"), table.Text("unwanted_item")},
		[]table.Value{table.Text("222"), table.Text("SKU-2"), table.Text("brand_new_code")},
	)
	recs := sourceByName(t, "amazon_buyer_return").Extract("Amazon买家退货.xlsx", wb)
	if len(recs) != 2 {
		t.Fatalf("len=%d", len(recs))
	}
	got := recs[0]
	if got.OrderID != "123456" || deref(got.Reason) != "不想要的商品" || got.Platform != "Amazon" ||
		got.PlatformRefundReason != "Amazon不想要的商品" || deref(got.PlatformSKU) != "SKU-1" ||
		got.SourceFile != "amazon买家退货.xlsx" {
		t.Fatalf("record=%+v", got)
	}
	if recs[1].Reason != nil || recs[1].PlatformRefundReason != "Amazonnan" {
		t.Fatalf("unmapped reason=%+v", recs[1])
	}
}

func TestAmazonReplacementUsesExchangeTable(t *testing.T) {
	wb := workbookOf("Sheet1", []string{"original-amazon-order-id", "SKU", "replacement-reason-code"},
		[]table.Value{table.Text("111-222"), table.Text("S1"), table.Int(3)},
		[]table.Value{table.Text("111-333"), table.Text("S2"), table.Int(13)},
	)
	recs := sourceByName(t, "amazon_replacement").Extract("平台amazon后台换货表.xlsx", wb)
	if deref(recs[0].Reason) != "配送过程中残损" || deref(recs[0].PlatformSKU) != "S1" {
		t.Fatalf("rec0=%+v", recs[0])
	}
	if recs[1].Reason != nil {
		t.Fatalf("code 13 should miss: %+v", recs[1])
	}
}

func TestTemuSKUSplit(t *testing.T) {
	wb := workbookOf("Sheet1", []string{"订单编号", "商品SKU ID", "售后原因"},
		[]table.Value{table.Text("PO-1"), table.Text("ABC_SKU123_XYZ"), table.Text("质量问题")},
		[]table.Value{table.Text("PO-2"), table.Text("ABC_XYZ"), table.Text("不想要了")},
		[]table.Value{table.Text("PO-3"), table.NaN(), table.NaN()},
	)
	recs := sourceByName(t, "temu_refund").Extract("temu后台退款表.xlsx", wb)
	if deref(recs[0].PlatformSKU) != "SKU123" {
		t.Fatalf("sku0=%s", deref(recs[0].PlatformSKU))
	}
	if recs[1].PlatformSKU != nil || recs[2].PlatformSKU != nil {
		t.Fatalf("short or missing SKUs should be nil: %+v %+v", recs[1], recs[2])
	}
	if recs[0].PlatformRefundReason != "temu质量问题" || recs[2].PlatformRefundReason != "temunan" {
		t.Fatalf("labels: %q %q", recs[0].PlatformRefundReason, recs[2].PlatformRefundReason)
	}
}

func TestWayfairUsesWalmartLabelAndPOColumn(t *testing.T) {
	wb := workbookOf("Sheet1", []string{"Item", "PO Number", "SKU", "原因"},
		[]table.Value{table.Text("chair"), table.Text("CS 123456789"), table.Text("W001"), table.Text("Damaged")},
	)
	recs := sourceByName(t, "wayfair_refund").Extract("wayfair后台退款表.xlsx", wb)
	rec := recs[0]
	if rec.Platform != "Walmart" || rec.PlatformRefundReason != "WalmartDamaged" || rec.OrderID != "CS123456789" {
		t.Fatalf("record=%+v", rec)
	}
	if deref(rec.PlatformSKU) != "W001" {
		t.Fatalf("sku=%s", deref(rec.PlatformSKU))
	}
}

func TestWalmartHasNoSKU(t *testing.T) {
	wb := workbookOf("Sheet1", []string{"CUSTOMER_ORDER_NO", "RETURN_REASON", "SKU"},
		[]table.Value{table.Int(200012345678), table.Text("Changed mind"), table.Text("X")},
	)
	recs := sourceByName(t, "walmart_refund").Extract("walmart后台退款表.xlsx", wb)
	if recs[0].PlatformSKU != nil || recs[0].OrderID != "200012345678" {
		t.Fatalf("record=%+v", recs[0])
	}
}

func TestVCPaymentsOnly(t *testing.T) {
	wb := workbookOf("Payments下退款", []string{"Distributor Shipment Id", "Reason", "SKU"},
		[]table.Value{table.Text("DS-1"), table.Text("Damaged"), table.Text("X")},
		[]table.Value{table.Text("DS-2"), table.Text("Late"), table.Text("Y")},
	)
	recs := sourceByName(t, "vc_refund_check").Extract("VC退款核查.xlsx", wb)
	if len(recs) != 2 {
		t.Fatalf("len=%d", len(recs))
	}
	for _, rec := range recs {
		if rec.PlatformSKU != nil {
			t.Fatalf("payments rows carry no sku: %+v", rec)
		}
		if !strings.HasSuffix(rec.SourceFile, "_payments") {
			t.Fatalf("source_file=%s", rec.SourceFile)
		}
	}
	if recs[0].OrderID != "DS-1" || recs[0].PlatformRefundReason != "VCDamaged" {
		t.Fatalf("rec0=%+v", recs[0])
	}
}

func TestVCOrdersBeforePayments(t *testing.T) {
	wb := table.NewWorkbook(
		table.Sheet{Name: "Payments下退款", Data: table.New([]string{"Distributor Shipment Id", "Reason"}, []table.Column{{table.Text("P1")}, {table.Text("r")}})},
		table.Sheet{Name: "Orders下退款", Data: table.New([]string{"Order ID", "SKU", "Return Reason"}, []table.Column{{table.Text("O1")}, {table.Text("S")}, {table.Text("r")}})},
	)
	recs := sourceByName(t, "vc_refund_check").Extract("vc退款核查.xlsx", wb)
	if len(recs) != 2 || recs[0].OrderID != "O1" || recs[1].OrderID != "P1" {
		t.Fatalf("records=%+v", recs)
	}
	if recs[0].SourceFile != "vc退款核查.xlsx_orders" || deref(recs[0].PlatformSKU) != "S" {
		t.Fatalf("orders record=%+v", recs[0])
	}
}

func TestVCWithoutKnownSheets(t *testing.T) {
	wb := workbookOf("Sheet1", []string{"Order ID"}, []table.Value{table.Text("1")})
	if recs := sourceByName(t, "vc_refund_check").Extract("vc退款核查.xlsx", wb); len(recs) != 0 {
		t.Fatalf("records=%+v", recs)
	}
}

func TestMissingColumnsDegradeToNull(t *testing.T) {
	wb := workbookOf("Sheet1", []string{"something else"}, []table.Value{table.Text("x")}, []table.Value{table.Text("y")})
	recs := sourceByName(t, "overstock_return").Extract("overstock后台退货单.xlsx", wb)
	if len(recs) != 2 {
		t.Fatalf("len=%d", len(recs))
	}
	want := internal.RefundRecord{
		OrderID:              "None",
		Platform:             "Overstock",
		PlatformRefundReason: "OverstockNone",
		SourceFile:           "overstock后台退货单.xlsx",
	}
	if got := recs[0]; got.OrderID != want.OrderID || got.PlatformRefundReason != want.PlatformRefundReason ||
		got.Reason != nil || got.PlatformSKU != nil || got.SourceFile != want.SourceFile {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestRawReasonKeepsTextualForm(t *testing.T) {
	wb := workbookOf("Sheet1", []string{"Order Number", "Partner SKU", "Return Reason Description"},
		[]table.Value{table.Int(5), table.Int(42), table.Float(1.5)},
		[]table.Value{table.Int(6), table.Int(43), table.NaN()},
	)
	recs := sourceByName(t, "overstock_return").Extract("overstock后台退货单.xlsx", wb)
	if deref(recs[0].Reason) != "1.5" || deref(recs[0].PlatformSKU) != "42" {
		t.Fatalf("rec0=%+v", recs[0])
	}
	if recs[1].Reason != nil || recs[1].PlatformRefundReason != "Overstocknan" {
		t.Fatalf("rec1=%+v", recs[1])
	}
}

func TestOpenSourcesOverrideFile(t *testing.T) {
	reg, err := OpenSources("  ")
	if err != nil || len(reg.Sources()) != 9 {
		t.Fatalf("default: %v", err)
	}

	path := filepath.Join(t.TempDir(), "sources.yaml")
	rules := `sources:
  - name: shein_refund
    match: SHEIN退款
    platform: Shein
    sheets:
      - order_id: {column: 订单号}
        sku: {column: SKU}
        reason: {column: 退款原因}
`
	if err := os.WriteFile(path, []byte(rules), 0o644); err != nil {
		t.Fatal(err)
	}
	reg, err = OpenSources(path)
	if err != nil {
		t.Fatal(err)
	}
	src, ok := reg.Match("shein退款_0301.xlsx")
	if !ok || src.Platform != "Shein" {
		t.Fatalf("src=%+v ok=%v", src, ok)
	}

	if _, err := OpenSources(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

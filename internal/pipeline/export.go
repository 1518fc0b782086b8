package pipeline

import (
	"io"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/xuri/excelize/v2"

	"refundmerge/internal"
	"refundmerge/internal/util"
)

const (
	OutputFilename  = "refund_merged_cleaned_v3.xlsx"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Columns is the fixed header of the merged report.
var Columns = []string{"order_id", "平台sku", "reason", "platform", "platform_refund_reason", "source_file"}

// RecordRow renders a record in Columns order. Empty SKU and reason cells
// come back as nil.
func RecordRow(rec internal.RefundRecord) []any {
	return []any{
		rec.OrderID,
		optional(rec.PlatformSKU),
		optional(rec.Reason),
		rec.Platform,
		rec.PlatformRefundReason,
		rec.SourceFile,
	}
}

func optional(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// WriteXLSX writes the merged report as a single-sheet workbook. Nil cells
// are left blank.
func WriteXLSX(w io.Writer, records []internal.RefundRecord) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for i, rec := range records {
		for c, value := range RecordRow(rec) {
			if value == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, i+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func ExportRecordsToXLSX(records []internal.RefundRecord, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := WriteXLSX(out, records); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Preview returns at most n leading records.
func Preview(records []internal.RefundRecord, n int) []internal.RefundRecord {
	if n < 0 {
		n = 0
	}
	if len(records) < n {
		n = len(records)
	}
	return records[:n]
}

// RenderPreview prints the first n records as a text table.
func RenderPreview(w io.Writer, records []internal.RefundRecord, n int) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(Columns)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	for _, rec := range Preview(records, n) {
		tw.Append([]string{
			rec.OrderID,
			displayOptional(rec.PlatformSKU),
			displayOptional(rec.Reason),
			rec.Platform,
			rec.PlatformRefundReason,
			rec.SourceFile,
		})
	}
	tw.Render()
}

func displayOptional(v *string) string {
	if v == nil {
		return "None"
	}
	return util.DerefString(v)
}

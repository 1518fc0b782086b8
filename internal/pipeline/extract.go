package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"refundmerge/internal/table"
	"refundmerge/internal/util"
)

// ErrUnreadable marks a matched file that could not be parsed as a table.
var ErrUnreadable = errors.New("unreadable file")

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// LoadWorkbook parses an uploaded export. Marketplace backends hand out
// OOXML workbooks, legacy BIFF .xls files, HTML tables saved as .xls and
// plain CSV, so the format is sniffed from content before the extension.
func LoadWorkbook(name string, content []byte) (*table.Workbook, error) {
	var (
		wb  *table.Workbook
		err error
	)
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case bytes.HasPrefix(content, zipMagic):
		wb, err = parseXLSX(content)
	case bytes.HasPrefix(content, oleMagic):
		wb, err = parseXLS(content)
	case ext == ".csv":
		wb, err = parseCSV(content)
	case looksLikeHTMLTable(content):
		wb, err = parseHTMLTables(content)
	default:
		err = fmt.Errorf("unrecognized content")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, name, err)
	}
	if wb.Len() == 0 {
		return nil, fmt.Errorf("%w: %s: no sheets", ErrUnreadable, name)
	}
	return wb, nil
}

func parseXLSX(content []byte) (*table.Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wb := table.NewWorkbook()
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		grid := make([][]table.Cell, len(rows))
		for r, row := range rows {
			cells := make([]table.Cell, len(row))
			for c, raw := range row {
				if raw == "" {
					continue
				}
				ref, _ := excelize.CoordinatesToCellName(c+1, r+1)
				typ, err := f.GetCellType(sheet, ref)
				if err != nil {
					typ = excelize.CellTypeUnset
				}
				cells[c] = xlsxCell(raw, typ)
			}
			grid[r] = cells
		}
		wb.Add(sheet, table.FromCells(grid))
	}
	return wb, nil
}

func xlsxCell(raw string, typ excelize.CellType) table.Cell {
	switch typ {
	case excelize.CellTypeBool:
		return table.Cell{Text: raw, Type: table.CellBool}
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError, excelize.CellTypeDate:
		return table.TextCell(raw)
	}
	if _, ok := util.ParseNumber(raw); ok {
		return table.Cell{Text: raw, Type: table.CellNumber}
	}
	return table.TextCell(raw)
}

// parseXLS reads legacy BIFF workbooks. The reader only opens files from disk.
func parseXLS(content []byte) (*table.Workbook, error) {
	tmp, err := os.CreateTemp("", "refund-*.xls")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	book, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, err
	}

	wb := table.NewWorkbook()
	for i := 0; i < book.GetNumberSheets(); i++ {
		sheet, err := book.GetSheet(i)
		if err != nil || sheet == nil {
			return nil, fmt.Errorf("sheet %d: %v", i, err)
		}
		grid := [][]table.Cell{}
		for _, row := range sheet.GetRows() {
			cols := row.GetCols()
			cells := make([]table.Cell, len(cols))
			for c, col := range cols {
				cells[c] = table.TextCell(col.GetString())
			}
			grid = append(grid, cells)
		}
		name := sheet.GetName()
		if name == "" {
			name = "Sheet" + strconv.Itoa(i+1)
		}
		wb.Add(name, table.FromCells(grid))
	}
	return wb, nil
}

func parseCSV(content []byte) (*table.Workbook, error) {
	r := csv.NewReader(decodeText(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	grid := [][]table.Cell{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		cells := make([]table.Cell, len(record))
		for i, field := range record {
			cells[i] = table.TextCell(field)
		}
		grid = append(grid, cells)
	}
	return table.NewWorkbook(table.Sheet{Name: "Sheet1", Data: table.FromCells(grid)}), nil
}

func looksLikeHTMLTable(content []byte) bool {
	head := content
	if len(head) > 4096 {
		head = head[:4096]
	}
	head = bytes.TrimLeft(bytes.TrimPrefix(head, []byte("\xEF\xBB\xBF")), " \t\r\n")
	return bytes.HasPrefix(head, []byte("<")) && bytes.Contains(bytes.ToLower(content), []byte("<table"))
}

// parseHTMLTables turns every <table> into its own sheet. Several backends
// export "xls" files that are really HTML.
func parseHTMLTables(content []byte) (*table.Workbook, error) {
	doc, err := goquery.NewDocumentFromReader(decodeText(content))
	if err != nil {
		return nil, err
	}

	wb := table.NewWorkbook()
	doc.Find("table").Each(func(i int, tbl *goquery.Selection) {
		grid := [][]table.Cell{}
		tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := []table.Cell{}
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, table.TextCell(util.NormalizeSpaces(cell.Text())))
			})
			grid = append(grid, cells)
		})
		wb.Add("Sheet"+strconv.Itoa(i+1), table.FromCells(grid))
	})
	return wb, nil
}

// decodeText strips a UTF BOM and falls back to GB18030 for content that is
// not valid UTF-8, which is what Chinese-locale Excel writes for CSV.
func decodeText(content []byte) io.Reader {
	var fallback encoding.Encoding = unicode.UTF8
	if !utf8.Valid(content) {
		fallback = simplifiedchinese.GB18030
	}
	return transform.NewReader(bytes.NewReader(content), unicode.BOMOverride(fallback.NewDecoder()))
}

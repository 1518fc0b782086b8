package table

// Sheet is a named dataset inside a workbook.
type Sheet struct {
	Name string
	Data *Dataset
}

// Workbook keeps sheets in file order.
type Workbook struct {
	sheets []Sheet
}

func NewWorkbook(sheets ...Sheet) *Workbook {
	return &Workbook{sheets: sheets}
}

func (w *Workbook) Add(name string, data *Dataset) {
	w.sheets = append(w.sheets, Sheet{Name: name, Data: data})
}

func (w *Workbook) SheetNames() []string {
	out := make([]string, len(w.sheets))
	for i, s := range w.sheets {
		out[i] = s.Name
	}
	return out
}

// Sheet looks a sheet up by its exact name.
func (w *Workbook) Sheet(name string) (*Dataset, bool) {
	for _, s := range w.sheets {
		if s.Name == name {
			return s.Data, true
		}
	}
	return nil, false
}

// First returns the first sheet, or an empty dataset for a workbook without sheets.
func (w *Workbook) First() *Dataset {
	if len(w.sheets) == 0 {
		return New(nil, nil)
	}
	return w.sheets[0].Data
}

func (w *Workbook) Len() int { return len(w.sheets) }

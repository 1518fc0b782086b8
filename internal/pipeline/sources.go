package pipeline

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"refundmerge/internal"
	"refundmerge/internal/reason"
	"refundmerge/internal/table"
	"refundmerge/internal/util"
)

//go:embed sources.yaml
var defaultSourcesYAML []byte

type RenameRule struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type SplitRule struct {
	Sep      string `yaml:"sep"`
	Index    int    `yaml:"index"`
	MinParts int    `yaml:"min_parts"`
}

// FieldRule says where one output field comes from.
type FieldRule struct {
	Column   string     `yaml:"column"`
	Contains string     `yaml:"contains"`
	Table    string     `yaml:"table"`
	Split    *SplitRule `yaml:"split"`

	lookup *reason.Table
}

type SheetRule struct {
	Sheet   string       `yaml:"sheet"`
	Suffix  string       `yaml:"suffix"`
	Rename  []RenameRule `yaml:"rename"`
	OrderID FieldRule    `yaml:"order_id"`
	SKU     *FieldRule   `yaml:"sku"`
	Reason  FieldRule    `yaml:"reason"`
}

// Source is one known refund export layout.
type Source struct {
	Name     string      `yaml:"name"`
	Match    string      `yaml:"match"`
	Platform string      `yaml:"platform"`
	Sheets   []SheetRule `yaml:"sheets"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// Registry holds sources in dispatch priority order.
type Registry struct {
	sources []Source
}

func LoadSources(data []byte) (*Registry, error) {
	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("parse sources: no sources defined")
	}

	seen := map[string]struct{}{}
	for i := range file.Sources {
		src := &file.Sources[i]
		if err := src.prepare(); err != nil {
			return nil, fmt.Errorf("source %d (%s): %w", i+1, src.Name, err)
		}
		if _, dup := seen[src.Name]; dup {
			return nil, fmt.Errorf("source %d: duplicate name %q", i+1, src.Name)
		}
		seen[src.Name] = struct{}{}
	}
	return &Registry{sources: file.Sources}, nil
}

func LoadSourcesFile(path string) (*Registry, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadSources(blob)
}

// DefaultSources returns the built-in nine sources.
func DefaultSources() *Registry {
	reg, err := LoadSources(defaultSourcesYAML)
	if err != nil {
		panic(err)
	}
	return reg
}

// OpenSources loads an override file when path is set, else the built-in rules.
func OpenSources(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSources(), nil
	}
	return LoadSourcesFile(path)
}

func (s *Source) prepare() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(s.Match) == "" {
		return fmt.Errorf("match is required")
	}
	if s.Platform == "" {
		return fmt.Errorf("platform is required")
	}
	if len(s.Sheets) == 0 {
		return fmt.Errorf("at least one sheet is required")
	}
	s.Match = strings.ToLower(s.Match)

	for i := range s.Sheets {
		sh := &s.Sheets[i]
		if len(s.Sheets) > 1 && sh.Sheet == "" {
			return fmt.Errorf("sheet %d: multi-sheet sources need sheet names", i+1)
		}
		fields := []*FieldRule{&sh.OrderID, &sh.Reason}
		if sh.SKU != nil {
			fields = append(fields, sh.SKU)
		}
		for _, f := range fields {
			if err := f.prepare(); err != nil {
				return fmt.Errorf("sheet %d: %w", i+1, err)
			}
		}
	}
	return nil
}

func (f *FieldRule) prepare() error {
	if (f.Column == "") == (f.Contains == "") {
		return fmt.Errorf("field needs exactly one of column or contains")
	}
	if f.Table != "" {
		tbl, ok := reason.ByName(f.Table)
		if !ok {
			return fmt.Errorf("unknown reason table %q", f.Table)
		}
		f.lookup = tbl
	}
	if f.Split != nil {
		if f.Split.Sep == "" {
			return fmt.Errorf("split needs a separator")
		}
		if f.Split.Index < 0 || f.Split.MinParts <= f.Split.Index {
			return fmt.Errorf("split min_parts must exceed index")
		}
	}
	return nil
}

func (r *Registry) Sources() []Source {
	return append([]Source(nil), r.sources...)
}

// Match returns the first source whose pattern is contained in the
// lower-cased filename.
func (r *Registry) Match(filename string) (Source, bool) {
	name := strings.ToLower(filename)
	for _, src := range r.sources {
		if strings.Contains(name, src.Match) {
			return src, true
		}
	}
	return Source{}, false
}

// Extract turns a loaded workbook into records. Sheets run in rule order and
// a named sheet that is absent is skipped.
func (s Source) Extract(filename string, wb *table.Workbook) []internal.RefundRecord {
	sourceFile := strings.ToLower(filename)
	out := []internal.RefundRecord{}
	for _, rule := range s.Sheets {
		data := wb.First()
		if rule.Sheet != "" {
			sheet, ok := wb.Sheet(rule.Sheet)
			if !ok {
				continue
			}
			data = sheet
		}
		out = append(out, s.extractSheet(rule, data, sourceFile+rule.Suffix)...)
	}
	return out
}

func (s Source) extractSheet(rule SheetRule, data *table.Dataset, sourceFile string) []internal.RefundRecord {
	d := data.Clone()
	for _, rn := range rule.Rename {
		d.Rename(rn.From, rn.To)
	}

	orderIDs := NormalizeOrderIDs(rule.OrderID.resolve(d))
	reasons := rule.Reason.resolve(d)
	var skus table.Column
	if rule.SKU != nil {
		skus = rule.SKU.resolve(d)
	}

	out := make([]internal.RefundRecord, d.RowCount())
	for i := range out {
		reasonText, reasonLabel := rule.Reason.reasonAt(reasons[i])
		rec := internal.RefundRecord{
			OrderID:              orderIDs[i],
			Reason:               reasonText,
			Platform:             s.Platform,
			PlatformRefundReason: s.Platform + reasonLabel,
			SourceFile:           sourceFile,
		}
		if rule.SKU != nil {
			rec.PlatformSKU = rule.SKU.skuAt(skus[i])
		}
		out[i] = rec
	}
	return out
}

func (f FieldRule) resolve(d *table.Dataset) table.Column {
	if f.Contains != "" {
		return d.FindContaining(f.Contains)
	}
	return d.Find(f.Column)
}

// reasonAt returns the reason cell and the text appended to the platform
// label. Missing and untranslated reasons are nil and render as "nan".
func (f FieldRule) reasonAt(v table.Value) (*string, string) {
	if f.lookup != nil {
		caption, ok := f.lookup.Lookup(v.String())
		if !ok {
			return nil, table.NaN().String()
		}
		return util.StringPtr(caption), caption
	}
	if v.IsMissing() {
		return nil, v.String()
	}
	return util.StringPtr(v.String()), v.String()
}

func (f FieldRule) skuAt(v table.Value) *string {
	if v.IsMissing() {
		return nil
	}
	text := v.String()
	if f.Split == nil {
		return util.StringPtr(text)
	}
	parts := strings.Split(text, f.Split.Sep)
	if len(parts) < f.Split.MinParts {
		return nil
	}
	return util.StringPtr(parts[f.Split.Index])
}

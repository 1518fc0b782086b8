package pipeline

// Detection is the routing decision for one file name.
type Detection struct {
	Name    string
	Source  string
	Matched bool
}

// Detect routes each name to its source without reading any content.
func Detect(reg *Registry, names []string) []Detection {
	out := make([]Detection, 0, len(names))
	for _, name := range names {
		d := Detection{Name: name}
		if src, ok := reg.Match(name); ok {
			d.Source = src.Name
			d.Matched = true
		}
		out = append(out, d)
	}
	return out
}

// HasRefundExports reports whether any of the names is a known refund export.
func HasRefundExports(reg *Registry, names []string) bool {
	for _, d := range Detect(reg, names) {
		if d.Matched {
			return true
		}
	}
	return false
}

package util

import (
	"regexp"
	"strings"
)

var (
	reSpaces       = regexp.MustCompile(`\s+`)
	reUnsafeInName = regexp.MustCompile(`[<>:"/\\|?*\s]+`)
)

// HeaderKey is the comparison key for column headers: trimmed and lower-cased.
func HeaderKey(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// HeaderContains reports whether the lower-cased header contains sub.
func HeaderContains(header, sub string) bool {
	return strings.Contains(strings.ToLower(header), strings.ToLower(sub))
}

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// SafeFileName turns a message id or upload name into something usable as a path element.
func SafeFileName(input string) string {
	out := reUnsafeInName.ReplaceAllString(input, "_")
	out = strings.Trim(out, "_.")
	if len(out) > 120 {
		out = out[:120]
	}
	if out == "" {
		return "unnamed"
	}
	return out
}

func StringPtr(v string) *string { return &v }

func DerefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

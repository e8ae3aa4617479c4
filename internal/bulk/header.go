package bulk

// header.go maps file header cells to canonical field keys. Matching is
// resilient to the accents, capitalization and spacing variants different
// spreadsheet editors produce: "NOME", "Nome " and "nome" all resolve to the
// same key, and a file may use either the friendly label or the machine key
// as its header text.

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	headerSeparators = regexp.MustCompile(`[\s\-]+`)
	headerStrip      = regexp.MustCompile(`[^a-z0-9_]`)

	// NFKD decomposition followed by combining-mark removal strips accents.
	deaccent = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// NormalizeHeader case-folds a header cell, strips accents, replaces
// whitespace and hyphens with underscores and drops everything that is not
// alphanumeric or underscore.
func NormalizeHeader(value string) string {
	if value == "" {
		return ""
	}
	raw, _, err := transform.String(deaccent, value)
	if err != nil {
		raw = value
	}
	raw = strings.ToLower(strings.TrimSpace(raw))
	raw = headerSeparators.ReplaceAllString(raw, "_")
	return headerStrip.ReplaceAllString(raw, "")
}

// BuildHeaderMap maps the normalized form of both the declared label and the
// canonical key of every column to that column's key.
func BuildHeaderMap(columns []Column) map[string]string {
	m := make(map[string]string, len(columns)*2)
	for _, col := range columns {
		m[NormalizeHeader(col.Label)] = col.Key
		m[NormalizeHeader(col.Key)] = col.Key
	}
	return m
}

// LabelFor returns the display label for a canonical key, falling back to
// the key itself. Used in error messages.
func (c EntityConfig) LabelFor(key string) string {
	for _, col := range c.Columns {
		if col.Key == key {
			return col.Label
		}
	}
	return key
}

// RequiredKeys returns the canonical keys of the columns declared required.
func (c EntityConfig) RequiredKeys() []string {
	var keys []string
	for _, col := range c.Columns {
		if col.Required {
			keys = append(keys, col.Key)
		}
	}
	return keys
}

// mapHeader resolves every header cell through the header map. Cells that do
// not resolve become "" and their columns are read but ignored.
func mapHeader(header []string, headerMap map[string]string) []string {
	canonical := make([]string, len(header))
	for i, cell := range header {
		canonical[i] = headerMap[NormalizeHeader(cell)]
	}
	return canonical
}

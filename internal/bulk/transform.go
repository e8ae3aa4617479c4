package bulk

// transform.go defines the per-field value transformers. Each entity column
// references one transformer kind from its configuration; the kinds are a
// fixed enum with pure mapping functions, keeping the registry data-driven
// without storing first-class functions.

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Transform identifies one of the supported raw-cell transformer kinds.
type Transform int

const (
	TransformText Transform = iota
	TransformEmail
	TransformPhoneDigits
	TransformBool
	TransformInt
	TransformList
	TransformDate
	TransformDigits
)

// dateLayouts accepted by TransformDate, unambiguous formats first.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"02.01.2006",
	"20060102",
}

// truthy values accepted by TransformBool; anything else parses as false.
var truthy = map[string]bool{
	"yes": true, "y": true, "true": true, "1": true, "sim": true,
}

// String returns the kind name used in configuration dumps and messages.
func (t Transform) String() string {
	switch t {
	case TransformText:
		return "text"
	case TransformEmail:
		return "email"
	case TransformPhoneDigits:
		return "phone-digits"
	case TransformBool:
		return "boolean"
	case TransformInt:
		return "integer"
	case TransformList:
		return "semicolon-list"
	case TransformDate:
		return "date"
	case TransformDigits:
		return "digits-only"
	default:
		return "unknown"
	}
}

// Apply maps a raw cell value to its typed form. raw is never empty: blank
// cells are skipped before transformers run.
func (t Transform) Apply(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch t {
	case TransformText:
		return raw, nil
	case TransformEmail:
		return strings.ToLower(raw), nil
	case TransformPhoneDigits, TransformDigits:
		return keepDigits(raw), nil
	case TransformBool:
		return truthy[strings.ToLower(raw)], nil
	case TransformInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", raw)
		}
		return n, nil
	case TransformList:
		return splitList(raw), nil
	case TransformDate:
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, raw); err == nil {
				return d, nil
			}
		}
		return nil, fmt.Errorf("not a date: %q", raw)
	default:
		return nil, fmt.Errorf("unknown transformer kind %d", t)
	}
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitList splits on ";" trimming parts and dropping empties.
func splitList(s string) []string {
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

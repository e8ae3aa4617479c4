package bulk

import (
	"reflect"
	"testing"
	"time"
)

func TestTransformApply(t *testing.T) {
	tests := []struct {
		name    string
		kind    Transform
		input   string
		want    any
		wantErr bool
	}{
		{"text passthrough", TransformText, "Maintenance", "Maintenance", false},
		{"text trims", TransformText, "  hello  ", "hello", false},
		{"email lowercased", TransformEmail, "Ana.Silva@Example.COM", "ana.silva@example.com", false},
		{"phone keeps digits", TransformPhoneDigits, "+55 (11) 99999-0000", "5511999990000", false},
		{"digits only", TransformDigits, "12.345.678/0001-95", "12345678000195", false},
		{"bool yes", TransformBool, "YES", true, false},
		{"bool sim", TransformBool, "sim", true, false},
		{"bool one", TransformBool, "1", true, false},
		{"bool anything else false", TransformBool, "nope", false, false},
		{"int ok", TransformInt, "42", 42, false},
		{"int bad", TransformInt, "forty-two", nil, true},
		{"list split and trimmed", TransformList, "a; b ;;c", []string{"a", "b", "c"}, false},
		{"date iso", TransformDate, "2025-03-01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"date slashed", TransformDate, "2025/03/01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"date bad", TransformDate, "yesterday", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.kind.Apply(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Apply(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Apply(%q) = %v (%T), want %v (%T)", tt.input, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestTransformString_CoversAllKinds(t *testing.T) {
	kinds := []Transform{
		TransformText, TransformEmail, TransformPhoneDigits, TransformBool,
		TransformInt, TransformList, TransformDate, TransformDigits,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		name := k.String()
		if name == "unknown" {
			t.Errorf("Transform(%d).String() = unknown", k)
		}
		if seen[name] {
			t.Errorf("duplicate transform name %q", name)
		}
		seen[name] = true
	}
}

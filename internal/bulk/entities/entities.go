// Package entities registers the importable entity types with the bulk
// registry. Importing it for side effects (as cmd/server does) makes the
// whole catalog available; tests register narrower fixtures instead.
package entities

import "github.com/Hugoguevara91/eagl-backend/internal/bulk"

func init() {
	registerEmployees()
	registerClients()
	registerSites()
	registerAssets()
	registerWorkOrderTypes()
	registerChecklists()
}

// strField returns the row's string value as a pointer, nil when absent.
func strField(row bulk.Row, key string) *string {
	if v := row.Str(key); v != "" {
		return &v
	}
	return nil
}

// boolField returns the row's boolean value as a pointer, nil when absent.
func boolField(row bulk.Row, key string) *bool {
	if v, ok := row.Bool(key); ok {
		return &v
	}
	return nil
}

func orDefault(p *string, def string) *string {
	if p == nil {
		return &def
	}
	return p
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

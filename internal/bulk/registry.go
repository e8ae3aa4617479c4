package bulk

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Column declares one template column of an entity type. Label is the human
// header written to templates and exports; Key is the canonical field name
// used after header normalization.
type Column struct {
	Label       string
	Key         string
	Instruction string
	Required    bool
}

// EntityConfig is the static, per-entity import schema.
type EntityConfig struct {
	Entity          string
	TemplateVersion string
	Columns         []Column

	// UniqueKeyGroups lists field-key groups in priority order. The first
	// group whose fields are all present and non-empty gives the row its
	// identity for existing-record lookup and in-file duplicate detection.
	UniqueKeyGroups [][]string

	// Transforms maps canonical keys to the transformer applied to the raw
	// cell before validation.
	Transforms map[string]Transform

	// Composite marks parent/child entity types (several rows describe one
	// parent record). Repeated identities are expected and apply groups the
	// whole file by identity instead of chunking.
	Composite bool
}

// ReportFunc attaches a field-level validation error to the current row.
type ReportFunc func(field, message string)

// EntityDefinition bundles the schema with the entity-specific hooks the
// validation and apply engines call. Hooks receive the Store so relationship
// fields resolve against already-persisted records.
type EntityDefinition struct {
	Config EntityConfig

	// Lookup returns the ID of the existing record matching the row's
	// identity, or "" when there is none.
	Lookup func(ctx context.Context, st Store, tenantID string, row Row) (string, error)

	// Defaults fills derived or defaulted fields before identity resolution.
	Defaults func(row Row)

	// CheckRefs performs entity-specific validation (conditional field
	// rules, parent-record resolution), reporting problems through report.
	// A returned error aborts the phase (I/O failure, not a row problem).
	CheckRefs func(ctx context.Context, st Store, tenantID string, row Row, report ReportFunc) error

	// Apply creates (existingID == "") or updates one record.
	Apply func(ctx context.Context, st Store, tenantID, existingID string, row Row) error

	// ApplyGroup replaces a composite record and its children from all rows
	// sharing one identity, in file order. Set only when Config.Composite.
	ApplyGroup func(ctx context.Context, st Store, tenantID, existingID string, rows []Row) error

	// ExportRows renders the tenant's current records as display strings in
	// column order (lists joined with ";", booleans as YES/NO).
	ExportRows func(ctx context.Context, st Store, tenantID string) ([][]string, error)
}

var (
	registry   = make(map[string]EntityDefinition)
	registryMu sync.RWMutex
)

// Register adds an entity definition to the registry. Called from init() in
// the entities package; panics on duplicate registration or an obviously
// broken definition.
func Register(def EntityDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := def.Config.Entity
	if name == "" {
		panic("bulk: entity definition without a name")
	}
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("bulk: entity already registered: %s", name))
	}
	if def.Config.Composite && def.ApplyGroup == nil {
		panic(fmt.Sprintf("bulk: composite entity %s needs ApplyGroup", name))
	}
	if !def.Config.Composite && def.Apply == nil {
		panic(fmt.Sprintf("bulk: entity %s needs Apply", name))
	}

	registry[name] = def
}

// Lookup returns the definition for an entity type.
func Lookup(entity string) (EntityDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[entity]
	return def, ok
}

// Entities returns the registered entity-type names, sorted.
func Entities() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClearRegistry removes all registered entities. Primarily useful for tests.
func ClearRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]EntityDefinition)
}

package capability

import (
	"errors"
	"fmt"
	"sort"

	"github.com/artpar/rollout/internal/core/phase"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrUnknownCapability is returned when a name is not in the catalog.
	ErrUnknownCapability = errors.New("unknown capability")

	// ErrDuplicateCapability is returned when a catalog is built with the
	// same name registered twice.
	ErrDuplicateCapability = errors.New("duplicate capability")
)

// =============================================================================
// Definition
// =============================================================================

// Definition describes one capability in the catalog. Definitions are pure
// data; a capability has no identity beyond its name.
type Definition struct {
	// Name is the unique identifier used to enable/disable the capability.
	Name string `json:"name"`

	// Description is a human-readable summary.
	Description string `json:"description"`

	// Subsystem tags the owning subsystem (validation, deployment, ...).
	Subsystem string `json:"subsystem"`

	// Phase is the pipeline phase whose handler consults this capability.
	Phase phase.Phase `json:"phase"`

	// Requirements lists config keys the capability expects at enable time.
	// Informational only: enforcement is up to the caller.
	Requirements []string `json:"requirements,omitempty"`
}

// =============================================================================
// Registry
// =============================================================================

// Registry is a read-only catalog of capability definitions.
// Build it once at startup with NewRegistry; it is never mutated afterwards
// and is safe for concurrent reads.
type Registry struct {
	byName map[string]Definition
	names  []string // sorted, for deterministic enumeration
}

// NewRegistry builds a catalog from a list of definitions.
func NewRegistry(defs []Definition) (*Registry, error) {
	byName := make(map[string]Definition, len(defs))
	names := make([]string, 0, len(defs))

	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("capability with empty name")
		}
		if !phase.Valid(d.Phase) {
			return nil, fmt.Errorf("capability %s: unknown phase %q", d.Name, d.Phase)
		}
		if _, exists := byName[d.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCapability, d.Name)
		}
		byName[d.Name] = d
		names = append(names, d.Name)
	}

	sort.Strings(names)
	return &Registry{byName: byName, names: names}, nil
}

// Lookup returns the definition for a name.
func (r *Registry) Lookup(name string) (Definition, error) {
	d, ok := r.byName[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownCapability, name)
	}
	return d, nil
}

// Has reports whether a name is in the catalog.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// All returns every definition in deterministic (name-sorted) order.
func (r *Registry) All() []Definition {
	out := make([]Definition, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.byName[name])
	}
	return out
}

// Names returns all capability names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Size returns the number of registered capabilities.
func (r *Registry) Size() int {
	return len(r.names)
}

// ForPhase returns the definitions attached to a phase in deterministic
// (name-sorted) order. Sub-routine execution order within a phase follows
// this ordering.
func (r *Registry) ForPhase(p phase.Phase) []Definition {
	var out []Definition
	for _, name := range r.names {
		if d := r.byName[name]; d.Phase == p {
			out = append(out, d)
		}
	}
	return out
}

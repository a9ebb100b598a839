// Package capability defines the read-only catalog of rollout capabilities
// and the deterministic mode → recommended-capability tables. This is part of
// the Functional Core - all functions are pure with no I/O.
//
// A capability is an independently toggleable unit of optional behavior
// attached to one phase of the pipeline. The catalog is built once at startup
// and never mutated; which capabilities are enabled is per-orchestrator state
// owned by the orchestrator package.
package capability

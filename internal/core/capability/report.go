package capability

// =============================================================================
// Capability Report
// =============================================================================

// ReportEntry describes one capability in a report: its catalog definition,
// whether this orchestrator instance has it enabled, and its config payload.
type ReportEntry struct {
	Definition Definition `json:"definition"`
	Enabled    bool       `json:"enabled"`
	Config     any        `json:"config,omitempty"`
}

// Report is a serializable snapshot of the capability state of one
// orchestrator instance, intended for CLIs and dashboards.
type Report struct {
	TotalAvailable int                    `json:"total_available"`
	TotalEnabled   int                    `json:"total_enabled"`
	Capabilities   map[string]ReportEntry `json:"capabilities"`
}

// BuildReport assembles a report from the catalog and an instance's enabled
// set and config map. Every catalog entry appears exactly once.
func BuildReport(reg *Registry, enabled map[string]bool, configs map[string]any) Report {
	entries := make(map[string]ReportEntry, reg.Size())
	totalEnabled := 0

	for _, d := range reg.All() {
		on := enabled[d.Name]
		if on {
			totalEnabled++
		}
		entries[d.Name] = ReportEntry{
			Definition: d,
			Enabled:    on,
			Config:     configs[d.Name],
		}
	}

	return Report{
		TotalAvailable: reg.Size(),
		TotalEnabled:   totalEnabled,
		Capabilities:   entries,
	}
}

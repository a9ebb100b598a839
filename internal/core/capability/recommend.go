package capability

import "fmt"

// =============================================================================
// Deployment Modes
// =============================================================================

// Mode is a named preset used only to look up a default capability set.
// It never gates behavior beyond that lookup.
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeMulti      Mode = "multi"
	ModePortfolio  Mode = "portfolio"
	ModeEnterprise Mode = "enterprise"
)

// ValidMode reports whether m is a known deployment mode.
func ValidMode(m Mode) bool {
	_, ok := recommended[m]
	return ok
}

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !ValidMode(m) {
		return "", fmt.Errorf("unknown deployment mode: %q", s)
	}
	return m, nil
}

// =============================================================================
// Recommended Capability Sets
// =============================================================================

// recommended maps each mode to its fixed, ordered default capability set.
// The tables are static so the same mode always yields the same list.
var recommended = map[Mode][]string{
	ModeSingle: {
		BasicValidation,
		SingleDeploy,
		HealthCheck,
	},
	ModeMulti: {
		StandardValidation,
		DatabaseMigration,
		MultiDeploy,
		HealthCheck,
		EndpointTest,
	},
	ModePortfolio: {
		StandardValidation,
		DatabaseMigration,
		SecretProvisioning,
		PortfolioDeploy,
		HealthCheck,
		EndpointTest,
		AuditTrail,
	},
	ModeEnterprise: {
		ComprehensiveValidation,
		ComplianceCheck,
		DatabaseMigration,
		SecretProvisioning,
		HAStaging,
		PortfolioDeploy,
		HealthCheck,
		EndpointTest,
		IntegrationTest,
		AuditTrail,
		EnterpriseMonitoring,
	},
}

// RecommendedFor returns the default capability names for a mode, in the
// order they should be enabled. Unknown modes yield an empty list.
// The returned slice is a copy.
func RecommendedFor(m Mode) []string {
	names, ok := recommended[m]
	if !ok {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}

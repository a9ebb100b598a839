package capability

import "github.com/artpar/rollout/internal/core/phase"

// =============================================================================
// Capability Names
// =============================================================================

// Canonical capability names. Config payloads reference these, so they are
// part of the public surface and must stay stable.
const (
	BasicValidation         = "basicValidation"
	StandardValidation      = "standardValidation"
	ComprehensiveValidation = "comprehensiveValidation"
	ComplianceCheck         = "complianceCheck"

	DatabaseMigration  = "databaseMigration"
	SecretProvisioning = "secretProvisioning"
	HAStaging          = "haStaging"

	SingleDeploy    = "singleDeploy"
	MultiDeploy     = "multiDeploy"
	PortfolioDeploy = "portfolioDeploy"

	HealthCheck     = "healthCheck"
	EndpointTest    = "endpointTest"
	IntegrationTest = "integrationTest"

	AuditTrail           = "auditTrail"
	EnterpriseMonitoring = "enterpriseMonitoring"
)

// =============================================================================
// Built-in Catalog
// =============================================================================

// builtin is the process-wide capability catalog.
var builtin = []Definition{
	{
		Name:        BasicValidation,
		Description: "Structural checks on the rollout spec (names, images, ports)",
		Subsystem:   "validation",
		Phase:       phase.Validation,
	},
	{
		Name:        StandardValidation,
		Description: "Basic checks plus resource limit and environment hygiene validation",
		Subsystem:   "validation",
		Phase:       phase.Validation,
	},
	{
		Name:        ComprehensiveValidation,
		Description: "Standard checks plus cross-service dependency validation",
		Subsystem:   "validation",
		Phase:       phase.Validation,
	},
	{
		Name:         ComplianceCheck,
		Description:  "Compliance rules: pinned image digests, no privileged mode, resource ceilings",
		Subsystem:    "compliance",
		Phase:        phase.Validation,
		Requirements: []string{"policy"},
	},
	{
		Name:         DatabaseMigration,
		Description:  "Verify migration readiness before deploying",
		Subsystem:    "data",
		Phase:        phase.Preparation,
		Requirements: []string{"dsn"},
	},
	{
		Name:         SecretProvisioning,
		Description:  "Generate and seal per-service credentials",
		Subsystem:    "security",
		Phase:        phase.Preparation,
		Requirements: []string{"passphrase"},
	},
	{
		Name:         HAStaging,
		Description:  "Stage standby environments in a secondary region for failover",
		Subsystem:    "availability",
		Phase:        phase.Preparation,
		Requirements: []string{"provider", "region"},
	},
	{
		Name:        SingleDeploy,
		Description: "Deploy one service to one target environment",
		Subsystem:   "deployment",
		Phase:       phase.Deployment,
	},
	{
		Name:        MultiDeploy,
		Description: "Deploy one service to every target environment",
		Subsystem:   "deployment",
		Phase:       phase.Deployment,
	},
	{
		Name:        PortfolioDeploy,
		Description: "Deploy every service in the portfolio to its placed target",
		Subsystem:   "deployment",
		Phase:       phase.Deployment,
	},
	{
		Name:        HealthCheck,
		Description: "Probe deployed service health endpoints",
		Subsystem:   "verification",
		Phase:       phase.Verification,
	},
	{
		Name:         EndpointTest,
		Description:  "Exercise configured endpoints and verify response codes",
		Subsystem:    "verification",
		Phase:        phase.Verification,
		Requirements: []string{"endpoints"},
	},
	{
		Name:        IntegrationTest,
		Description: "Run cross-service smoke flows against the deployed services",
		Subsystem:   "verification",
		Phase:       phase.Verification,
	},
	{
		Name:        AuditTrail,
		Description: "Persist a per-phase audit trail for the rollout",
		Subsystem:   "observability",
		Phase:       phase.Monitoring,
	},
	{
		Name:         EnterpriseMonitoring,
		Description:  "Register deployed services with continuous monitoring",
		Subsystem:    "observability",
		Phase:        phase.Monitoring,
		Requirements: []string{"interval"},
	},
}

// Builtin returns the process-wide capability registry.
// The catalog is static; an error here is a programming defect.
func Builtin() *Registry {
	r, err := NewRegistry(builtin)
	if err != nil {
		panic("capability: invalid builtin catalog: " + err.Error())
	}
	return r
}

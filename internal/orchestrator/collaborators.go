package orchestrator

import (
	"context"
	"time"

	"github.com/artpar/rollout/internal/core/domain"
	"github.com/artpar/rollout/internal/core/phase"
)

// =============================================================================
// Collaborator Contracts
// =============================================================================
// The pipeline consumes collaborators through small interfaces so concrete
// implementations (docker, cloud providers, sqlite audit store) stay in the
// shell packages and tests can inject fakes.

// Auditor receives phase boundary and error events. A nil auditor disables
// auditing without changing pipeline behavior; audit failures are logged and
// never fail the pipeline.
type Auditor interface {
	StartDeploymentAudit(ctx context.Context, deploymentID, kind string, meta map[string]any) error
	LogPhase(ctx context.Context, deploymentID string, p phase.Phase, status string, details map[string]any) error
	LogError(ctx context.Context, deploymentID string, err error, errCtx map[string]any) error
	EndDeploymentAudit(ctx context.Context, deploymentID, outcome string, meta map[string]any) error
}

// Descriptor is what a deployment collaborator returns for one deployed
// service. The pipeline treats it as opaque apart from aggregation.
type Descriptor struct {
	URL      string        `json:"url"`
	Duration time.Duration `json:"duration_ms"`
	Status   string        `json:"status"`
}

// Deployer pushes one service onto one target environment.
type Deployer interface {
	Deploy(ctx context.Context, svc domain.ServiceSpec, target domain.TargetEnv) (*Descriptor, error)
}

// Prober issues one HTTP probe and returns the observed status code.
type Prober interface {
	Probe(ctx context.Context, method, url string) (int, error)
}

// EnvProvisioner stages standby environments for HA/DR failover.
type EnvProvisioner interface {
	StageStandby(ctx context.Context, provider, region string) (*StagedEnv, error)
}

// StagedEnv describes a provisioned standby environment.
type StagedEnv struct {
	Provider   string `json:"provider"`
	Region     string `json:"region"`
	InstanceID string `json:"instance_id"`
	PublicIP   string `json:"public_ip"`
}

// MigrationChecker reports whether a database is ready for the rollout.
type MigrationChecker interface {
	PendingMigrations(ctx context.Context, dsn string) (int, error)
}

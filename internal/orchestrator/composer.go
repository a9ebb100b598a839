package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/artpar/rollout/internal/core/capability"
	"github.com/artpar/rollout/internal/core/domain"
	"github.com/artpar/rollout/internal/core/phase"
)

// =============================================================================
// Composer
// =============================================================================

// Composer is a capability-composed orchestrator: each phase handler runs the
// sub-routines of whichever registered capabilities are enabled on this
// instance, and aggregates their results keyed by capability name.
//
// The enabled set and config map are instance state; the capability registry
// is the shared read-only catalog.
type Composer struct {
	rollout  *domain.Rollout
	registry *capability.Registry

	enabled map[string]bool
	configs map[string]any
	mode    capability.Mode

	deployer    Deployer
	prober      Prober
	provisioner EnvProvisioner
	migrations  MigrationChecker
	auditor     Auditor
	sealingKey  []byte
	logger      *slog.Logger

	executor *Executor

	// deployed accumulates per-service deployment outcomes during the
	// Deployment phase for use by Verification and Monitoring.
	deployed map[string]ServiceDeployment

	subroutines map[string]subroutine
}

// ComposerConfig wires a Composer.
type ComposerConfig struct {
	// Rollout is the attempt being driven. Required.
	Rollout *domain.Rollout

	// Registry is the capability catalog. Defaults to capability.Builtin().
	Registry *capability.Registry

	// Collaborators. Deployer and Prober are required only when a capability
	// that uses them is enabled.
	Deployer    Deployer
	Prober      Prober
	Provisioner EnvProvisioner
	Migrations  MigrationChecker
	Auditor     Auditor

	// SealingKey seals provisioned credentials. Required only for the
	// secretProvisioning capability.
	SealingKey []byte

	Logger *slog.Logger
}

// subroutine is one capability-specific unit of phase work. The config
// payload is whatever the caller supplied at enable time, passed verbatim.
type subroutine func(ctx context.Context, config any) (any, error)

// NewComposer creates a capability-composed orchestrator for one rollout.
func NewComposer(cfg ComposerConfig) (*Composer, error) {
	if cfg.Rollout == nil {
		return nil, errors.New("rollout is required")
	}
	registry := cfg.Registry
	if registry == nil {
		registry = capability.Builtin()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Composer{
		rollout:     cfg.Rollout,
		registry:    registry,
		enabled:     make(map[string]bool),
		configs:     make(map[string]any),
		deployer:    cfg.Deployer,
		prober:      cfg.Prober,
		provisioner: cfg.Provisioner,
		migrations:  cfg.Migrations,
		auditor:     cfg.Auditor,
		sealingKey:  cfg.SealingKey,
		logger:      logger,
		deployed:    make(map[string]ServiceDeployment),
	}

	// Explicit capability → sub-routine table. Adding a catalog entry
	// without binding it here makes the capability a silent no-op, which the
	// composer tests guard against.
	c.subroutines = map[string]subroutine{
		capability.BasicValidation:         c.runBasicValidation,
		capability.StandardValidation:      c.runStandardValidation,
		capability.ComprehensiveValidation: c.runComprehensiveValidation,
		capability.ComplianceCheck:         c.runComplianceCheck,
		capability.DatabaseMigration:       c.runDatabaseMigration,
		capability.SecretProvisioning:      c.runSecretProvisioning,
		capability.HAStaging:               c.runHAStaging,
		capability.SingleDeploy:            c.runSingleDeploy,
		capability.MultiDeploy:             c.runMultiDeploy,
		capability.PortfolioDeploy:         c.runPortfolioDeploy,
		capability.HealthCheck:             c.runHealthCheck,
		capability.EndpointTest:            c.runEndpointTest,
		capability.IntegrationTest:         c.runIntegrationTest,
		capability.AuditTrail:              c.runAuditTrail,
		capability.EnterpriseMonitoring:    c.runEnterpriseMonitoring,
	}

	c.executor = NewExecutor(cfg.Rollout.ID, HandlerSet{
		Initialize: c.handleInitialize,
		Validate:   c.handleValidate,
		Prepare:    c.handlePrepare,
		Deploy:     c.handleDeploy,
		Verify:     c.handleVerify,
		Monitor:    c.handleMonitor,
	}, cfg.Auditor, logger)

	return c, nil
}

// =============================================================================
// Capability Operations
// =============================================================================

// EnableCapability adds a capability to the enabled set. Enabling an already
// enabled capability is idempotent; the latest config wins. Unknown names are
// rejected before any phase runs.
func (c *Composer) EnableCapability(name string, config any) error {
	if !c.registry.Has(name) {
		return fmt.Errorf("%w: %s", capability.ErrUnknownCapability, name)
	}
	c.enabled[name] = true
	if config != nil {
		c.configs[name] = config
	}
	return nil
}

// DisableCapability removes a capability from the enabled set and drops its
// config. Disabling an absent capability is a no-op.
func (c *Composer) DisableCapability(name string) {
	delete(c.enabled, name)
	delete(c.configs, name)
}

// HasCapability reports whether a capability is enabled on this instance.
func (c *Composer) HasCapability(name string) bool {
	return c.enabled[name]
}

// EnabledCapabilities returns the enabled capability names, sorted.
func (c *Composer) EnabledCapabilities() []string {
	out := make([]string, 0, len(c.enabled))
	for name := range c.enabled {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RecommendedCapabilities returns the default capability set for a mode.
func (c *Composer) RecommendedCapabilities(mode capability.Mode) []string {
	return capability.RecommendedFor(mode)
}

// SetDeploymentMode records the mode and, when autoConfigure is set, enables
// every recommended capability for it. Additive: previously enabled
// capabilities stay enabled.
func (c *Composer) SetDeploymentMode(mode capability.Mode, autoConfigure bool) error {
	if !capability.ValidMode(mode) {
		return fmt.Errorf("unknown deployment mode: %q", mode)
	}
	c.mode = mode
	if !autoConfigure {
		return nil
	}
	for _, name := range capability.RecommendedFor(mode) {
		if err := c.EnableCapability(name, nil); err != nil {
			return err
		}
	}
	return nil
}

// CapabilityReport returns the serializable capability snapshot of this
// instance.
func (c *Composer) CapabilityReport() capability.Report {
	return capability.BuildReport(c.registry, c.enabled, c.configs)
}

// =============================================================================
// Execution
// =============================================================================

// Execute drives the pipeline and keeps the rollout aggregate's status in
// step with the outcome.
func (c *Composer) Execute(ctx context.Context, opts Options) (*phase.Summary, error) {
	if err := c.rollout.Transition(domain.RolloutRunning); err != nil {
		return nil, err
	}

	summary, err := c.executor.Execute(ctx, opts)
	if err != nil {
		c.rollout.TransitionToFailed(err.Error())
		return nil, err
	}

	if err := c.rollout.Transition(domain.RolloutSucceeded); err != nil {
		c.logger.Error("rollout status transition failed",
			"rollout_id", c.rollout.ID, "error", err)
	}
	return summary, nil
}

// PhaseStatus returns the state of a phase, pending if never attempted.
func (c *Composer) PhaseStatus(p phase.Phase) phase.State {
	return c.executor.PhaseStatus(p)
}

// PhaseResult returns the stored result of a phase, nil if not yet executed.
func (c *Composer) PhaseResult(p phase.Phase) any {
	return c.executor.PhaseResult(p)
}

// PhaseResults returns results for every completed phase.
func (c *Composer) PhaseResults() map[phase.Phase]any {
	return c.executor.PhaseResults()
}

// ExecutionContext returns a read-only snapshot with live timing.
func (c *Composer) ExecutionContext() phase.Snapshot {
	return c.executor.ExecutionContext()
}

// Summary returns the final (possibly partial) summary, nil before execution
// finishes.
func (c *Composer) Summary() *phase.Summary {
	return c.executor.Summary()
}

// =============================================================================
// Phase Handlers
// =============================================================================

// runPhaseCapabilities runs the sub-routines of every enabled capability
// attached to a phase, in the registry's deterministic order, aggregating
// results keyed by capability name. A phase with nothing enabled completes
// successfully with an empty result.
func (c *Composer) runPhaseCapabilities(ctx context.Context, p phase.Phase) (map[string]any, error) {
	results := make(map[string]any)
	var errs []error

	for _, def := range c.registry.ForPhase(p) {
		if !c.enabled[def.Name] {
			continue
		}

		sub, bound := c.subroutines[def.Name]
		if !bound {
			errs = append(errs, fmt.Errorf("capability %s has no sub-routine", def.Name))
			continue
		}

		c.logger.Debug("running capability sub-routine",
			"deployment_id", c.rollout.ID,
			"phase", p,
			"capability", def.Name,
		)

		result, err := sub(ctx, c.configs[def.Name])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", def.Name, err))
			continue
		}
		results[def.Name] = result
	}

	if len(errs) > 0 {
		return results, errors.Join(errs...)
	}
	return results, nil
}

// handleInitialize verifies the attempt is actually runnable: the spec has
// services and at least one online target. Initialization has no capability
// sub-routines; it is the same for every composition.
func (c *Composer) handleInitialize(ctx context.Context) (any, error) {
	spec := c.rollout.Spec
	if len(spec.Services) == 0 {
		return nil, domain.ErrNoServices
	}

	online := 0
	for _, t := range spec.Targets {
		if t.Status.IsAvailable() {
			online++
		}
	}
	if online == 0 {
		return nil, fmt.Errorf("no online target environments for rollout %s", c.rollout.ID)
	}

	return map[string]any{
		"services":       len(spec.Services),
		"targets":        len(spec.Targets),
		"targets_online": online,
		"mode":           c.rollout.Mode,
	}, nil
}

func (c *Composer) handleValidate(ctx context.Context) (any, error) {
	return c.runPhaseCapabilities(ctx, phase.Validation)
}

func (c *Composer) handlePrepare(ctx context.Context) (any, error) {
	return c.runPhaseCapabilities(ctx, phase.Preparation)
}

func (c *Composer) handleDeploy(ctx context.Context) (any, error) {
	return c.runPhaseCapabilities(ctx, phase.Deployment)
}

func (c *Composer) handleVerify(ctx context.Context) (any, error) {
	return c.runPhaseCapabilities(ctx, phase.Verification)
}

func (c *Composer) handleMonitor(ctx context.Context) (any, error) {
	return c.runPhaseCapabilities(ctx, phase.Monitoring)
}

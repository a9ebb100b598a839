package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/artpar/rollout/internal/core/capability"
	"github.com/artpar/rollout/internal/core/domain"
	"github.com/artpar/rollout/internal/core/monitoring"
	"github.com/artpar/rollout/internal/core/phase"
	"github.com/artpar/rollout/internal/core/placement"
	"github.com/artpar/rollout/internal/core/validation"
)

// =============================================================================
// Metadata
// =============================================================================

// Metadata is a static, serializable description of an orchestrator variant,
// for introspection and reporting only. It must never drive control flow.
type Metadata struct {
	Type            string            `json:"type"`
	Description     string            `json:"description"`
	Mode            string            `json:"mode,omitempty"`
	Capabilities    []string          `json:"capabilities,omitempty"`
	Characteristics map[string]string `json:"characteristics,omitempty"`
}

// Metadata describes this composed orchestrator instance.
func (c *Composer) Metadata() Metadata {
	return Metadata{
		Type:         "composer",
		Description:  "capability-composed rollout orchestrator",
		Mode:         string(c.mode),
		Capabilities: c.EnabledCapabilities(),
		Characteristics: map[string]string{
			"pipeline":  "six-phase sequential",
			"reuse":     "single-use instance",
			"extension": "per-instance capability set",
		},
	}
}

// =============================================================================
// Fixed Single-Target Variant
// =============================================================================

// SingleTarget is the fixed-behavior variant for the plainest topology: one
// service, one target, no capability flags. Deployments that need audited,
// unchanging behavior use this form; everything else composes capabilities.
type SingleTarget struct {
	rollout  *domain.Rollout
	deployer Deployer
	prober   Prober
	executor *Executor
	logger   *slog.Logger

	deployed *ServiceDeployment
}

// SingleTargetConfig wires a SingleTarget orchestrator.
type SingleTargetConfig struct {
	Rollout  *domain.Rollout
	Deployer Deployer
	Prober   Prober
	Auditor  Auditor
	Logger   *slog.Logger
}

// NewSingleTarget creates the fixed single-target orchestrator.
func NewSingleTarget(cfg SingleTargetConfig) (*SingleTarget, error) {
	if cfg.Rollout == nil {
		return nil, fmt.Errorf("rollout is required")
	}
	if cfg.Deployer == nil {
		return nil, ErrNoDeployer
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &SingleTarget{
		rollout:  cfg.Rollout,
		deployer: cfg.Deployer,
		prober:   cfg.Prober,
		logger:   logger,
	}
	s.executor = NewExecutor(cfg.Rollout.ID, HandlerSet{
		Initialize: s.initialize,
		Validate:   s.validate,
		Prepare:    s.prepare,
		Deploy:     s.deploy,
		Verify:     s.verify,
		Monitor:    s.monitor,
	}, cfg.Auditor, cfg.Logger)

	return s, nil
}

// Execute drives the fixed pipeline.
func (s *SingleTarget) Execute(ctx context.Context, opts Options) (*phase.Summary, error) {
	if err := s.rollout.Transition(domain.RolloutRunning); err != nil {
		return nil, err
	}
	summary, err := s.executor.Execute(ctx, opts)
	if err != nil {
		s.rollout.TransitionToFailed(err.Error())
		return nil, err
	}
	if err := s.rollout.Transition(domain.RolloutSucceeded); err != nil {
		s.logger.Error("rollout status transition failed",
			"rollout_id", s.rollout.ID, "error", err)
	}
	return summary, nil
}

// PhaseStatus returns the state of a phase, pending if never attempted.
func (s *SingleTarget) PhaseStatus(p phase.Phase) phase.State {
	return s.executor.PhaseStatus(p)
}

// ExecutionContext returns a read-only snapshot with live timing.
func (s *SingleTarget) ExecutionContext() phase.Snapshot {
	return s.executor.ExecutionContext()
}

// Metadata describes this variant.
func (s *SingleTarget) Metadata() Metadata {
	return Metadata{
		Type:        "single-target",
		Description: "fixed pipeline deploying one service to one target",
		Characteristics: map[string]string{
			"pipeline":  "six-phase sequential",
			"reuse":     "single-use instance",
			"extension": "none (fixed behavior)",
		},
	}
}

func (s *SingleTarget) initialize(ctx context.Context) (any, error) {
	spec := s.rollout.Spec
	if len(spec.Services) != 1 {
		return nil, fmt.Errorf("single-target rollout requires exactly one service, got %d", len(spec.Services))
	}
	online := 0
	for _, t := range spec.Targets {
		if t.Status.IsAvailable() {
			online++
		}
	}
	if online == 0 {
		return nil, fmt.Errorf("no online target environments")
	}
	return map[string]any{"service": spec.Services[0].Name, "targets_online": online}, nil
}

func (s *SingleTarget) validate(ctx context.Context) (any, error) {
	res := validation.Basic(s.rollout.Spec)
	return res, res.Err()
}

func (s *SingleTarget) prepare(ctx context.Context) (any, error) {
	// Nothing to stage for a plain single-target rollout.
	return map[string]any{}, nil
}

func (s *SingleTarget) deploy(ctx context.Context) (any, error) {
	// Reachable with an empty spec under ContinueOnError after the
	// initialization check already failed; fail the phase, never panic.
	if len(s.rollout.Spec.Services) == 0 {
		return nil, domain.ErrNoServices
	}

	svc := s.rollout.Spec.Services[0]
	placed, err := placement.Place(placement.Request{Service: svc, Targets: s.rollout.Spec.Targets})
	if err != nil {
		return nil, err
	}

	desc, err := s.deployer.Deploy(ctx, svc, placed.Target)
	if err != nil {
		return nil, err
	}

	s.deployed = &ServiceDeployment{
		Service:  svc.Name,
		Target:   placed.Target.Name,
		URL:      desc.URL,
		Status:   desc.Status,
		Duration: desc.Duration,
	}
	return map[string]any{"singleService": *s.deployed}, nil
}

func (s *SingleTarget) verify(ctx context.Context) (any, error) {
	if s.prober == nil || s.deployed == nil {
		return map[string]any{}, nil
	}

	svc := s.rollout.Spec.Services[0]
	path := svc.HealthPath
	if path == "" {
		path = "/health"
	}

	code, err := s.prober.Probe(ctx, "GET", s.deployed.URL+path)
	if err != nil {
		return nil, fmt.Errorf("health probe failed: %w", err)
	}

	health := monitoring.ClassifyStatusCode(code)
	if health == monitoring.HealthStatusUnhealthy {
		return nil, fmt.Errorf("service unhealthy: status %d", code)
	}
	return map[string]any{"health": health, "status_code": code}, nil
}

func (s *SingleTarget) monitor(ctx context.Context) (any, error) {
	if s.deployed == nil {
		return map[string]any{}, nil
	}
	specs := monitoring.BuildMonitorSpecs(map[string]string{s.deployed.Service: s.deployed.URL}, 0)
	return map[string]any{"monitors": specs}, nil
}

// =============================================================================
// Pre-seeded Composed Variants
// =============================================================================

// NewPortfolioOrchestrator creates a Composer pre-seeded with the portfolio
// capability set.
func NewPortfolioOrchestrator(cfg ComposerConfig) (*Composer, error) {
	return newModeOrchestrator(cfg, capability.ModePortfolio)
}

// NewEnterpriseOrchestrator creates a Composer pre-seeded with the
// enterprise capability set: comprehensive validation, compliance, HA/DR
// staging and continuous monitoring on top of the portfolio rollout.
func NewEnterpriseOrchestrator(cfg ComposerConfig) (*Composer, error) {
	return newModeOrchestrator(cfg, capability.ModeEnterprise)
}

func newModeOrchestrator(cfg ComposerConfig, mode capability.Mode) (*Composer, error) {
	c, err := NewComposer(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.SetDeploymentMode(mode, true); err != nil {
		return nil, err
	}
	return c, nil
}

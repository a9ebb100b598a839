package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/artpar/rollout/internal/core/domain"
	"github.com/artpar/rollout/internal/core/monitoring"
	"github.com/artpar/rollout/internal/core/phase"
	"github.com/artpar/rollout/internal/core/placement"
	"github.com/artpar/rollout/internal/core/secrets"
	"github.com/artpar/rollout/internal/core/validation"
)

// =============================================================================
// Sub-routine Results
// =============================================================================

// ServiceDeployment is the aggregated outcome of deploying one service to
// one target.
type ServiceDeployment struct {
	Service  string        `json:"service"`
	Target   string        `json:"target"`
	URL      string        `json:"url"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration_ms"`
}

// =============================================================================
// Validation Sub-routines
// =============================================================================

func (c *Composer) runBasicValidation(ctx context.Context, config any) (any, error) {
	res := validation.Basic(c.rollout.Spec)
	return res, res.Err()
}

func (c *Composer) runStandardValidation(ctx context.Context, config any) (any, error) {
	res := validation.Standard(c.rollout.Spec)
	return res, res.Err()
}

func (c *Composer) runComprehensiveValidation(ctx context.Context, config any) (any, error) {
	res := validation.Comprehensive(c.rollout.Spec)
	return res, res.Err()
}

func (c *Composer) runComplianceCheck(ctx context.Context, config any) (any, error) {
	policy := validation.DefaultPolicy()
	if p, ok := config.(validation.Policy); ok {
		policy = p
	}
	res := validation.Compliance(c.rollout.Spec, policy)
	return res, res.Err()
}

// =============================================================================
// Preparation Sub-routines
// =============================================================================

func (c *Composer) runDatabaseMigration(ctx context.Context, config any) (any, error) {
	if c.migrations == nil {
		return nil, ErrNoMigrationChecker
	}

	dsn := configString(config, "dsn")
	pending, err := c.migrations.PendingMigrations(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("migration readiness check failed: %w", err)
	}
	if pending > 0 {
		return nil, fmt.Errorf("database not ready: %d pending migration(s)", pending)
	}

	return map[string]any{"dsn": dsn, "pending": 0}, nil
}

func (c *Composer) runSecretProvisioning(ctx context.Context, config any) (any, error) {
	key := c.sealingKey
	if len(key) == 0 {
		if passphrase := configString(config, "passphrase"); passphrase != "" {
			key = secrets.DeriveKey(passphrase)
		}
	}
	if len(key) == 0 {
		return nil, ErrNoSealingKey
	}

	creds := make([]secrets.Credential, 0, len(c.rollout.Spec.Services))
	for _, svc := range c.rollout.Spec.Services {
		cred, err := secrets.ProvisionCredential(svc.Name, "SERVICE_SECRET", key)
		if err != nil {
			return nil, fmt.Errorf("provisioning secret for %s: %w", svc.Name, err)
		}
		creds = append(creds, cred)
	}

	return map[string]any{"count": len(creds), "credentials": creds}, nil
}

func (c *Composer) runHAStaging(ctx context.Context, config any) (any, error) {
	if c.provisioner == nil {
		return nil, ErrNoProvisioner
	}

	provider := configString(config, "provider")
	region := configString(config, "region")
	if provider == "" || region == "" {
		return nil, fmt.Errorf("haStaging requires provider and region config")
	}

	staged, err := c.provisioner.StageStandby(ctx, provider, region)
	if err != nil {
		return nil, fmt.Errorf("staging standby environment: %w", err)
	}
	return staged, nil
}

// =============================================================================
// Deployment Sub-routines
// =============================================================================

func (c *Composer) runSingleDeploy(ctx context.Context, config any) (any, error) {
	if c.deployer == nil {
		return nil, ErrNoDeployer
	}
	// Reachable with an empty spec under ContinueOnError after Initialization
	// already failed; fail the phase, never panic.
	if len(c.rollout.Spec.Services) == 0 {
		return nil, domain.ErrNoServices
	}

	svc := c.rollout.Spec.Services[0]
	placed, err := placement.Place(placement.Request{Service: svc, Targets: c.rollout.Spec.Targets})
	if err != nil {
		return nil, err
	}

	sd, err := c.deployService(ctx, svc, placed.Target)
	if err != nil {
		return nil, err
	}
	return map[string]any{"singleService": sd}, nil
}

func (c *Composer) runMultiDeploy(ctx context.Context, config any) (any, error) {
	if c.deployer == nil {
		return nil, ErrNoDeployer
	}
	if len(c.rollout.Spec.Services) == 0 {
		return nil, domain.ErrNoServices
	}

	svc := c.rollout.Spec.Services[0]
	deployments := make(map[string]ServiceDeployment)

	for _, target := range c.rollout.Spec.Targets {
		if !target.Status.IsAvailable() {
			continue
		}
		sd, err := c.deployService(ctx, svc, target)
		if err != nil {
			return nil, fmt.Errorf("deploying %s to %s: %w", svc.Name, target.Name, err)
		}
		deployments[target.Name] = sd
	}

	if len(deployments) == 0 {
		return nil, placement.ErrNoTargetsAvailable
	}
	return map[string]any{"targets": len(deployments), "deployments": deployments}, nil
}

func (c *Composer) runPortfolioDeploy(ctx context.Context, config any) (any, error) {
	if c.deployer == nil {
		return nil, ErrNoDeployer
	}
	if len(c.rollout.Spec.Services) == 0 {
		return nil, domain.ErrNoServices
	}

	spec := c.rollout.Spec
	placements, err := placement.PlaceAll(spec.Services, spec.Targets)
	if err != nil {
		return nil, err
	}

	deployments := make(map[string]ServiceDeployment, len(spec.Services))
	for _, svc := range spec.Services {
		sd, err := c.deployService(ctx, svc, placements[svc.Name])
		if err != nil {
			return nil, fmt.Errorf("deploying %s: %w", svc.Name, err)
		}
		deployments[svc.Name] = sd
	}

	return map[string]any{"services": len(deployments), "deployments": deployments}, nil
}

// deployService invokes the deployment collaborator and records the outcome
// for later verification phases.
func (c *Composer) deployService(ctx context.Context, svc domain.ServiceSpec, target domain.TargetEnv) (ServiceDeployment, error) {
	desc, err := c.deployer.Deploy(ctx, svc, target)
	if err != nil {
		return ServiceDeployment{}, err
	}

	sd := ServiceDeployment{
		Service:  svc.Name,
		Target:   target.Name,
		URL:      desc.URL,
		Status:   desc.Status,
		Duration: desc.Duration,
	}
	c.deployed[svc.Name+"@"+target.Name] = sd
	return sd, nil
}

// deployedInOrder returns the recorded deployments sorted by key so
// verification output is deterministic.
func (c *Composer) deployedInOrder() []ServiceDeployment {
	keys := make([]string, 0, len(c.deployed))
	for k := range c.deployed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]ServiceDeployment, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.deployed[k])
	}
	return out
}

// serviceSpec looks up a service declaration by name.
func (c *Composer) serviceSpec(name string) (domain.ServiceSpec, bool) {
	for _, svc := range c.rollout.Spec.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return domain.ServiceSpec{}, false
}

// =============================================================================
// Verification Sub-routines
// =============================================================================

func (c *Composer) runHealthCheck(ctx context.Context, config any) (any, error) {
	if c.prober == nil {
		return nil, ErrNoProber
	}

	outcomes := make([]monitoring.ProbeOutcome, 0, len(c.deployed))
	for _, sd := range c.deployedInOrder() {
		path := "/health"
		if svc, ok := c.serviceSpec(sd.Service); ok && svc.HealthPath != "" {
			path = svc.HealthPath
		}

		outcome := monitoring.ProbeOutcome{Service: sd.Service}
		code, err := c.prober.Probe(ctx, "GET", sd.URL+path)
		if err != nil {
			outcome.Health = monitoring.HealthStatusUnhealthy
			outcome.Error = err.Error()
		} else {
			outcome.Health = monitoring.ClassifyStatusCode(code)
			outcome.StatusCode = code
		}
		outcomes = append(outcomes, outcome)
	}

	overall := monitoring.AggregateHealth(outcomes)
	if overall == monitoring.HealthStatusUnhealthy {
		return nil, fmt.Errorf("all %d service(s) unhealthy", len(outcomes))
	}

	return map[string]any{"overall": overall, "services": outcomes}, nil
}

func (c *Composer) runEndpointTest(ctx context.Context, config any) (any, error) {
	if c.prober == nil {
		return nil, ErrNoProber
	}

	checked := 0
	var failures []string

	for _, sd := range c.deployedInOrder() {
		svc, ok := c.serviceSpec(sd.Service)
		if !ok {
			continue
		}
		for _, ep := range svc.Endpoints {
			checked++
			code, err := c.prober.Probe(ctx, ep.Method, sd.URL+ep.Path)
			if err != nil {
				failures = append(failures, fmt.Sprintf("%s %s: %v", sd.Service, ep.Path, err))
				continue
			}
			if code != ep.ExpectedStatus {
				failures = append(failures, fmt.Sprintf("%s %s: got %d, want %d",
					sd.Service, ep.Path, code, ep.ExpectedStatus))
			}
		}
	}

	if len(failures) > 0 {
		return nil, fmt.Errorf("endpoint tests failed: %d of %d (%s)",
			len(failures), checked, failures[0])
	}
	return map[string]any{"checked": checked, "failed": 0}, nil
}

func (c *Composer) runIntegrationTest(ctx context.Context, config any) (any, error) {
	if c.prober == nil {
		return nil, ErrNoProber
	}

	// Smoke flow: touch the first endpoint (or health path) of every
	// deployed service in declaration order, so cross-service wiring gets
	// exercised end to end.
	flows := 0
	for _, svc := range c.rollout.Spec.Services {
		var sd ServiceDeployment
		found := false
		for _, d := range c.deployedInOrder() {
			if d.Service == svc.Name {
				sd, found = d, true
				break
			}
		}
		if !found {
			continue
		}

		path := svc.HealthPath
		if len(svc.Endpoints) > 0 {
			path = svc.Endpoints[0].Path
		}
		if path == "" {
			path = "/health"
		}

		flows++
		code, err := c.prober.Probe(ctx, "GET", sd.URL+path)
		if err != nil {
			return nil, fmt.Errorf("integration flow %s: %w", svc.Name, err)
		}
		if code >= 500 {
			return nil, fmt.Errorf("integration flow %s: status %d", svc.Name, code)
		}
	}

	return map[string]any{"flows": flows, "passed": flows}, nil
}

// =============================================================================
// Monitoring Sub-routines
// =============================================================================

func (c *Composer) runAuditTrail(ctx context.Context, config any) (any, error) {
	if c.auditor == nil {
		// Absence of an auditor never changes pipeline behavior.
		return map[string]any{"persisted": false}, nil
	}

	err := c.auditor.LogPhase(ctx, c.rollout.ID, phase.Monitoring, "audit_trail", map[string]any{
		"services_deployed": len(c.deployed),
		"mode":              c.rollout.Mode,
	})
	if err != nil {
		return nil, fmt.Errorf("persisting audit trail: %w", err)
	}
	return map[string]any{"persisted": true}, nil
}

func (c *Composer) runEnterpriseMonitoring(ctx context.Context, config any) (any, error) {
	urls := make(map[string]string, len(c.deployed))
	for _, sd := range c.deployedInOrder() {
		urls[sd.Service] = sd.URL
	}

	specs := monitoring.BuildMonitorSpecs(urls, configInt(config, "interval"))
	return map[string]any{"monitors": specs, "count": len(specs)}, nil
}

// =============================================================================
// Config Helpers
// =============================================================================

// configString extracts a string key from an arbitrary config payload.
// Supports map[string]any and map[string]string payloads.
func configString(config any, key string) string {
	switch m := config.(type) {
	case map[string]any:
		if v, ok := m[key].(string); ok {
			return v
		}
	case map[string]string:
		return m[key]
	}
	return ""
}

// configInt extracts an int key from an arbitrary config payload.
func configInt(config any, key string) int {
	if m, ok := config.(map[string]any); ok {
		switch v := m[key].(type) {
		case int:
			return v
		case float64:
			return int(v)
		}
	}
	return 0
}

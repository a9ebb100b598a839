package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/rollout/internal/core/capability"
	"github.com/artpar/rollout/internal/core/domain"
	"github.com/artpar/rollout/internal/core/phase"
)

// =============================================================================
// Test Fakes
// =============================================================================

// fakeDeployer records deployments and answers with a healthy descriptor.
type fakeDeployer struct {
	calls []string // "service@target"
	err   error
}

func (d *fakeDeployer) Deploy(_ context.Context, svc domain.ServiceSpec, target domain.TargetEnv) (*Descriptor, error) {
	d.calls = append(d.calls, svc.Name+"@"+target.Name)
	if d.err != nil {
		return nil, d.err
	}
	return &Descriptor{
		URL:      target.BaseURL + "/" + svc.Name,
		Duration: 25 * time.Millisecond,
		Status:   "deployed",
	}, nil
}

// fakeProber answers every probe with a fixed status code.
type fakeProber struct {
	code  int
	err   error
	calls []string
}

func (p *fakeProber) Probe(_ context.Context, method, url string) (int, error) {
	p.calls = append(p.calls, method+" "+url)
	if p.err != nil {
		return 0, p.err
	}
	return p.code, nil
}

type fakeProvisioner struct{ calls int }

func (p *fakeProvisioner) StageStandby(_ context.Context, provider, region string) (*StagedEnv, error) {
	p.calls++
	return &StagedEnv{Provider: provider, Region: region, InstanceID: "i-standby-1", PublicIP: "203.0.113.9"}, nil
}

type fakeMigrations struct{ pending int }

func (m *fakeMigrations) PendingMigrations(_ context.Context, _ string) (int, error) {
	return m.pending, nil
}

// =============================================================================
// Fixtures
// =============================================================================

func testSpec() domain.Spec {
	return domain.Spec{
		Services: []domain.ServiceSpec{
			{
				Name:       "api",
				Image:      "registry.example.com/api:1.4.2",
				Ports:      []domain.PortMapping{{HostPort: 8080, ContainerPort: 8080, Protocol: "tcp"}},
				Resources:  domain.Resources{CPUCores: 1, MemoryMB: 512, DiskMB: 1024},
				HealthPath: "/healthz",
				Endpoints:  []domain.Endpoint{{Path: "/v1/status", Method: "GET", ExpectedStatus: 200}},
			},
		},
		Targets: []domain.TargetEnv{
			{
				Name:     "prod-1",
				Status:   domain.TargetOnline,
				Capacity: domain.Resources{CPUCores: 8, MemoryMB: 16384, DiskMB: 102400},
				BaseURL:  "http://prod-1.example.com",
			},
		},
	}
}

func testRollout(t *testing.T, mode string) *domain.Rollout {
	t.Helper()
	r, err := domain.NewRollout("checkout", mode, testSpec())
	require.NoError(t, err)
	return r
}

func testComposer(t *testing.T, cfg ComposerConfig) *Composer {
	t.Helper()
	if cfg.Rollout == nil {
		cfg.Rollout = testRollout(t, "single")
	}
	c, err := NewComposer(cfg)
	require.NoError(t, err)
	return c
}

// =============================================================================
// Capability Set Management
// =============================================================================

func TestComposer_EnableCapability(t *testing.T) {
	c := testComposer(t, ComposerConfig{})

	require.NoError(t, c.EnableCapability(capability.HealthCheck, nil))
	assert.True(t, c.HasCapability(capability.HealthCheck))
	assert.Equal(t, []string{capability.HealthCheck}, c.EnabledCapabilities())
}

func TestComposer_EnableIsIdempotent(t *testing.T) {
	c := testComposer(t, ComposerConfig{})

	require.NoError(t, c.EnableCapability(capability.HealthCheck, nil))
	require.NoError(t, c.EnableCapability(capability.HealthCheck, nil))
	assert.Equal(t, []string{capability.HealthCheck}, c.EnabledCapabilities())
}

func TestComposer_EnableLatestConfigWins(t *testing.T) {
	c := testComposer(t, ComposerConfig{})

	require.NoError(t, c.EnableCapability(capability.EnterpriseMonitoring, map[string]any{"interval": 30}))
	require.NoError(t, c.EnableCapability(capability.EnterpriseMonitoring, map[string]any{"interval": 15}))

	report := c.CapabilityReport()
	entry := report.Capabilities[capability.EnterpriseMonitoring]
	assert.Equal(t, map[string]any{"interval": 15}, entry.Config)
}

func TestComposer_EnableUnknownCapabilityRejected(t *testing.T) {
	c := testComposer(t, ComposerConfig{})

	err := c.EnableCapability("fooBar", nil)
	require.ErrorIs(t, err, capability.ErrUnknownCapability)
	assert.Contains(t, err.Error(), "fooBar")

	// The enabled set is untouched by the rejection.
	assert.Empty(t, c.EnabledCapabilities())
}

func TestComposer_DisableCapability(t *testing.T) {
	c := testComposer(t, ComposerConfig{})

	require.NoError(t, c.EnableCapability(capability.HealthCheck, nil))
	c.DisableCapability(capability.HealthCheck)
	assert.False(t, c.HasCapability(capability.HealthCheck))

	// Disabling something absent is a no-op.
	c.DisableCapability(capability.HealthCheck)
	c.DisableCapability("neverEnabled")
	assert.Empty(t, c.EnabledCapabilities())
}

func TestComposer_EnabledCapabilitiesSorted(t *testing.T) {
	c := testComposer(t, ComposerConfig{})

	require.NoError(t, c.EnableCapability(capability.SingleDeploy, nil))
	require.NoError(t, c.EnableCapability(capability.BasicValidation, nil))
	require.NoError(t, c.EnableCapability(capability.HealthCheck, nil))

	assert.Equal(t,
		[]string{capability.BasicValidation, capability.HealthCheck, capability.SingleDeploy},
		c.EnabledCapabilities())
}

// =============================================================================
// Recommendations and Modes
// =============================================================================

func TestComposer_RecommendationsAreDeterministic(t *testing.T) {
	c := testComposer(t, ComposerConfig{})

	first := c.RecommendedCapabilities(capability.ModeEnterprise)
	second := c.RecommendedCapabilities(capability.ModeEnterprise)
	assert.Equal(t, first, second)

	// Mutating the returned slice must not leak into the preset.
	first[0] = "tampered"
	assert.NotEqual(t, first, c.RecommendedCapabilities(capability.ModeEnterprise))
}

func TestComposer_SetDeploymentModeIsAdditive(t *testing.T) {
	c := testComposer(t, ComposerConfig{})

	require.NoError(t, c.EnableCapability(capability.AuditTrail, nil))
	require.NoError(t, c.SetDeploymentMode(capability.ModeSingle, true))

	assert.True(t, c.HasCapability(capability.AuditTrail))
	for _, name := range capability.RecommendedFor(capability.ModeSingle) {
		assert.True(t, c.HasCapability(name), "recommended capability %s should be enabled", name)
	}
}

func TestComposer_SetDeploymentModeWithoutAutoConfigure(t *testing.T) {
	c := testComposer(t, ComposerConfig{})

	require.NoError(t, c.SetDeploymentMode(capability.ModePortfolio, false))
	assert.Empty(t, c.EnabledCapabilities())
}

func TestComposer_SetDeploymentModeRejectsUnknownMode(t *testing.T) {
	c := testComposer(t, ComposerConfig{})
	assert.Error(t, c.SetDeploymentMode(capability.Mode("galactic"), true))
}

// =============================================================================
// Capability Report
// =============================================================================

func TestComposer_CapabilityReport(t *testing.T) {
	c := testComposer(t, ComposerConfig{})

	require.NoError(t, c.EnableCapability(capability.BasicValidation, nil))
	require.NoError(t, c.EnableCapability(capability.SingleDeploy, nil))

	report := c.CapabilityReport()
	assert.Equal(t, capability.Builtin().Size(), report.TotalAvailable)
	assert.Equal(t, 2, report.TotalEnabled)
	assert.Len(t, report.Capabilities, report.TotalAvailable)
	assert.True(t, report.Capabilities[capability.BasicValidation].Enabled)
	assert.False(t, report.Capabilities[capability.HealthCheck].Enabled)
}

// =============================================================================
// End-to-End Pipeline
// =============================================================================

func TestComposer_SingleModeRollout(t *testing.T) {
	rollout := testRollout(t, "single")
	deployer := &fakeDeployer{}
	prober := &fakeProber{code: 200}

	c := testComposer(t, ComposerConfig{Rollout: rollout, Deployer: deployer, Prober: prober})
	require.NoError(t, c.SetDeploymentMode(capability.ModeSingle, true))

	summary, err := c.Execute(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, phase.PipelineCompleted, summary.Pipeline)
	assert.Equal(t, phase.Count, summary.Stats.Completed)
	assert.Equal(t, domain.RolloutSucceeded, rollout.Status)

	// The deployment result carries the per-service outcome.
	deployResult, ok := c.PhaseResult(phase.Deployment).(map[string]any)
	require.True(t, ok)
	single, ok := deployResult[capability.SingleDeploy].(map[string]any)
	require.True(t, ok)
	sd, ok := single["singleService"].(ServiceDeployment)
	require.True(t, ok)
	assert.Equal(t, "deployed", sd.Status)
	assert.Equal(t, "api", sd.Service)
	assert.Equal(t, "prod-1", sd.Target)

	assert.Equal(t, []string{"api@prod-1"}, deployer.calls)
	assert.Contains(t, prober.calls, "GET http://prod-1.example.com/api/healthz")
}

func TestComposer_EnterpriseModeRollout(t *testing.T) {
	rollout := testRollout(t, "enterprise")
	deployer := &fakeDeployer{}
	prober := &fakeProber{code: 200}
	provisioner := &fakeProvisioner{}
	auditor := &recordingAuditor{}

	c := testComposer(t, ComposerConfig{
		Rollout:     rollout,
		Deployer:    deployer,
		Prober:      prober,
		Provisioner: provisioner,
		Migrations:  &fakeMigrations{},
		Auditor:     auditor,
		SealingKey:  make([]byte, 32),
	})
	require.NoError(t, c.SetDeploymentMode(capability.ModeEnterprise, true))
	require.NoError(t, c.EnableCapability(capability.HAStaging,
		map[string]any{"provider": "hetzner", "region": "fsn1"}))

	summary, err := c.Execute(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, phase.Count, summary.Stats.Completed)
	assert.Equal(t, 1, provisioner.calls)

	prepResult, ok := c.PhaseResult(phase.Preparation).(map[string]any)
	require.True(t, ok)
	assert.Contains(t, prepResult, capability.SecretProvisioning)
	assert.Contains(t, prepResult, capability.HAStaging)

	monResult, ok := c.PhaseResult(phase.Monitoring).(map[string]any)
	require.True(t, ok)
	assert.Contains(t, monResult, capability.AuditTrail)
	assert.Contains(t, monResult, capability.EnterpriseMonitoring)
}

func TestComposer_CriticalAbortLeavesLaterPhasesPending(t *testing.T) {
	rollout := testRollout(t, "single")
	deployer := &fakeDeployer{err: errors.New("image pull failed")}

	c := testComposer(t, ComposerConfig{Rollout: rollout, Deployer: deployer, Prober: &fakeProber{code: 200}})
	require.NoError(t, c.SetDeploymentMode(capability.ModeSingle, true))

	summary, err := c.Execute(context.Background(), Options{})
	require.Error(t, err)
	assert.Nil(t, summary)

	assert.Equal(t, phase.StateError, c.PhaseStatus(phase.Deployment))
	assert.Equal(t, phase.StatePending, c.PhaseStatus(phase.Verification))
	assert.Equal(t, phase.StatePending, c.PhaseStatus(phase.Monitoring))
	assert.NotContains(t, c.PhaseResults(), phase.Deployment)
	assert.Equal(t, domain.RolloutFailed, rollout.Status)
}

// emptySpecRollout builds the aggregate directly: NewRollout rejects a spec
// without services, but a caller constructing the struct can still hand one
// to the pipeline.
func emptySpecRollout() *domain.Rollout {
	return &domain.Rollout{
		ID:     "rollout-empty-spec",
		Name:   "checkout",
		Mode:   "single",
		Spec:   domain.Spec{Targets: testSpec().Targets},
		Status: domain.RolloutPending,
	}
}

func TestComposer_InitializationAbortLeavesNoPhaseResults(t *testing.T) {
	rollout := emptySpecRollout()
	c := testComposer(t, ComposerConfig{Rollout: rollout, Deployer: &fakeDeployer{}, Prober: &fakeProber{code: 200}})
	require.NoError(t, c.SetDeploymentMode(capability.ModeSingle, true))

	summary, err := c.Execute(context.Background(), Options{})
	require.ErrorIs(t, err, domain.ErrNoServices)
	assert.Nil(t, summary)

	// Nothing completed, so no phase left a result behind.
	assert.Empty(t, c.PhaseResults())
	for _, p := range phase.Order()[1:] {
		assert.Equal(t, phase.StatePending, c.PhaseStatus(p), p)
	}

	partial := c.Summary()
	require.NotNil(t, partial)
	assert.Equal(t, phase.PipelineAborted, partial.Pipeline)
	assert.Equal(t, 0, partial.Stats.Completed)
}

func TestComposer_EmptySpecToleratedFailuresNeverPanic(t *testing.T) {
	rollout := emptySpecRollout()
	c := testComposer(t, ComposerConfig{Rollout: rollout, Deployer: &fakeDeployer{}, Prober: &fakeProber{code: 200}})
	require.NoError(t, c.SetDeploymentMode(capability.ModeSingle, true))

	summary, err := c.Execute(context.Background(), Options{ContinueOnError: true})
	require.NoError(t, err)
	require.NotNil(t, summary)

	// Initialization and Deployment both fail, as recorded phase errors.
	assert.Equal(t, phase.PipelineCompleted, summary.Pipeline)
	assert.Equal(t, phase.StateError, c.PhaseStatus(phase.Initialization))
	assert.Equal(t, phase.StateError, c.PhaseStatus(phase.Deployment))
	assert.NotContains(t, c.PhaseResults(), phase.Deployment)
	assert.GreaterOrEqual(t, summary.Stats.Failed, 2)
	assert.Equal(t, domain.RolloutSucceeded, rollout.Status)
}

func TestComposer_ValidationFailureDoesNotAbort(t *testing.T) {
	spec := testSpec()
	spec.Services[0].Ports[0].ContainerPort = 99999 // out of range, basic validation fails
	rollout, err := domain.NewRollout("checkout", "single", spec)
	require.NoError(t, err)

	c := testComposer(t, ComposerConfig{
		Rollout:  rollout,
		Deployer: &fakeDeployer{},
		Prober:   &fakeProber{code: 200},
	})
	require.NoError(t, c.SetDeploymentMode(capability.ModeSingle, true))

	summary, err := c.Execute(context.Background(), Options{})
	require.NoError(t, err, "validation is not a critical phase")

	assert.Equal(t, phase.PipelineCompleted, summary.Pipeline)
	assert.Equal(t, 1, summary.Stats.Failed)
	for _, p := range phase.Order() {
		assert.NotEqual(t, phase.StatePending, c.PhaseStatus(p))
	}
}

func TestComposer_EmptyPhaseCompletesWithEmptyResult(t *testing.T) {
	rollout := testRollout(t, "single")
	c := testComposer(t, ComposerConfig{Rollout: rollout, Deployer: &fakeDeployer{}})
	require.NoError(t, c.EnableCapability(capability.SingleDeploy, nil))

	summary, err := c.Execute(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, phase.Count, summary.Stats.Completed)

	verifyResult, ok := c.PhaseResult(phase.Verification).(map[string]any)
	require.True(t, ok)
	assert.Empty(t, verifyResult)
}

func TestComposer_DeploymentOrderIsDeterministic(t *testing.T) {
	run := func() []string {
		rollout := testRollout(t, "multi")
		deployer := &fakeDeployer{}
		c := testComposer(t, ComposerConfig{Rollout: rollout, Deployer: deployer})
		require.NoError(t, c.EnableCapability(capability.SingleDeploy, nil))
		require.NoError(t, c.EnableCapability(capability.MultiDeploy, nil))
		_, err := c.Execute(context.Background(), Options{})
		require.NoError(t, err)
		return deployer.calls
	}

	assert.Equal(t, run(), run(), "identical compositions must deploy in the same order")
}

func TestComposer_ComposerIsSingleUse(t *testing.T) {
	rollout := testRollout(t, "single")
	c := testComposer(t, ComposerConfig{Rollout: rollout, Deployer: &fakeDeployer{}, Prober: &fakeProber{code: 200}})
	require.NoError(t, c.SetDeploymentMode(capability.ModeSingle, true))

	_, err := c.Execute(context.Background(), Options{})
	require.NoError(t, err)

	// The rollout aggregate is terminal; a second run is rejected up front.
	_, err = c.Execute(context.Background(), Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

// =============================================================================
// Variants
// =============================================================================

func TestSingleTarget_HappyPath(t *testing.T) {
	rollout := testRollout(t, "single")
	deployer := &fakeDeployer{}
	prober := &fakeProber{code: 200}

	s, err := NewSingleTarget(SingleTargetConfig{Rollout: rollout, Deployer: deployer, Prober: prober})
	require.NoError(t, err)

	summary, err := s.Execute(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, phase.Count, summary.Stats.Completed)
	assert.Equal(t, domain.RolloutSucceeded, rollout.Status)
	assert.Equal(t, []string{"api@prod-1"}, deployer.calls)
}

func TestSingleTarget_RequiresExactlyOneService(t *testing.T) {
	spec := testSpec()
	spec.Services = append(spec.Services, domain.ServiceSpec{
		Name:      "worker",
		Image:     "registry.example.com/worker:2.0.0",
		Resources: domain.Resources{CPUCores: 1, MemoryMB: 256, DiskMB: 512},
	})
	rollout, err := domain.NewRollout("checkout", "single", spec)
	require.NoError(t, err)

	s, err := NewSingleTarget(SingleTargetConfig{Rollout: rollout, Deployer: &fakeDeployer{}})
	require.NoError(t, err)

	_, err = s.Execute(context.Background(), Options{})
	require.Error(t, err)
	assert.Equal(t, phase.StateError, s.PhaseStatus(phase.Initialization))
	assert.Equal(t, domain.RolloutFailed, rollout.Status)
}

func TestSingleTarget_EmptySpecToleratedFailuresNeverPanic(t *testing.T) {
	rollout := emptySpecRollout()
	s, err := NewSingleTarget(SingleTargetConfig{Rollout: rollout, Deployer: &fakeDeployer{}, Prober: &fakeProber{code: 200}})
	require.NoError(t, err)

	summary, err := s.Execute(context.Background(), Options{ContinueOnError: true})
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, phase.PipelineCompleted, summary.Pipeline)
	assert.Equal(t, phase.StateError, s.PhaseStatus(phase.Initialization))
	assert.Equal(t, phase.StateError, s.PhaseStatus(phase.Deployment))
	assert.Equal(t, domain.RolloutSucceeded, rollout.Status)
}

func TestSingleTarget_RequiresDeployer(t *testing.T) {
	_, err := NewSingleTarget(SingleTargetConfig{Rollout: testRollout(t, "single")})
	assert.ErrorIs(t, err, ErrNoDeployer)
}

func TestVariants_MetadataIsStatic(t *testing.T) {
	s, err := NewSingleTarget(SingleTargetConfig{Rollout: testRollout(t, "single"), Deployer: &fakeDeployer{}})
	require.NoError(t, err)
	assert.Equal(t, "single-target", s.Metadata().Type)
	assert.NotEmpty(t, s.Metadata().Description)

	c, err := NewEnterpriseOrchestrator(ComposerConfig{Rollout: testRollout(t, "enterprise")})
	require.NoError(t, err)
	meta := c.Metadata()
	assert.Equal(t, "composer", meta.Type)
	assert.Equal(t, "enterprise", meta.Mode)
	assert.ElementsMatch(t, capability.RecommendedFor(capability.ModeEnterprise), meta.Capabilities)
}

func TestNewPortfolioOrchestrator_PreSeedsCapabilities(t *testing.T) {
	c, err := NewPortfolioOrchestrator(ComposerConfig{Rollout: testRollout(t, "portfolio")})
	require.NoError(t, err)
	for _, name := range capability.RecommendedFor(capability.ModePortfolio) {
		assert.True(t, c.HasCapability(name), "portfolio preset should enable %s", name)
	}
}

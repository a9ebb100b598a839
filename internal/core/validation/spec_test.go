package validation

import (
	"testing"

	"github.com/artpar/rollout/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() domain.Spec {
	return domain.Spec{
		Services: []domain.ServiceSpec{
			{
				Name:      "api",
				Image:     "example/api:1.0",
				Ports:     []domain.PortMapping{{ContainerPort: 8080, HostPort: 0, Protocol: "tcp"}},
				Env:       map[string]string{"LOG_LEVEL": "info"},
				Resources: domain.Resources{CPUCores: 0.5, MemoryMB: 512},
			},
			{
				Name:      "worker",
				Image:     "example/worker:1.0",
				Resources: domain.Resources{CPUCores: 0.5, MemoryMB: 256},
				DependsOn: []string{"api"},
			},
		},
		Targets: []domain.TargetEnv{{Name: "prod-1", Status: domain.TargetOnline}},
	}
}

// =============================================================================
// Basic Tests
// =============================================================================

func TestBasic_CleanSpec(t *testing.T) {
	res := Basic(validSpec())

	assert.True(t, res.OK())
	assert.NoError(t, res.Err())
	assert.Equal(t, 2, res.Checked)
	assert.Equal(t, "basic", res.Depth)
}

func TestBasic_MissingImage(t *testing.T) {
	spec := validSpec()
	spec.Services[0].Image = ""

	res := Basic(spec)

	require.False(t, res.OK())
	assert.Equal(t, "image", res.Issues[0].Field)
	assert.Error(t, res.Err())
}

func TestBasic_BadServiceName(t *testing.T) {
	spec := validSpec()
	spec.Services[0].Name = "My API"

	res := Basic(spec)

	require.False(t, res.OK())
	assert.Equal(t, "name", res.Issues[0].Field)
}

func TestBasic_PortOutOfRange(t *testing.T) {
	spec := validSpec()
	spec.Services[0].Ports = []domain.PortMapping{{ContainerPort: 70000, Protocol: "tcp"}}

	res := Basic(spec)

	require.False(t, res.OK())
	assert.Contains(t, res.Issues[0].Message, "out of range")
}

// =============================================================================
// Standard Tests
// =============================================================================

func TestStandard_IncludesBasicChecks(t *testing.T) {
	spec := validSpec()
	spec.Services[0].Image = ""

	res := Standard(spec)

	assert.False(t, res.OK())
	assert.Equal(t, "standard", res.Depth)
}

func TestStandard_RejectsZeroResources(t *testing.T) {
	spec := validSpec()
	spec.Services[0].Resources = domain.Resources{}

	res := Standard(spec)

	require.False(t, res.OK())
	fields := make([]string, 0, len(res.Issues))
	for _, i := range res.Issues {
		fields = append(fields, i.Field)
	}
	assert.Contains(t, fields, "resources.cpu_cores")
	assert.Contains(t, fields, "resources.memory_mb")
}

func TestStandard_RejectsBadEnvName(t *testing.T) {
	spec := validSpec()
	spec.Services[0].Env = map[string]string{"BAD KEY": "x"}

	res := Standard(spec)

	require.False(t, res.OK())
	assert.Equal(t, "env", res.Issues[0].Field)
}

// =============================================================================
// Comprehensive Tests
// =============================================================================

func TestComprehensive_UnknownDependency(t *testing.T) {
	spec := validSpec()
	spec.Services[1].DependsOn = []string{"ghost"}

	res := Comprehensive(spec)

	require.False(t, res.OK())
	assert.Contains(t, res.Issues[0].Message, `unknown dependency "ghost"`)
}

func TestComprehensive_DetectsCycle(t *testing.T) {
	spec := validSpec()
	spec.Services[0].DependsOn = []string{"worker"}
	// worker already depends on api

	res := Comprehensive(spec)

	require.False(t, res.OK())
	assert.Contains(t, res.Issues[0].Message, "dependency cycle")
}

func TestComprehensive_CleanSpec(t *testing.T) {
	res := Comprehensive(validSpec())

	assert.True(t, res.OK())
	assert.Equal(t, "comprehensive", res.Depth)
}

// =============================================================================
// Compliance Tests
// =============================================================================

func TestCompliance_UnpinnedImage(t *testing.T) {
	res := Compliance(validSpec(), DefaultPolicy())

	require.False(t, res.OK())
	assert.Contains(t, res.Issues[0].Message, "pinned by digest")
}

func TestCompliance_PinnedImagePasses(t *testing.T) {
	spec := validSpec()
	for i := range spec.Services {
		spec.Services[i].Image += "@sha256:deadbeef"
	}

	res := Compliance(spec, DefaultPolicy())
	assert.True(t, res.OK())
}

func TestCompliance_Privileged(t *testing.T) {
	spec := validSpec()
	spec.Services[0].Privileged = true
	policy := Policy{ForbidPrivileged: true}

	res := Compliance(spec, policy)

	require.False(t, res.OK())
	assert.Equal(t, "privileged", res.Issues[0].Field)
}

func TestCompliance_ResourceCeilings(t *testing.T) {
	spec := validSpec()
	spec.Services[0].Resources = domain.Resources{CPUCores: 16, MemoryMB: 65536}
	policy := Policy{MaxCPUCores: 8, MaxMemoryMB: 32768}

	res := Compliance(spec, policy)

	assert.Len(t, res.Issues, 2)
}

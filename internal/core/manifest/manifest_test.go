package manifest

import (
	"testing"

	"github.com/artpar/rollout/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
name: Checkout Stack
mode: portfolio
services:
  - name: api
    image: example/api:1.0
    ports: ["8080:80/tcp", "9090"]
    env:
      LOG_LEVEL: info
    cpu: 0.5
    memory_mb: 512
    health_path: /healthz
    endpoints:
      - path: /v1/orders
        method: GET
        status: 200
      - path: /v1/ping
  - name: worker
    image: example/worker:1.0
    cpu: 0.25
    memory_mb: 256
    depends_on: [api]
    requires: [gpu]
targets:
  - name: prod-1
    base_url: http://prod-1.internal
    capabilities: [gpu]
    cpu: 8
    memory_mb: 32768
    disk_mb: 100000
`

// =============================================================================
// Parse Tests
// =============================================================================

func TestParse_FullManifest(t *testing.T) {
	m, spec, err := Parse([]byte(sampleManifest))

	require.NoError(t, err)
	assert.Equal(t, "Checkout Stack", m.Name)
	assert.Equal(t, "portfolio", m.Mode)

	require.Len(t, spec.Services, 2)
	api := spec.Services[0]
	assert.Equal(t, "api", api.Name)
	assert.Equal(t, []domain.PortMapping{
		{ContainerPort: 80, HostPort: 8080, Protocol: "tcp"},
		{ContainerPort: 9090, HostPort: 0, Protocol: "tcp"},
	}, api.Ports)
	assert.Equal(t, "/healthz", api.HealthPath)

	// Endpoint defaults are filled in.
	require.Len(t, api.Endpoints, 2)
	assert.Equal(t, domain.Endpoint{Path: "/v1/ping", Method: "GET", ExpectedStatus: 200}, api.Endpoints[1])

	worker := spec.Services[1]
	assert.Equal(t, []string{"api"}, worker.DependsOn)
	assert.Equal(t, []string{"gpu"}, worker.RequiredCapabilities)

	require.Len(t, spec.Targets, 1)
	assert.Equal(t, domain.TargetOnline, spec.Targets[0].Status)
	assert.Equal(t, 8.0, spec.Targets[0].Capacity.CPUCores)
}

func TestParse_Empty(t *testing.T) {
	_, _, err := Parse(nil)
	assert.ErrorIs(t, err, ErrEmptyManifest)
}

func TestParse_NoServices(t *testing.T) {
	_, _, err := Parse([]byte("name: x\ntargets:\n  - name: t1\n    cpu: 1\n    memory_mb: 512\n    disk_mb: 100"))
	assert.ErrorIs(t, err, ErrNoServices)
}

func TestParse_NoTargets(t *testing.T) {
	_, _, err := Parse([]byte("name: x\nservices:\n  - name: api\n    image: a:1"))
	assert.ErrorIs(t, err, ErrNoTargets)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, _, err := Parse([]byte("{{nope"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid manifest")
}

// =============================================================================
// Port Mapping Tests
// =============================================================================

func TestParsePortMapping(t *testing.T) {
	p, err := ParsePortMapping("8080:80/udp")
	require.NoError(t, err)
	assert.Equal(t, domain.PortMapping{ContainerPort: 80, HostPort: 8080, Protocol: "udp"}, p)

	p, err = ParsePortMapping("9090")
	require.NoError(t, err)
	assert.Equal(t, domain.PortMapping{ContainerPort: 9090, Protocol: "tcp"}, p)
}

func TestParsePortMapping_Invalid(t *testing.T) {
	cases := []string{"", "abc", "8080:80/icmp", "99999", "0:80"}
	for _, raw := range cases {
		_, err := ParsePortMapping(raw)
		assert.Error(t, err, "expected error for %q", raw)
	}
}

package placement

import (
	"testing"

	"github.com/artpar/rollout/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onlineTarget(name string, cpu float64, memMB int64) domain.TargetEnv {
	return domain.TargetEnv{
		Name:     name,
		Status:   domain.TargetOnline,
		Capacity: domain.Resources{CPUCores: cpu, MemoryMB: memMB, DiskMB: 100000},
	}
}

func smallService(name string) domain.ServiceSpec {
	return domain.ServiceSpec{
		Name:      name,
		Image:     "example/" + name + ":1.0",
		Resources: domain.Resources{CPUCores: 1, MemoryMB: 1024, DiskMB: 1000},
	}
}

// =============================================================================
// Place Tests
// =============================================================================

func TestPlace_PicksLeastLoadedTarget(t *testing.T) {
	big := onlineTarget("big", 16, 65536)
	small := onlineTarget("small", 2, 2048)

	res, err := Place(Request{Service: smallService("api"), Targets: []domain.TargetEnv{small, big}})

	require.NoError(t, err)
	assert.Equal(t, "big", res.Target.Name)
	assert.Equal(t, 2, res.ConsideredCount)
	assert.Greater(t, res.Score, 0.0)
}

func TestPlace_NoTargets(t *testing.T) {
	_, err := Place(Request{Service: smallService("api")})

	assert.ErrorIs(t, err, ErrNoTargetsAvailable)
}

func TestPlace_SkipsOfflineTargets(t *testing.T) {
	offline := onlineTarget("down", 16, 65536)
	offline.Status = domain.TargetOffline

	res, err := Place(Request{Service: smallService("api"), Targets: []domain.TargetEnv{offline}})

	assert.ErrorIs(t, err, ErrNoTargetsAvailable)
	assert.Equal(t, 1, res.FilteredOutReasons["not_online"])
}

func TestPlace_RequiredCapabilities(t *testing.T) {
	plain := onlineTarget("plain", 16, 65536)
	gpu := onlineTarget("gpu-1", 8, 32768)
	gpu.Capabilities = []string{"gpu"}

	svc := smallService("trainer")
	svc.RequiredCapabilities = []string{"gpu"}

	res, err := Place(Request{Service: svc, Targets: []domain.TargetEnv{plain, gpu}})

	require.NoError(t, err)
	assert.Equal(t, "gpu-1", res.Target.Name)
}

func TestPlace_NoCapableTargets(t *testing.T) {
	plain := onlineTarget("plain", 16, 65536)
	svc := smallService("trainer")
	svc.RequiredCapabilities = []string{"gpu"}

	_, err := Place(Request{Service: svc, Targets: []domain.TargetEnv{plain}})

	assert.ErrorIs(t, err, ErrNoCapableTargets)
}

func TestPlace_InsufficientCapacity(t *testing.T) {
	tiny := onlineTarget("tiny", 0.5, 256)

	_, err := Place(Request{Service: smallService("api"), Targets: []domain.TargetEnv{tiny}})

	assert.ErrorIs(t, err, ErrInsufficientCapacity)
}

func TestPlace_DeterministicTieBreak(t *testing.T) {
	a := onlineTarget("alpha", 8, 32768)
	b := onlineTarget("beta", 8, 32768)

	for i := 0; i < 5; i++ {
		res, err := Place(Request{Service: smallService("api"), Targets: []domain.TargetEnv{b, a}})
		require.NoError(t, err)
		assert.Equal(t, "alpha", res.Target.Name)
	}
}

// =============================================================================
// PlaceAll Tests
// =============================================================================

func TestPlaceAll_AccountsForEarlierPlacements(t *testing.T) {
	// Both services fit on "big" individually, but the second should spill
	// over once the first consumes big's headroom advantage.
	big := onlineTarget("big", 3, 4096)
	other := onlineTarget("other", 3, 4096)

	svcA := smallService("a")
	svcA.Resources = domain.Resources{CPUCores: 2, MemoryMB: 2048, DiskMB: 1000}
	svcB := smallService("b")
	svcB.Resources = domain.Resources{CPUCores: 2, MemoryMB: 2048, DiskMB: 1000}

	placements, err := PlaceAll([]domain.ServiceSpec{svcA, svcB}, []domain.TargetEnv{big, other})

	require.NoError(t, err)
	require.Len(t, placements, 2)
	assert.NotEqual(t, placements["a"].Name, placements["b"].Name)
}

func TestPlaceAll_FailsWhenAnyServiceCannotBePlaced(t *testing.T) {
	target := onlineTarget("only", 1.5, 2048)
	svcA := smallService("a")
	svcB := smallService("b") // no headroom left after a

	_, err := PlaceAll([]domain.ServiceSpec{svcA, svcB}, []domain.TargetEnv{target})

	assert.ErrorIs(t, err, ErrInsufficientCapacity)
}

// =============================================================================
// Score Tests
// =============================================================================

func TestScore_EmptyTargetScoresHigh(t *testing.T) {
	target := onlineTarget("fresh", 10, 10240)
	score := Score(target, domain.Resources{CPUCores: 1, MemoryMB: 1024, DiskMB: 1000})

	assert.Greater(t, score, 80.0)
}

func TestScore_NeverNegative(t *testing.T) {
	target := onlineTarget("full", 1, 1024)
	target.Used = target.Capacity

	score := Score(target, domain.Resources{CPUCores: 1, MemoryMB: 1024})
	assert.Equal(t, 0.0, score)
}

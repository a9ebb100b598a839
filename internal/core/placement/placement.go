// Package placement provides the pure placement algorithm that picks a
// target environment for each service. This is part of the Functional Core -
// all functions are pure with no I/O.
package placement

import (
	"errors"
	"sort"

	"github.com/artpar/rollout/internal/core/domain"
)

// =============================================================================
// Placement Errors
// =============================================================================

var (
	// ErrNoTargetsAvailable is returned when no targets are online.
	ErrNoTargetsAvailable = errors.New("no target environments available")

	// ErrNoCapableTargets is returned when no targets have the required capabilities.
	ErrNoCapableTargets = errors.New("no target environments have the required capabilities")

	// ErrInsufficientCapacity is returned when no targets have enough headroom.
	ErrInsufficientCapacity = errors.New("no target environments have sufficient capacity")
)

// =============================================================================
// Placement Request / Result
// =============================================================================

// Request contains all information needed to place one service.
type Request struct {
	// Service is the service being placed.
	Service domain.ServiceSpec

	// Targets is the list of candidate environments.
	Targets []domain.TargetEnv
}

// Result contains the outcome of the placement algorithm.
type Result struct {
	// Target is the selected environment.
	Target domain.TargetEnv

	// Score is the score of the selected target (0-100).
	Score float64

	// ConsideredCount is the number of targets that were considered.
	ConsideredCount int

	// FilteredOutReasons tracks why targets were filtered out.
	FilteredOutReasons map[string]int
}

// candidate is a target with its computed score.
type candidate struct {
	target domain.TargetEnv
	score  float64
}

// =============================================================================
// Placement Algorithm
// =============================================================================

// Place selects the best target environment for a service.
//
// Algorithm:
//  1. Filter targets to only online environments
//  2. Filter targets that have ALL capabilities the service requires
//  3. Filter targets with sufficient headroom for the requested resources
//  4. Score remaining targets by post-placement headroom (higher is better)
//  5. Return the highest-scoring target; ties break by name for determinism
func Place(req Request) (*Result, error) {
	result := &Result{
		FilteredOutReasons: make(map[string]int),
	}

	if len(req.Targets) == 0 {
		return result, ErrNoTargetsAvailable
	}

	var candidates []candidate

	for _, target := range req.Targets {
		result.ConsideredCount++

		if !target.Status.IsAvailable() {
			result.FilteredOutReasons["not_online"]++
			continue
		}

		if !hasAllCapabilities(target, req.Service.RequiredCapabilities) {
			result.FilteredOutReasons["missing_capabilities"]++
			continue
		}

		if !req.Service.Resources.Fits(target.Headroom()) {
			result.FilteredOutReasons["insufficient_capacity"]++
			continue
		}

		candidates = append(candidates, candidate{
			target: target,
			score:  Score(target, req.Service.Resources),
		})
	}

	if len(candidates) == 0 {
		if result.FilteredOutReasons["missing_capabilities"] > 0 {
			return result, ErrNoCapableTargets
		}
		if result.FilteredOutReasons["insufficient_capacity"] > 0 {
			return result, ErrInsufficientCapacity
		}
		return result, ErrNoTargetsAvailable
	}

	// Highest score first; ties break by name so placement is deterministic.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].target.Name < candidates[j].target.Name
	})

	best := candidates[0]
	result.Target = best.target
	result.Score = best.score
	return result, nil
}

// PlaceAll places every service in declaration order, accounting for the
// capacity consumed by earlier placements. Returns service name → target.
func PlaceAll(services []domain.ServiceSpec, targets []domain.TargetEnv) (map[string]domain.TargetEnv, error) {
	// Work on a copy so the caller's targets are untouched.
	pool := make([]domain.TargetEnv, len(targets))
	copy(pool, targets)

	placements := make(map[string]domain.TargetEnv, len(services))
	for _, svc := range services {
		res, err := Place(Request{Service: svc, Targets: pool})
		if err != nil {
			return nil, err
		}
		placements[svc.Name] = res.Target

		// Reserve the capacity on the chosen target.
		for i := range pool {
			if pool[i].Name == res.Target.Name {
				pool[i].Used.CPUCores += svc.Resources.CPUCores
				pool[i].Used.MemoryMB += svc.Resources.MemoryMB
				pool[i].Used.DiskMB += svc.Resources.DiskMB
			}
		}
	}
	return placements, nil
}

func hasAllCapabilities(target domain.TargetEnv, required []string) bool {
	for _, cap := range required {
		if !target.HasCapability(cap) {
			return false
		}
	}
	return true
}

// =============================================================================
// Scoring Algorithm
// =============================================================================

// Score calculates a score for a target based on the headroom remaining
// after placing the requested resources. Higher is better; range 0-100.
//
// Formula (weighted average of remaining capacity percentages):
//   - CPU: 30% weight
//   - Memory: 40% weight (most important for containers)
//   - Disk: 30% weight
func Score(target domain.TargetEnv, required domain.Resources) float64 {
	head := target.Headroom()

	remainingCPU := head.CPUCores - required.CPUCores
	remainingMemory := head.MemoryMB - required.MemoryMB
	remainingDisk := head.DiskMB - required.DiskMB

	cpuPercent := 0.0
	memoryPercent := 0.0
	diskPercent := 0.0

	if target.Capacity.CPUCores > 0 {
		cpuPercent = remainingCPU / target.Capacity.CPUCores * 100
	}
	if target.Capacity.MemoryMB > 0 {
		memoryPercent = float64(remainingMemory) / float64(target.Capacity.MemoryMB) * 100
	}
	if target.Capacity.DiskMB > 0 {
		diskPercent = float64(remainingDisk) / float64(target.Capacity.DiskMB) * 100
	}

	score := cpuPercent*0.3 + memoryPercent*0.4 + diskPercent*0.3
	if score < 0 {
		return 0
	}
	return score
}

package validation

import (
	"fmt"
	"strings"

	"github.com/artpar/rollout/internal/core/domain"
)

// =============================================================================
// Compliance Policy
// =============================================================================

// Policy holds the tunable compliance rules. Zero values disable the
// corresponding ceiling.
type Policy struct {
	// RequirePinnedImages rejects images referenced by mutable tags.
	RequirePinnedImages bool

	// ForbidPrivileged rejects services requesting privileged mode.
	ForbidPrivileged bool

	// MaxCPUCores / MaxMemoryMB cap a single service's request.
	MaxCPUCores float64
	MaxMemoryMB int64
}

// DefaultPolicy is the rule set used when the complianceCheck capability is
// enabled without an explicit policy.
func DefaultPolicy() Policy {
	return Policy{
		RequirePinnedImages: true,
		ForbidPrivileged:    true,
		MaxCPUCores:         8,
		MaxMemoryMB:         32768,
	}
}

// =============================================================================
// Compliance Validation
// =============================================================================

// Compliance checks a spec against a policy.
func Compliance(spec domain.Spec, policy Policy) Result {
	res := Result{Depth: "compliance", Checked: len(spec.Services)}

	for _, svc := range spec.Services {
		if policy.RequirePinnedImages && !imagePinned(svc.Image) {
			res.Issues = append(res.Issues, Issue{
				Service: svc.Name, Field: "image",
				Message: "image must be pinned by digest",
			})
		}
		if policy.ForbidPrivileged && svc.Privileged {
			res.Issues = append(res.Issues, Issue{
				Service: svc.Name, Field: "privileged",
				Message: "privileged mode is not permitted",
			})
		}
		if policy.MaxCPUCores > 0 && svc.Resources.CPUCores > policy.MaxCPUCores {
			res.Issues = append(res.Issues, Issue{
				Service: svc.Name, Field: "resources.cpu_cores",
				Message: fmt.Sprintf("cpu request %.1f exceeds ceiling %.1f",
					svc.Resources.CPUCores, policy.MaxCPUCores),
			})
		}
		if policy.MaxMemoryMB > 0 && svc.Resources.MemoryMB > policy.MaxMemoryMB {
			res.Issues = append(res.Issues, Issue{
				Service: svc.Name, Field: "resources.memory_mb",
				Message: fmt.Sprintf("memory request %d exceeds ceiling %d",
					svc.Resources.MemoryMB, policy.MaxMemoryMB),
			})
		}
	}

	return res
}

// imagePinned reports whether an image reference includes a digest.
func imagePinned(image string) bool {
	return strings.Contains(image, "@sha256:")
}

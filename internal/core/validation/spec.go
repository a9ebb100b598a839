package validation

import (
	"fmt"
	"strings"

	"github.com/artpar/rollout/internal/core/domain"
)

// =============================================================================
// Results
// =============================================================================

// Issue is one finding produced by a validation pass.
type Issue struct {
	Service string `json:"service,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of a validation pass over a spec.
type Result struct {
	Depth   string  `json:"depth"`
	Checked int     `json:"checked"`
	Issues  []Issue `json:"issues,omitempty"`
}

// OK reports whether the pass found no issues.
func (r Result) OK() bool {
	return len(r.Issues) == 0
}

// Err converts a failed result into an error, nil when clean.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	first := r.Issues[0]
	return fmt.Errorf("%s validation failed: %d issue(s), first: %s: %s",
		r.Depth, len(r.Issues), first.Field, first.Message)
}

// =============================================================================
// Basic Validation
// =============================================================================

// Basic performs structural checks: every service has a usable name, image,
// and port mappings in range.
func Basic(spec domain.Spec) Result {
	res := Result{Depth: "basic", Checked: len(spec.Services)}

	for _, svc := range spec.Services {
		if svc.Name == "" {
			res.Issues = append(res.Issues, Issue{Field: "name", Message: "service name is required"})
			continue
		}
		if svc.Name != domain.Slugify(svc.Name) {
			res.Issues = append(res.Issues, Issue{
				Service: svc.Name,
				Field:   "name",
				Message: "service name must be a lowercase slug",
			})
		}
		if svc.Image == "" {
			res.Issues = append(res.Issues, Issue{Service: svc.Name, Field: "image", Message: "image is required"})
		}
		for _, p := range svc.Ports {
			if p.ContainerPort < 1 || p.ContainerPort > 65535 {
				res.Issues = append(res.Issues, Issue{
					Service: svc.Name,
					Field:   "ports",
					Message: fmt.Sprintf("container port %d out of range", p.ContainerPort),
				})
			}
			if p.Protocol != "" && p.Protocol != "tcp" && p.Protocol != "udp" {
				res.Issues = append(res.Issues, Issue{
					Service: svc.Name,
					Field:   "ports",
					Message: fmt.Sprintf("unsupported protocol %q", p.Protocol),
				})
			}
		}
	}

	return res
}

// =============================================================================
// Standard Validation
// =============================================================================

// Standard runs the basic checks plus resource limits and environment
// variable hygiene.
func Standard(spec domain.Spec) Result {
	res := Basic(spec)
	res.Depth = "standard"

	for _, svc := range spec.Services {
		if svc.Resources.CPUCores <= 0 {
			res.Issues = append(res.Issues, Issue{
				Service: svc.Name, Field: "resources.cpu_cores",
				Message: "cpu request must be positive",
			})
		}
		if svc.Resources.MemoryMB <= 0 {
			res.Issues = append(res.Issues, Issue{
				Service: svc.Name, Field: "resources.memory_mb",
				Message: "memory request must be positive",
			})
		}
		for key := range svc.Env {
			if key == "" {
				res.Issues = append(res.Issues, Issue{
					Service: svc.Name, Field: "env",
					Message: "empty environment variable name",
				})
				continue
			}
			if strings.ContainsAny(key, " =") {
				res.Issues = append(res.Issues, Issue{
					Service: svc.Name, Field: "env",
					Message: fmt.Sprintf("invalid environment variable name %q", key),
				})
			}
		}
	}

	return res
}

// =============================================================================
// Comprehensive Validation
// =============================================================================

// Comprehensive runs the standard checks plus cross-service dependency
// validation: every depends_on entry must name a declared service and the
// dependency graph must be acyclic.
func Comprehensive(spec domain.Spec) Result {
	res := Standard(spec)
	res.Depth = "comprehensive"

	known := make(map[string]bool, len(spec.Services))
	for _, svc := range spec.Services {
		known[svc.Name] = true
	}

	for _, svc := range spec.Services {
		for _, dep := range svc.DependsOn {
			if !known[dep] {
				res.Issues = append(res.Issues, Issue{
					Service: svc.Name, Field: "depends_on",
					Message: fmt.Sprintf("unknown dependency %q", dep),
				})
			}
			if dep == svc.Name {
				res.Issues = append(res.Issues, Issue{
					Service: svc.Name, Field: "depends_on",
					Message: "service depends on itself",
				})
			}
		}
	}

	if cycle := findCycle(spec.Services); cycle != "" {
		res.Issues = append(res.Issues, Issue{
			Field:   "depends_on",
			Message: "dependency cycle involving " + cycle,
		})
	}

	return res
}

// findCycle returns the name of a service on a dependency cycle, or empty.
// DFS with a three-color marking.
func findCycle(services []domain.ServiceSpec) string {
	deps := make(map[string][]string, len(services))
	for _, svc := range services {
		deps[svc.Name] = svc.DependsOn
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(services))

	var visit func(name string) string
	visit = func(name string) string {
		color[name] = gray
		for _, dep := range deps[name] {
			if _, known := deps[dep]; !known {
				continue // unknown deps reported separately
			}
			switch color[dep] {
			case gray:
				return dep
			case white:
				if found := visit(dep); found != "" {
					return found
				}
			}
		}
		color[name] = black
		return ""
	}

	for _, svc := range services {
		if color[svc.Name] == white {
			if found := visit(svc.Name); found != "" {
				return found
			}
		}
	}
	return ""
}

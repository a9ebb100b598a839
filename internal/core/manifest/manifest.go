// Package manifest parses rollout manifests. A manifest is the YAML document
// operators write to describe what to deploy and where; parsing converts it
// into the domain spec the pipeline consumes.
package manifest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/artpar/rollout/internal/core/domain"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrEmptyManifest = errors.New("manifest is empty")
	ErrNoServices    = errors.New("manifest declares no services")
	ErrNoTargets     = errors.New("manifest declares no targets")
)

// =============================================================================
// Manifest Types
// =============================================================================

// Manifest is the on-disk YAML shape of a rollout.
type Manifest struct {
	Name     string            `yaml:"name"`
	Mode     string            `yaml:"mode"`
	Services []ServiceManifest `yaml:"services"`
	Targets  []TargetManifest  `yaml:"targets"`
}

// ServiceManifest declares one deployable service.
type ServiceManifest struct {
	Name       string             `yaml:"name"`
	Image      string             `yaml:"image"`
	Ports      []string           `yaml:"ports,omitempty"` // "8080:80/tcp"
	Env        map[string]string  `yaml:"env,omitempty"`
	CPU        float64            `yaml:"cpu,omitempty"`
	MemoryMB   int64              `yaml:"memory_mb,omitempty"`
	DiskMB     int64              `yaml:"disk_mb,omitempty"`
	HealthPath string             `yaml:"health_path,omitempty"`
	Endpoints  []EndpointManifest `yaml:"endpoints,omitempty"`
	Privileged bool               `yaml:"privileged,omitempty"`
	DependsOn  []string           `yaml:"depends_on,omitempty"`
	Requires   []string           `yaml:"requires,omitempty"` // target capabilities
}

// EndpointManifest declares one verifiable endpoint.
type EndpointManifest struct {
	Path   string `yaml:"path"`
	Method string `yaml:"method,omitempty"`
	Status int    `yaml:"status,omitempty"`
}

// TargetManifest declares one candidate target environment.
type TargetManifest struct {
	Name         string   `yaml:"name"`
	BaseURL      string   `yaml:"base_url,omitempty"`
	Capabilities []string `yaml:"capabilities,omitempty"`
	CPU          float64  `yaml:"cpu"`
	MemoryMB     int64    `yaml:"memory_mb"`
	DiskMB       int64    `yaml:"disk_mb"`
}

// =============================================================================
// Parsing
// =============================================================================

// Parse decodes a YAML manifest and converts it to a domain spec.
func Parse(data []byte) (*Manifest, domain.Spec, error) {
	if len(data) == 0 {
		return nil, domain.Spec{}, ErrEmptyManifest
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, domain.Spec{}, fmt.Errorf("invalid manifest: %w", err)
	}

	if len(m.Services) == 0 {
		return nil, domain.Spec{}, ErrNoServices
	}
	if len(m.Targets) == 0 {
		return nil, domain.Spec{}, ErrNoTargets
	}

	spec, err := m.ToSpec()
	if err != nil {
		return nil, domain.Spec{}, err
	}
	return &m, spec, nil
}

// ToSpec converts the manifest into the domain spec.
func (m *Manifest) ToSpec() (domain.Spec, error) {
	spec := domain.Spec{
		Services: make([]domain.ServiceSpec, 0, len(m.Services)),
		Targets:  make([]domain.TargetEnv, 0, len(m.Targets)),
	}

	for _, sm := range m.Services {
		ports := make([]domain.PortMapping, 0, len(sm.Ports))
		for _, raw := range sm.Ports {
			p, err := ParsePortMapping(raw)
			if err != nil {
				return domain.Spec{}, fmt.Errorf("service %s: %w", sm.Name, err)
			}
			ports = append(ports, p)
		}

		endpoints := make([]domain.Endpoint, 0, len(sm.Endpoints))
		for _, em := range sm.Endpoints {
			method := em.Method
			if method == "" {
				method = "GET"
			}
			status := em.Status
			if status == 0 {
				status = 200
			}
			endpoints = append(endpoints, domain.Endpoint{
				Path:           em.Path,
				Method:         method,
				ExpectedStatus: status,
			})
		}

		spec.Services = append(spec.Services, domain.ServiceSpec{
			Name:                 sm.Name,
			Image:                sm.Image,
			Ports:                ports,
			Env:                  sm.Env,
			Resources:            domain.Resources{CPUCores: sm.CPU, MemoryMB: sm.MemoryMB, DiskMB: sm.DiskMB},
			HealthPath:           sm.HealthPath,
			Endpoints:            endpoints,
			Privileged:           sm.Privileged,
			DependsOn:            sm.DependsOn,
			RequiredCapabilities: sm.Requires,
		})
	}

	for _, tm := range m.Targets {
		spec.Targets = append(spec.Targets, domain.TargetEnv{
			Name:         tm.Name,
			Status:       domain.TargetOnline,
			Capabilities: tm.Capabilities,
			Capacity:     domain.Resources{CPUCores: tm.CPU, MemoryMB: tm.MemoryMB, DiskMB: tm.DiskMB},
			BaseURL:      tm.BaseURL,
		})
	}

	return spec, nil
}

// ParsePortMapping parses "host:container/proto" port declarations.
// The protocol defaults to tcp; "8080" alone maps container port 8080 with
// no fixed host port.
func ParsePortMapping(raw string) (domain.PortMapping, error) {
	proto := "tcp"
	rest := raw

	if before, after, found := strings.Cut(rest, "/"); found {
		rest, proto = before, after
		if proto != "tcp" && proto != "udp" {
			return domain.PortMapping{}, fmt.Errorf("invalid port protocol %q", proto)
		}
	}

	host, container := 0, 0
	if before, after, found := strings.Cut(rest, ":"); found {
		h, err := parsePort(before)
		if err != nil {
			return domain.PortMapping{}, err
		}
		c, err := parsePort(after)
		if err != nil {
			return domain.PortMapping{}, err
		}
		host, container = h, c
	} else {
		c, err := parsePort(rest)
		if err != nil {
			return domain.PortMapping{}, err
		}
		container = c
	}

	return domain.PortMapping{ContainerPort: container, HostPort: host, Protocol: proto}, nil
}

func parsePort(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if n < 1 || n > 65535 {
		return 0, fmt.Errorf("port %d out of range", n)
	}
	return n, nil
}

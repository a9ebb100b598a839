package domain

// =============================================================================
// Rollout Spec
// =============================================================================

// Spec describes what a rollout deploys and where.
type Spec struct {
	// Services are the artifacts to deploy, in declaration order.
	Services []ServiceSpec `json:"services"`

	// Targets are the candidate environments services may be placed on.
	Targets []TargetEnv `json:"targets"`
}

// PortMapping represents a container-to-host port mapping.
type PortMapping struct {
	ContainerPort int    `json:"container_port"`
	HostPort      int    `json:"host_port"`
	Protocol      string `json:"protocol"` // tcp, udp
}

// ServiceSpec describes one deployable service.
type ServiceSpec struct {
	Name       string            `json:"name"`
	Image      string            `json:"image"`
	Ports      []PortMapping     `json:"ports,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
	Resources  Resources         `json:"resources"`
	HealthPath string            `json:"health_path,omitempty"`
	Endpoints  []Endpoint        `json:"endpoints,omitempty"`
	Privileged bool              `json:"privileged,omitempty"`

	// DependsOn lists service names that must be deployed first.
	DependsOn []string `json:"depends_on,omitempty"`

	// RequiredCapabilities are target capabilities the service needs (e.g. ["gpu"]).
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
}

// Endpoint is a verifiable HTTP endpoint exposed by a deployed service.
type Endpoint struct {
	Path           string `json:"path"`
	Method         string `json:"method"`
	ExpectedStatus int    `json:"expected_status"`
}

// Resources represents resource requirements or capacity.
type Resources struct {
	CPUCores float64 `json:"cpu_cores"`
	MemoryMB int64   `json:"memory_mb"`
	DiskMB   int64   `json:"disk_mb"`
}

// Fits reports whether r fits within the available headroom.
func (r Resources) Fits(available Resources) bool {
	return r.CPUCores <= available.CPUCores &&
		r.MemoryMB <= available.MemoryMB &&
		r.DiskMB <= available.DiskMB
}

// =============================================================================
// Target Environments
// =============================================================================

// TargetStatus is the availability of a target environment.
type TargetStatus string

const (
	TargetOnline      TargetStatus = "online"
	TargetOffline     TargetStatus = "offline"
	TargetMaintenance TargetStatus = "maintenance"
)

// IsAvailable returns true if the target can accept deployments.
func (s TargetStatus) IsAvailable() bool {
	return s == TargetOnline
}

// TargetEnv is a deployable environment (a host, cluster, or region slot).
type TargetEnv struct {
	Name         string       `json:"name"`
	Status       TargetStatus `json:"status"`
	Capabilities []string     `json:"capabilities,omitempty"`
	Capacity     Resources    `json:"capacity"`
	Used         Resources    `json:"used"`

	// BaseURL is where deployed services on this target are reachable.
	BaseURL string `json:"base_url,omitempty"`
}

// Headroom returns the remaining capacity on the target.
func (t TargetEnv) Headroom() Resources {
	return Resources{
		CPUCores: t.Capacity.CPUCores - t.Used.CPUCores,
		MemoryMB: t.Capacity.MemoryMB - t.Used.MemoryMB,
		DiskMB:   t.Capacity.DiskMB - t.Used.DiskMB,
	}
}

// HasCapability reports whether the target offers a named capability.
func (t TargetEnv) HasCapability(name string) bool {
	for _, c := range t.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

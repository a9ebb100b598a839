package deploy

import (
	"context"
	"time"
)

// =============================================================================
// Container Types
// =============================================================================

// ContainerSpec defines the container to create for one deployed service.
type ContainerSpec struct {
	Name   string
	Image  string
	Env    map[string]string
	Labels map[string]string
	Ports  []PortBinding

	// CPULimit is in cores, MemoryLimit in bytes. Zero means unlimited.
	CPULimit    float64
	MemoryLimit int64

	RestartPolicy string // "no", "always", "on-failure", "unless-stopped"
}

// PortBinding defines one port mapping.
type PortBinding struct {
	ContainerPort int
	HostPort      int    // 0 for auto-assign
	Protocol      string // "tcp" or "udp"
}

// ContainerStatus represents the container status.
type ContainerStatus string

const (
	ContainerStatusCreated ContainerStatus = "created"
	ContainerStatusRunning ContainerStatus = "running"
	ContainerStatusExited  ContainerStatus = "exited"
	ContainerStatusDead    ContainerStatus = "dead"
)

// ContainerInfo describes a created container.
type ContainerInfo struct {
	ID        string
	Name      string
	Image     string
	Status    ContainerStatus
	StartedAt *time.Time
	Ports     []PortBinding
	Labels    map[string]string
}

// RemoveOptions controls container removal.
type RemoveOptions struct {
	Force         bool
	RemoveVolumes bool
}

// =============================================================================
// Client Interface
// =============================================================================

// Client is the container runtime surface the deployer needs.
type Client interface {
	PullImage(ctx context.Context, image string) error
	ImageExists(ctx context.Context, image string) (bool, error)

	CreateContainer(ctx context.Context, spec ContainerSpec) (containerID string, err error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error
	RemoveContainer(ctx context.Context, containerID string, opts RemoveOptions) error
	InspectContainer(ctx context.Context, containerID string) (*ContainerInfo, error)

	Ping(ctx context.Context) error
	Close() error
}

// =============================================================================
// Label Constants
// =============================================================================

const (
	LabelManaged = "com.rollout.managed"
	LabelRollout = "com.rollout.deployment"
	LabelService = "com.rollout.service"
	LabelTarget  = "com.rollout.target"
)

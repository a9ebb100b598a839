package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/artpar/rollout/internal/core/domain"
	"github.com/artpar/rollout/internal/orchestrator"
)

// =============================================================================
// Docker Deployer
// =============================================================================

// DockerDeployer deploys services as Docker containers on a target
// environment. It implements the orchestrator's Deployer contract.
type DockerDeployer struct {
	client    Client
	rolloutID string
	logger    *slog.Logger
}

// NewDockerDeployer creates a deployer bound to one rollout attempt.
func NewDockerDeployer(client Client, rolloutID string, logger *slog.Logger) *DockerDeployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &DockerDeployer{
		client:    client,
		rolloutID: rolloutID,
		logger:    logger,
	}
}

// Deploy pulls the service image if needed, creates the container with port
// bindings and resource limits, starts it and reports where it is reachable.
func (d *DockerDeployer) Deploy(ctx context.Context, svc domain.ServiceSpec, target domain.TargetEnv) (*orchestrator.Descriptor, error) {
	started := time.Now()

	d.logger.Info("deploying service",
		"rollout_id", d.rolloutID,
		"service", svc.Name,
		"target", target.Name,
		"image", svc.Image,
	)

	if err := d.ensureImage(ctx, svc.Image); err != nil {
		return nil, err
	}

	containerID, err := d.createContainer(ctx, svc, target)
	if err != nil {
		return nil, err
	}

	if err := d.client.StartContainer(ctx, containerID); err != nil {
		// Leave no half-started container behind.
		if rmErr := d.client.RemoveContainer(ctx, containerID, RemoveOptions{Force: true}); rmErr != nil {
			d.logger.Warn("cleanup after failed start",
				"container_id", containerID,
				"error", rmErr,
			)
		}
		return nil, err
	}

	info, err := d.client.InspectContainer(ctx, containerID)
	if err != nil {
		return nil, err
	}

	status := "deployed"
	if info.Status != ContainerStatusRunning {
		status = string(info.Status)
	}

	return &orchestrator.Descriptor{
		URL:      serviceURL(svc, target),
		Duration: time.Since(started),
		Status:   status,
	}, nil
}

// ensureImage pulls the image unless it is already present locally.
func (d *DockerDeployer) ensureImage(ctx context.Context, image string) error {
	exists, err := d.client.ImageExists(ctx, image)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return d.client.PullImage(ctx, image)
}

// createContainer creates the service container, replacing a naming leftover
// from an earlier attempt if one exists.
func (d *DockerDeployer) createContainer(ctx context.Context, svc domain.ServiceSpec, target domain.TargetEnv) (string, error) {
	spec := containerSpec(d.rolloutID, svc, target)

	containerID, err := d.client.CreateContainer(ctx, spec)
	if errors.Is(err, ErrContainerAlreadyExists) {
		d.logger.Warn("replacing existing container", "name", spec.Name)
		if rmErr := d.client.RemoveContainer(ctx, spec.Name, RemoveOptions{Force: true}); rmErr != nil {
			return "", rmErr
		}
		containerID, err = d.client.CreateContainer(ctx, spec)
	}
	if err != nil {
		return "", err
	}
	return containerID, nil
}

// containerSpec converts a service declaration into a container spec.
func containerSpec(rolloutID string, svc domain.ServiceSpec, target domain.TargetEnv) ContainerSpec {
	ports := make([]PortBinding, 0, len(svc.Ports))
	for _, p := range svc.Ports {
		ports = append(ports, PortBinding{
			ContainerPort: p.ContainerPort,
			HostPort:      p.HostPort,
			Protocol:      p.Protocol,
		})
	}

	return ContainerSpec{
		Name:   fmt.Sprintf("rollout-%s-%s", svc.Name, target.Name),
		Image:  svc.Image,
		Env:    svc.Env,
		Ports:  ports,
		Labels: map[string]string{
			LabelManaged: "true",
			LabelRollout: rolloutID,
			LabelService: svc.Name,
			LabelTarget:  target.Name,
		},
		CPULimit:      svc.Resources.CPUCores,
		MemoryLimit:   svc.Resources.MemoryMB * 1024 * 1024,
		RestartPolicy: "unless-stopped",
	}
}

// serviceURL derives where the deployed service is reachable.
func serviceURL(svc domain.ServiceSpec, target domain.TargetEnv) string {
	if target.BaseURL != "" {
		return target.BaseURL + "/" + svc.Name
	}
	if len(svc.Ports) > 0 && svc.Ports[0].HostPort != 0 {
		return fmt.Sprintf("http://localhost:%d", svc.Ports[0].HostPort)
	}
	return "http://localhost"
}

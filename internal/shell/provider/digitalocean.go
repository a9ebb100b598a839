package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/digitalocean/godo"
)

// DigitalOceanProvider implements Provider for DigitalOcean.
type DigitalOceanProvider struct {
	client *godo.Client
	logger *slog.Logger
}

// NewDigitalOceanProvider creates a new DigitalOcean provider.
func NewDigitalOceanProvider(apiToken string, logger *slog.Logger) *DigitalOceanProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &DigitalOceanProvider{
		client: godo.NewFromToken(apiToken),
		logger: logger.With("provider", "digitalocean"),
	}
}

// CreateInstance provisions a DigitalOcean Droplet from the Docker
// marketplace image.
func (p *DigitalOceanProvider) CreateInstance(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	droplet, _, err := p.client.Droplets.Create(ctx, &godo.DropletCreateRequest{
		Name:   req.InstanceName,
		Region: req.Region,
		Size:   req.Size,
		Image: godo.DropletCreateImage{
			Slug: "docker-20-04",
		},
		Tags: []string{"rollout", "standby"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create droplet: %w", err)
	}

	p.logger.Info("droplet created", "droplet_id", droplet.ID, "region", req.Region)

	publicIP, err := p.waitForPublicIP(ctx, droplet.ID)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for public IP: %w", err)
	}

	return &ProvisionResult{
		ProviderInstanceID: fmt.Sprintf("%d", droplet.ID),
		PublicIP:           publicIP,
	}, nil
}

func (p *DigitalOceanProvider) waitForPublicIP(ctx context.Context, dropletID int) (string, error) {
	for i := 0; i < 60; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
		}

		droplet, _, err := p.client.Droplets.Get(ctx, dropletID)
		if err != nil {
			continue
		}

		if droplet.Status == "active" {
			ip, err := droplet.PublicIPv4()
			if err == nil && ip != "" {
				return ip, nil
			}
		}
	}
	return "", errors.New("timed out waiting for droplet public IP")
}

// DestroyInstance deletes a DigitalOcean Droplet.
func (p *DigitalOceanProvider) DestroyInstance(ctx context.Context, providerInstanceID, _ string) error {
	var dropletID int
	if _, err := fmt.Sscanf(providerInstanceID, "%d", &dropletID); err != nil {
		return fmt.Errorf("invalid droplet ID: %w", err)
	}

	if _, err := p.client.Droplets.Delete(ctx, dropletID); err != nil {
		return fmt.Errorf("failed to delete droplet: %w", err)
	}

	p.logger.Info("droplet deleted", "droplet_id", dropletID)
	return nil
}

// ListRegions returns available DigitalOcean regions.
func (p *DigitalOceanProvider) ListRegions(ctx context.Context) ([]Region, error) {
	doRegions, _, err := p.client.Regions.List(ctx, &godo.ListOptions{PerPage: 100})
	if err != nil {
		return digitalOceanRegions(), nil
	}

	regions := make([]Region, 0, len(doRegions))
	for _, r := range doRegions {
		regions = append(regions, Region{
			ID:        r.Slug,
			Name:      r.Name,
			Available: r.Available,
		})
	}
	return regions, nil
}

// ListSizes returns available Droplet sizes for a region.
func (p *DigitalOceanProvider) ListSizes(ctx context.Context, region string) ([]InstanceSize, error) {
	doSizes, _, err := p.client.Sizes.List(ctx, &godo.ListOptions{PerPage: 100})
	if err != nil {
		return digitalOceanSizes(), nil
	}

	sizes := make([]InstanceSize, 0)
	for _, s := range doSizes {
		if !s.Available {
			continue
		}
		if region != "" && !sizeInRegion(s, region) {
			continue
		}
		sizes = append(sizes, InstanceSize{
			ID:          s.Slug,
			Name:        fmt.Sprintf("%s (%d vCPU, %d GB)", s.Slug, s.Vcpus, s.Memory/1024),
			CPUCores:    float64(s.Vcpus),
			MemoryMB:    int64(s.Memory),
			DiskGB:      s.Disk,
			PriceHourly: s.PriceHourly,
		})
	}
	return sizes, nil
}

func sizeInRegion(s godo.Size, region string) bool {
	for _, r := range s.Regions {
		if r == region {
			return true
		}
	}
	return false
}

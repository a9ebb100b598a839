// Package provider implements cloud infrastructure provider clients used to
// stage standby environments. This is part of the Imperative Shell - it
// handles I/O with cloud APIs.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrUnsupportedProvider is returned for unknown provider names.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrNoCredentials is returned when a provider has no credentials configured.
	ErrNoCredentials = errors.New("no credentials for provider")
)

// Region represents a provider region.
type Region struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// InstanceSize represents an instance type/size option.
type InstanceSize struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	CPUCores    float64 `json:"cpu_cores"`
	MemoryMB    int64   `json:"memory_mb"`
	DiskGB      int     `json:"disk_gb"`
	PriceHourly float64 `json:"price_hourly"`
}

// ProvisionRequest contains parameters for creating a cloud instance.
type ProvisionRequest struct {
	InstanceName string
	Region       string
	Size         string
}

// ProvisionResult contains the result of creating a cloud instance.
type ProvisionResult struct {
	ProviderInstanceID string
	PublicIP           string
}

// Provider defines the interface for cloud infrastructure providers.
type Provider interface {
	// CreateInstance provisions a new cloud instance with Docker installed.
	CreateInstance(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error)

	// DestroyInstance terminates a cloud instance.
	DestroyInstance(ctx context.Context, providerInstanceID, region string) error

	// ListRegions returns available regions (live from API, static fallback).
	ListRegions(ctx context.Context) ([]Region, error)

	// ListSizes returns available instance sizes for a region.
	ListSizes(ctx context.Context, region string) ([]InstanceSize, error)
}

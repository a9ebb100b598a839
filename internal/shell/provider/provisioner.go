package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/artpar/rollout/internal/orchestrator"
)

// =============================================================================
// Standby Provisioner
// =============================================================================

// StandbyProvisioner stages standby environments for HA failover. It
// implements the orchestrator's EnvProvisioner contract on top of the cloud
// provider clients.
type StandbyProvisioner struct {
	creds  Credentials
	logger *slog.Logger

	// newProvider is swapped in tests.
	newProvider func(providerType string, creds Credentials, logger *slog.Logger) (Provider, error)
}

// NewStandbyProvisioner creates a provisioner with the given credentials.
func NewStandbyProvisioner(creds Credentials, logger *slog.Logger) *StandbyProvisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &StandbyProvisioner{
		creds:       creds,
		logger:      logger,
		newProvider: New,
	}
}

// StageStandby provisions one standby instance in the given provider region.
func (s *StandbyProvisioner) StageStandby(ctx context.Context, providerType, region string) (*orchestrator.StagedEnv, error) {
	p, err := s.newProvider(providerType, s.creds, s.logger)
	if err != nil {
		return nil, err
	}

	size := DefaultSize(providerType)
	if size == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, providerType)
	}

	name := "rollout-standby-" + uuid.New().String()[:8]
	s.logger.Info("staging standby environment",
		"provider", providerType,
		"region", region,
		"size", size,
		"name", name,
	)

	result, err := p.CreateInstance(ctx, ProvisionRequest{
		InstanceName: name,
		Region:       region,
		Size:         size,
	})
	if err != nil {
		return nil, fmt.Errorf("provisioning standby on %s: %w", providerType, err)
	}

	return &orchestrator.StagedEnv{
		Provider:   providerType,
		Region:     region,
		InstanceID: result.ProviderInstanceID,
		PublicIP:   result.PublicIP,
	}, nil
}

// Teardown destroys a previously staged standby environment.
func (s *StandbyProvisioner) Teardown(ctx context.Context, env *orchestrator.StagedEnv) error {
	p, err := s.newProvider(env.Provider, s.creds, s.logger)
	if err != nil {
		return err
	}
	return p.DestroyInstance(ctx, env.InstanceID, env.Region)
}

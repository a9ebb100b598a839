package provider

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/rollout/internal/orchestrator"
)

// =============================================================================
// Fake Provider
// =============================================================================

type fakeProvider struct {
	created   []ProvisionRequest
	destroyed []string
}

func (f *fakeProvider) CreateInstance(_ context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	f.created = append(f.created, req)
	return &ProvisionResult{ProviderInstanceID: "i-123", PublicIP: "203.0.113.7"}, nil
}

func (f *fakeProvider) DestroyInstance(_ context.Context, providerInstanceID, _ string) error {
	f.destroyed = append(f.destroyed, providerInstanceID)
	return nil
}

func (f *fakeProvider) ListRegions(context.Context) ([]Region, error) {
	return hetznerRegions(), nil
}

func (f *fakeProvider) ListSizes(context.Context, string) ([]InstanceSize, error) {
	return hetznerSizes(), nil
}

// =============================================================================
// Factory Tests
// =============================================================================

func TestNew_RejectsUnknownProvider(t *testing.T) {
	_, err := New("linode", Credentials{}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New("hetzner", Credentials{}, nil)
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = New("aws", Credentials{AWSAccessKeyID: "AKIA"}, nil)
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestNew_BuildsConfiguredProviders(t *testing.T) {
	creds := Credentials{
		AWSAccessKeyID:     "AKIA",
		AWSSecretAccessKey: "secret",
		DigitalOceanToken:  "do-token",
		HetznerToken:       "hz-token",
	}

	for _, name := range []string{"aws", "digitalocean", "hetzner"} {
		p, err := New(name, creds, nil)
		require.NoError(t, err, name)
		assert.NotNil(t, p)
	}
}

// =============================================================================
// Provisioner Tests
// =============================================================================

func TestStandbyProvisioner_StageStandby(t *testing.T) {
	fake := &fakeProvider{}
	s := NewStandbyProvisioner(Credentials{HetznerToken: "hz"}, nil)
	s.newProvider = func(string, Credentials, *slog.Logger) (Provider, error) {
		return fake, nil
	}

	env, err := s.StageStandby(context.Background(), "hetzner", "fsn1")
	require.NoError(t, err)

	assert.Equal(t, "hetzner", env.Provider)
	assert.Equal(t, "fsn1", env.Region)
	assert.Equal(t, "i-123", env.InstanceID)
	assert.Equal(t, "203.0.113.7", env.PublicIP)

	require.Len(t, fake.created, 1)
	req := fake.created[0]
	assert.Equal(t, "fsn1", req.Region)
	assert.Equal(t, DefaultSize("hetzner"), req.Size)
	assert.Contains(t, req.InstanceName, "rollout-standby-")
}

func TestStandbyProvisioner_UnknownProviderHasNoDefaultSize(t *testing.T) {
	s := NewStandbyProvisioner(Credentials{}, nil)
	s.newProvider = func(string, Credentials, *slog.Logger) (Provider, error) {
		return &fakeProvider{}, nil
	}

	_, err := s.StageStandby(context.Background(), "linode", "us-east")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestStandbyProvisioner_Teardown(t *testing.T) {
	fake := &fakeProvider{}
	s := NewStandbyProvisioner(Credentials{}, nil)
	s.newProvider = func(string, Credentials, *slog.Logger) (Provider, error) {
		return fake, nil
	}

	err := s.Teardown(context.Background(), &orchestrator.StagedEnv{
		Provider:   "hetzner",
		Region:     "fsn1",
		InstanceID: "i-123",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"i-123"}, fake.destroyed)
}

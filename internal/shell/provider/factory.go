package provider

import (
	"fmt"
	"log/slog"
)

// Credentials holds API credentials for every supported provider. Empty
// fields disable the provider.
type Credentials struct {
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	DigitalOceanToken  string
	HetznerToken       string
}

// New creates a cloud provider client by name.
func New(providerType string, creds Credentials, logger *slog.Logger) (Provider, error) {
	switch providerType {
	case "aws":
		if creds.AWSAccessKeyID == "" || creds.AWSSecretAccessKey == "" {
			return nil, fmt.Errorf("%w: aws", ErrNoCredentials)
		}
		return NewAWSProvider(creds.AWSAccessKeyID, creds.AWSSecretAccessKey, logger), nil

	case "digitalocean":
		if creds.DigitalOceanToken == "" {
			return nil, fmt.Errorf("%w: digitalocean", ErrNoCredentials)
		}
		return NewDigitalOceanProvider(creds.DigitalOceanToken, logger), nil

	case "hetzner":
		if creds.HetznerToken == "" {
			return nil, fmt.Errorf("%w: hetzner", ErrNoCredentials)
		}
		return NewHetznerProvider(creds.HetznerToken, logger), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, providerType)
	}
}

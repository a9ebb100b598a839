// Package probe issues HTTP probes against deployed services.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Config configures the HTTP prober.
type Config struct {
	// Timeout is the per-probe timeout. Default: 10 seconds.
	Timeout time.Duration

	// Retries is how many times a failed probe is retried. Default: 2.
	Retries int

	// RetryDelay is the pause between retries. Default: 1 second.
	RetryDelay time.Duration
}

// DefaultConfig returns the default prober configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:    10 * time.Second,
		Retries:    2,
		RetryDelay: time.Second,
	}
}

// HTTPProber probes service endpoints over HTTP. It implements the
// orchestrator's Prober contract.
type HTTPProber struct {
	client *http.Client
	config Config
	logger *slog.Logger
}

// NewHTTPProber creates an HTTP prober.
func NewHTTPProber(config Config, logger *slog.Logger) *HTTPProber {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPProber{
		client: &http.Client{Timeout: config.Timeout},
		config: config,
		logger: logger.With("component", "prober"),
	}
}

// Probe issues one HTTP request and returns the observed status code.
// Transport failures are retried; HTTP error statuses are not, the caller
// classifies them.
func (p *HTTPProber) Probe(ctx context.Context, method, url string) (int, error) {
	var lastErr error

	for attempt := 0; attempt <= p.config.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(p.config.RetryDelay):
			}
			p.logger.Debug("retrying probe", "method", method, "url", url, "attempt", attempt)
		}

		code, err := p.probeOnce(ctx, method, url)
		if err == nil {
			return code, nil
		}
		lastErr = err
	}

	return 0, fmt.Errorf("probe %s %s: %w", method, url, lastErr)
}

func (p *HTTPProber) probeOnce(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

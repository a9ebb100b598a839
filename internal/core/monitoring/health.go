// Package monitoring provides pure functions for rollout health logic.
// This is part of the Functional Core - this package contains NO I/O;
// actual probing lives in the shell probe package.
package monitoring

import "sort"

// =============================================================================
// Health Status
// =============================================================================

// HealthStatus is the aggregated health of a service or rollout.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// ProbeOutcome is the result of probing one service instance.
type ProbeOutcome struct {
	Service    string       `json:"service"`
	Health     HealthStatus `json:"health"`
	StatusCode int          `json:"status_code,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// =============================================================================
// Health Aggregation (Pure Functions)
// =============================================================================

// AggregateHealth determines overall rollout health from per-service probes.
func AggregateHealth(outcomes []ProbeOutcome) HealthStatus {
	if len(outcomes) == 0 {
		return HealthStatusUnknown
	}

	unhealthy := 0
	degraded := 0

	for _, o := range outcomes {
		switch o.Health {
		case HealthStatusUnhealthy:
			unhealthy++
		case HealthStatusDegraded:
			degraded++
		case HealthStatusUnknown:
			// Unknown services count as degraded
			degraded++
		}
	}

	// All unhealthy = unhealthy
	if unhealthy == len(outcomes) {
		return HealthStatusUnhealthy
	}
	// Any unhealthy or degraded = degraded
	if unhealthy > 0 || degraded > 0 {
		return HealthStatusDegraded
	}
	// All healthy = healthy
	return HealthStatusHealthy
}

// ClassifyStatusCode maps an HTTP probe status code to a health status.
// 2xx is healthy, 5xx is unhealthy, everything else (3xx/4xx, which usually
// means a misrouted or misconfigured service) is degraded.
func ClassifyStatusCode(code int) HealthStatus {
	switch {
	case code >= 200 && code < 300:
		return HealthStatusHealthy
	case code >= 500:
		return HealthStatusUnhealthy
	case code > 0:
		return HealthStatusDegraded
	default:
		return HealthStatusUnknown
	}
}

// =============================================================================
// Monitoring Plan
// =============================================================================

// MonitorSpec describes the continuous monitoring to register for one
// deployed service when the enterpriseMonitoring capability is enabled.
type MonitorSpec struct {
	Service   string `json:"service"`
	URL       string `json:"url"`
	IntervalS int    `json:"interval_s"`
}

// BuildMonitorSpecs derives monitor registrations from deployed service URLs.
// Services without a URL are skipped; intervalS defaults to 60.
func BuildMonitorSpecs(urls map[string]string, intervalS int) []MonitorSpec {
	if intervalS <= 0 {
		intervalS = 60
	}

	specs := make([]MonitorSpec, 0, len(urls))
	for service, url := range urls {
		if url == "" {
			continue
		}
		specs = append(specs, MonitorSpec{
			Service:   service,
			URL:       url,
			IntervalS: intervalS,
		})
	}

	// Deterministic output regardless of map iteration order.
	sort.Slice(specs, func(i, j int) bool {
		return specs[i].Service < specs[j].Service
	})
	return specs
}

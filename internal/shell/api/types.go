package api

import (
	"time"

	"github.com/artpar/rollout/internal/core/phase"
)

// =============================================================================
// Request Types
// =============================================================================

// CreateRolloutRequest starts a deployment rollout from a YAML manifest.
type CreateRolloutRequest struct {
	// Manifest is the rollout manifest in YAML.
	Manifest string `json:"manifest"`

	// ContinueOnError tolerates critical phase failures instead of aborting.
	ContinueOnError bool `json:"continue_on_error,omitempty"`

	// Capabilities enables extra capabilities beyond the mode's recommended
	// set, keyed by capability name. The value is passed to the capability
	// as its configuration.
	Capabilities map[string]map[string]any `json:"capabilities,omitempty"`
}

// =============================================================================
// Response Types
// =============================================================================

// RolloutResponse is the API representation of an executed rollout.
type RolloutResponse struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Mode         string         `json:"mode"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
	Summary      *phase.Summary `json:"summary,omitempty"`
}

// AuditResponse is the API representation of a stored deployment audit.
type AuditResponse struct {
	DeploymentID string         `json:"deployment_id"`
	Kind         string         `json:"kind"`
	Meta         map[string]any `json:"meta,omitempty"`
	Outcome      string         `json:"outcome"`
	OutcomeMeta  map[string]any `json:"outcome_meta,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
}

// AuditListResponse wraps a page of recent audits.
type AuditListResponse struct {
	Audits []AuditResponse `json:"audits"`
	Count  int             `json:"count"`
}

// PhaseLogResponse is one phase boundary event from the audit trail.
type PhaseLogResponse struct {
	Phase      string         `json:"phase"`
	Status     string         `json:"status"`
	Details    map[string]any `json:"details,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// ErrorLogResponse is one recorded pipeline error.
type ErrorLogResponse struct {
	Message    string         `json:"message"`
	Context    map[string]any `json:"context,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// ReportResponse is the full post-mortem view of a rollout: the audit record
// plus every phase and error event in insertion order.
type ReportResponse struct {
	Audit     AuditResponse      `json:"audit"`
	PhaseLogs []PhaseLogResponse `json:"phase_logs"`
	ErrorLogs []ErrorLogResponse `json:"error_logs"`
}

// CapabilityResponse describes one capability from the built-in catalog.
type CapabilityResponse struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Subsystem    string   `json:"subsystem"`
	Phase        string   `json:"phase"`
	Requirements []string `json:"requirements,omitempty"`
}

// CapabilityListResponse wraps the capability catalog plus the per-mode
// recommended sets.
type CapabilityListResponse struct {
	Capabilities []CapabilityResponse `json:"capabilities"`
	Modes        map[string][]string  `json:"modes"`
	Total        int                  `json:"total"`
}

// ErrorResponse is the error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

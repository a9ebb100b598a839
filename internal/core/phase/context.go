package phase

import (
	"time"
)

// =============================================================================
// Execution Context
// =============================================================================

// Severity classifies a recorded phase error.
type Severity string

const (
	// SeverityCritical marks failures in critical phases.
	SeverityCritical Severity = "critical"

	// SeverityWarning marks failures in non-critical phases.
	SeverityWarning Severity = "warning"
)

// ClassifiedError is a phase error with its severity classification.
type ClassifiedError struct {
	Phase    Phase    `json:"phase"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Classify derives the severity of an error raised in phase p.
func Classify(p Phase, err error) ClassifiedError {
	sev := SeverityWarning
	if Critical(p) {
		sev = SeverityCritical
	}
	return ClassifiedError{
		Phase:    p,
		Severity: sev,
		Message:  err.Error(),
	}
}

// Context holds all per-attempt state for one rollout execution.
// It is exclusively owned by a single orchestrator instance; one logical
// rollout attempt = one context, never shared across concurrent executions.
type Context struct {
	DeploymentID string
	StartedAt    time.Time

	records map[Phase]*Record
	errors  []ClassifiedError
}

// NewContext creates a fresh execution context with all six phases pending.
func NewContext(deploymentID string, now time.Time) *Context {
	records := make(map[Phase]*Record, Count)
	for _, p := range order {
		records[p] = NewRecord(p)
	}
	return &Context{
		DeploymentID: deploymentID,
		StartedAt:    now,
		records:      records,
	}
}

// Record returns the record for a phase. Unknown phases return nil.
func (c *Context) Record(p Phase) *Record {
	return c.records[p]
}

// Records returns the phase records in execution order.
func (c *Context) Records() []*Record {
	out := make([]*Record, 0, Count)
	for _, p := range order {
		out = append(out, c.records[p])
	}
	return out
}

// AddError records a classified error for a phase.
func (c *Context) AddError(p Phase, err error) {
	c.errors = append(c.errors, Classify(p, err))
}

// Errors returns the accumulated classified errors in the order they occurred.
func (c *Context) Errors() []ClassifiedError {
	out := make([]ClassifiedError, len(c.errors))
	copy(out, c.errors)
	return out
}

// Elapsed returns the time since the context was created.
func (c *Context) Elapsed(now time.Time) time.Duration {
	return now.Sub(c.StartedAt)
}

// Snapshot is a read-only projection of the execution context, safe to hand
// to callers for post-mortem inspection and reporting.
type Snapshot struct {
	DeploymentID string               `json:"deployment_id"`
	StartedAt    time.Time            `json:"started_at"`
	Elapsed      time.Duration       `json:"elapsed"`
	Phases       map[Phase]PhaseView `json:"phases"`
	Errors       []ClassifiedError   `json:"errors,omitempty"`
}

// PhaseView is the externally visible state of one phase.
type PhaseView struct {
	State    State         `json:"state"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Snapshot produces a read-only projection with live timing.
func (c *Context) Snapshot(now time.Time) Snapshot {
	phases := make(map[Phase]PhaseView, Count)
	for _, p := range order {
		r := c.records[p]
		view := PhaseView{State: r.State, Duration: r.Duration}
		if r.Err != nil {
			view.Error = r.Err.Error()
		}
		phases[p] = view
	}
	return Snapshot{
		DeploymentID: c.DeploymentID,
		StartedAt:    c.StartedAt,
		Elapsed:      c.Elapsed(now),
		Phases:       phases,
		Errors:       c.Errors(),
	}
}

package phase

import "time"

// =============================================================================
// Execution Summary
// =============================================================================

// PipelineState is the overall outcome of one execution.
type PipelineState string

const (
	PipelineCompleted PipelineState = "completed"
	PipelineAborted   PipelineState = "aborted"
)

// Stats holds phase outcome counts for one execution.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Detail is the per-phase entry of a summary.
type Detail struct {
	Phase    Phase         `json:"phase"`
	State    State         `json:"state"`
	Duration time.Duration `json:"duration"`
	Result   any           `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Summary is the immutable end-of-run report of one execution. It is derived
// from the context once and never updated afterwards.
type Summary struct {
	DeploymentID string            `json:"deployment_id"`
	Pipeline     PipelineState     `json:"pipeline"`
	Stats        Stats             `json:"stats"`
	SuccessRate  float64           `json:"success_rate"`
	Duration     time.Duration     `json:"duration"`
	Phases       []Detail          `json:"phases"`
	Errors       []ClassifiedError `json:"errors,omitempty"`
}

// BuildSummary derives an immutable summary from an execution context.
// Phases still pending count as skipped: they were never attempted because
// the pipeline aborted before reaching them.
func BuildSummary(c *Context, pipeline PipelineState, now time.Time) *Summary {
	stats := Stats{Total: Count}
	details := make([]Detail, 0, Count)

	for _, r := range c.Records() {
		switch r.State {
		case StateComplete:
			stats.Completed++
		case StateError:
			stats.Failed++
		case StatePending:
			stats.Skipped++
		}

		d := Detail{
			Phase:    r.Phase,
			State:    r.State,
			Duration: r.Duration,
			Result:   r.Result,
		}
		if r.Err != nil {
			d.Error = r.Err.Error()
		}
		details = append(details, d)
	}

	attempted := stats.Completed + stats.Failed
	rate := 0.0
	if attempted > 0 {
		rate = float64(stats.Completed) / float64(attempted)
	}

	return &Summary{
		DeploymentID: c.DeploymentID,
		Pipeline:     pipeline,
		Stats:        stats,
		SuccessRate:  rate,
		Duration:     c.Elapsed(now),
		Phases:       details,
		Errors:       c.Errors(),
	}
}

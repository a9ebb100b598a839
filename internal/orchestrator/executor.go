package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/artpar/rollout/internal/core/phase"
)

// =============================================================================
// Handler Table
// =============================================================================

// HandlerFunc executes one phase and returns its result payload.
type HandlerFunc func(ctx context.Context) (any, error)

// HandlerSet binds every phase to its handler. The mapping is an explicit
// table, not a naming convention: Initialization binds to Initialize, and so
// on. A nil field is a programming defect surfaced as
// ErrHandlerNotImplemented when its phase is reached.
type HandlerSet struct {
	Initialize HandlerFunc // Initialization
	Validate   HandlerFunc // Validation
	Prepare    HandlerFunc // Preparation
	Deploy     HandlerFunc // Deployment
	Verify     HandlerFunc // Verification
	Monitor    HandlerFunc // Monitoring
}

// table materializes the explicit phase → handler binding.
func (h HandlerSet) table() map[phase.Phase]HandlerFunc {
	return map[phase.Phase]HandlerFunc{
		phase.Initialization: h.Initialize,
		phase.Validation:     h.Validate,
		phase.Preparation:    h.Prepare,
		phase.Deployment:     h.Deploy,
		phase.Verification:   h.Verify,
		phase.Monitoring:     h.Monitor,
	}
}

// =============================================================================
// Executor
// =============================================================================

// Options controls pipeline failure tolerance.
type Options struct {
	// ContinueOnError tolerates critical phase failures: the pipeline logs a
	// warning and proceeds instead of aborting. Non-critical failures never
	// abort regardless of this flag.
	ContinueOnError bool
}

// Executor drives the six-phase pipeline for one rollout attempt.
// Instances are single-use and must not be shared across goroutines.
type Executor struct {
	deploymentID string
	handlers     map[phase.Phase]HandlerFunc
	ectx         *phase.Context
	auditor      Auditor
	logger       *slog.Logger

	executed bool
	summary  *phase.Summary
}

// NewExecutor creates an executor for one rollout attempt.
func NewExecutor(deploymentID string, handlers HandlerSet, auditor Auditor, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		deploymentID: deploymentID,
		handlers:     handlers.table(),
		ectx:         phase.NewContext(deploymentID, time.Now().UTC()),
		auditor:      auditor,
		logger:       logger,
	}
}

// Execute runs all six phases in order and returns the execution summary.
//
// A failure in a critical phase (Initialization, Deployment) aborts the
// pipeline and returns the handler's original error unless
// opts.ContinueOnError is set. Failures in other phases are recorded and
// execution proceeds unconditionally. Even when Execute returns an error,
// the partial state remains queryable through PhaseStatus, PhaseResults and
// ExecutionContext for post-mortem inspection.
func (e *Executor) Execute(ctx context.Context, opts Options) (*phase.Summary, error) {
	if e.executed {
		return nil, ErrAlreadyExecuted
	}
	e.executed = true

	e.audit(func() error {
		return e.auditor.StartDeploymentAudit(ctx, e.deploymentID, "rollout", map[string]any{
			"phases": phase.Count,
		})
	})

	e.logger.Info("pipeline started", "deployment_id", e.deploymentID)

	for _, p := range phase.Order() {
		if err := e.runPhase(ctx, p, opts); err != nil {
			// Fatal path: report to the auditor with the failing phase, then
			// return the original error unwrapped so callers can inspect it.
			e.audit(func() error {
				return e.auditor.LogError(ctx, e.deploymentID, err, map[string]any{
					"phase": string(p),
					"fatal": true,
				})
			})
			e.audit(func() error {
				return e.auditor.EndDeploymentAudit(ctx, e.deploymentID, "aborted", map[string]any{
					"failed_phase": string(p),
				})
			})

			e.summary = phase.BuildSummary(e.ectx, phase.PipelineAborted, time.Now().UTC())
			e.logger.Error("pipeline aborted",
				"deployment_id", e.deploymentID,
				"phase", p,
				"error", err,
			)
			return nil, err
		}
	}

	e.summary = phase.BuildSummary(e.ectx, phase.PipelineCompleted, time.Now().UTC())

	outcome := "completed"
	if e.summary.Stats.Failed > 0 {
		outcome = "completed_with_failures"
	}
	e.audit(func() error {
		return e.auditor.EndDeploymentAudit(ctx, e.deploymentID, outcome, map[string]any{
			"completed": e.summary.Stats.Completed,
			"failed":    e.summary.Stats.Failed,
		})
	})

	e.logger.Info("pipeline finished",
		"deployment_id", e.deploymentID,
		"outcome", outcome,
		"duration", e.summary.Duration,
	)
	return e.summary, nil
}

// runPhase executes one phase. A non-nil return aborts the pipeline.
func (e *Executor) runPhase(ctx context.Context, p phase.Phase, opts Options) error {
	record := e.ectx.Record(p)

	handler := e.handlers[p]
	if handler == nil {
		err := handlerNotImplemented(p)
		record.Begin(time.Now().UTC())
		record.Fail(err, time.Now().UTC())
		e.ectx.AddError(p, err)
		// Missing handlers are defects, not deployment failures: never tolerated.
		return err
	}

	record.Begin(time.Now().UTC())
	e.logger.Debug("phase started", "deployment_id", e.deploymentID, "phase", p)

	result, err := handler(ctx)
	now := time.Now().UTC()

	if err == nil {
		record.Complete(result, now)
		e.audit(func() error {
			return e.auditor.LogPhase(ctx, e.deploymentID, p, "complete", map[string]any{
				"duration_ms": record.Duration.Milliseconds(),
			})
		})
		return nil
	}

	record.Fail(err, now)
	e.ectx.AddError(p, err)
	e.audit(func() error {
		return e.auditor.LogPhase(ctx, e.deploymentID, p, "error", map[string]any{
			"error": err.Error(),
		})
	})
	e.audit(func() error {
		return e.auditor.LogError(ctx, e.deploymentID, err, map[string]any{"phase": string(p)})
	})

	if phase.Critical(p) {
		if !opts.ContinueOnError {
			return err
		}
		e.logger.Warn("critical phase failed, continuing",
			"deployment_id", e.deploymentID,
			"phase", p,
			"error", err,
		)
		return nil
	}

	e.logger.Warn("phase failed",
		"deployment_id", e.deploymentID,
		"phase", p,
		"error", err,
	)
	return nil
}

// audit invokes an auditor call, tolerating both a nil auditor and audit
// failures: auditing must never change pipeline behavior.
func (e *Executor) audit(call func() error) {
	if e.auditor == nil {
		return
	}
	if err := call(); err != nil {
		e.logger.Warn("audit call failed", "deployment_id", e.deploymentID, "error", err)
	}
}

// =============================================================================
// Introspection
// =============================================================================

// DeploymentID returns the rollout attempt identifier.
func (e *Executor) DeploymentID() string {
	return e.deploymentID
}

// PhaseStatus returns the current state of a phase, pending if never
// attempted. Unknown phases also report pending.
func (e *Executor) PhaseStatus(p phase.Phase) phase.State {
	record := e.ectx.Record(p)
	if record == nil {
		return phase.StatePending
	}
	return record.State
}

// PhaseResult returns the stored result of a phase, nil if not yet executed.
func (e *Executor) PhaseResult(p phase.Phase) any {
	record := e.ectx.Record(p)
	if record == nil {
		return nil
	}
	return record.Result
}

// PhaseResults returns results for every completed phase.
func (e *Executor) PhaseResults() map[phase.Phase]any {
	out := make(map[phase.Phase]any)
	for _, record := range e.ectx.Records() {
		if record.State == phase.StateComplete {
			out[record.Phase] = record.Result
		}
	}
	return out
}

// ExecutionContext returns a read-only projection of the execution context
// with live timing.
func (e *Executor) ExecutionContext() phase.Snapshot {
	return e.ectx.Snapshot(time.Now().UTC())
}

// Summary returns the final summary, nil while the pipeline has not finished.
// After an aborted run this holds the partial summary for post-mortem use.
func (e *Executor) Summary() *phase.Summary {
	return e.summary
}

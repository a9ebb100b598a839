package phase

import "fmt"

// =============================================================================
// Phase Enum
// =============================================================================

// Phase identifies one stage of the rollout lifecycle.
type Phase string

const (
	Initialization Phase = "initialization"
	Validation     Phase = "validation"
	Preparation    Phase = "preparation"
	Deployment     Phase = "deployment"
	Verification   Phase = "verification"
	Monitoring     Phase = "monitoring"
)

// order is the fixed, total execution order of the pipeline.
// No phase may start before every phase preceding it has been attempted.
var order = []Phase{
	Initialization,
	Validation,
	Preparation,
	Deployment,
	Verification,
	Monitoring,
}

// Order returns the phases in execution order. The returned slice is a copy;
// callers may not reorder the pipeline.
func Order() []Phase {
	out := make([]Phase, len(order))
	copy(out, order)
	return out
}

// Count is the number of phases in the pipeline.
const Count = 6

// Index returns the position of p in the execution order, or -1 if p is not
// a known phase.
func Index(p Phase) int {
	for i, known := range order {
		if known == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is one of the six known phases.
func Valid(p Phase) bool {
	return Index(p) >= 0
}

// Parse converts a string into a Phase.
func Parse(s string) (Phase, error) {
	p := Phase(s)
	if !Valid(p) {
		return "", fmt.Errorf("unknown phase: %q", s)
	}
	return p, nil
}

// =============================================================================
// Critical Phases
// =============================================================================

// Critical reports whether a failure in p aborts the pipeline by default.
// Exactly Initialization and Deployment are critical: nothing can proceed
// without an initialized environment, and a failed deployment leaves nothing
// to verify or monitor.
func Critical(p Phase) bool {
	return p == Initialization || p == Deployment
}

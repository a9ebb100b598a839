// Package phase defines the fixed six-phase rollout lifecycle and the
// per-phase state machine. This is part of the Functional Core - all
// functions are pure with no I/O.
//
// A rollout always moves through the same ordered phases:
//
//	Initialization → Validation → Preparation → Deployment → Verification → Monitoring
//
// Each phase has its own small state machine (pending → executing →
// complete|error) and terminal states are immutable. Initialization and
// Deployment are critical: their failure aborts the pipeline unless the
// caller explicitly tolerates it.
package phase

// Package orchestrator drives the six-phase rollout pipeline.
//
// Executor is the generic pipeline: it binds each phase to a handler through
// an explicit table, runs the phases strictly in order, records state and
// timing, and classifies failures as critical or recoverable. Composer layers
// capability composition on top: callers enable named capabilities and each
// phase handler runs the sub-routines of whichever capabilities are enabled,
// against injected collaborators (deployer, prober, auditor, environment
// provisioner).
//
// Instances are single-use: one rollout attempt = one orchestrator. Run two
// rollouts concurrently by constructing two instances.
package orchestrator

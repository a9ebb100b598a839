package orchestrator

import (
	"errors"
	"fmt"

	"github.com/artpar/rollout/internal/core/phase"
)

// =============================================================================
// Orchestrator Errors
// =============================================================================

var (
	// ErrHandlerNotImplemented is returned when a phase has no bound handler.
	// This is a programming defect, always fatal, never tolerated.
	ErrHandlerNotImplemented = errors.New("phase handler not implemented")

	// ErrAlreadyExecuted is returned when Execute is called twice on the
	// same instance. Orchestrators are single-use.
	ErrAlreadyExecuted = errors.New("orchestrator instance already executed")

	// ErrNoDeployer is returned when a deployment sub-routine runs without
	// a deployment collaborator.
	ErrNoDeployer = errors.New("no deployer configured")

	// ErrNoProber is returned when a verification sub-routine runs without
	// a probe collaborator.
	ErrNoProber = errors.New("no prober configured")

	// ErrNoProvisioner is returned when the haStaging sub-routine runs
	// without an environment provisioner.
	ErrNoProvisioner = errors.New("no environment provisioner configured")

	// ErrNoMigrationChecker is returned when the databaseMigration
	// sub-routine runs without a migration checker.
	ErrNoMigrationChecker = errors.New("no migration checker configured")

	// ErrNoSealingKey is returned when the secretProvisioning sub-routine
	// has neither a sealing key nor a passphrase to derive one from.
	ErrNoSealingKey = errors.New("no sealing key or passphrase configured")
)

// handlerNotImplemented builds the fatal error for an unbound phase.
func handlerNotImplemented(p phase.Phase) error {
	return fmt.Errorf("%w: %s", ErrHandlerNotImplemented, p)
}

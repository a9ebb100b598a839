package audit

import (
	"context"

	"github.com/artpar/rollout/internal/core/phase"
)

// NopAuditor discards every audit event. Useful where an audit trail is not
// wanted but a non-nil collaborator keeps wiring uniform.
type NopAuditor struct{}

func (NopAuditor) StartDeploymentAudit(context.Context, string, string, map[string]any) error {
	return nil
}

func (NopAuditor) LogPhase(context.Context, string, phase.Phase, string, map[string]any) error {
	return nil
}

func (NopAuditor) LogError(context.Context, string, error, map[string]any) error {
	return nil
}

func (NopAuditor) EndDeploymentAudit(context.Context, string, string, map[string]any) error {
	return nil
}

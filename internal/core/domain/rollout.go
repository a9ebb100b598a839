// Package domain contains the core domain types and validation logic.
// This is part of the Functional Core - all functions are pure with no I/O.
package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Rollout Errors
// =============================================================================

var (
	ErrNoServices        = errors.New("rollout spec has no services")
	ErrNoTargets         = errors.New("rollout spec has no target environments")
	ErrInvalidTransition = errors.New("invalid rollout status transition")
)

// =============================================================================
// Rollout Status
// =============================================================================

// RolloutStatus is the coarse lifecycle status of a rollout attempt.
// Fine-grained per-phase state lives in the phase package.
type RolloutStatus string

const (
	RolloutPending   RolloutStatus = "pending"
	RolloutRunning   RolloutStatus = "running"
	RolloutSucceeded RolloutStatus = "succeeded"
	RolloutFailed    RolloutStatus = "failed"
)

// validTransitions defines the allowed status transitions.
var validTransitions = map[RolloutStatus][]RolloutStatus{
	RolloutPending:   {RolloutRunning},
	RolloutRunning:   {RolloutSucceeded, RolloutFailed},
	RolloutSucceeded: {}, // Terminal state
	RolloutFailed:    {}, // Terminal state
}

// ValidateTransition checks if a status transition is valid.
func ValidateTransition(from, to RolloutStatus) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return ErrInvalidTransition
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

// =============================================================================
// Rollout
// =============================================================================

// Rollout represents one deployment attempt of a spec. A rollout is
// single-use: retrying means creating a new rollout.
type Rollout struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Mode         string        `json:"mode"`
	Spec         Spec          `json:"spec"`
	Status       RolloutStatus `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}

// NewRollout creates a pending rollout for a spec.
func NewRollout(name, mode string, spec Spec) (*Rollout, error) {
	if len(spec.Services) == 0 {
		return nil, ErrNoServices
	}
	if len(spec.Targets) == 0 {
		return nil, ErrNoTargets
	}

	now := time.Now().UTC()
	return &Rollout{
		ID:        uuid.New().String(),
		Name:      GenerateRolloutName(name),
		Mode:      mode,
		Spec:      spec,
		Status:    RolloutPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Transition attempts to transition the rollout to a new status.
func (r *Rollout) Transition(to RolloutStatus) error {
	if err := ValidateTransition(r.Status, to); err != nil {
		return err
	}

	r.Status = to
	now := time.Now().UTC()
	r.UpdatedAt = now

	if to == RolloutRunning {
		r.StartedAt = &now
	}
	if to == RolloutSucceeded || to == RolloutFailed {
		r.FinishedAt = &now
	}

	return nil
}

// TransitionToFailed transitions to failed status with an error message.
func (r *Rollout) TransitionToFailed(errorMessage string) error {
	if err := r.Transition(RolloutFailed); err != nil {
		return err
	}
	r.ErrorMessage = errorMessage
	return nil
}

// =============================================================================
// Name Generation
// =============================================================================

// GenerateRolloutName generates a unique rollout name from a base name.
func GenerateRolloutName(base string) string {
	suffix := make([]byte, 3)
	rand.Read(suffix)
	return fmt.Sprintf("%s-%s", Slugify(base), hex.EncodeToString(suffix))
}

// Slugify converts a name to a lowercase, hyphen-separated identifier.
// Letters and digits are kept (lowercased), spaces become hyphens, and
// everything else is dropped.
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == ' ':
			b.WriteByte('-')
		}
	}
	return b.String()
}

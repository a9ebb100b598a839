package phase

import (
	"errors"
	"time"
)

// =============================================================================
// Phase State Machine
// =============================================================================

// State is the lifecycle state of a single phase within one execution.
type State string

const (
	StatePending   State = "pending"
	StateExecuting State = "executing"
	StateComplete  State = "complete"
	StateError     State = "error"
)

var (
	// ErrInvalidTransition is returned when a phase record is asked to move
	// to a state not reachable from its current state.
	ErrInvalidTransition = errors.New("invalid phase state transition")
)

// validTransitions defines the allowed state transitions for a phase.
// Complete and error are terminal.
var validTransitions = map[State][]State{
	StatePending:   {StateExecuting},
	StateExecuting: {StateComplete, StateError},
	StateComplete:  {},
	StateError:     {},
}

// ValidateTransition checks whether a phase may move from one state to another.
func ValidateTransition(from, to State) error {
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

// Terminal reports whether s is a terminal state.
func Terminal(s State) bool {
	return s == StateComplete || s == StateError
}

// =============================================================================
// Phase Record
// =============================================================================

// Record tracks the outcome of one phase within one execution attempt.
// A record never re-enters a prior state; once complete or error it is
// immutable.
type Record struct {
	Phase     Phase
	State     State
	Result    any
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// NewRecord creates a pending record for a phase.
func NewRecord(p Phase) *Record {
	return &Record{
		Phase: p,
		State: StatePending,
	}
}

// Begin marks the record as executing and stamps the start time.
func (r *Record) Begin(now time.Time) error {
	if err := ValidateTransition(r.State, StateExecuting); err != nil {
		return err
	}
	r.State = StateExecuting
	r.StartedAt = now
	return nil
}

// Complete marks the record as successfully finished with a result payload.
func (r *Record) Complete(result any, now time.Time) error {
	if err := ValidateTransition(r.State, StateComplete); err != nil {
		return err
	}
	r.State = StateComplete
	r.Result = result
	r.Duration = now.Sub(r.StartedAt)
	return nil
}

// Fail marks the record as failed with the handler's error.
func (r *Record) Fail(handlerErr error, now time.Time) error {
	if err := ValidateTransition(r.State, StateError); err != nil {
		return err
	}
	r.State = StateError
	r.Err = handlerErr
	r.Duration = now.Sub(r.StartedAt)
	return nil
}

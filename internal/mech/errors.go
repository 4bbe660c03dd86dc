package mech

import (
	"errors"
	"fmt"
)

// Domain errors for the constrained dynamics engine.
var (
	// ErrInvalidTopology indicates a malformed body/constraint graph,
	// detected at construction time.
	ErrInvalidTopology = errors.New("mech: invalid topology")

	// ErrConstraintEval indicates a non-finite constraint residual or
	// Jacobian entry at runtime.
	ErrConstraintEval = errors.New("mech: non-finite constraint evaluation")

	// ErrSingularSystem indicates a rank-deficient KKT matrix, typically
	// from redundant or mutually conflicting constraints.
	ErrSingularSystem = errors.New("mech: singular constraint system")

	// ErrIntegrationDiverged indicates the manifold projection failed to
	// converge within its iteration bound.
	ErrIntegrationDiverged = errors.New("mech: constraint projection diverged")

	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("mech: invalid state (NaN or Inf detected)")
)

// StepError wraps an error with rollout context.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}

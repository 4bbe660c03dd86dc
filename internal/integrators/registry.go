package integrators

import (
	"fmt"

	"github.com/mechsim/rigidsim/internal/mech"
	"github.com/mechsim/rigidsim/internal/solver"
)

// New builds a stepper by name: "leapfrog" (default symplectic scheme)
// or "rk4" (explicit fallback).
func New(name string, slv *solver.Solver, proj *Projector) (mech.Stepper, error) {
	switch name {
	case "", "leapfrog":
		return NewLeapfrog(slv, proj), nil
	case "rk4":
		return NewRK4(slv, proj), nil
	default:
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
}

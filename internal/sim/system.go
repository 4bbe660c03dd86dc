// Package sim orchestrates constrained rollouts: it wires topology,
// constraint assembler, KKT solver, and integrator into a shared
// read-only pipeline and runs trajectories against it.
package sim

import (
	"math/rand"

	"github.com/mechsim/rigidsim/internal/constraint"
	"github.com/mechsim/rigidsim/internal/energy"
	"github.com/mechsim/rigidsim/internal/integrators"
	"github.com/mechsim/rigidsim/internal/mech"
	"github.com/mechsim/rigidsim/internal/solver"
	"github.com/mechsim/rigidsim/internal/topology"
)

// System bundles the immutable pieces of one mechanical system. All
// fields are read-only after construction, so any number of concurrent
// rollouts may share one System.
type System struct {
	Topo   *topology.Topology
	Asm    *constraint.Assembler
	Solver *solver.Solver
	Proj   *integrators.Projector
	Energy mech.EnergyFunc
}

// NewSystem assembles the pipeline for a topology and an energy oracle.
// A nil energy defaults to the gravity-free kinetic Hamiltonian.
func NewSystem(t *topology.Topology, e mech.EnergyFunc, opts ...solver.Option) *System {
	if e == nil {
		e = energy.NewKinetic(t)
	}
	asm := constraint.NewAssembler(t)
	return &System{
		Topo:   t,
		Asm:    asm,
		Solver: solver.New(t, asm, e, opts...),
		Proj:   integrators.NewProjector(t, asm),
		Energy: e,
	}
}

// Stepper builds a named integrator bound to this system.
func (s *System) Stepper(name string) (mech.Stepper, error) {
	return integrators.New(name, s.Solver, s.Proj)
}

// ProjectOntoConstraints returns a copy of st moved onto g(q)=0 with its
// velocity projected onto the constraint tangent space. Idempotent within
// the projection tolerance: a state already on the manifold moves by no
// more than that tolerance.
func (s *System) ProjectOntoConstraints(st mech.State) (mech.State, error) {
	out := st.Clone()
	if err := s.Proj.Position(out.Q); err != nil {
		return mech.State{}, err
	}
	inv := s.Topo.InvMassDiag()
	mass := s.Topo.MassDiag()
	v := make([]float64, len(out.P))
	for i := range v {
		v[i] = inv[i] * out.P[i]
	}
	if err := s.Proj.Velocity(out.Q, v); err != nil {
		return mech.State{}, err
	}
	for i := range v {
		out.P[i] = mass[i] * v[i]
	}
	return out, nil
}

// SampleInitial draws a feasible initial state: the topology's reference
// configuration perturbed by Gaussian noise of the given scale, projected
// back onto the constraint manifold, with a tangent-space velocity of the
// same scale. Deterministic for a given rng stream.
func (s *System) SampleInitial(rng *rand.Rand, scale float64) (mech.State, error) {
	n := s.Topo.DOF()
	st := mech.State{Q: s.Topo.Reference(), P: make([]float64, n)}
	mass := s.Topo.MassDiag()
	for i := 0; i < n; i++ {
		st.Q[i] += scale * rng.NormFloat64()
		st.P[i] = mass[i] * scale * rng.NormFloat64()
	}
	return s.ProjectOntoConstraints(st)
}

// Package solver assembles and solves the coupled dynamics/constraint
// linear system of a constrained mechanical system.
//
// For mass matrix M, generalized force F derived from the energy oracle,
// and constraint Jacobian J, one solve produces accelerations and
// Lagrange multipliers from the augmented (KKT) system
//
//	[ M  Jt ] [ qdd ]   [   F        ]
//	[ J  0  ] [ lam ] = [ -Jdot*qdot ]
//
// The energy function is consumed purely as a value+gradient oracle; the
// solver never inspects whether it is analytic physics or a trained model.
package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mechsim/rigidsim/internal/constraint"
	"github.com/mechsim/rigidsim/internal/mech"
	"github.com/mechsim/rigidsim/internal/topology"
)

const (
	// DefaultTol bounds the velocity-level residual |J*qdd + Jdot*qdot|
	// of an accepted solution.
	DefaultTol = 1e-6

	// DefaultCondLimit separates ill-conditioned-but-usable systems
	// (surfaced through Result.Cond) from rank-deficient ones.
	DefaultCondLimit = 1e12
)

// Result carries one solve's output. It is ephemeral: the integrator
// consumes Accel and the rest is diagnostic.
type Result struct {
	Accel    []float64 // generalized accelerations qdd
	Vel      []float64 // generalized velocities qdot = dH/dp
	Lambda   []float64 // constraint force magnitudes
	Cond     float64   // condition estimate of the KKT matrix
	Residual float64   // |J*qdd + Jdot*qdot|_inf
}

// Solver owns the read-only pieces of one system and is safe for
// concurrent use by independent rollouts.
type Solver struct {
	topo      *topology.Topology
	asm       *constraint.Assembler
	energy    mech.EnergyFunc
	tol       float64
	condLimit float64
}

// Option configures a Solver.
type Option func(*Solver)

// WithTol overrides the velocity-level residual tolerance.
func WithTol(tol float64) Option { return func(s *Solver) { s.tol = tol } }

// WithCondLimit overrides the rank-deficiency threshold.
func WithCondLimit(c float64) Option { return func(s *Solver) { s.condLimit = c } }

func New(t *topology.Topology, asm *constraint.Assembler, energy mech.EnergyFunc, opts ...Option) *Solver {
	s := &Solver{
		topo:      t,
		asm:       asm,
		energy:    energy,
		tol:       DefaultTol,
		condLimit: DefaultCondLimit,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Solve computes accelerations and multipliers at the given state.
func (s *Solver) Solve(st mech.State) (*Result, error) {
	n := s.topo.DOF()
	if len(st.Q) != n || len(st.P) != n {
		return nil, fmt.Errorf("%w: state has %d/%d coordinates, topology wants %d",
			mech.ErrInvalidState, len(st.Q), len(st.P), n)
	}

	_, dq, dp, err := s.energy.Evaluate(st.Q, st.P)
	if err != nil {
		return nil, fmt.Errorf("energy evaluation: %w", err)
	}
	// Hamilton's equations: qdot = dH/dp, generalized force F = -dH/dq.
	v := dp
	f := make([]float64, n)
	for i := range f {
		f[i] = -dq[i]
	}

	m := s.asm.Rows()
	if m == 0 {
		return s.solveFree(f, v)
	}

	jac, err := s.asm.Jacobian(st.Q)
	if err != nil {
		return nil, err
	}
	jdot, err := s.asm.JacobianDot(st.Q, v)
	if err != nil {
		return nil, err
	}

	mass := s.topo.MassDiag()
	dim := n + m
	kkt := mat.NewDense(dim, dim, nil)
	for i := 0; i < n; i++ {
		kkt.Set(i, i, mass[i])
	}
	for r := 0; r < m; r++ {
		for c := 0; c < n; c++ {
			jrc := jac.At(r, c)
			kkt.Set(n+r, c, jrc)
			kkt.Set(c, n+r, jrc)
		}
	}

	rhs := mat.NewVecDense(dim, nil)
	for i := 0; i < n; i++ {
		rhs.SetVec(i, f[i])
	}
	vVec := mat.NewVecDense(n, v)
	var stab mat.VecDense
	stab.MulVec(jdot, vVec)
	for r := 0; r < m; r++ {
		rhs.SetVec(n+r, -stab.AtVec(r))
	}

	cond := mat.Cond(kkt, 2)
	if math.IsNaN(cond) || cond > s.condLimit {
		return nil, fmt.Errorf("%w: KKT condition estimate %.3g (redundant or conflicting constraints)",
			mech.ErrSingularSystem, cond)
	}

	var lu mat.LU
	lu.Factorize(kkt)
	sol := mat.NewVecDense(dim, nil)
	if err := lu.SolveVecTo(sol, false, rhs); err != nil {
		return nil, fmt.Errorf("%w: %v", mech.ErrSingularSystem, err)
	}

	res := &Result{
		Accel:  make([]float64, n),
		Vel:    append([]float64(nil), v...),
		Lambda: make([]float64, m),
		Cond:   cond,
	}
	for i := 0; i < n; i++ {
		res.Accel[i] = sol.AtVec(i)
	}
	for r := 0; r < m; r++ {
		res.Lambda[r] = sol.AtVec(n + r)
	}

	// Verify the velocity-level constraint J*qdd + Jdot*qdot ~ 0.
	aVec := mat.NewVecDense(n, res.Accel)
	var ja mat.VecDense
	ja.MulVec(jac, aVec)
	for r := 0; r < m; r++ {
		if viol := math.Abs(ja.AtVec(r) + stab.AtVec(r)); viol > res.Residual {
			res.Residual = viol
		}
	}
	if res.Residual > s.tol {
		return nil, fmt.Errorf("%w: velocity-level residual %.3g exceeds tolerance %.3g",
			mech.ErrSingularSystem, res.Residual, s.tol)
	}
	return res, nil
}

// solveFree handles the unconstrained case: qdd = Minv * F.
func (s *Solver) solveFree(f, v []float64) (*Result, error) {
	inv := s.topo.InvMassDiag()
	a := make([]float64, len(f))
	for i := range f {
		a[i] = inv[i] * f[i]
	}
	return &Result{Accel: a, Vel: append([]float64(nil), v...), Cond: 1, Residual: 0}, nil
}

// Velocity returns qdot at the given state via the energy oracle.
func (s *Solver) Velocity(st mech.State) ([]float64, error) {
	_, _, dp, err := s.energy.Evaluate(st.Q, st.P)
	if err != nil {
		return nil, fmt.Errorf("energy evaluation: %w", err)
	}
	return dp, nil
}

// Energy returns the scalar energy at the given state.
func (s *Solver) Energy(st mech.State) (float64, error) {
	e, _, _, err := s.energy.Evaluate(st.Q, st.P)
	if err != nil {
		return 0, fmt.Errorf("energy evaluation: %w", err)
	}
	return e, nil
}

// Topology exposes the read-only topology for collaborators.
func (s *Solver) Topology() *topology.Topology { return s.topo }

// Assembler exposes the constraint assembler for collaborators.
func (s *Solver) Assembler() *constraint.Assembler { return s.asm }

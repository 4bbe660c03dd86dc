// Package integrators advances system state in time while keeping it on
// the constraint manifold.
//
// Two schemes are provided: a constrained leapfrog (RATTLE-style, the
// default, symplectic to leading order) and a classical RK4 fallback with
// post-step projection for callers that do not need strict symplecticity.
package integrators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mechsim/rigidsim/internal/constraint"
	"github.com/mechsim/rigidsim/internal/mech"
	"github.com/mechsim/rigidsim/internal/topology"
)

const (
	// DefaultProjTol is the convergence bound on |g(q)|_inf for the
	// Newton position projection.
	DefaultProjTol = 1e-10

	// DefaultMaxIter caps the Newton projection loop. The loop must fail
	// explicitly rather than run unbounded.
	DefaultMaxIter = 25
)

// Projector performs mass-weighted Newton projection onto the constraint
// manifold g(q)=0 and its tangent space J(q)*v=0. Read-only after
// construction; scratch-free, so safe for concurrent rollouts.
type Projector struct {
	topo    *topology.Topology
	asm     *constraint.Assembler
	Tol     float64
	MaxIter int
}

func NewProjector(t *topology.Topology, asm *constraint.Assembler) *Projector {
	return &Projector{topo: t, asm: asm, Tol: DefaultProjTol, MaxIter: DefaultMaxIter}
}

// Position moves q onto g(q)=0 in place. Each Newton step solves
// (J Minv Jt) mu = g and applies q -= Minv Jt mu, the minimal correction
// in the kinetic-energy metric. Fails with mech.ErrIntegrationDiverged
// when the iteration bound is exhausted.
func (p *Projector) Position(q []float64) error {
	if p.asm.Rows() == 0 {
		return nil
	}
	inv := p.topo.InvMassDiag()
	for iter := 0; iter < p.MaxIter; iter++ {
		viol, err := p.asm.MaxResidual(q)
		if err != nil {
			return err
		}
		if viol <= p.Tol {
			return nil
		}
		g, err := p.asm.Residual(q)
		if err != nil {
			return err
		}
		jac, err := p.asm.Jacobian(q)
		if err != nil {
			return err
		}
		mu, err := solveSchur(jac, inv, g)
		if err != nil {
			return err
		}
		applyCorrection(q, jac, inv, mu)
	}
	viol, err := p.asm.MaxResidual(q)
	if err != nil {
		return err
	}
	if viol <= p.Tol {
		return nil
	}
	return fmt.Errorf("%w: |g| = %.3g after %d Newton iterations",
		mech.ErrIntegrationDiverged, viol, p.MaxIter)
}

// Velocity projects v onto the tangent space at q in place, enforcing
// J(q)*v = 0. A single linear solve suffices since the system is linear
// in v.
func (p *Projector) Velocity(q, v []float64) error {
	if p.asm.Rows() == 0 {
		return nil
	}
	jac, err := p.asm.Jacobian(q)
	if err != nil {
		return err
	}
	m, _ := jac.Dims()
	jv := make([]float64, m)
	var tmp mat.VecDense
	tmp.MulVec(jac, mat.NewVecDense(len(v), v))
	for r := 0; r < m; r++ {
		jv[r] = tmp.AtVec(r)
	}
	inv := p.topo.InvMassDiag()
	mu, err := solveSchur(jac, inv, jv)
	if err != nil {
		return err
	}
	applyCorrection(v, jac, inv, mu)
	return nil
}

// solveSchur solves (J Minv Jt) mu = rhs for the projection multipliers.
func solveSchur(jac *mat.Dense, invMass, rhs []float64) ([]float64, error) {
	m, n := jac.Dims()
	jm := mat.NewDense(m, n, nil)
	for r := 0; r < m; r++ {
		for c := 0; c < n; c++ {
			jm.Set(r, c, jac.At(r, c)*invMass[c])
		}
	}
	var schur mat.Dense
	schur.Mul(jm, jac.T())

	var lu mat.LU
	lu.Factorize(&schur)
	sol := mat.NewVecDense(m, nil)
	if err := lu.SolveVecTo(sol, false, mat.NewVecDense(m, rhs)); err != nil {
		return nil, fmt.Errorf("%w: projection system: %v", mech.ErrSingularSystem, err)
	}
	mu := make([]float64, m)
	for r := 0; r < m; r++ {
		mu[r] = sol.AtVec(r)
		if math.IsNaN(mu[r]) || math.IsInf(mu[r], 0) {
			return nil, fmt.Errorf("%w: non-finite projection multiplier", mech.ErrSingularSystem)
		}
	}
	return mu, nil
}

// applyCorrection applies x -= Minv Jt mu in place.
func applyCorrection(x []float64, jac *mat.Dense, invMass, mu []float64) {
	m, n := jac.Dims()
	for c := 0; c < n; c++ {
		s := 0.0
		for r := 0; r < m; r++ {
			s += jac.At(r, c) * mu[r]
		}
		x[c] -= invMass[c] * s
	}
}

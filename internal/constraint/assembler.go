// Package constraint evaluates holonomic constraint residuals and their
// Jacobians.
//
// Every formula is closed form: g(q), J(q) = dg/dq and the stabilization
// term Jdot(q, v) are filled row by row from per-variant expressions. No
// iteration happens here and nothing is cached across states; J is
// recomputed fresh from q on every call.
package constraint

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mechsim/rigidsim/internal/mech"
	"github.com/mechsim/rigidsim/internal/topology"
)

// evaluator fills one constraint's rows. Offsets into the flat coordinate
// vector are resolved once at assembler construction.
type evaluator interface {
	rows() int
	residual(q, out []float64)
	jacobian(q []float64, j *mat.Dense, row int)
	jacobianDot(q, v []float64, jd *mat.Dense, row int)
}

// Assembler evaluates the stacked constraint system of one topology.
// It is read-only after construction and safe for concurrent use.
type Assembler struct {
	topo  *topology.Topology
	evals []evaluator
	m     int
}

// NewAssembler compiles a topology's constraint list into evaluators.
func NewAssembler(t *topology.Topology) *Assembler {
	d := t.Dim()
	evals := make([]evaluator, 0, len(t.Constraints()))
	for _, c := range t.Constraints() {
		switch c := c.(type) {
		case topology.Rod:
			evals = append(evals, &rodEval{
				i: t.Offset(c.A), j: t.Offset(c.B), d: d, l2: c.Length * c.Length,
			})
		case topology.Tether:
			anchor := append([]float64(nil), c.Point...)
			evals = append(evals, &tetherEval{
				i: t.Offset(c.Body), d: d, anchor: anchor, l2: c.Length * c.Length,
			})
		case topology.BallJoint:
			evals = append(evals, &ballJointEval{i: t.Offset(c.A), j: t.Offset(c.B), d: d})
		case topology.UnitDirector:
			evals = append(evals, &unitEval{i: t.Offset(c.Body), d: d})
		case topology.OrthogonalPair:
			evals = append(evals, &orthoEval{i: t.Offset(c.A), j: t.Offset(c.B), d: d})
		default:
			// Topology's constraint set is closed; New validated it.
			panic(fmt.Sprintf("constraint: unknown variant %T", c))
		}
	}
	m := 0
	for _, e := range evals {
		m += e.rows()
	}
	return &Assembler{topo: t, evals: evals, m: m}
}

// Rows returns the total number of scalar residuals m.
func (a *Assembler) Rows() int { return a.m }

// Residual returns g(q).
func (a *Assembler) Residual(q []float64) ([]float64, error) {
	g := make([]float64, a.m)
	row := 0
	for k, e := range a.evals {
		e.residual(q, g[row:row+e.rows()])
		for r := row; r < row+e.rows(); r++ {
			if !isFinite(g[r]) {
				return nil, fmt.Errorf("%w: residual row %d (constraint %d)", mech.ErrConstraintEval, r, k)
			}
		}
		row += e.rows()
	}
	return g, nil
}

// Jacobian returns J(q) with shape m x dof.
func (a *Assembler) Jacobian(q []float64) (*mat.Dense, error) {
	j := mat.NewDense(a.m, a.topo.DOF(), nil)
	row := 0
	for _, e := range a.evals {
		e.jacobian(q, j, row)
		row += e.rows()
	}
	if err := checkFinite(j); err != nil {
		return nil, err
	}
	return j, nil
}

// JacobianDot returns dJ/dt evaluated along velocity v, shape m x dof.
func (a *Assembler) JacobianDot(q, v []float64) (*mat.Dense, error) {
	jd := mat.NewDense(a.m, a.topo.DOF(), nil)
	row := 0
	for _, e := range a.evals {
		e.jacobianDot(q, v, jd, row)
		row += e.rows()
	}
	if err := checkFinite(jd); err != nil {
		return nil, err
	}
	return jd, nil
}

// MaxResidual returns the infinity norm of g(q).
func (a *Assembler) MaxResidual(q []float64) (float64, error) {
	g, err := a.Residual(q)
	if err != nil {
		return 0, err
	}
	max := 0.0
	for _, v := range g {
		if av := math.Abs(v); av > max {
			max = av
		}
	}
	return max, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func checkFinite(m *mat.Dense) error {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if !isFinite(m.At(i, j)) {
				return fmt.Errorf("%w: jacobian entry (%d,%d)", mech.ErrConstraintEval, i, j)
			}
		}
	}
	return nil
}

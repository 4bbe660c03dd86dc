package constraint

import (
	"errors"
	"math"
	"testing"

	"github.com/mechsim/rigidsim/internal/mech"
	"github.com/mechsim/rigidsim/internal/topology"
)

func pairTopo(t *testing.T, cons ...topology.Constraint) *topology.Topology {
	t.Helper()
	topo, err := topology.New(2,
		[]topology.Body{
			{ID: "a", Mass: 1, Ref: []float64{0, 0}},
			{ID: "b", Mass: 2, Ref: []float64{1, 0}},
		},
		cons,
	)
	if err != nil {
		t.Fatalf("topology construction failed: %v", err)
	}
	return topo
}

func TestRodResidual(t *testing.T) {
	topo := pairTopo(t, topology.Rod{A: "a", B: "b", Length: 1})
	asm := NewAssembler(topo)

	// exactly at rod length: residual zero
	g, err := asm.Residual([]float64{0, 0, 1, 0})
	if err != nil {
		t.Fatalf("residual failed: %v", err)
	}
	if math.Abs(g[0]) > 1e-15 {
		t.Errorf("residual at rest length = %g, want 0", g[0])
	}

	// stretched rod: |x|^2 - L^2 = 4 - 1 = 3
	g, err = asm.Residual([]float64{0, 0, 2, 0})
	if err != nil {
		t.Fatalf("residual failed: %v", err)
	}
	if math.Abs(g[0]-3) > 1e-15 {
		t.Errorf("residual at 2x length = %g, want 3", g[0])
	}
}

// numericJacobian builds J by central differences of the residual.
func numericJacobian(t *testing.T, asm *Assembler, q []float64) [][]float64 {
	t.Helper()
	const h = 1e-6
	m := asm.Rows()
	num := make([][]float64, m)
	for r := range num {
		num[r] = make([]float64, len(q))
	}
	for c := range q {
		qp := append([]float64(nil), q...)
		qm := append([]float64(nil), q...)
		qp[c] += h
		qm[c] -= h
		gp, err := asm.Residual(qp)
		if err != nil {
			t.Fatalf("residual failed: %v", err)
		}
		gm, err := asm.Residual(qm)
		if err != nil {
			t.Fatalf("residual failed: %v", err)
		}
		for r := 0; r < m; r++ {
			num[r][c] = (gp[r] - gm[r]) / (2 * h)
		}
	}
	return num
}

func TestJacobianMatchesFiniteDifference(t *testing.T) {
	tests := []struct {
		name string
		cons topology.Constraint
	}{
		{"rod", topology.Rod{A: "a", B: "b", Length: 1}},
		{"tether", topology.Tether{Body: "b", Point: []float64{0.3, -0.2}, Length: 1}},
		{"unit director", topology.UnitDirector{Body: "a"}},
		{"orthogonal pair", topology.OrthogonalPair{A: "a", B: "b"}},
	}

	q := []float64{0.3, -0.7, 1.2, 0.4}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo := pairTopo(t, tt.cons)
			asm := NewAssembler(topo)
			jac, err := asm.Jacobian(q)
			if err != nil {
				t.Fatalf("jacobian failed: %v", err)
			}
			num := numericJacobian(t, asm, q)
			for r := 0; r < asm.Rows(); r++ {
				for c := 0; c < topo.DOF(); c++ {
					if math.Abs(jac.At(r, c)-num[r][c]) > 1e-6 {
						t.Errorf("J[%d,%d] = %g, finite difference %g", r, c, jac.At(r, c), num[r][c])
					}
				}
			}
		})
	}
}

func TestBallJointRows(t *testing.T) {
	topo := pairTopo(t, topology.BallJoint{A: "a", B: "b"})
	asm := NewAssembler(topo)
	if asm.Rows() != 2 {
		t.Fatalf("expected 2 rows for 2d ball joint, got %d", asm.Rows())
	}
	g, err := asm.Residual([]float64{0.5, 0.5, 0.5, 0.5})
	if err != nil {
		t.Fatalf("residual failed: %v", err)
	}
	for r, v := range g {
		if v != 0 {
			t.Errorf("row %d = %g, want 0 for coincident bodies", r, v)
		}
	}
}

func TestJacobianDotMatchesDirectionalDifference(t *testing.T) {
	topo := pairTopo(t, topology.Rod{A: "a", B: "b", Length: 1})
	asm := NewAssembler(topo)

	q := []float64{0.1, 0.2, 1.0, -0.3}
	v := []float64{0.4, -0.2, 0.1, 0.5}

	jd, err := asm.JacobianDot(q, v)
	if err != nil {
		t.Fatalf("jacobian dot failed: %v", err)
	}

	// dJ/dt along v ~ (J(q + h v) - J(q - h v)) / 2h
	const h = 1e-6
	qp := make([]float64, len(q))
	qm := make([]float64, len(q))
	for i := range q {
		qp[i] = q[i] + h*v[i]
		qm[i] = q[i] - h*v[i]
	}
	jp, err := asm.Jacobian(qp)
	if err != nil {
		t.Fatalf("jacobian failed: %v", err)
	}
	jm, err := asm.Jacobian(qm)
	if err != nil {
		t.Fatalf("jacobian failed: %v", err)
	}
	for r := 0; r < asm.Rows(); r++ {
		for c := 0; c < topo.DOF(); c++ {
			num := (jp.At(r, c) - jm.At(r, c)) / (2 * h)
			if math.Abs(jd.At(r, c)-num) > 1e-6 {
				t.Errorf("Jdot[%d,%d] = %g, directional difference %g", r, c, jd.At(r, c), num)
			}
		}
	}
}

func TestNonFiniteStateRejected(t *testing.T) {
	topo := pairTopo(t, topology.Rod{A: "a", B: "b", Length: 1})
	asm := NewAssembler(topo)

	q := []float64{math.NaN(), 0, 1, 0}
	if _, err := asm.Residual(q); !errors.Is(err, mech.ErrConstraintEval) {
		t.Errorf("expected ErrConstraintEval from residual, got %v", err)
	}
	if _, err := asm.Jacobian(q); !errors.Is(err, mech.ErrConstraintEval) {
		t.Errorf("expected ErrConstraintEval from jacobian, got %v", err)
	}
}

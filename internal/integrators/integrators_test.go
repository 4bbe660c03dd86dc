package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/mechsim/rigidsim/internal/constraint"
	"github.com/mechsim/rigidsim/internal/energy"
	"github.com/mechsim/rigidsim/internal/mech"
	"github.com/mechsim/rigidsim/internal/solver"
	"github.com/mechsim/rigidsim/internal/topology"
)

func pendulum(t *testing.T) (*topology.Topology, *constraint.Assembler, *solver.Solver, *Projector) {
	t.Helper()
	topo, err := topology.Chain(1, 1, 1)
	if err != nil {
		t.Fatalf("topology failed: %v", err)
	}
	asm := constraint.NewAssembler(topo)
	slv := solver.New(topo, asm, energy.NewGravity(topo, 9.8))
	return topo, asm, slv, NewProjector(topo, asm)
}

func TestPositionProjectionRestoresManifold(t *testing.T) {
	_, asm, _, proj := pendulum(t)

	q := []float64{0.62, -0.83} // near but not on the unit circle
	if err := proj.Position(q); err != nil {
		t.Fatalf("projection failed: %v", err)
	}
	viol, err := asm.MaxResidual(q)
	if err != nil {
		t.Fatalf("residual failed: %v", err)
	}
	if viol > proj.Tol {
		t.Errorf("post-projection residual %g exceeds %g", viol, proj.Tol)
	}

	// already-feasible input is a fixed point
	before := append([]float64(nil), q...)
	if err := proj.Position(q); err != nil {
		t.Fatalf("second projection failed: %v", err)
	}
	for i := range q {
		if math.Abs(q[i]-before[i]) > 1e-12 {
			t.Errorf("feasible point moved: q[%d] %g -> %g", i, before[i], q[i])
		}
	}
}

func TestVelocityProjectionTangent(t *testing.T) {
	_, _, _, proj := pendulum(t)

	q := []float64{math.Sin(0.5), -math.Cos(0.5)}
	v := []float64{1.0, 1.0} // arbitrary, not tangent
	if err := proj.Velocity(q, v); err != nil {
		t.Fatalf("projection failed: %v", err)
	}
	// J(q) v = 2 q . v must vanish on the circle
	dot := q[0]*v[0] + q[1]*v[1]
	if math.Abs(dot) > 1e-12 {
		t.Errorf("projected velocity not tangent: q.v = %g", dot)
	}
}

func TestPositionProjectionIterationBound(t *testing.T) {
	_, _, _, proj := pendulum(t)
	proj.MaxIter = 1

	q := []float64{40, 40} // far from the manifold, one Newton step cannot land
	err := proj.Position(q)
	if !errors.Is(err, mech.ErrIntegrationDiverged) {
		t.Fatalf("expected ErrIntegrationDiverged, got %v", err)
	}
}

func TestProjectionIsMassWeighted(t *testing.T) {
	topo, err := topology.New(1,
		[]topology.Body{
			{ID: "light", Mass: 1, Ref: []float64{0}},
			{ID: "heavy", Mass: 100, Ref: []float64{1}},
		},
		[]topology.Constraint{topology.Rod{A: "light", B: "heavy", Length: 1}},
	)
	if err != nil {
		t.Fatalf("topology failed: %v", err)
	}
	asm := constraint.NewAssembler(topo)
	proj := NewProjector(topo, asm)

	q := []float64{0, 1.2} // stretched: correction must fall mostly on the light body
	if err := proj.Position(q); err != nil {
		t.Fatalf("projection failed: %v", err)
	}
	lightMove := math.Abs(q[0] - 0)
	heavyMove := math.Abs(q[1] - 1.2)
	if lightMove <= heavyMove {
		t.Errorf("light body moved %g, heavy moved %g; want light to absorb the correction", lightMove, heavyMove)
	}
	if math.Abs(math.Abs(q[1]-q[0])-1) > 1e-9 {
		t.Errorf("rod length after projection %g, want 1", math.Abs(q[1]-q[0]))
	}
}

func TestLeapfrogEnergyBounded(t *testing.T) {
	topo, err := topology.FreeRod(1, 1)
	if err != nil {
		t.Fatalf("topology failed: %v", err)
	}
	asm := constraint.NewAssembler(topo)
	slv := solver.New(topo, asm, energy.NewKinetic(topo))
	lf := NewLeapfrog(slv, NewProjector(topo, asm))

	// rigid rotation about the midpoint
	const omega = 1.0
	st := mech.State{
		Q: []float64{-0.5, 0, 0.5, 0},
		P: []float64{0, -0.5 * omega, 0, 0.5 * omega},
	}
	e0, err := slv.Energy(st)
	if err != nil {
		t.Fatalf("energy failed: %v", err)
	}

	const dt = 0.01
	for i := 0; i < 1000; i++ {
		st, err = lf.Step(st, dt)
		if err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}
	e1, err := slv.Energy(st)
	if err != nil {
		t.Fatalf("energy failed: %v", err)
	}
	drift := math.Abs(e1-e0) / math.Abs(e0)
	if drift > 5e-3 {
		t.Errorf("relative energy drift %g after 1000 steps, want < 5e-3", drift)
	}
	viol, err := asm.MaxResidual(st.Q)
	if err != nil {
		t.Fatalf("residual failed: %v", err)
	}
	if viol > 1e-8 {
		t.Errorf("constraint residual %g after 1000 steps", viol)
	}
}

func TestLeapfrogPendulumPeriod(t *testing.T) {
	_, _, slv, proj := pendulum(t)
	lf := NewLeapfrog(slv, proj)

	const theta0 = 0.05
	q, v := topology.ChainFromAngles(1, 1, []float64{theta0}, []float64{0})
	st := mech.State{Q: q, P: v}

	// measure the half-period from consecutive x zero crossings
	const dt = 0.001
	var crossings []float64
	prev := st
	for i := 0; i < 5000 && len(crossings) < 3; i++ {
		next, err := lf.Step(prev, dt)
		if err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
		if prev.Q[0]*next.Q[0] < 0 {
			// linear interpolation inside the step
			frac := prev.Q[0] / (prev.Q[0] - next.Q[0])
			crossings = append(crossings, prev.T+frac*dt)
		}
		prev = next
	}
	if len(crossings) < 3 {
		t.Fatalf("only %d zero crossings in 5 seconds", len(crossings))
	}
	period := crossings[2] - crossings[0]
	want := 2 * math.Pi * math.Sqrt(1/9.8)
	if math.Abs(period-want)/want > 0.05 {
		t.Errorf("measured period %g, want %g within 5%%", period, want)
	}
}

func TestRK4KeepsConstraint(t *testing.T) {
	_, asm, slv, proj := pendulum(t)
	rk := NewRK4(slv, proj)

	q, v := topology.ChainFromAngles(1, 1, []float64{0.9}, []float64{0.3})
	st := mech.State{Q: q, P: v}
	for i := 0; i < 200; i++ {
		var err error
		st, err = rk.Step(st, 0.01)
		if err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}
	viol, err := asm.MaxResidual(st.Q)
	if err != nil {
		t.Fatalf("residual failed: %v", err)
	}
	if viol > 1e-8 {
		t.Errorf("constraint residual %g after 200 rk4 steps", viol)
	}
}

func TestRegistry(t *testing.T) {
	_, _, slv, proj := pendulum(t)

	for _, name := range []string{"", "leapfrog", "rk4"} {
		if _, err := New(name, slv, proj); err != nil {
			t.Errorf("New(%q) failed: %v", name, err)
		}
	}
	if _, err := New("euler", slv, proj); err == nil {
		t.Error("expected error for unknown integrator name")
	}
}

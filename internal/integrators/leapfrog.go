package integrators

import (
	"github.com/mechsim/rigidsim/internal/mech"
	"github.com/mechsim/rigidsim/internal/solver"
)

// Leapfrog is the constrained symplectic scheme: a velocity-leapfrog step
// driven by the KKT accelerations, followed by RATTLE-style direct
// projection of the position onto g(q)=0 and of the velocity onto
// J(q)*v=0. Energy and momentum are preserved to leading order.
type Leapfrog struct {
	slv  *solver.Solver
	proj *Projector
}

func NewLeapfrog(slv *solver.Solver, proj *Projector) *Leapfrog {
	return &Leapfrog{slv: slv, proj: proj}
}

func (l *Leapfrog) Step(st mech.State, dt float64) (mech.State, error) {
	n := len(st.Q)
	res, err := l.slv.Solve(st)
	if err != nil {
		return mech.State{}, err
	}

	mass := l.slv.Topology().MassDiag()

	// Half-kick then drift.
	vHalf := make([]float64, n)
	q1 := make([]float64, n)
	for i := 0; i < n; i++ {
		vHalf[i] = res.Vel[i] + 0.5*dt*res.Accel[i]
		q1[i] = st.Q[i] + dt*vHalf[i]
	}
	if err := l.proj.Position(q1); err != nil {
		return mech.State{}, err
	}

	// Second half-kick uses the acceleration at the new position.
	mid := mech.State{Q: q1, P: make([]float64, n), T: st.T + dt}
	for i := 0; i < n; i++ {
		mid.P[i] = mass[i] * vHalf[i]
	}
	res1, err := l.slv.Solve(mid)
	if err != nil {
		return mech.State{}, err
	}

	v1 := make([]float64, n)
	for i := 0; i < n; i++ {
		v1[i] = vHalf[i] + 0.5*dt*res1.Accel[i]
	}
	if err := l.proj.Velocity(q1, v1); err != nil {
		return mech.State{}, err
	}

	out := mech.State{Q: q1, P: make([]float64, n), T: st.T + dt}
	for i := 0; i < n; i++ {
		out.P[i] = mass[i] * v1[i]
	}
	return out, nil
}

package integrators

import (
	"github.com/mechsim/rigidsim/internal/mech"
	"github.com/mechsim/rigidsim/internal/solver"
)

// RK4 is the explicit multi-stage fallback: classical Runge-Kutta on the
// phase flow (qdot, pdot) with the KKT solve as the force field, then a
// projection of the result back onto the constraint manifold. Not
// symplectic; useful when the driving energy is rough (e.g. a partially
// trained model) and strict long-horizon energy behavior is not required.
type RK4 struct {
	slv  *solver.Solver
	proj *Projector
}

func NewRK4(slv *solver.Solver, proj *Projector) *RK4 {
	return &RK4{slv: slv, proj: proj}
}

// deriv returns (qdot, pdot) at the given phase point.
func (r *RK4) deriv(q, p []float64, t float64) (dq, dp []float64, err error) {
	res, err := r.slv.Solve(mech.State{Q: q, P: p, T: t})
	if err != nil {
		return nil, nil, err
	}
	mass := r.slv.Topology().MassDiag()
	dp = make([]float64, len(p))
	for i := range dp {
		dp[i] = mass[i] * res.Accel[i]
	}
	return res.Vel, dp, nil
}

func (r *RK4) Step(st mech.State, dt float64) (mech.State, error) {
	n := len(st.Q)

	shift := func(x, k []float64, h float64) []float64 {
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			out[i] = x[i] + h*k[i]
		}
		return out
	}

	kq1, kp1, err := r.deriv(st.Q, st.P, st.T)
	if err != nil {
		return mech.State{}, err
	}
	kq2, kp2, err := r.deriv(shift(st.Q, kq1, dt*0.5), shift(st.P, kp1, dt*0.5), st.T+dt*0.5)
	if err != nil {
		return mech.State{}, err
	}
	kq3, kp3, err := r.deriv(shift(st.Q, kq2, dt*0.5), shift(st.P, kp2, dt*0.5), st.T+dt*0.5)
	if err != nil {
		return mech.State{}, err
	}
	kq4, kp4, err := r.deriv(shift(st.Q, kq3, dt), shift(st.P, kp3, dt), st.T+dt)
	if err != nil {
		return mech.State{}, err
	}

	out := mech.State{Q: make([]float64, n), P: make([]float64, n), T: st.T + dt}
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		out.Q[i] = st.Q[i] + dt6*(kq1[i]+2*kq2[i]+2*kq3[i]+kq4[i])
		out.P[i] = st.P[i] + dt6*(kp1[i]+2*kp2[i]+2*kp3[i]+kp4[i])
	}

	if err := r.proj.Position(out.Q); err != nil {
		return mech.State{}, err
	}
	inv := r.slv.Topology().InvMassDiag()
	mass := r.slv.Topology().MassDiag()
	v := make([]float64, n)
	for i := 0; i < n; i++ {
		v[i] = inv[i] * out.P[i]
	}
	if err := r.proj.Velocity(out.Q, v); err != nil {
		return mech.State{}, err
	}
	for i := 0; i < n; i++ {
		out.P[i] = mass[i] * v[i]
	}
	return out, nil
}

package mech

import "math"

// State is the instantaneous phase of one rollout: generalized positions Q,
// conjugate momenta P, and the simulation time T. A State is owned by
// exactly one rollout; integrators return fresh values and never mutate
// their input.
type State struct {
	Q []float64
	P []float64
	T float64
}

func (s State) Clone() State {
	c := State{
		Q: make([]float64, len(s.Q)),
		P: make([]float64, len(s.P)),
		T: s.T,
	}
	copy(c.Q, s.Q)
	copy(c.P, s.P)
	return c
}

// Dim returns the number of generalized coordinates.
func (s State) Dim() int { return len(s.Q) }

func (s State) IsValid() bool {
	for _, v := range s.Q {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	for _, v := range s.P {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// EnergyFunc is the value+gradient oracle driving the dynamics. Evaluate
// returns the scalar energy together with its gradients with respect to q
// and p. Implementations must be pure: same inputs, same outputs, no
// retained references to the argument slices. Whether the energy is a
// hand-derived Hamiltonian or a trained approximator is opaque to every
// consumer in this module.
type EnergyFunc interface {
	Evaluate(q, p []float64) (e float64, dq, dp []float64, err error)
}

// Stepper advances a state by dt. Each call is a deterministic function of
// (state, dt); no state persists across calls. Concurrent rollouts should
// each construct their own Stepper.
type Stepper interface {
	Step(s State, dt float64) (State, error)
}

// Metric accumulates a scalar diagnostic over a rollout.
type Metric interface {
	Name() string
	Observe(s State)
	Value() float64
	Reset()
}

// Observer receives every intermediate state of a rollout.
type Observer interface {
	OnStep(s State)
}

// Config controls a Simulate run. Solver and projection tolerances are
// fixed at system construction; ResidualBound is the invariant every
// emitted state must satisfy.
type Config struct {
	Dt            float64
	Steps         int
	Seed          int64
	ResidualBound float64 // bound on |g(q)| for emitted states
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Steps:         1000,
		ResidualBound: 1e-8,
		ValidateState: true,
	}
}

// Result is the trajectory produced by Simulate. States[i] corresponds to
// Times[i]; Energies and Residuals are sampled at the same instants.
type Result struct {
	States      []State
	Times       []float64
	Energies    []float64
	Residuals   []float64
	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
}

// Last returns the final state of the trajectory, from which a run can be
// restarted.
func (r *Result) Last() State {
	return r.States[len(r.States)-1]
}

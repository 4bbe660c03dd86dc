// Package metrics provides per-step diagnostics implementing mech.Metric.
package metrics

import (
	"math"

	"github.com/mechsim/rigidsim/internal/mech"
)

// EnergyDrift tracks the largest relative deviation of the oracle energy
// from its value at the first observed state.
type EnergyDrift struct {
	name     string
	energy   mech.EnergyFunc
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift(energy mech.EnergyFunc) *EnergyDrift {
	return &EnergyDrift{name: "energy_drift", energy: energy}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s mech.State) {
	val, _, _, err := e.energy.Evaluate(s.Q, s.P)
	if err != nil {
		return
	}
	if e.samples == 0 {
		e.initial = val
	}
	e.samples++
	if e.initial != 0 {
		drift := math.Abs(val-e.initial) / math.Abs(e.initial)
		if drift > e.maxDrift {
			e.maxDrift = drift
		}
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}

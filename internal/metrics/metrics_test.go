package metrics

import (
	"math"
	"testing"

	"github.com/mechsim/rigidsim/internal/constraint"
	"github.com/mechsim/rigidsim/internal/energy"
	"github.com/mechsim/rigidsim/internal/mech"
	"github.com/mechsim/rigidsim/internal/topology"
)

func TestEnergyDrift(t *testing.T) {
	topo, err := topology.New(1, []topology.Body{{ID: "a", Mass: 2, Ref: []float64{0}}}, nil)
	if err != nil {
		t.Fatalf("topology failed: %v", err)
	}
	m := NewEnergyDrift(energy.NewKinetic(topo))

	// E = p^2 / 4
	m.Observe(mech.State{Q: []float64{0}, P: []float64{2}}) // E=1, baseline
	m.Observe(mech.State{Q: []float64{0}, P: []float64{2}})
	if m.Value() != 0 {
		t.Errorf("drift after identical states = %g, want 0", m.Value())
	}
	m.Observe(mech.State{Q: []float64{0}, P: []float64{4}}) // E=4, drift 3
	if math.Abs(m.Value()-3) > 1e-12 {
		t.Errorf("drift = %g, want 3", m.Value())
	}
	// drift is a running max, smaller deviations do not lower it
	m.Observe(mech.State{Q: []float64{0}, P: []float64{2}})
	if math.Abs(m.Value()-3) > 1e-12 {
		t.Errorf("drift shrank to %g", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Errorf("value after reset = %g, want 0", m.Value())
	}
}

func TestConstraintResidual(t *testing.T) {
	topo, err := topology.Chain(1, 1, 1)
	if err != nil {
		t.Fatalf("topology failed: %v", err)
	}
	m := NewConstraintResidual(constraint.NewAssembler(topo))
	if m.Name() != "constraint_residual" {
		t.Errorf("unexpected name %q", m.Name())
	}

	m.Observe(mech.State{Q: []float64{0, -1}, P: []float64{0, 0}})
	if m.Value() != 0 {
		t.Errorf("residual on the manifold = %g, want 0", m.Value())
	}
	m.Observe(mech.State{Q: []float64{0, -2}, P: []float64{0, 0}}) // |g| = 3
	if math.Abs(m.Value()-3) > 1e-12 {
		t.Errorf("residual = %g, want 3", m.Value())
	}
}

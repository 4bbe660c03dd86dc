package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/mechsim/rigidsim/internal/mech"
)

// Runner executes rollouts of one system with a fixed stepper. Not safe
// for concurrent use; Ensemble builds one Runner per goroutine.
type Runner struct {
	sys       *System
	stepper   mech.Stepper
	metrics   []mech.Metric
	observers []mech.Observer
}

func NewRunner(sys *System, stepper mech.Stepper) *Runner {
	return &Runner{sys: sys, stepper: stepper}
}

func (r *Runner) AddMetric(m mech.Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o mech.Observer) { r.observers = append(r.observers, o) }

// Run advances x0 for cfg.Steps steps of cfg.Dt, recording every state.
// Emitted states satisfy |g(q)| <= cfg.ResidualBound. The trajectory is
// deterministic for identical inputs and restartable from Result.Last.
func (r *Runner) Run(ctx context.Context, x0 mech.State, cfg mech.Config) (*mech.Result, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	// The caller's state may be off-manifold (hand-built or perturbed);
	// the invariant applies to every state this function emits.
	x, err := r.sys.ProjectOntoConstraints(x0)
	if err != nil {
		return nil, err
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	result := &mech.Result{
		States:    make([]mech.State, 0, cfg.Steps+1),
		Times:     make([]float64, 0, cfg.Steps+1),
		Energies:  make([]float64, 0, cfg.Steps+1),
		Residuals: make([]float64, 0, cfg.Steps+1),
		Metrics:   make(map[string]float64),
	}

	record := func(st mech.State) error {
		e, err := r.sys.Solver.Energy(st)
		if err != nil {
			return err
		}
		g, err := r.sys.Asm.MaxResidual(st.Q)
		if err != nil {
			return err
		}
		result.States = append(result.States, st.Clone())
		result.Times = append(result.Times, st.T)
		result.Energies = append(result.Energies, e)
		result.Residuals = append(result.Residuals, g)
		return nil
	}

	if err := record(x); err != nil {
		return nil, err
	}
	initialEnergy := result.Energies[0]

	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		for _, m := range r.metrics {
			m.Observe(x)
		}
		for _, o := range r.observers {
			o.OnStep(x)
		}

		next, err := r.stepper.Step(x, cfg.Dt)
		if err != nil {
			return result, &mech.StepError{Step: i, Time: x.T, Wrapped: err}
		}
		if cfg.ValidateState && !next.IsValid() {
			return result, &mech.StepError{Step: i, Time: x.T, Wrapped: mech.ErrInvalidState}
		}

		x = next
		result.StepsTaken++
		if err := record(x); err != nil {
			return result, &mech.StepError{Step: i, Time: x.T, Wrapped: err}
		}
		if g := result.Residuals[len(result.Residuals)-1]; g > cfg.ResidualBound {
			return result, &mech.StepError{
				Step: i, Time: x.T,
				Wrapped: fmt.Errorf("%w: |g| = %.3g exceeds bound %.3g",
					mech.ErrIntegrationDiverged, g, cfg.ResidualBound),
			}
		}
	}

	if initialEnergy != 0 {
		final := result.Energies[len(result.Energies)-1]
		result.EnergyDrift = math.Abs(final-initialEnergy) / math.Abs(initialEnergy)
	}
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}

// Simulate is the plain entry point: leapfrog rollout of a system with no
// instrumentation.
func Simulate(ctx context.Context, sys *System, x0 mech.State, cfg mech.Config) (*mech.Result, error) {
	stepper, err := sys.Stepper("leapfrog")
	if err != nil {
		return nil, err
	}
	return NewRunner(sys, stepper).Run(ctx, x0, cfg)
}

func validate(cfg mech.Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", cfg.Steps)
	}
	if cfg.ResidualBound <= 0 {
		return fmt.Errorf("residual bound must be positive, got %g", cfg.ResidualBound)
	}
	return nil
}

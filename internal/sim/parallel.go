package sim

import (
	"context"
	"math/rand"
	"sync"

	"github.com/mechsim/rigidsim/internal/mech"
)

// Ensemble runs many independent rollouts against one shared read-only
// System. Each rollout owns its state, stepper, and rng, so constraint
// solves never cross-contaminate between rollouts.
type Ensemble struct {
	sys        *System
	integrator string
	numRuns    int
	seedStart  int64
	noiseScale float64
}

func NewEnsemble(sys *System, integrator string, numRuns int, seedStart int64, noiseScale float64) *Ensemble {
	return &Ensemble{
		sys:        sys,
		integrator: integrator,
		numRuns:    numRuns,
		seedStart:  seedStart,
		noiseScale: noiseScale,
	}
}

// Run samples one feasible initial condition per rollout and integrates
// them concurrently.
func (e *Ensemble) Run(ctx context.Context, cfg mech.Config) ([]*mech.Result, error) {
	results := make([]*mech.Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(e.seedStart + int64(idx)))
			x0, err := e.sys.SampleInitial(rng, e.noiseScale)
			if err != nil {
				errs[idx] = err
				return
			}
			stepper, err := e.sys.Stepper(e.integrator)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = NewRunner(e.sys, stepper).Run(ctx, x0, cfg)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

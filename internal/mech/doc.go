// Package mech provides the core primitives shared by the constrained
// dynamics engine.
//
// The package defines the fundamental types for simulating mechanical
// systems under exact holonomic constraints:
//
//   - [State]: generalized positions, conjugate momenta, and time
//   - [EnergyFunc]: value+gradient oracle for the system energy
//   - [Stepper]: constrained time-stepping interface
//   - [Metric], [Observer]: per-step instrumentation hooks
//
// # Example
//
//	topo, _ := topology.New(2, bodies, constraints)
//	sys := sim.NewSystem(topo, energy.NewGravity(topo, 9.8))
//	result, _ := sim.Simulate(ctx, sys, x0, cfg)
//
// # Thread Safety
//
// State values are owned by a single rollout. Everything constructed from
// a Topology is read-only after construction, so independent rollouts may
// share one topology/solver pipeline without synchronization.
package mech

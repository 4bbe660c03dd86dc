// Package energy provides analytic implementations of the mech.EnergyFunc
// oracle and combinators for composing them.
//
// The solver consumes any EnergyFunc purely through value+gradient calls,
// so a trained approximator can replace every type here without touching
// the engine; Oracle is the adapter for exactly that.
package energy

import (
	"fmt"
	"math"

	"github.com/mechsim/rigidsim/internal/mech"
	"github.com/mechsim/rigidsim/internal/topology"
)

// Kinetic is the standard Euclidean kinetic term T = p' Minv p / 2.
type Kinetic struct {
	inv []float64
}

func NewKinetic(t *topology.Topology) *Kinetic {
	return &Kinetic{inv: t.InvMassDiag()}
}

func (k *Kinetic) Evaluate(q, p []float64) (float64, []float64, []float64, error) {
	if len(p) != len(k.inv) {
		return 0, nil, nil, fmt.Errorf("kinetic: momentum has %d coordinates, want %d", len(p), len(k.inv))
	}
	e := 0.0
	dq := make([]float64, len(q))
	dp := make([]float64, len(p))
	for i, pi := range p {
		v := k.inv[i] * pi
		e += 0.5 * pi * v
		dp[i] = v
	}
	return e, dq, dp, nil
}

// GravityPotential is V = sum_i m_i g h_i with h the last spatial
// coordinate of each body.
type GravityPotential struct {
	mass []float64
	g    float64
	dim  int
}

func NewGravityPotential(t *topology.Topology, g float64) *GravityPotential {
	return &GravityPotential{mass: t.MassDiag(), g: g, dim: t.Dim()}
}

func (v *GravityPotential) Evaluate(q, p []float64) (float64, []float64, []float64, error) {
	e := 0.0
	dq := make([]float64, len(q))
	dp := make([]float64, len(p))
	for i := v.dim - 1; i < len(q); i += v.dim {
		e += v.mass[i] * v.g * q[i]
		dq[i] = v.mass[i] * v.g
	}
	return e, dq, dp, nil
}

// Spring couples two bodies with a Hookean spring of stiffness K and
// rest length Rest.
type Spring struct {
	A, B string
	K    float64
	Rest float64
}

// SpringNetwork is V = sum_s k/2 (|xa-xb| - rest)^2.
type SpringNetwork struct {
	dim     int
	springs []spring
}

type spring struct {
	i, j    int
	k, rest float64
}

func NewSpringNetwork(t *topology.Topology, springs []Spring) (*SpringNetwork, error) {
	n := &SpringNetwork{dim: t.Dim()}
	for _, s := range springs {
		if _, ok := t.Index(s.A); !ok {
			return nil, fmt.Errorf("%w: spring references unknown body %q", mech.ErrInvalidTopology, s.A)
		}
		if _, ok := t.Index(s.B); !ok {
			return nil, fmt.Errorf("%w: spring references unknown body %q", mech.ErrInvalidTopology, s.B)
		}
		n.springs = append(n.springs, spring{i: t.Offset(s.A), j: t.Offset(s.B), k: s.K, rest: s.Rest})
	}
	return n, nil
}

func (n *SpringNetwork) Evaluate(q, p []float64) (float64, []float64, []float64, error) {
	e := 0.0
	dq := make([]float64, len(q))
	dp := make([]float64, len(p))
	for _, s := range n.springs {
		r2 := 0.0
		for k := 0; k < n.dim; k++ {
			d := q[s.i+k] - q[s.j+k]
			r2 += d * d
		}
		r := math.Sqrt(r2)
		stretch := r - s.rest
		e += 0.5 * s.k * stretch * stretch
		if r < 1e-12 {
			continue // force direction undefined at coincidence
		}
		scale := s.k * stretch / r
		for k := 0; k < n.dim; k++ {
			d := q[s.i+k] - q[s.j+k]
			dq[s.i+k] += scale * d
			dq[s.j+k] -= scale * d
		}
	}
	return e, dq, dp, nil
}

// DipoleField is the orientation energy of magnetic dipoles in a uniform
// field: V = -sum_i m_i (u_i . B), where u_i is the coordinate vector of
// a director body (kept at unit norm by a UnitDirector constraint).
type DipoleField struct {
	dim     int
	offsets []int
	moments []float64
	field   []float64
}

// Dipole names a director body and its moment magnitude.
type Dipole struct {
	Body   string
	Moment float64
}

func NewDipoleField(t *topology.Topology, dipoles []Dipole, field []float64) (*DipoleField, error) {
	if len(field) != t.Dim() {
		return nil, fmt.Errorf("%w: field has %d components, want %d", mech.ErrInvalidTopology, len(field), t.Dim())
	}
	d := &DipoleField{dim: t.Dim(), field: append([]float64(nil), field...)}
	for _, dp := range dipoles {
		if _, ok := t.Index(dp.Body); !ok {
			return nil, fmt.Errorf("%w: dipole references unknown body %q", mech.ErrInvalidTopology, dp.Body)
		}
		d.offsets = append(d.offsets, t.Offset(dp.Body))
		d.moments = append(d.moments, dp.Moment)
	}
	return d, nil
}

func (d *DipoleField) Evaluate(q, p []float64) (float64, []float64, []float64, error) {
	e := 0.0
	dq := make([]float64, len(q))
	dp := make([]float64, len(p))
	for i, off := range d.offsets {
		for k := 0; k < d.dim; k++ {
			e -= d.moments[i] * q[off+k] * d.field[k]
			dq[off+k] -= d.moments[i] * d.field[k]
		}
	}
	return e, dq, dp, nil
}

// Sum composes energy terms by adding values and gradients.
type Sum []mech.EnergyFunc

func (s Sum) Evaluate(q, p []float64) (float64, []float64, []float64, error) {
	total := 0.0
	dq := make([]float64, len(q))
	dp := make([]float64, len(p))
	for _, term := range s {
		e, tdq, tdp, err := term.Evaluate(q, p)
		if err != nil {
			return 0, nil, nil, err
		}
		total += e
		for i := range dq {
			dq[i] += tdq[i]
		}
		for i := range dp {
			dp[i] += tdp[i]
		}
	}
	return total, dq, dp, nil
}

// NewGravity is the common full Hamiltonian: kinetic term plus uniform
// gravity.
func NewGravity(t *topology.Topology, g float64) mech.EnergyFunc {
	return Sum{NewKinetic(t), NewGravityPotential(t, g)}
}

// Oracle adapts a closure to the EnergyFunc interface. This is the seam
// where a trained energy model plugs into the engine.
type Oracle struct {
	Fn func(q, p []float64) (float64, []float64, []float64, error)
}

func (o Oracle) Evaluate(q, p []float64) (float64, []float64, []float64, error) {
	return o.Fn(q, p)
}

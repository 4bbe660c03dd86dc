package topology

import (
	"fmt"
	"math"
)

// Chain builds an n-link pendulum in the vertical plane: link 1 is
// tethered to the origin, each further link is a rod to its predecessor.
// Reference positions hang the chain straight down so sampling starts
// near a feasible configuration.
func Chain(links int, mass, length float64) (*Topology, error) {
	if links < 1 {
		return nil, fmt.Errorf("chain: need at least one link, got %d", links)
	}
	bodies := make([]Body, links)
	constraints := make([]Constraint, links)
	for i := 0; i < links; i++ {
		bodies[i] = Body{
			ID:   fmt.Sprintf("link%d", i+1),
			Mass: mass,
			Ref:  []float64{0, -length * float64(i+1)},
		}
	}
	constraints[0] = Tether{Body: "link1", Point: []float64{0, 0}, Length: length}
	for i := 1; i < links; i++ {
		constraints[i] = Rod{
			A:      fmt.Sprintf("link%d", i),
			B:      fmt.Sprintf("link%d", i+1),
			Length: length,
		}
	}
	return New(2, bodies, constraints)
}

// ChainFromAngles converts per-link angles and angular velocities into
// Cartesian positions and velocities for a chain built by Chain. Angles
// are measured from the downward vertical. The returned slices have one
// entry per generalized coordinate.
func ChainFromAngles(links int, length float64, theta, omega []float64) (q, v []float64) {
	q = make([]float64, 2*links)
	v = make([]float64, 2*links)
	var x, y, vx, vy float64
	for i := 0; i < links; i++ {
		s, c := math.Sin(theta[i]), math.Cos(theta[i])
		x += length * s
		y -= length * c
		vx += length * c * omega[i]
		vy += length * s * omega[i]
		q[2*i], q[2*i+1] = x, y
		v[2*i], v[2*i+1] = vx, vy
	}
	return q, v
}

// FreeRod builds two point masses joined by a single rod with no tether,
// the minimal closed system with one constraint.
func FreeRod(mass, length float64) (*Topology, error) {
	bodies := []Body{
		{ID: "a", Mass: mass, Ref: []float64{-length / 2, 0}},
		{ID: "b", Mass: mass, Ref: []float64{length / 2, 0}},
	}
	return New(2, bodies, []Constraint{Rod{A: "a", B: "b", Length: length}})
}

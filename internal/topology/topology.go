// Package topology describes the immutable body/constraint graph of a
// constrained mechanical system.
//
// Bodies are point masses (or unit directors attached to a carrier) with
// Cartesian coordinates in a fixed spatial dimension. Constraints form a
// closed tagged set; their residual and Jacobian formulas live in the
// constraint package. A Topology is a value constructed once and passed by
// read-only reference to every solver and integrator call.
package topology

import (
	"fmt"

	"github.com/mechsim/rigidsim/internal/mech"
)

// Body is one node of the graph: a point mass at a reference position.
// Ref has the topology's spatial dimension and seeds initial-condition
// sampling; it need not satisfy the constraints exactly.
type Body struct {
	ID   string
	Mass float64
	Ref  []float64
}

// Constraint is the closed set of holonomic constraint variants. Rows
// reports how many scalar residuals the variant contributes; BodyIDs the
// participating bodies.
type Constraint interface {
	Rows() int
	BodyIDs() []string
}

// Rod keeps two bodies at fixed distance Length.
type Rod struct {
	A, B   string
	Length float64
}

func (r Rod) Rows() int         { return 1 }
func (r Rod) BodyIDs() []string { return []string{r.A, r.B} }

// Tether pins a body at distance Length from the fixed anchor Point.
type Tether struct {
	Body   string
	Point  []float64
	Length float64
}

func (t Tether) Rows() int         { return 1 }
func (t Tether) BodyIDs() []string { return []string{t.Body} }

// BallJoint makes two bodies coincident, one residual per coordinate.
type BallJoint struct {
	A, B string
}

func (b BallJoint) Rows() int         { return -1 } // dim rows, resolved by Topology
func (b BallJoint) BodyIDs() []string { return []string{b.A, b.B} }

// UnitDirector constrains a body's coordinate vector to unit norm. Used
// for rigid-orientation conditions: the body's coordinates are read as a
// direction, not a position.
type UnitDirector struct {
	Body string
}

func (u UnitDirector) Rows() int         { return 1 }
func (u UnitDirector) BodyIDs() []string { return []string{u.Body} }

// OrthogonalPair constrains the coordinate vectors of two director bodies
// to be orthogonal, the pairwise orthogonality residual of a rotation
// representation.
type OrthogonalPair struct {
	A, B string
}

func (o OrthogonalPair) Rows() int         { return 1 }
func (o OrthogonalPair) BodyIDs() []string { return []string{o.A, o.B} }

// Topology is the immutable system description.
type Topology struct {
	dim         int
	bodies      []Body
	index       map[string]int
	constraints []Constraint
	rows        int
}

// New validates and constructs a topology. It fails with
// mech.ErrInvalidTopology if a constraint references an unknown body id,
// a body is duplicated or non-positively massed, or the constraint count
// reaches the coordinate count and leaves no feasible motion.
func New(dim int, bodies []Body, constraints []Constraint) (*Topology, error) {
	if dim < 1 {
		return nil, fmt.Errorf("%w: spatial dimension %d", mech.ErrInvalidTopology, dim)
	}
	if len(bodies) == 0 {
		return nil, fmt.Errorf("%w: no bodies", mech.ErrInvalidTopology)
	}

	index := make(map[string]int, len(bodies))
	for i, b := range bodies {
		if b.ID == "" {
			return nil, fmt.Errorf("%w: body %d has empty id", mech.ErrInvalidTopology, i)
		}
		if _, dup := index[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate body id %q", mech.ErrInvalidTopology, b.ID)
		}
		if b.Mass <= 0 {
			return nil, fmt.Errorf("%w: body %q has non-positive mass %g", mech.ErrInvalidTopology, b.ID, b.Mass)
		}
		if len(b.Ref) != dim {
			return nil, fmt.Errorf("%w: body %q reference has %d coordinates, want %d",
				mech.ErrInvalidTopology, b.ID, len(b.Ref), dim)
		}
		index[b.ID] = i
	}

	rows := 0
	for _, c := range constraints {
		for _, id := range c.BodyIDs() {
			if _, ok := index[id]; !ok {
				return nil, fmt.Errorf("%w: constraint references unknown body %q",
					mech.ErrInvalidTopology, id)
			}
		}
		if t, ok := c.(Tether); ok && len(t.Point) != dim {
			return nil, fmt.Errorf("%w: tether anchor has %d coordinates, want %d",
				mech.ErrInvalidTopology, len(t.Point), dim)
		}
		r := c.Rows()
		if r < 0 {
			r = dim
		}
		rows += r
	}
	if rows >= len(bodies)*dim {
		return nil, fmt.Errorf("%w: %d constraint rows on %d coordinates leaves no feasible motion",
			mech.ErrInvalidTopology, rows, len(bodies)*dim)
	}

	t := &Topology{
		dim:         dim,
		bodies:      append([]Body(nil), bodies...),
		index:       index,
		constraints: append([]Constraint(nil), constraints...),
		rows:        rows,
	}
	return t, nil
}

// Dim returns the spatial dimension.
func (t *Topology) Dim() int { return t.dim }

// DOF returns the number of generalized coordinates, bodies x dim.
func (t *Topology) DOF() int { return len(t.bodies) * t.dim }

// ConstraintRows returns the total number of scalar constraint residuals.
func (t *Topology) ConstraintRows() int { return t.rows }

func (t *Topology) Bodies() []Body             { return t.bodies }
func (t *Topology) Constraints() []Constraint  { return t.constraints }
func (t *Topology) Index(id string) (int, bool) { i, ok := t.index[id]; return i, ok }

// Offset returns the first coordinate index of the named body.
func (t *Topology) Offset(id string) int { return t.index[id] * t.dim }

// MassDiag returns the diagonal of the mass matrix, one entry per
// generalized coordinate.
func (t *Topology) MassDiag() []float64 {
	m := make([]float64, t.DOF())
	for i, b := range t.bodies {
		for k := 0; k < t.dim; k++ {
			m[i*t.dim+k] = b.Mass
		}
	}
	return m
}

// InvMassDiag returns the diagonal of the inverse mass matrix.
func (t *Topology) InvMassDiag() []float64 {
	m := t.MassDiag()
	for i := range m {
		m[i] = 1 / m[i]
	}
	return m
}

// Reference returns the concatenated reference configuration.
func (t *Topology) Reference() []float64 {
	q := make([]float64, 0, t.DOF())
	for _, b := range t.bodies {
		q = append(q, b.Ref...)
	}
	return q
}

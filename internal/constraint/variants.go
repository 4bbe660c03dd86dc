package constraint

import "gonum.org/v1/gonum/mat"

// The squared-distance form |xi-xj|^2 - L^2 is used for rod and tether
// residuals: it is smooth everywhere and its gradient 2(xi-xj) never
// divides by the current separation.

type rodEval struct {
	i, j int // coordinate offsets of the two bodies
	d    int
	l2   float64
}

func (r *rodEval) rows() int { return 1 }

func (r *rodEval) residual(q, out []float64) {
	s := -r.l2
	for k := 0; k < r.d; k++ {
		diff := q[r.i+k] - q[r.j+k]
		s += diff * diff
	}
	out[0] = s
}

func (r *rodEval) jacobian(q []float64, j *mat.Dense, row int) {
	for k := 0; k < r.d; k++ {
		diff := q[r.i+k] - q[r.j+k]
		j.Set(row, r.i+k, 2*diff)
		j.Set(row, r.j+k, -2*diff)
	}
}

func (r *rodEval) jacobianDot(q, v []float64, jd *mat.Dense, row int) {
	for k := 0; k < r.d; k++ {
		dv := v[r.i+k] - v[r.j+k]
		jd.Set(row, r.i+k, 2*dv)
		jd.Set(row, r.j+k, -2*dv)
	}
}

type tetherEval struct {
	i      int
	d      int
	anchor []float64
	l2     float64
}

func (t *tetherEval) rows() int { return 1 }

func (t *tetherEval) residual(q, out []float64) {
	s := -t.l2
	for k := 0; k < t.d; k++ {
		diff := q[t.i+k] - t.anchor[k]
		s += diff * diff
	}
	out[0] = s
}

func (t *tetherEval) jacobian(q []float64, j *mat.Dense, row int) {
	for k := 0; k < t.d; k++ {
		j.Set(row, t.i+k, 2*(q[t.i+k]-t.anchor[k]))
	}
}

func (t *tetherEval) jacobianDot(q, v []float64, jd *mat.Dense, row int) {
	for k := 0; k < t.d; k++ {
		jd.Set(row, t.i+k, 2*v[t.i+k])
	}
}

// ballJointEval pins two bodies together componentwise: d linear rows.
type ballJointEval struct {
	i, j int
	d    int
}

func (b *ballJointEval) rows() int { return b.d }

func (b *ballJointEval) residual(q, out []float64) {
	for k := 0; k < b.d; k++ {
		out[k] = q[b.i+k] - q[b.j+k]
	}
}

func (b *ballJointEval) jacobian(q []float64, j *mat.Dense, row int) {
	for k := 0; k < b.d; k++ {
		j.Set(row+k, b.i+k, 1)
		j.Set(row+k, b.j+k, -1)
	}
}

func (b *ballJointEval) jacobianDot(q, v []float64, jd *mat.Dense, row int) {
	// Linear constraint: J is constant, dJ/dt = 0.
}

// unitEval keeps a director at unit norm: u.u - 1 = 0.
type unitEval struct {
	i int
	d int
}

func (u *unitEval) rows() int { return 1 }

func (u *unitEval) residual(q, out []float64) {
	s := -1.0
	for k := 0; k < u.d; k++ {
		s += q[u.i+k] * q[u.i+k]
	}
	out[0] = s
}

func (u *unitEval) jacobian(q []float64, j *mat.Dense, row int) {
	for k := 0; k < u.d; k++ {
		j.Set(row, u.i+k, 2*q[u.i+k])
	}
}

func (u *unitEval) jacobianDot(q, v []float64, jd *mat.Dense, row int) {
	for k := 0; k < u.d; k++ {
		jd.Set(row, u.i+k, 2*v[u.i+k])
	}
}

// orthoEval keeps two directors orthogonal: u.w = 0.
type orthoEval struct {
	i, j int
	d    int
}

func (o *orthoEval) rows() int { return 1 }

func (o *orthoEval) residual(q, out []float64) {
	s := 0.0
	for k := 0; k < o.d; k++ {
		s += q[o.i+k] * q[o.j+k]
	}
	out[0] = s
}

func (o *orthoEval) jacobian(q []float64, j *mat.Dense, row int) {
	for k := 0; k < o.d; k++ {
		j.Set(row, o.i+k, q[o.j+k])
		j.Set(row, o.j+k, q[o.i+k])
	}
}

func (o *orthoEval) jacobianDot(q, v []float64, jd *mat.Dense, row int) {
	for k := 0; k < o.d; k++ {
		jd.Set(row, o.i+k, v[o.j+k])
		jd.Set(row, o.j+k, v[o.i+k])
	}
}

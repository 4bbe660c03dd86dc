package metrics

import (
	"github.com/mechsim/rigidsim/internal/constraint"
	"github.com/mechsim/rigidsim/internal/mech"
)

// ConstraintResidual tracks the worst |g(q)| seen over a rollout.
type ConstraintResidual struct {
	name    string
	asm     *constraint.Assembler
	max     float64
	samples int
}

func NewConstraintResidual(asm *constraint.Assembler) *ConstraintResidual {
	return &ConstraintResidual{name: "constraint_residual", asm: asm}
}

func (c *ConstraintResidual) Name() string { return c.name }

func (c *ConstraintResidual) Observe(s mech.State) {
	g, err := c.asm.MaxResidual(s.Q)
	if err != nil {
		return
	}
	c.samples++
	if g > c.max {
		c.max = g
	}
}

func (c *ConstraintResidual) Value() float64 { return c.max }

func (c *ConstraintResidual) Reset() {
	c.max = 0
	c.samples = 0
}

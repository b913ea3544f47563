package integrators

import "github.com/san-kum/forcelayout/internal/sim"

// Euler is the semi-implicit step: velocities already carry this tick's
// forces, so positions advance by the decayed velocity.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(s *sim.State, velocityDecay float64) {
	nodes := s.Nodes()
	for i := range nodes {
		n := &nodes[i]
		decay := velocityDecay * (1 - n.Props.Friction)

		if n.PinX {
			n.X, n.VX = n.FX, 0
		} else {
			n.VX *= decay
			n.X += n.VX
		}
		if n.PinY {
			n.Y, n.VY = n.FY, 0
		} else {
			n.VY *= decay
			n.Y += n.VY
		}
	}
}

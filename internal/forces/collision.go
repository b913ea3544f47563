package forces

import (
	"math"

	"github.com/san-kum/forcelayout/internal/sim"
)

// Collision separates pairs whose radii overlap, half the overlap to each.
type Collision struct {
	Strength float64
}

func NewCollision(strength float64) *Collision {
	return &Collision{Strength: strength}
}

func (c *Collision) Apply(s *sim.State, alpha float64) {
	k := 0.5 * c.Strength * alpha
	if k == 0 {
		return
	}
	nodes := s.Nodes()
	n := len(nodes)
	for i := 0; i < n; i++ {
		xi, yi, ri := nodes[i].X, nodes[i].Y, nodes[i].Props.Radius
		for j := i + 1; j < n; j++ {
			minDist := ri + nodes[j].Props.Radius
			dx := nodes[j].X - xi
			dy := nodes[j].Y - yi
			d2 := dx*dx + dy*dy
			if d2 == 0 || d2 >= minDist*minDist {
				continue
			}

			d := math.Sqrt(d2)
			push := (minDist - d) * k / d
			s.Accelerate(i, -push*dx, -push*dy)
			s.Accelerate(j, push*dx, push*dy)
		}
	}
}

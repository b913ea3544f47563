package forces

import "github.com/san-kum/forcelayout/internal/sim"

// Center pulls every node toward (X, Y) in proportion to its offset.
type Center struct {
	X, Y     float64
	Strength float64
}

func NewCenter(x, y, strength float64) *Center {
	return &Center{X: x, Y: y, Strength: strength}
}

func (c *Center) Apply(s *sim.State, alpha float64) {
	k := c.Strength * alpha
	if k == 0 {
		return
	}
	nodes := s.Nodes()
	for i := range nodes {
		s.Accelerate(i, (c.X-nodes[i].X)*k, (c.Y-nodes[i].Y)*k)
	}
}

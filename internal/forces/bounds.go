package forces

import "github.com/san-kum/forcelayout/internal/sim"

// Bounds keeps nodes inside a rectangle by reversing any velocity component
// that would carry a node further outside. Register it last so it sees the
// velocity every other force has produced.
type Bounds struct {
	MinX, MinY  float64
	MaxX, MaxY  float64
	Restitution float64
}

func NewBounds(minX, minY, maxX, maxY, restitution float64) *Bounds {
	return &Bounds{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY, Restitution: restitution}
}

func (b *Bounds) Apply(s *sim.State, alpha float64) {
	nodes := s.Nodes()
	for i := range nodes {
		n := &nodes[i]
		if !n.PinX {
			n.VX = bounce(n.X, n.VX, b.MinX, b.MaxX, b.Restitution)
		}
		if !n.PinY {
			n.VY = bounce(n.Y, n.VY, b.MinY, b.MaxY, b.Restitution)
		}
	}
}

func bounce(x, v, lo, hi, restitution float64) float64 {
	next := x + v
	if (next < lo && v < 0) || (next > hi && v > 0) {
		return -v * restitution
	}
	return v
}

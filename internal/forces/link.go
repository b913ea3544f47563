package forces

import (
	"math"

	"github.com/san-kum/forcelayout/internal/sim"
)

// Link pulls linked pairs toward their natural length (Hooke's law).
type Link struct{}

func NewLink() *Link { return &Link{} }

func (l *Link) Apply(s *sim.State, alpha float64) {
	nodes := s.Nodes()
	links := s.Links()
	for k := range links {
		src, dst := links[k].Ends()
		dx := nodes[dst].X - nodes[src].X
		dy := nodes[dst].Y - nodes[src].Y
		d := math.Hypot(dx, dy)
		if d == 0 {
			continue
		}

		p := links[k].Props
		f := p.Strength * (d - p.NaturalLength) * alpha / d
		s.Accelerate(src, f*dx, f*dy)
		s.Accelerate(dst, -f*dx, -f*dy)
	}
}

package sim

import (
	"math"

	"github.com/san-kum/forcelayout/internal/dynamo"
)

const (
	initialRadius = 10.0
	goldenAngle   = math.Pi * (3 - 2.23606797749979) // π(3-√5)
)

// place returns the starting position for the next node without coordinates.
// Both placements surround the centre point.
func (s *State) place() (float64, float64) {
	i := s.placed
	s.placed++

	if s.cfg.Placement == dynamo.PlacementRandom {
		return s.cfg.CenterX + (s.rng.Float64()-0.5)*s.cfg.Width,
			s.cfg.CenterY + (s.rng.Float64()-0.5)*s.cfg.Height
	}

	r := initialRadius * math.Sqrt(0.5+float64(i))
	sin, cos := math.Sincos(float64(i) * goldenAngle)
	return s.cfg.CenterX + r*cos, s.cfg.CenterY + r*sin
}

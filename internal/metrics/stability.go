package metrics

import (
	"math"

	"github.com/san-kum/forcelayout/internal/dynamo"
)

// Settled is the fraction of observed snapshots in which no node moved
// faster than threshold.
type Settled struct {
	name      string
	threshold float64
	settled   int
	samples   int
}

func NewSettled(threshold float64) *Settled {
	return &Settled{
		name:      "settled",
		threshold: threshold,
	}
}

func (s *Settled) Name() string {
	return s.name
}

func (s *Settled) Observe(snap dynamo.Snapshot) {
	s.samples++
	for _, n := range snap.Nodes {
		if math.Hypot(n.VX, n.VY) > s.threshold {
			return
		}
	}
	s.settled++
}

func (s *Settled) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.settled) / float64(s.samples)
}

func (s *Settled) Reset() {
	s.settled = 0
	s.samples = 0
}

package forces

import (
	"math"

	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/sim"
)

const parallelMinChunk = 64

// ManyBody applies the inverse-square charge force between every pair of
// nodes. Positive Strength*q pushes a pair apart.
type ManyBody struct {
	Strength float64
	Mode     dynamo.ChargeMode
	// Workers > 1 splits rows across goroutines.
	Workers int

	pool *sim.DeltaPool
}

func NewManyBody(strength float64, mode dynamo.ChargeMode) *ManyBody {
	return &ManyBody{Strength: strength, Mode: mode, pool: sim.NewDeltaPool()}
}

func (m *ManyBody) Apply(s *sim.State, alpha float64) {
	nodes := s.Nodes()
	n := len(nodes)
	if n < 2 || alpha == 0 {
		return
	}
	if m.Workers > 1 && n >= 2*parallelMinChunk {
		m.applyParallel(s, alpha)
		return
	}

	for i := 0; i < n; i++ {
		xi, yi, qi := nodes[i].X, nodes[i].Y, nodes[i].Props.Charge
		for j := i + 1; j < n; j++ {
			dx := nodes[j].X - xi
			dy := nodes[j].Y - yi
			d2 := dx*dx + dy*dy
			if d2 == 0 {
				continue
			}
			f := m.pairForce(qi, nodes[j].Props.Charge, d2, alpha)
			fx, fy := f*dx, f*dy
			s.Accelerate(i, -fx, -fy)
			s.Accelerate(j, fx, fy)
		}
	}
}

// applyParallel gives each row its own delta slot, so the merge is
// independent of scheduling.
func (m *ManyBody) applyParallel(s *sim.State, alpha float64) {
	nodes := s.Nodes()
	n := len(nodes)
	if m.pool == nil {
		m.pool = sim.NewDeltaPool()
	}
	deltas := m.pool.Get(n)
	defer m.pool.Put(deltas)

	dynamo.ParallelFor(n, m.Workers, parallelMinChunk, func(start, end int) {
		for i := start; i < end; i++ {
			xi, yi, qi := nodes[i].X, nodes[i].Y, nodes[i].Props.Charge
			var ax, ay float64
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				dx := nodes[j].X - xi
				dy := nodes[j].Y - yi
				d2 := dx*dx + dy*dy
				if d2 == 0 {
					continue
				}
				f := m.pairForce(qi, nodes[j].Props.Charge, d2, alpha)
				ax -= f * dx
				ay -= f * dy
			}
			deltas[2*i] = ax
			deltas[2*i+1] = ay
		}
	})

	for i := 0; i < n; i++ {
		s.Accelerate(i, deltas[2*i], deltas[2*i+1])
	}
}

// pairForce returns the force magnitude already divided by distance, so it
// scales the raw (dx, dy) offset.
func (m *ManyBody) pairForce(qi, qj, d2, alpha float64) float64 {
	return m.Strength * m.Mode.Combine(qi, qj) / (d2 * math.Sqrt(d2)) * alpha
}

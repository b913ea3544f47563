package forces

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/forcelayout/internal/sim"
)

// maxQuadDepth bounds subdivision; coincident nodes share a leaf below it.
const maxQuadDepth = 32

// ManyBodyApprox is the Barnes-Hut approximation of ManyBody. Charges are
// treated as repulsive magnitudes; the sign of a charge is ignored. A cell
// acts as one body at its charge-weighted centre when its side over its
// distance is below Theta and the receiving node lies outside it.
type ManyBodyApprox struct {
	Strength float64
	// Theta is the opening angle; 0 degenerates to the exact sum.
	Theta float64

	tree quadTree
}

func NewManyBodyApprox(strength, theta float64) *ManyBodyApprox {
	return &ManyBodyApprox{Strength: strength, Theta: theta}
}

func (m *ManyBodyApprox) Apply(s *sim.State, alpha float64) {
	nodes := s.Nodes()
	if len(nodes) < 2 || alpha == 0 {
		return
	}

	t := &m.tree
	t.pos = t.pos[:0]
	t.q = t.q[:0]
	for i := range nodes {
		t.pos = append(t.pos, r2.Vec{X: nodes[i].X, Y: nodes[i].Y})
		t.q = append(t.q, math.Abs(nodes[i].Props.Charge))
	}
	// Zero-charge nodes neither emit nor feel force.
	if !t.build() {
		return
	}

	theta2 := m.Theta * m.Theta
	for i := range nodes {
		if t.q[i] == 0 {
			continue
		}
		field := t.field(0, i, theta2)
		f := r2.Scale(-m.Strength*t.q[i]*alpha, field)
		s.Accelerate(i, f.X, f.Y)
	}
}

type quadNode struct {
	min  r2.Vec
	size float64
	// moment is the charge-weighted position sum; moment/q is the centre.
	moment r2.Vec
	q      float64
	child  [4]int32
	bodies []int
	split  bool
}

func (n *quadNode) contains(p r2.Vec) bool {
	return p.X >= n.min.X && p.X < n.min.X+n.size &&
		p.Y >= n.min.Y && p.Y < n.min.Y+n.size
}

// quadTree is a square region quadtree stored in one slice; child index 0
// means absent since the root is never a child.
type quadTree struct {
	nodes []quadNode
	pos   []r2.Vec
	q     []float64
}

// build inserts every charged body. It reports false when fewer than two
// bodies carry charge.
func (t *quadTree) build() bool {
	charged := 0
	lo := r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi := r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	for i, p := range t.pos {
		if t.q[i] == 0 {
			continue
		}
		charged++
		lo.X, lo.Y = math.Min(lo.X, p.X), math.Min(lo.Y, p.Y)
		hi.X, hi.Y = math.Max(hi.X, p.X), math.Max(hi.Y, p.Y)
	}
	if charged < 2 {
		return false
	}

	size := math.Max(hi.X-lo.X, hi.Y-lo.Y)
	pad := math.Max(size*0.01, 1e-6)
	t.nodes = append(t.nodes[:0], quadNode{
		min:  r2.Sub(lo, r2.Vec{X: pad, Y: pad}),
		size: size + 2*pad,
	})
	for i := range t.pos {
		if t.q[i] > 0 {
			t.insert(0, i, 0)
		}
	}
	return true
}

func (t *quadTree) insert(n int32, i, depth int) {
	nd := &t.nodes[n]
	nd.moment = r2.Add(nd.moment, r2.Scale(t.q[i], t.pos[i]))
	nd.q += t.q[i]
	if !nd.split {
		if len(nd.bodies) == 0 || depth >= maxQuadDepth {
			nd.bodies = append(nd.bodies, i)
			return
		}
		old := nd.bodies[0]
		nd.bodies = nd.bodies[:0]
		nd.split = true
		t.insert(t.child(n, old), old, depth+1)
	}
	t.insert(t.child(n, i), i, depth+1)
}

// child returns the quadrant of n holding body i, creating it if needed.
func (t *quadTree) child(n int32, i int) int32 {
	nd := t.nodes[n]
	half := nd.size / 2
	quad := 0
	corner := nd.min
	if t.pos[i].X >= nd.min.X+half {
		quad |= 1
		corner.X += half
	}
	if t.pos[i].Y >= nd.min.Y+half {
		quad |= 2
		corner.Y += half
	}
	if c := nd.child[quad]; c != 0 {
		return c
	}
	t.nodes = append(t.nodes, quadNode{min: corner, size: half})
	c := int32(len(t.nodes) - 1)
	t.nodes[n].child[quad] = c
	return c
}

// field sums q_j (p_j - p_i) / d^3 over the bodies under n.
func (t *quadTree) field(n int32, i int, theta2 float64) r2.Vec {
	nd := &t.nodes[n]
	if nd.q == 0 {
		return r2.Vec{}
	}
	p := t.pos[i]

	if !nd.split {
		var sum r2.Vec
		for _, j := range nd.bodies {
			if j == i {
				continue
			}
			sum = r2.Add(sum, pull(t.q[j], r2.Sub(t.pos[j], p)))
		}
		return sum
	}

	centre := r2.Scale(1/nd.q, nd.moment)
	v := r2.Sub(centre, p)
	d2 := v.X*v.X + v.Y*v.Y
	if d2 > 0 && nd.size*nd.size < theta2*d2 && !nd.contains(p) {
		return pull(nd.q, v)
	}

	var sum r2.Vec
	for _, c := range nd.child {
		if c != 0 {
			sum = r2.Add(sum, t.field(c, i, theta2))
		}
	}
	return sum
}

// pull is q v / |v|^3, or zero for coincident points.
func pull(q float64, v r2.Vec) r2.Vec {
	d2 := v.X*v.X + v.Y*v.Y
	if d2 == 0 {
		return r2.Vec{}
	}
	return r2.Scale(q/(d2*math.Sqrt(d2)), v)
}

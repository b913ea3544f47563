package forces

import "github.com/san-kum/forcelayout/internal/sim"

type Point struct {
	X float64 `json:"x" yaml:"x" toml:"x"`
	Y float64 `json:"y" yaml:"y" toml:"y"`
}

// Cluster pulls nodes toward a point shared by their category: the category's
// anchor when one is configured, otherwise the category centroid.
// Uncategorised nodes are left alone.
type Cluster struct {
	Strength float64
	Anchors  map[string]Point

	sums map[string]*centroid
}

type centroid struct {
	x, y float64
	n    int
}

func NewCluster(strength float64, anchors map[string]Point) *Cluster {
	return &Cluster{Strength: strength, Anchors: anchors}
}

// CategoryAnchors returns the fixed pattern-category anchors of a
// width x height canvas.
func CategoryAnchors(width, height float64) map[string]Point {
	return map[string]Point{
		"structural":   {X: width * 0.25, Y: height * 0.25},
		"process":      {X: width * 0.75, Y: height * 0.25},
		"relationship": {X: width * 0.5, Y: height * 0.75},
	}
}

func (c *Cluster) Apply(s *sim.State, alpha float64) {
	k := c.Strength * alpha
	if k == 0 {
		return
	}
	nodes := s.Nodes()

	if c.sums == nil {
		c.sums = make(map[string]*centroid)
	}
	clear(c.sums)
	for i := range nodes {
		cat := nodes[i].Category
		if cat == "" {
			continue
		}
		if _, ok := c.Anchors[cat]; ok {
			continue
		}
		cs := c.sums[cat]
		if cs == nil {
			cs = &centroid{}
			c.sums[cat] = cs
		}
		cs.x += nodes[i].X
		cs.y += nodes[i].Y
		cs.n++
	}

	for i := range nodes {
		target, ok := c.target(nodes[i].Category)
		if !ok {
			continue
		}
		s.Accelerate(i, (target.X-nodes[i].X)*k, (target.Y-nodes[i].Y)*k)
	}
}

func (c *Cluster) target(cat string) (Point, bool) {
	if cat == "" {
		return Point{}, false
	}
	if p, ok := c.Anchors[cat]; ok {
		return p, true
	}
	cs := c.sums[cat]
	if cs == nil || cs.n < 2 {
		return Point{}, false
	}
	return Point{X: cs.x / float64(cs.n), Y: cs.y / float64(cs.n)}, true
}

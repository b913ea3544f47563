package metrics

import (
	"math"
	"slices"

	"github.com/san-kum/forcelayout/internal/dynamo"
)

// AverageDistance is the mean pairwise node distance of the latest snapshot.
type AverageDistance struct {
	value float64
}

func NewAverageDistance() *AverageDistance { return &AverageDistance{} }

func (a *AverageDistance) Name() string { return "average_distance" }

func (a *AverageDistance) Observe(snap dynamo.Snapshot) {
	a.value = MeanPairDistance(snap.Nodes)
}

func (a *AverageDistance) Value() float64 { return a.value }

func (a *AverageDistance) Reset() { a.value = 0 }

func MeanPairDistance(nodes []dynamo.NodeState) float64 {
	var sum float64
	pairs := 0
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			sum += math.Hypot(nodes[j].X-nodes[i].X, nodes[j].Y-nodes[i].Y)
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

// Group summarises the nodes of one category.
type Group struct {
	Category   string
	Count      int
	CentroidX  float64
	CentroidY  float64
	MeanRadius float64
}

// Groups returns per-category centroids and mean distance from the
// centroid, sorted by category. Uncategorised nodes are skipped.
func Groups(nodes []dynamo.NodeState) []Group {
	idx := make(map[string]int)
	var groups []Group
	for _, n := range nodes {
		if n.Category == "" {
			continue
		}
		i, ok := idx[n.Category]
		if !ok {
			i = len(groups)
			idx[n.Category] = i
			groups = append(groups, Group{Category: n.Category})
		}
		groups[i].Count++
		groups[i].CentroidX += n.X
		groups[i].CentroidY += n.Y
	}
	for i := range groups {
		groups[i].CentroidX /= float64(groups[i].Count)
		groups[i].CentroidY /= float64(groups[i].Count)
	}
	for _, n := range nodes {
		if i, ok := idx[n.Category]; ok {
			groups[i].MeanRadius += math.Hypot(n.X-groups[i].CentroidX, n.Y-groups[i].CentroidY)
		}
	}
	for i := range groups {
		groups[i].MeanRadius /= float64(groups[i].Count)
	}
	slices.SortFunc(groups, func(a, b Group) int {
		switch {
		case a.Category < b.Category:
			return -1
		case a.Category > b.Category:
			return 1
		}
		return 0
	})
	return groups
}

// CategorySpread is the mean over categories of each category's mean
// distance from its centroid. Lower means tighter clusters.
type CategorySpread struct {
	value float64
}

func NewCategorySpread() *CategorySpread { return &CategorySpread{} }

func (c *CategorySpread) Name() string { return "category_spread" }

func (c *CategorySpread) Observe(snap dynamo.Snapshot) {
	groups := Groups(snap.Nodes)
	if len(groups) == 0 {
		c.value = 0
		return
	}
	var sum float64
	for _, g := range groups {
		sum += g.MeanRadius
	}
	c.value = sum / float64(len(groups))
}

func (c *CategorySpread) Value() float64 { return c.value }

func (c *CategorySpread) Reset() { c.value = 0 }

// LinkStrain is the mean relative deviation |d-L|/L of links from their
// natural length. Zero-length links are skipped.
type LinkStrain struct {
	value float64
}

func NewLinkStrain() *LinkStrain { return &LinkStrain{} }

func (l *LinkStrain) Name() string { return "link_strain" }

func (l *LinkStrain) Observe(snap dynamo.Snapshot) {
	pos := make(map[string]dynamo.NodeState, len(snap.Nodes))
	for _, n := range snap.Nodes {
		pos[n.ID] = n
	}
	var sum float64
	count := 0
	for _, lk := range snap.Links {
		a, okA := pos[lk.Source]
		b, okB := pos[lk.Target]
		if !okA || !okB || lk.Length == 0 {
			continue
		}
		d := math.Hypot(b.X-a.X, b.Y-a.Y)
		sum += math.Abs(d-lk.Length) / lk.Length
		count++
	}
	if count == 0 {
		l.value = 0
		return
	}
	l.value = sum / float64(count)
}

func (l *LinkStrain) Value() float64 { return l.value }

func (l *LinkStrain) Reset() { l.value = 0 }

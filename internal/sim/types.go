package sim

import (
	"math"

	"github.com/san-kum/forcelayout/internal/dynamo"
)

// Node is one body in the simulation arena.
type Node struct {
	ID       string
	X, Y     float64
	VX, VY   float64
	FX, FY   float64
	PinX     bool
	PinY     bool
	Props    dynamo.NodeProperties
	Category string
}

// Pinned reports whether either axis is fixed.
func (n *Node) Pinned() bool { return n.PinX || n.PinY }

// Pin fixes both axes at (x, y).
func (n *Node) Pin(x, y float64) {
	n.FX, n.FY = x, y
	n.PinX, n.PinY = true, true
}

// Unpin releases both axes.
func (n *Node) Unpin() {
	n.PinX, n.PinY = false, false
}

// Link is a spring between two nodes, referenced by id only.
type Link struct {
	ID     string
	Source string
	Target string
	Props  dynamo.LinkProperties

	src, dst int
}

// Ends returns the arena indices of the link endpoints.
func (l *Link) Ends() (int, int) { return l.src, l.dst }

// Force mutates node velocities from pre-tick positions.
type Force interface {
	Apply(s *State, alpha float64)
}

// Integrator turns accumulated velocities into positions.
type Integrator interface {
	Step(s *State, velocityDecay float64)
}

// ForceFunc adapts a plain function to Force.
type ForceFunc func(s *State, alpha float64)

func (f ForceFunc) Apply(s *State, alpha float64) { f(s, alpha) }

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

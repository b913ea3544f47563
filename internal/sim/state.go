package sim

import (
	"math"
	"math/rand"
	"slices"

	"github.com/san-kum/forcelayout/internal/dynamo"
)

// State owns the node and link arenas. Links hold endpoint ids; the arena
// indices they resolve to are refreshed whenever the node set changes.
type State struct {
	cfg dynamo.Config

	nodes     []Node
	links     []Link
	nodeIndex map[string]int
	linkIndex map[string]int

	placed int
	rng    *rand.Rand
}

func NewState(cfg dynamo.Config) *State {
	return &State{
		cfg:       cfg,
		nodeIndex: make(map[string]int),
		linkIndex: make(map[string]int),
		rng:       rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Configure swaps the defaults used for future insertions.
func (s *State) Configure(cfg dynamo.Config) { s.cfg = cfg }

func (s *State) Config() dynamo.Config { return s.cfg }

func (s *State) Len() int { return len(s.nodes) }

func (s *State) LinkCount() int { return len(s.links) }

// Nodes returns the live node arena. Forces index into it directly.
func (s *State) Nodes() []Node { return s.nodes }

// Links returns the live link arena.
func (s *State) Links() []Link { return s.links }

func (s *State) Index(id string) (int, bool) {
	i, ok := s.nodeIndex[id]
	return i, ok
}

func (s *State) Node(id string) (*Node, bool) {
	i, ok := s.nodeIndex[id]
	if !ok {
		return nil, false
	}
	return &s.nodes[i], true
}

func (s *State) Link(id string) (*Link, bool) {
	i, ok := s.linkIndex[id]
	if !ok {
		return nil, false
	}
	return &s.links[i], true
}

// AddNode resolves defaults and places the node. The state is unchanged on error.
func (s *State) AddNode(in dynamo.NodeInput) error {
	if _, dup := s.nodeIndex[in.ID]; dup {
		return dynamo.Rejected("addNode", in.ID, dynamo.ErrDuplicateID)
	}
	props := s.cfg.ResolveNode(in.Properties)
	if err := dynamo.ValidateNode(props); err != nil {
		return dynamo.Rejected("addNode", in.ID, err)
	}
	if (in.X != nil && !finite(*in.X)) || (in.Y != nil && !finite(*in.Y)) {
		return dynamo.Rejected("addNode", in.ID, &dynamo.InvalidConfigError{Field: "position", Value: math.NaN(), Reason: "must be finite"})
	}

	n := Node{ID: in.ID, Props: props, Category: in.Category}
	if in.X == nil || in.Y == nil {
		n.X, n.Y = s.place()
	}
	if in.X != nil {
		n.X = *in.X
	}
	if in.Y != nil {
		n.Y = *in.Y
	}
	if in.Pinned {
		n.Pin(n.X, n.Y)
	}

	s.nodeIndex[n.ID] = len(s.nodes)
	s.nodes = append(s.nodes, n)
	return nil
}

// RemoveNode deletes the node and every link that references it.
func (s *State) RemoveNode(id string) error {
	i, ok := s.nodeIndex[id]
	if !ok {
		return dynamo.Rejected("removeNode", id, dynamo.ErrNodeNotFound)
	}

	s.nodes = slices.Delete(s.nodes, i, i+1)
	s.links = slices.DeleteFunc(s.links, func(l Link) bool {
		return l.Source == id || l.Target == id
	})
	s.reindex()
	return nil
}

// AddLink validates both endpoints and resolves defaults.
func (s *State) AddLink(in dynamo.LinkInput) error {
	id := in.LinkID()
	if _, dup := s.linkIndex[id]; dup {
		return dynamo.Rejected("addLink", id, dynamo.ErrDuplicateID)
	}
	src, ok := s.nodeIndex[in.SourceID]
	if !ok {
		return dynamo.Rejected("addLink", in.SourceID, dynamo.ErrUnknownNodeReference)
	}
	dst, ok := s.nodeIndex[in.TargetID]
	if !ok {
		return dynamo.Rejected("addLink", in.TargetID, dynamo.ErrUnknownNodeReference)
	}
	props := s.cfg.ResolveLink(in.Properties)
	if err := dynamo.ValidateLink(props); err != nil {
		return dynamo.Rejected("addLink", id, err)
	}

	s.linkIndex[id] = len(s.links)
	s.links = append(s.links, Link{
		ID:     id,
		Source: in.SourceID,
		Target: in.TargetID,
		Props:  props,
		src:    src,
		dst:    dst,
	})
	return nil
}

func (s *State) RemoveLink(id string) error {
	i, ok := s.linkIndex[id]
	if !ok {
		return dynamo.Rejected("removeLink", id, dynamo.ErrLinkNotFound)
	}
	s.links = slices.Delete(s.links, i, i+1)
	s.reindexLinks()
	return nil
}

// UpdateNode applies the non-nil fields of u. Moving a pinned node moves its pin.
func (s *State) UpdateNode(id string, u dynamo.NodeUpdate) error {
	n, ok := s.Node(id)
	if !ok {
		return dynamo.Rejected("updateNode", id, dynamo.ErrNodeNotFound)
	}

	props := n.Props
	if u.Properties != nil {
		in := u.Properties
		if in.Mass != nil {
			props.Mass = *in.Mass
		}
		if in.Charge != nil {
			props.Charge = *in.Charge
		}
		if in.Radius != nil {
			props.Radius = *in.Radius
		}
		if in.Friction != nil {
			props.Friction = *in.Friction
		}
		if err := dynamo.ValidateNode(props); err != nil {
			return dynamo.Rejected("updateNode", id, err)
		}
	}
	if (u.X != nil && !finite(*u.X)) || (u.Y != nil && !finite(*u.Y)) {
		return dynamo.Rejected("updateNode", id, &dynamo.InvalidConfigError{Field: "position", Value: math.NaN(), Reason: "must be finite"})
	}

	n.Props = props
	if u.X != nil {
		n.X = *u.X
		if n.PinX {
			n.FX = *u.X
		}
	}
	if u.Y != nil {
		n.Y = *u.Y
		if n.PinY {
			n.FY = *u.Y
		}
	}
	if u.Category != nil {
		n.Category = *u.Category
	}
	return nil
}

func (s *State) UpdateLink(id string, u dynamo.LinkUpdate) error {
	l, ok := s.Link(id)
	if !ok {
		return dynamo.Rejected("updateLink", id, dynamo.ErrLinkNotFound)
	}
	props := l.Props
	if u.Strength != nil {
		props.Strength = *u.Strength
	}
	if u.NaturalLength != nil {
		props.NaturalLength = *u.NaturalLength
	}
	if err := dynamo.ValidateLink(props); err != nil {
		return dynamo.Rejected("updateLink", id, err)
	}
	l.Props = props
	return nil
}

// Accelerate adds (dvx, dvy) to node i, skipping pinned axes.
func (s *State) Accelerate(i int, dvx, dvy float64) {
	n := &s.nodes[i]
	if !n.PinX {
		n.VX += dvx
	}
	if !n.PinY {
		n.VY += dvy
	}
}

// IsValid reports whether every position and velocity is finite.
func (s *State) IsValid() bool {
	for i := range s.nodes {
		n := &s.nodes[i]
		if !finite(n.X) || !finite(n.Y) || !finite(n.VX) || !finite(n.VY) {
			return false
		}
	}
	return true
}

// Positions returns a copy of every node's observable state in arena order.
func (s *State) Positions() []dynamo.NodeState {
	out := make([]dynamo.NodeState, len(s.nodes))
	for i := range s.nodes {
		n := &s.nodes[i]
		out[i] = dynamo.NodeState{
			ID:       n.ID,
			X:        n.X,
			Y:        n.Y,
			VX:       n.VX,
			VY:       n.VY,
			Category: n.Category,
			Pinned:   n.Pinned(),
		}
	}
	return out
}

// Snapshot exports nodes and links with the given tick count and alpha.
func (s *State) Snapshot(tickCount int, alpha float64) dynamo.Snapshot {
	links := make([]dynamo.LinkState, len(s.links))
	for i, l := range s.links {
		links[i] = dynamo.LinkState{
			ID:     l.ID,
			Source: l.Source,
			Target: l.Target,
			Length: l.Props.NaturalLength,
		}
	}
	return dynamo.Snapshot{
		Nodes:     s.Positions(),
		Links:     links,
		TickCount: tickCount,
		Alpha:     alpha,
	}
}

func (s *State) reindex() {
	clear(s.nodeIndex)
	for i := range s.nodes {
		s.nodeIndex[s.nodes[i].ID] = i
	}
	s.reindexLinks()
}

func (s *State) reindexLinks() {
	clear(s.linkIndex)
	for i := range s.links {
		l := &s.links[i]
		s.linkIndex[l.ID] = i
		l.src = s.nodeIndex[l.Source]
		l.dst = s.nodeIndex[l.Target]
	}
}

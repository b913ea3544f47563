package dynamo

import "math"

// ChargeMode selects how two node charges combine in the many-body force.
type ChargeMode string

const (
	// ChargeProduct multiplies signed charges: like signs repel, unlike signs attract.
	ChargeProduct ChargeMode = "product"
	// ChargeMagnitude multiplies absolute charges: every pair repels.
	ChargeMagnitude ChargeMode = "magnitude"
)

// Combine returns the charge factor for a pair under the mode.
func (m ChargeMode) Combine(qi, qj float64) float64 {
	if m == ChargeMagnitude {
		return math.Abs(qi) * math.Abs(qj)
	}
	return qi * qj
}

// Placement selects where nodes without explicit coordinates start.
type Placement string

const (
	PlacementPhyllotaxis Placement = "phyllotaxis"
	PlacementRandom      Placement = "random"
)

// NodeProperties are the resolved physical properties of a node.
type NodeProperties struct {
	Mass     float64 `json:"mass" yaml:"mass"`
	Charge   float64 `json:"charge" yaml:"charge"`
	Radius   float64 `json:"radius" yaml:"radius"`
	Friction float64 `json:"friction" yaml:"friction"`
}

// LinkProperties are the resolved physical properties of a link.
type LinkProperties struct {
	Strength      float64 `json:"strength" yaml:"strength"`
	NaturalLength float64 `json:"naturalLength" yaml:"naturalLength"`
}

// NodePropertiesInput carries optional overrides; nil fields take config defaults.
type NodePropertiesInput struct {
	Mass     *float64 `json:"mass,omitempty" yaml:"mass,omitempty"`
	Charge   *float64 `json:"charge,omitempty" yaml:"charge,omitempty"`
	Radius   *float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
	Friction *float64 `json:"friction,omitempty" yaml:"friction,omitempty"`
}

// LinkPropertiesInput carries optional overrides; nil fields take config defaults.
type LinkPropertiesInput struct {
	Strength      *float64 `json:"strength,omitempty" yaml:"strength,omitempty"`
	NaturalLength *float64 `json:"naturalLength,omitempty" yaml:"naturalLength,omitempty"`
}

// NodeInput describes a node to insert. X and Y are optional; a missing
// coordinate is filled by the configured placement.
type NodeInput struct {
	ID         string               `json:"id" yaml:"id"`
	X          *float64             `json:"x,omitempty" yaml:"x,omitempty"`
	Y          *float64             `json:"y,omitempty" yaml:"y,omitempty"`
	Properties *NodePropertiesInput `json:"physicalProperties,omitempty" yaml:"physicalProperties,omitempty"`
	Category   string               `json:"category,omitempty" yaml:"category,omitempty"`
	Pinned     bool                 `json:"pinned,omitempty" yaml:"pinned,omitempty"`
}

// LinkInput describes a link to insert. An empty ID is derived as "source-target".
type LinkInput struct {
	ID         string               `json:"id,omitempty" yaml:"id,omitempty"`
	SourceID   string               `json:"sourceId" yaml:"sourceId"`
	TargetID   string               `json:"targetId" yaml:"targetId"`
	Properties *LinkPropertiesInput `json:"physicalProperties,omitempty" yaml:"physicalProperties,omitempty"`
}

// LinkID returns the explicit id or the derived "source-target" form.
func (l LinkInput) LinkID() string {
	if l.ID != "" {
		return l.ID
	}
	return l.SourceID + "-" + l.TargetID
}

// NodeUpdate changes selected fields of an existing node. Nil fields are kept.
type NodeUpdate struct {
	X          *float64
	Y          *float64
	Properties *NodePropertiesInput
	Category   *string
}

// LinkUpdate changes selected fields of an existing link. Nil fields are kept.
type LinkUpdate struct {
	Strength      *float64
	NaturalLength *float64
}

// NodeState is the externally observable state of one node.
type NodeState struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	VX       float64 `json:"vx"`
	VY       float64 `json:"vy"`
	Category string  `json:"category,omitempty"`
	Pinned   bool    `json:"pinned,omitempty"`
}

// LinkState is the externally observable state of one link.
type LinkState struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Length float64 `json:"length"`
}

// Snapshot is the full export of a simulation at a tick boundary.
type Snapshot struct {
	Nodes     []NodeState `json:"nodes"`
	Links     []LinkState `json:"links,omitempty"`
	TickCount int         `json:"tickCount"`
	Alpha     float64     `json:"alpha"`
}

// Find returns the node state with the given id.
func (s Snapshot) Find(id string) (NodeState, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeState{}, false
}

// Float returns a pointer to v, for populating optional input fields.
func Float(v float64) *float64 {
	return &v
}

package forces

import (
	"slices"

	"github.com/san-kum/forcelayout/internal/sim"
)

// Slot names used by the built-in pipeline.
const (
	NameCharge    = "charge"
	NameLink      = "link"
	NameCenter    = "center"
	NameCollision = "collision"
	NameCluster   = "cluster"
	NameBounds    = "bounds"
)

type slot struct {
	name  string
	force sim.Force
}

// Pipeline is an ordered set of named forces applied once per tick.
type Pipeline struct {
	slots []slot
}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Register appends f under name, or replaces an existing slot in place.
func (p *Pipeline) Register(name string, f sim.Force) {
	for i := range p.slots {
		if p.slots[i].name == name {
			p.slots[i].force = f
			return
		}
	}
	p.slots = append(p.slots, slot{name: name, force: f})
}

// Remove drops the named slot and reports whether it existed.
func (p *Pipeline) Remove(name string) bool {
	i := slices.IndexFunc(p.slots, func(s slot) bool { return s.name == name })
	if i < 0 {
		return false
	}
	p.slots = slices.Delete(p.slots, i, i+1)
	return true
}

func (p *Pipeline) Get(name string) (sim.Force, bool) {
	for _, s := range p.slots {
		if s.name == name {
			return s.force, true
		}
	}
	return nil, false
}

func (p *Pipeline) Names() []string {
	names := make([]string, len(p.slots))
	for i, s := range p.slots {
		names[i] = s.name
	}
	return names
}

func (p *Pipeline) Len() int { return len(p.slots) }

// Apply runs every slot in registration order.
func (p *Pipeline) Apply(s *sim.State, alpha float64) {
	for _, sl := range p.slots {
		sl.force.Apply(s, alpha)
	}
}

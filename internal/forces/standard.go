package forces

import (
	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/sim"
)

// Tunable forces take their parameters from the simulation config and are
// retuned when it changes.
type Tunable interface {
	Configure(cfg dynamo.Config)
}

// Standard returns the charge, link, center and collision pipeline.
func Standard(cfg dynamo.Config) *Pipeline {
	p := NewPipeline()
	p.Register(NameCharge, NewManyBody(cfg.ChargeStrength, cfg.ChargeMode))
	p.Register(NameLink, NewLink())
	p.Register(NameCenter, NewCenter(cfg.CenterX, cfg.CenterY, cfg.CenterStrength))
	p.Register(NameCollision, NewCollision(cfg.CollisionStrength))
	return p
}

// Configure retunes every Tunable slot.
func (p *Pipeline) Configure(cfg dynamo.Config) {
	for _, sl := range p.slots {
		if t, ok := sl.force.(Tunable); ok {
			t.Configure(cfg)
		}
	}
}

func (m *ManyBody) Configure(cfg dynamo.Config) {
	m.Strength = cfg.ChargeStrength
	m.Mode = cfg.ChargeMode
}

func (m *ManyBodyApprox) Configure(cfg dynamo.Config) {
	m.Strength = cfg.ChargeStrength
}

func (c *Center) Configure(cfg dynamo.Config) {
	c.X, c.Y = cfg.CenterX, cfg.CenterY
	c.Strength = cfg.CenterStrength
}

func (c *Collision) Configure(cfg dynamo.Config) {
	c.Strength = cfg.CollisionStrength
}

var (
	_ sim.Force = (*Pipeline)(nil)
	_ Tunable   = (*ManyBody)(nil)
	_ Tunable   = (*ManyBodyApprox)(nil)
	_ Tunable   = (*Center)(nil)
	_ Tunable   = (*Collision)(nil)
)

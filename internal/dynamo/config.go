package dynamo

import "math"

// Config holds the cooling schedule and the defaults resolved into nodes and
// links at insertion time.
type Config struct {
	Alpha         float64 `json:"alpha" yaml:"alpha" toml:"alpha"`
	AlphaMin      float64 `json:"alphaMin" yaml:"alpha_min" toml:"alpha_min"`
	AlphaDecay    float64 `json:"alphaDecay" yaml:"alpha_decay" toml:"alpha_decay"`
	AlphaTarget   float64 `json:"alphaTarget" yaml:"alpha_target" toml:"alpha_target"`
	VelocityDecay float64 `json:"velocityDecay" yaml:"velocity_decay" toml:"velocity_decay"`

	DefaultCharge       float64 `json:"defaultCharge" yaml:"default_charge" toml:"default_charge"`
	DefaultLinkStrength float64 `json:"defaultLinkStrength" yaml:"default_link_strength" toml:"default_link_strength"`
	DefaultLinkDistance float64 `json:"defaultLinkDistance" yaml:"default_link_distance" toml:"default_link_distance"`
	CollisionStrength   float64 `json:"collisionStrength" yaml:"collision_strength" toml:"collision_strength"`
	CenterStrength      float64 `json:"centerStrength" yaml:"center_strength" toml:"center_strength"`

	DefaultMass     float64 `json:"defaultMass" yaml:"default_mass" toml:"default_mass"`
	DefaultRadius   float64 `json:"defaultRadius" yaml:"default_radius" toml:"default_radius"`
	DefaultFriction float64 `json:"defaultFriction" yaml:"default_friction" toml:"default_friction"`

	ChargeMode     ChargeMode `json:"chargeMode" yaml:"charge_mode" toml:"charge_mode"`
	ChargeStrength float64    `json:"chargeStrength" yaml:"charge_strength" toml:"charge_strength"`
	CenterX        float64    `json:"centerX" yaml:"center_x" toml:"center_x"`
	CenterY        float64    `json:"centerY" yaml:"center_y" toml:"center_y"`

	// ReheatAlpha is applied on structural mutations, NudgeAlpha on drags and impulses.
	ReheatAlpha float64 `json:"reheatAlpha" yaml:"reheat_alpha" toml:"reheat_alpha"`
	NudgeAlpha  float64 `json:"nudgeAlpha" yaml:"nudge_alpha" toml:"nudge_alpha"`

	Placement Placement `json:"placement" yaml:"placement" toml:"placement"`
	Width     float64   `json:"width" yaml:"width" toml:"width"`
	Height    float64   `json:"height" yaml:"height" toml:"height"`
	Seed      int64     `json:"seed" yaml:"seed" toml:"seed"`
}

func DefaultConfig() Config {
	return Config{
		Alpha:               1.0,
		AlphaMin:            0.001,
		AlphaDecay:          0.0228,
		AlphaTarget:         0,
		VelocityDecay:       0.4,
		DefaultCharge:       -30,
		DefaultLinkStrength: 0.1,
		DefaultLinkDistance: 30,
		CollisionStrength:   1,
		CenterStrength:      0.1,
		DefaultMass:         1,
		DefaultRadius:       5,
		DefaultFriction:     0,
		ChargeMode:          ChargeProduct,
		ChargeStrength:      1,
		CenterX:             0,
		CenterY:             0,
		ReheatAlpha:         0.3,
		NudgeAlpha:          0.1,
		Placement:           PlacementPhyllotaxis,
		Width:               1000,
		Height:              1000,
	}
}

// Validate reports the first non-finite or out-of-range value.
func (c Config) Validate() error {
	finite := []struct {
		name string
		v    float64
	}{
		{"alpha", c.Alpha},
		{"alphaMin", c.AlphaMin},
		{"alphaDecay", c.AlphaDecay},
		{"alphaTarget", c.AlphaTarget},
		{"velocityDecay", c.VelocityDecay},
		{"defaultCharge", c.DefaultCharge},
		{"defaultLinkStrength", c.DefaultLinkStrength},
		{"defaultLinkDistance", c.DefaultLinkDistance},
		{"collisionStrength", c.CollisionStrength},
		{"centerStrength", c.CenterStrength},
		{"defaultMass", c.DefaultMass},
		{"defaultRadius", c.DefaultRadius},
		{"defaultFriction", c.DefaultFriction},
		{"chargeStrength", c.ChargeStrength},
		{"centerX", c.CenterX},
		{"centerY", c.CenterY},
		{"reheatAlpha", c.ReheatAlpha},
		{"nudgeAlpha", c.NudgeAlpha},
		{"width", c.Width},
		{"height", c.Height},
	}
	for _, f := range finite {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &InvalidConfigError{Field: f.name, Value: f.v, Reason: "must be finite"}
		}
	}

	switch {
	case c.AlphaMin < 0:
		return &InvalidConfigError{Field: "alphaMin", Value: c.AlphaMin, Reason: "must be non-negative"}
	case c.Alpha < c.AlphaMin:
		return &InvalidConfigError{Field: "alpha", Value: c.Alpha, Reason: "must not be below alphaMin"}
	case c.AlphaDecay <= 0 || c.AlphaDecay >= 1:
		return &InvalidConfigError{Field: "alphaDecay", Value: c.AlphaDecay, Reason: "must be in (0, 1)"}
	case c.AlphaTarget < 0:
		return &InvalidConfigError{Field: "alphaTarget", Value: c.AlphaTarget, Reason: "must be non-negative"}
	case c.VelocityDecay < 0 || c.VelocityDecay > 1:
		return &InvalidConfigError{Field: "velocityDecay", Value: c.VelocityDecay, Reason: "must be in [0, 1]"}
	case c.DefaultLinkDistance < 0:
		return &InvalidConfigError{Field: "defaultLinkDistance", Value: c.DefaultLinkDistance, Reason: "must be non-negative"}
	case c.DefaultMass <= 0:
		return &InvalidConfigError{Field: "defaultMass", Value: c.DefaultMass, Reason: "must be positive"}
	case c.DefaultRadius < 0:
		return &InvalidConfigError{Field: "defaultRadius", Value: c.DefaultRadius, Reason: "must be non-negative"}
	case c.DefaultFriction < 0 || c.DefaultFriction >= 1:
		return &InvalidConfigError{Field: "defaultFriction", Value: c.DefaultFriction, Reason: "must be in [0, 1)"}
	case c.ReheatAlpha < 0:
		return &InvalidConfigError{Field: "reheatAlpha", Value: c.ReheatAlpha, Reason: "must be non-negative"}
	case c.NudgeAlpha < 0:
		return &InvalidConfigError{Field: "nudgeAlpha", Value: c.NudgeAlpha, Reason: "must be non-negative"}
	case c.Width < 0 || c.Height < 0:
		return &InvalidConfigError{Field: "width/height", Value: math.Min(c.Width, c.Height), Reason: "must be non-negative"}
	}

	switch c.ChargeMode {
	case ChargeProduct, ChargeMagnitude:
	default:
		return &InvalidConfigError{Field: "chargeMode(" + string(c.ChargeMode) + ")", Value: math.NaN(), Reason: "must be product or magnitude"}
	}
	switch c.Placement {
	case PlacementPhyllotaxis, PlacementRandom:
	default:
		return &InvalidConfigError{Field: "placement(" + string(c.Placement) + ")", Value: math.NaN(), Reason: "must be phyllotaxis or random"}
	}
	return nil
}

// ResolveNode fills every missing property from the config defaults.
func (c Config) ResolveNode(in *NodePropertiesInput) NodeProperties {
	p := NodeProperties{
		Mass:     c.DefaultMass,
		Charge:   c.DefaultCharge,
		Radius:   c.DefaultRadius,
		Friction: c.DefaultFriction,
	}
	if in == nil {
		return p
	}
	if in.Mass != nil {
		p.Mass = *in.Mass
	}
	if in.Charge != nil {
		p.Charge = *in.Charge
	}
	if in.Radius != nil {
		p.Radius = *in.Radius
	}
	if in.Friction != nil {
		p.Friction = *in.Friction
	}
	return p
}

// ResolveLink fills every missing property from the config defaults.
func (c Config) ResolveLink(in *LinkPropertiesInput) LinkProperties {
	p := LinkProperties{
		Strength:      c.DefaultLinkStrength,
		NaturalLength: c.DefaultLinkDistance,
	}
	if in == nil {
		return p
	}
	if in.Strength != nil {
		p.Strength = *in.Strength
	}
	if in.NaturalLength != nil {
		p.NaturalLength = *in.NaturalLength
	}
	return p
}

// ValidateNode rejects non-finite or physically meaningless node properties.
func ValidateNode(p NodeProperties) error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"mass", p.Mass}, {"charge", p.Charge}, {"radius", p.Radius}, {"friction", p.Friction}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &InvalidConfigError{Field: f.name, Value: f.v, Reason: "must be finite"}
		}
	}
	if p.Mass <= 0 {
		return &InvalidConfigError{Field: "mass", Value: p.Mass, Reason: "must be positive"}
	}
	if p.Radius < 0 {
		return &InvalidConfigError{Field: "radius", Value: p.Radius, Reason: "must be non-negative"}
	}
	if p.Friction < 0 || p.Friction >= 1 {
		return &InvalidConfigError{Field: "friction", Value: p.Friction, Reason: "must be in [0, 1)"}
	}
	return nil
}

// ValidateLink rejects non-finite or negative link properties.
func ValidateLink(p LinkProperties) error {
	if math.IsNaN(p.Strength) || math.IsInf(p.Strength, 0) {
		return &InvalidConfigError{Field: "strength", Value: p.Strength, Reason: "must be finite"}
	}
	if math.IsNaN(p.NaturalLength) || math.IsInf(p.NaturalLength, 0) || p.NaturalLength < 0 {
		return &InvalidConfigError{Field: "naturalLength", Value: p.NaturalLength, Reason: "must be finite and non-negative"}
	}
	return nil
}

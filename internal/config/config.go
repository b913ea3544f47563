package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/forces"
)

const (
	DefaultTheta     = 0.9
	DefaultMaxTicks  = 5000
	DefaultTickRate  = 60
	DefaultOutputDir = "runs"
	DefaultAddr      = "127.0.0.1:8080"
)

// Many-body modes.
const (
	ManyBodyExact  = "exact"
	ManyBodyApprox = "approx"
	ManyBodyOff    = "off"
)

type Config struct {
	Simulation dynamo.Config `yaml:"simulation" toml:"simulation"`
	Forces     ForcesConfig  `yaml:"forces" toml:"forces"`
	Run        RunConfig     `yaml:"run" toml:"run"`
}

type ForcesConfig struct {
	ManyBody  string         `yaml:"many_body" toml:"many_body"`
	Theta     float64        `yaml:"theta" toml:"theta"`
	Workers   int            `yaml:"workers" toml:"workers"`
	Links     bool           `yaml:"links" toml:"links"`
	Center    bool           `yaml:"center" toml:"center"`
	Collision bool           `yaml:"collision" toml:"collision"`
	Cluster   *ClusterConfig `yaml:"cluster,omitempty" toml:"cluster,omitempty"`
	Bounds    *BoundsConfig  `yaml:"bounds,omitempty" toml:"bounds,omitempty"`
}

type ClusterConfig struct {
	Strength float64                 `yaml:"strength" toml:"strength"`
	Anchors  map[string]forces.Point `yaml:"anchors,omitempty" toml:"anchors,omitempty"`
	// CategoryAnchors adds the structural/process/relationship anchors of
	// the simulation canvas.
	CategoryAnchors bool `yaml:"category_anchors" toml:"category_anchors"`
}

type BoundsConfig struct {
	MinX        float64 `yaml:"min_x" toml:"min_x"`
	MinY        float64 `yaml:"min_y" toml:"min_y"`
	MaxX        float64 `yaml:"max_x" toml:"max_x"`
	MaxY        float64 `yaml:"max_y" toml:"max_y"`
	Restitution float64 `yaml:"restitution" toml:"restitution"`
}

type RunConfig struct {
	Name      string `yaml:"name" toml:"name"`
	MaxTicks  int    `yaml:"max_ticks" toml:"max_ticks"`
	TickRate  int    `yaml:"tick_rate" toml:"tick_rate"`
	OutputDir string `yaml:"output_dir" toml:"output_dir"`
	Addr      string `yaml:"addr" toml:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		Simulation: dynamo.DefaultConfig(),
		Forces: ForcesConfig{
			ManyBody:  ManyBodyExact,
			Theta:     DefaultTheta,
			Links:     true,
			Center:    true,
			Collision: true,
		},
		Run: RunConfig{
			Name:      "layout",
			MaxTicks:  DefaultMaxTicks,
			TickRate:  DefaultTickRate,
			OutputDir: DefaultOutputDir,
			Addr:      DefaultAddr,
		},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads a YAML or TOML file over the defaults. The format follows the
// file extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = yaml.Marshal(cfg)
		if err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return err
	}
	switch c.Forces.ManyBody {
	case ManyBodyExact, ManyBodyApprox, ManyBodyOff:
	default:
		return &dynamo.InvalidConfigError{
			Field:  "many_body(" + c.Forces.ManyBody + ")",
			Value:  math.NaN(),
			Reason: "must be exact, approx or off",
		}
	}

	type field struct {
		name string
		v    float64
	}
	finite := []field{{"theta", c.Forces.Theta}}
	if cl := c.Forces.Cluster; cl != nil {
		finite = append(finite, field{"cluster.strength", cl.Strength})
	}
	if b := c.Forces.Bounds; b != nil {
		finite = append(finite,
			field{"bounds.min_x", b.MinX},
			field{"bounds.min_y", b.MinY},
			field{"bounds.max_x", b.MaxX},
			field{"bounds.max_y", b.MaxY},
			field{"bounds.restitution", b.Restitution},
		)
	}
	for _, f := range finite {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &dynamo.InvalidConfigError{Field: f.name, Value: f.v, Reason: "must be finite"}
		}
	}

	if c.Forces.Theta < 0 {
		return &dynamo.InvalidConfigError{Field: "theta", Value: c.Forces.Theta, Reason: "must be non-negative"}
	}
	if b := c.Forces.Bounds; b != nil && (b.MaxX < b.MinX || b.MaxY < b.MinY) {
		return &dynamo.InvalidConfigError{Field: "bounds", Value: b.MaxX - b.MinX, Reason: "max must not be below min"}
	}
	if c.Run.MaxTicks < 0 {
		return &dynamo.InvalidConfigError{Field: "max_ticks", Value: float64(c.Run.MaxTicks), Reason: "must be non-negative"}
	}
	return nil
}

// BuildPipeline assembles the force pipeline described by the config.
// Bounds, when present, is registered last.
func BuildPipeline(c *Config) (*forces.Pipeline, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	sim := c.Simulation
	p := forces.NewPipeline()

	switch c.Forces.ManyBody {
	case ManyBodyExact:
		mb := forces.NewManyBody(sim.ChargeStrength, sim.ChargeMode)
		mb.Workers = c.Forces.Workers
		p.Register(forces.NameCharge, mb)
	case ManyBodyApprox:
		p.Register(forces.NameCharge, forces.NewManyBodyApprox(sim.ChargeStrength, c.Forces.Theta))
	}
	if c.Forces.Links {
		p.Register(forces.NameLink, forces.NewLink())
	}
	if c.Forces.Center {
		p.Register(forces.NameCenter, forces.NewCenter(sim.CenterX, sim.CenterY, sim.CenterStrength))
	}
	if c.Forces.Collision {
		p.Register(forces.NameCollision, forces.NewCollision(sim.CollisionStrength))
	}
	if cl := c.Forces.Cluster; cl != nil {
		anchors := make(map[string]forces.Point)
		if cl.CategoryAnchors {
			for k, v := range forces.CategoryAnchors(sim.Width, sim.Height) {
				anchors[k] = v
			}
		}
		for k, v := range cl.Anchors {
			anchors[k] = v
		}
		p.Register(forces.NameCluster, forces.NewCluster(cl.Strength, anchors))
	}
	if b := c.Forces.Bounds; b != nil {
		p.Register(forces.NameBounds, forces.NewBounds(b.MinX, b.MinY, b.MaxX, b.MaxY, b.Restitution))
	}
	return p, nil
}

package config

import (
	"maps"
	"slices"
)

var Presets = map[string]func() *Config{
	"default": DefaultConfig,
	"springs": func() *Config {
		cfg := DefaultConfig()
		cfg.Forces.ManyBody = ManyBodyOff
		cfg.Forces.Collision = false
		cfg.Simulation.DefaultLinkStrength = 1
		cfg.Simulation.DefaultLinkDistance = 50
		cfg.Simulation.AlphaDecay = 0.01
		return cfg
	},
	"clustered": func() *Config {
		cfg := DefaultConfig()
		cfg.Simulation.CenterX = cfg.Simulation.Width / 2
		cfg.Simulation.CenterY = cfg.Simulation.Height / 2
		cfg.Simulation.CenterStrength = 0.02
		cfg.Forces.Cluster = &ClusterConfig{Strength: 0.01, CategoryAnchors: true}
		return cfg
	},
	"bounded": func() *Config {
		cfg := DefaultConfig()
		cfg.Simulation.CenterX = cfg.Simulation.Width / 2
		cfg.Simulation.CenterY = cfg.Simulation.Height / 2
		cfg.Forces.Bounds = &BoundsConfig{
			MaxX:        cfg.Simulation.Width,
			MaxY:        cfg.Simulation.Height,
			Restitution: 0.8,
		}
		return cfg
	},
	"large": func() *Config {
		cfg := DefaultConfig()
		cfg.Forces.ManyBody = ManyBodyApprox
		cfg.Forces.Collision = false
		cfg.Simulation.VelocityDecay = 0.6
		cfg.Run.MaxTicks = 1000
		return cfg
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	return slices.Sorted(maps.Keys(Presets))
}

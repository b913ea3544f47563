package optim

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/san-kum/forcelayout/internal/config"
	"github.com/san-kum/forcelayout/internal/engine"
	"github.com/san-kum/forcelayout/internal/graphio"
	"github.com/san-kum/forcelayout/internal/metrics"
)

// MetricTicks scores a combination by how many ticks it took to stabilize.
const MetricTicks = "ticks"

var tunable = map[string]func(*config.Config) *float64{
	"alpha_decay":        func(c *config.Config) *float64 { return &c.Simulation.AlphaDecay },
	"velocity_decay":     func(c *config.Config) *float64 { return &c.Simulation.VelocityDecay },
	"charge_strength":    func(c *config.Config) *float64 { return &c.Simulation.ChargeStrength },
	"default_charge":     func(c *config.Config) *float64 { return &c.Simulation.DefaultCharge },
	"link_distance":      func(c *config.Config) *float64 { return &c.Simulation.DefaultLinkDistance },
	"link_strength":      func(c *config.Config) *float64 { return &c.Simulation.DefaultLinkStrength },
	"center_strength":    func(c *config.Config) *float64 { return &c.Simulation.CenterStrength },
	"collision_strength": func(c *config.Config) *float64 { return &c.Simulation.CollisionStrength },
	"theta":              func(c *config.Config) *float64 { return &c.Forces.Theta },
}

// Tunable lists the parameter names Apply accepts.
func Tunable() []string {
	names := make([]string, 0, len(tunable))
	for k := range tunable {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Metrics lists the scores a layout search can minimize.
func Metrics() []string {
	return []string{MetricTicks, "kinetic_energy", "average_distance", "category_spread", "link_strain"}
}

// Apply sets each named parameter on cfg.
func Apply(cfg *config.Config, params map[string]float64) error {
	for name, v := range params {
		field, ok := tunable[name]
		if !ok {
			return fmt.Errorf("optim: unknown parameter %q (have %s)", name, strings.Join(Tunable(), ", "))
		}
		*field(cfg) = v
	}
	return nil
}

// LayoutEval lays doc out under base with each combination applied and
// scores the final layout by metric. Runs that hit maxTicks still score.
func LayoutEval(doc *graphio.Document, base *config.Config, metric string, maxTicks int, logger *log.Logger) (EvalFunc, error) {
	if !slices.Contains(Metrics(), metric) {
		return nil, fmt.Errorf("optim: unknown metric %q (have %s)", metric, strings.Join(Metrics(), ", "))
	}
	if maxTicks <= 0 {
		maxTicks = config.DefaultMaxTicks
	}

	return func(ctx context.Context, params map[string]float64) (float64, error) {
		cfg := *base
		if err := Apply(&cfg, params); err != nil {
			return 0, err
		}
		pipeline, err := config.BuildPipeline(&cfg)
		if err != nil {
			return 0, err
		}
		eng := engine.New(engine.WithLogger(logger), engine.WithPipeline(pipeline))
		if err := eng.Initialize(doc.Nodes, doc.Links, cfg.Simulation); err != nil {
			return 0, err
		}

		const chunk = 100
		ticks := 0
		for ticks < maxTicks {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			ran := eng.Step(min(chunk, maxTicks-ticks))
			ticks += ran
			if ran == 0 {
				break
			}
		}

		if metric == MetricTicks {
			return float64(ticks), nil
		}
		snap := eng.Export()
		for _, m := range metrics.Standard() {
			if m.Name() == metric {
				m.Observe(snap)
				return m.Value(), nil
			}
		}
		return 0, fmt.Errorf("optim: unknown metric %q", metric)
	}, nil
}

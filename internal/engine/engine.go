// Package engine runs a force-directed layout: it owns the simulation state
// and the cooling schedule, applies the force pipeline once per tick, and
// notifies listeners of progress.
//
// An Engine is not safe for concurrent use. Hosts that mutate from several
// goroutines must serialize access, see stream.Driver.
package engine

import (
	"github.com/charmbracelet/log"

	"github.com/san-kum/forcelayout/internal/cooling"
	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/forces"
	"github.com/san-kum/forcelayout/internal/integrators"
	"github.com/san-kum/forcelayout/internal/sim"
)

type Engine struct {
	cfg        dynamo.Config
	state      *sim.State
	pipeline   *forces.Pipeline
	integrator sim.Integrator
	cooling    *cooling.Scheduler
	ticks      int

	drags map[string]struct{}

	listeners listeners
	diag      func(error)
	logger    *log.Logger
}

type Option func(*Engine)

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithDiagnostics routes listener failures to fn instead of the logger.
func WithDiagnostics(fn func(error)) Option {
	return func(e *Engine) { e.diag = fn }
}

// WithPipeline replaces the standard force pipeline.
func WithPipeline(p *forces.Pipeline) Option {
	return func(e *Engine) { e.pipeline = p }
}

func WithIntegrator(i sim.Integrator) Option {
	return func(e *Engine) { e.integrator = i }
}

// WithConfig sets the config of the empty engine. Initialize replaces it.
func WithConfig(cfg dynamo.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// New returns an idle engine with no nodes.
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:        dynamo.DefaultConfig(),
		integrator: integrators.NewEuler(),
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pipeline == nil {
		e.pipeline = forces.Standard(e.cfg)
	}
	if e.diag == nil {
		e.diag = func(err error) { e.logger.Warn("listener failed", "err", err) }
	}
	e.state = sim.NewState(e.cfg)
	e.cooling = cooling.New(schedule(e.cfg))
	return e
}

func schedule(cfg dynamo.Config) cooling.Params {
	return cooling.Params{
		Alpha:       cfg.Alpha,
		AlphaMin:    cfg.AlphaMin,
		AlphaDecay:  cfg.AlphaDecay,
		AlphaTarget: cfg.AlphaTarget,
	}
}

// Initialize replaces the graph and config and starts the schedule. On
// error the engine is left exactly as it was.
func (e *Engine) Initialize(nodes []dynamo.NodeInput, links []dynamo.LinkInput, cfg dynamo.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	state := sim.NewState(cfg)
	for _, n := range nodes {
		if err := state.AddNode(n); err != nil {
			return err
		}
	}
	for _, l := range links {
		if err := state.AddLink(l); err != nil {
			return err
		}
	}

	e.cfg = cfg
	e.state = state
	e.ticks = 0
	e.drags = nil
	e.pipeline.Configure(cfg)
	e.cooling = cooling.New(schedule(cfg))
	e.cooling.Start()

	e.logger.Debug("initialized", "nodes", state.Len(), "links", state.LinkCount(), "alpha", cfg.Alpha)
	return nil
}

// SetConfig validates and applies cfg. Defaults affect later insertions
// only; tunable forces and the schedule are updated immediately.
func (e *Engine) SetConfig(cfg dynamo.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg
	e.state.Configure(cfg)
	e.pipeline.Configure(cfg)
	e.cooling.Configure(e.params())
	if e.cooling.Status() != cooling.Idle {
		e.reheat(cfg.ReheatAlpha)
	}
	return nil
}

// Tick runs one force pass, one integration step and one cooling step. It
// returns whether the caller should keep ticking. Outside Running it does
// nothing.
func (e *Engine) Tick() bool {
	if e.cooling.Status() != cooling.Running {
		return false
	}

	e.pipeline.Apply(e.state, e.cooling.Alpha())
	e.integrator.Step(e.state, e.cfg.VelocityDecay)
	e.ticks++
	stabilized := e.cooling.Step()

	if e.listeners.hasTick() {
		e.emitTick(e.Export())
	}
	if stabilized {
		e.logger.Debug("stabilized", "ticks", e.ticks, "alpha", e.cooling.Alpha())
		e.emitStabilized(e.Export())
	}
	return e.cooling.Status() == cooling.Running
}

// Step ticks up to n times, stopping early once the layout leaves Running.
// It returns the number of ticks run.
func (e *Engine) Step(n int) int {
	ran := 0
	for ran < n && e.cooling.Status() == cooling.Running {
		e.Tick()
		ran++
	}
	return ran
}

// Start reheats to the configured alpha.
func (e *Engine) Start() error {
	if e.state.Len() == 0 {
		return dynamo.ErrNotInitialized
	}
	e.cooling.Start()
	e.logger.Debug("started", "alpha", e.cooling.Alpha())
	return nil
}

func (e *Engine) Pause() {
	e.cooling.Pause()
	e.logger.Debug("paused", "alpha", e.cooling.Alpha())
}

func (e *Engine) Resume() {
	e.cooling.Resume()
	e.logger.Debug("resumed", "status", e.cooling.Status())
}

// Reheat raises alpha to at least a and resumes ticking. A negative or
// non-finite a leaves the run state untouched.
func (e *Engine) Reheat(a float64) error {
	if !cooling.ValidAlpha(a) {
		return &dynamo.InvalidConfigError{Field: "alpha", Value: a, Reason: "must be finite and non-negative"}
	}
	e.reheat(a)
	return nil
}

func (e *Engine) reheat(a float64) {
	before := e.cooling.Status()
	e.cooling.Reheat(a)
	if before != cooling.Running {
		e.logger.Debug("reheated", "from", before, "alpha", e.cooling.Alpha())
	}
}

// params is the schedule with alphaTarget raised while any node is dragged.
func (e *Engine) params() cooling.Params {
	p := schedule(e.cfg)
	if len(e.drags) > 0 {
		p.AlphaTarget = max(p.AlphaTarget, e.cfg.NudgeAlpha)
	}
	return p
}

func (e *Engine) Status() cooling.Status { return e.cooling.Status() }

func (e *Engine) Alpha() float64 { return e.cooling.Alpha() }

func (e *Engine) TickCount() int { return e.ticks }

func (e *Engine) Config() dynamo.Config { return e.cfg }

// Forces returns the live pipeline. Slots may be registered or removed
// between ticks.
func (e *Engine) Forces() *forces.Pipeline { return e.pipeline }

// Positions returns {id, x, y, vx, vy} for every node.
func (e *Engine) Positions() []dynamo.NodeState { return e.state.Positions() }

// Export returns nodes, links, tick count and alpha.
func (e *Engine) Export() dynamo.Snapshot {
	return e.state.Snapshot(e.ticks, e.cooling.Alpha())
}

func (e *Engine) Node(id string) (dynamo.NodeState, bool) {
	n, ok := e.state.Node(id)
	if !ok {
		return dynamo.NodeState{}, false
	}
	return dynamo.NodeState{
		ID:       n.ID,
		X:        n.X,
		Y:        n.Y,
		VX:       n.VX,
		VY:       n.VY,
		Category: n.Category,
		Pinned:   n.Pinned(),
	}, true
}

func (e *Engine) Len() int { return e.state.Len() }

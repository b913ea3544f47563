package cooling

import "math"

type Status int

const (
	Idle Status = iota
	Running
	Stabilized
	Paused
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stabilized:
		return "stabilized"
	case Paused:
		return "paused"
	}
	return "unknown"
}

type Params struct {
	Alpha       float64
	AlphaMin    float64
	AlphaDecay  float64
	AlphaTarget float64
}

// Scheduler owns alpha and the run state. It never ticks on its own.
type Scheduler struct {
	params Params
	alpha  float64
	status Status
}

func New(p Params) *Scheduler {
	return &Scheduler{params: p, alpha: p.Alpha}
}

func (c *Scheduler) Alpha() float64 { return c.alpha }

func (c *Scheduler) Status() Status { return c.status }

func (c *Scheduler) Params() Params { return c.params }

// Configure swaps the schedule parameters without touching alpha.
func (c *Scheduler) Configure(p Params) { c.params = p }

// Start reheats to the configured initial alpha.
func (c *Scheduler) Start() { c.Reheat(c.params.Alpha) }

// Reheat raises alpha to at least a and resumes from any state. A negative
// or non-finite a is ignored and Reheat reports false.
func (c *Scheduler) Reheat(a float64) bool {
	if !ValidAlpha(a) {
		return false
	}
	c.alpha = math.Max(c.alpha, a)
	c.status = Running
	return true
}

// ValidAlpha reports whether a is finite and non-negative.
func ValidAlpha(a float64) bool {
	return a >= 0 && !math.IsInf(a, 1)
}

// Step decays alpha once. It reports true exactly on the step that
// crosses alphaMin.
func (c *Scheduler) Step() (stabilized bool) {
	if c.status != Running {
		return false
	}
	c.alpha += (c.params.AlphaTarget - c.alpha) * c.params.AlphaDecay
	if c.alpha <= c.params.AlphaMin {
		c.status = Stabilized
		return true
	}
	return false
}

func (c *Scheduler) Pause() {
	if c.status == Running {
		c.status = Paused
	}
}

// Resume continues from the frozen alpha.
func (c *Scheduler) Resume() {
	if c.status != Paused {
		return
	}
	if c.alpha <= c.params.AlphaMin {
		c.status = Stabilized
		return
	}
	c.status = Running
}

// Reset returns to Idle with the initial alpha.
func (c *Scheduler) Reset() {
	c.alpha = c.params.Alpha
	c.status = Idle
}

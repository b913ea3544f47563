package metrics

import "github.com/san-kum/forcelayout/internal/dynamo"

// KineticEnergy is ½Σ|v|² of the latest snapshot, with unit mass per node.
type KineticEnergy struct {
	name  string
	value float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(snap dynamo.Snapshot) {
	e.value = Kinetic(snap)
}

func (e *KineticEnergy) Value() float64 { return e.value }

func (e *KineticEnergy) Reset() { e.value = 0 }

func Kinetic(snap dynamo.Snapshot) float64 {
	var ke float64
	for _, n := range snap.Nodes {
		ke += 0.5 * (n.VX*n.VX + n.VY*n.VY)
	}
	return ke
}

// Sample is one row of tick history.
type Sample struct {
	Tick   int
	Alpha  float64
	Energy float64
}

// Recorder keeps the alpha and energy history of a run, one sample per
// observed tick.
type Recorder struct {
	samples []Sample
	every   int
}

// NewRecorder samples every n-th observed tick; n < 1 records all.
func NewRecorder(every int) *Recorder {
	if every < 1 {
		every = 1
	}
	return &Recorder{every: every}
}

func (r *Recorder) Observe(snap dynamo.Snapshot) {
	if snap.TickCount%r.every != 0 {
		return
	}
	r.samples = append(r.samples, Sample{
		Tick:   snap.TickCount,
		Alpha:  snap.Alpha,
		Energy: Kinetic(snap),
	})
}

func (r *Recorder) Samples() []Sample { return r.samples }

func (r *Recorder) Reset() { r.samples = r.samples[:0] }

// Series returns alpha and energy as parallel slices for plotting.
func (r *Recorder) Series() (alpha, energy []float64) {
	alpha = make([]float64, len(r.samples))
	energy = make([]float64, len(r.samples))
	for i, s := range r.samples {
		alpha[i] = s.Alpha
		energy[i] = s.Energy
	}
	return alpha, energy
}

package metrics

import "github.com/san-kum/forcelayout/internal/dynamo"

// Metric accumulates a scalar over observed snapshots.
type Metric interface {
	Name() string
	Observe(snap dynamo.Snapshot)
	Value() float64
	Reset()
}

// Standard returns the metrics recorded for every run.
func Standard() []Metric {
	return []Metric{
		NewKineticEnergy(),
		NewAverageDistance(),
		NewCategorySpread(),
		NewLinkStrain(),
		NewSettled(0.5),
	}
}

// Values collects Name→Value for ms.
func Values(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

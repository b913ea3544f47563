package integrators

import (
	"fmt"
	"testing"

	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/sim"
)

func benchState(b *testing.B, n int) *sim.State {
	b.Helper()
	s := sim.NewState(dynamo.DefaultConfig())
	for i := 0; i < n; i++ {
		if err := s.AddNode(dynamo.NodeInput{ID: fmt.Sprintf("n%d", i)}); err != nil {
			b.Fatal(err)
		}
		s.Nodes()[i].VX = 1
	}
	return s
}

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	s := benchState(b, 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integrator.Step(s, 0.99)
	}
}

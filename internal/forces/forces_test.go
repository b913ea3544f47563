package forces

import (
	"math"
	"math/rand"
	"strconv"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/sim"
)

type placed struct {
	id   string
	x, y float64
}

func stateOf(t *testing.T, nodes ...placed) *sim.State {
	t.Helper()
	s := sim.NewState(dynamo.DefaultConfig())
	for _, n := range nodes {
		if err := s.AddNode(dynamo.NodeInput{ID: n.id, X: dynamo.Float(n.x), Y: dynamo.Float(n.y)}); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func randomState(t *testing.T, n int, seed int64) *sim.State {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	s := sim.NewState(dynamo.DefaultConfig())
	for i := 0; i < n; i++ {
		in := dynamo.NodeInput{
			ID:         string(rune('A'+i%26)) + string(rune('a'+i/26%26)) + string(rune('0'+i/676)),
			X:          dynamo.Float(rng.Float64() * 500),
			Y:          dynamo.Float(rng.Float64() * 500),
			Properties: &dynamo.NodePropertiesInput{Charge: dynamo.Float(-10 - rng.Float64()*40)},
		}
		if err := s.AddNode(in); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func velocities(s *sim.State) []float64 {
	out := make([]float64, 0, 2*s.Len())
	for _, n := range s.Nodes() {
		out = append(out, n.VX, n.VY)
	}
	return out
}

func TestPipelineOrderAndReplace(t *testing.T) {
	g := NewWithT(t)
	p := NewPipeline()

	var calls []string
	record := func(name string) sim.Force {
		return sim.ForceFunc(func(*sim.State, float64) { calls = append(calls, name) })
	}

	p.Register("a", record("a"))
	p.Register("b", record("b"))
	p.Register("c", record("c"))
	p.Register("b", record("b2"))
	g.Expect(p.Names()).To(Equal([]string{"a", "b", "c"}))

	p.Apply(sim.NewState(dynamo.DefaultConfig()), 1)
	g.Expect(calls).To(Equal([]string{"a", "b2", "c"}))

	g.Expect(p.Remove("a")).To(BeTrue())
	g.Expect(p.Remove("a")).To(BeFalse())
	g.Expect(p.Names()).To(Equal([]string{"b", "c"}))

	_, ok := p.Get("c")
	g.Expect(ok).To(BeTrue())
	g.Expect(p.Len()).To(Equal(2))
}

func TestManyBodySymmetry(t *testing.T) {
	g := NewWithT(t)
	s := stateOf(t, placed{"a", 0, 0}, placed{"b", 3, 4})

	NewManyBody(1, dynamo.ChargeProduct).Apply(s, 1)

	v := velocities(s)
	g.Expect(v[0] + v[2]).To(BeNumerically("~", 0, 1e-12))
	g.Expect(v[1] + v[3]).To(BeNumerically("~", 0, 1e-12))
	// 900/25 along the unit vector (0.6, 0.8), pushing a away from b.
	g.Expect(v[0]).To(BeNumerically("~", -36*0.6, 1e-9))
	g.Expect(v[1]).To(BeNumerically("~", -36*0.8, 1e-9))
}

func TestManyBodyChargeModes(t *testing.T) {
	g := NewWithT(t)
	s := sim.NewState(dynamo.DefaultConfig())
	g.Expect(s.AddNode(dynamo.NodeInput{ID: "a", X: dynamo.Float(0), Y: dynamo.Float(0),
		Properties: &dynamo.NodePropertiesInput{Charge: dynamo.Float(-1)}})).To(Succeed())
	g.Expect(s.AddNode(dynamo.NodeInput{ID: "b", X: dynamo.Float(1), Y: dynamo.Float(0),
		Properties: &dynamo.NodePropertiesInput{Charge: dynamo.Float(1)}})).To(Succeed())

	NewManyBody(1, dynamo.ChargeProduct).Apply(s, 1)
	g.Expect(s.Nodes()[0].VX).To(BeNumerically(">", 0), "unlike charges attract")

	s.Nodes()[0].VX, s.Nodes()[1].VX = 0, 0
	NewManyBody(1, dynamo.ChargeMagnitude).Apply(s, 1)
	g.Expect(s.Nodes()[0].VX).To(BeNumerically("<", 0), "magnitude mode always repels")
}

func TestManyBodySkipsCoincident(t *testing.T) {
	g := NewWithT(t)
	s := stateOf(t, placed{"a", 5, 5}, placed{"b", 5, 5})

	NewManyBody(1, dynamo.ChargeProduct).Apply(s, 1)
	NewCollision(1).Apply(s, 1)
	NewLink().Apply(s, 1)

	g.Expect(velocities(s)).To(HaveEach(0.0))
	g.Expect(s.IsValid()).To(BeTrue())
}

func TestManyBodyPinnedStillActs(t *testing.T) {
	g := NewWithT(t)
	s := stateOf(t, placed{"a", 0, 0}, placed{"b", 10, 0})
	s.Nodes()[0].Pin(0, 0)

	NewManyBody(1, dynamo.ChargeProduct).Apply(s, 1)

	g.Expect(s.Nodes()[0].VX).To(BeZero())
	g.Expect(s.Nodes()[1].VX).To(BeNumerically(">", 0))
}

func TestManyBodyParallelMatchesSerial(t *testing.T) {
	g := NewWithT(t)
	serial := randomState(t, 300, 1)
	parallel := randomState(t, 300, 1)

	NewManyBody(1, dynamo.ChargeProduct).Apply(serial, 0.5)
	mb := NewManyBody(1, dynamo.ChargeProduct)
	mb.Workers = 4
	mb.Apply(parallel, 0.5)

	a, b := velocities(serial), velocities(parallel)
	for i := range a {
		g.Expect(b[i]).To(BeNumerically("~", a[i], 1e-7))
	}
}

func TestManyBodyApproxCloseToExact(t *testing.T) {
	g := NewWithT(t)
	exact := randomState(t, 200, 2)
	approx := randomState(t, 200, 2)

	NewManyBody(1, dynamo.ChargeMagnitude).Apply(exact, 1)
	NewManyBodyApprox(1, 0.5).Apply(approx, 1)

	a, b := velocities(exact), velocities(approx)
	var errSum, normSum float64
	for i := range a {
		errSum += (a[i] - b[i]) * (a[i] - b[i])
		normSum += a[i] * a[i]
	}
	g.Expect(math.Sqrt(errSum / normSum)).To(BeNumerically("<", 0.05))
}

func TestManyBodyApproxThetaZeroIsExact(t *testing.T) {
	g := NewWithT(t)
	exact := randomState(t, 40, 3)
	approx := randomState(t, 40, 3)

	NewManyBody(1, dynamo.ChargeMagnitude).Apply(exact, 1)
	NewManyBodyApprox(1, 0).Apply(approx, 1)

	a, b := velocities(exact), velocities(approx)
	for i := range a {
		g.Expect(b[i]).To(BeNumerically("~", a[i], 1e-6))
	}
}

func chargedState(t *testing.T, n int, seed int64, charge func(i int, rng *rand.Rand) float64) *sim.State {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	s := sim.NewState(dynamo.DefaultConfig())
	for i := 0; i < n; i++ {
		in := dynamo.NodeInput{
			ID:         "n" + strconv.Itoa(i),
			X:          dynamo.Float(rng.Float64() * 500),
			Y:          dynamo.Float(rng.Float64() * 500),
			Properties: &dynamo.NodePropertiesInput{Charge: dynamo.Float(charge(i, rng))},
		}
		if err := s.AddNode(in); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func relativeError(exact, approx []float64) float64 {
	var errSum, normSum float64
	for i := range exact {
		errSum += (exact[i] - approx[i]) * (exact[i] - approx[i])
		normSum += exact[i] * exact[i]
	}
	return math.Sqrt(errSum / normSum)
}

func TestManyBodyApproxAcrossThetaAndCharges(t *testing.T) {
	charges := map[string]func(int, *rand.Rand) float64{
		"unit":    func(int, *rand.Rand) float64 { return -1 },
		"default": func(int, *rand.Rand) float64 { return -30 },
		"random":  func(_ int, rng *rand.Rand) float64 { return -10 - rng.Float64()*40 },
		"mixed": func(i int, rng *rand.Rand) float64 {
			switch i % 7 {
			case 0:
				return 0
			case 1, 2:
				return 5 + rng.Float64()*60
			default:
				return -5 - rng.Float64()*60
			}
		},
	}
	bounds := []struct {
		theta, maxErr float64
	}{
		{0, 1e-9},
		{0.3, 0.05},
		{0.5, 0.05},
		{0.9, 0.2},
	}

	for name, charge := range charges {
		for _, b := range bounds {
			t.Run(name+"/theta="+strconv.FormatFloat(b.theta, 'g', -1, 64), func(t *testing.T) {
				g := NewWithT(t)
				exact := chargedState(t, 150, 11, charge)
				approx := chargedState(t, 150, 11, charge)

				NewManyBody(1, dynamo.ChargeMagnitude).Apply(exact, 0.7)
				NewManyBodyApprox(1, b.theta).Apply(approx, 0.7)

				got := velocities(approx)
				for _, v := range got {
					g.Expect(math.IsNaN(v)).To(BeFalse())
				}
				g.Expect(relativeError(velocities(exact), got)).To(BeNumerically("<=", b.maxErr))
			})
		}
	}
}

func TestManyBodyApproxCoincidentNodes(t *testing.T) {
	g := NewWithT(t)
	exact := stateOf(t, placed{"a", 10, 10}, placed{"b", 10, 10}, placed{"c", 10, 10}, placed{"d", 40, 10})
	approx := stateOf(t, placed{"a", 10, 10}, placed{"b", 10, 10}, placed{"c", 10, 10}, placed{"d", 40, 10})

	NewManyBody(1, dynamo.ChargeMagnitude).Apply(exact, 1)
	NewManyBodyApprox(1, 0.9).Apply(approx, 1)

	a, b := velocities(exact), velocities(approx)
	for i := range a {
		g.Expect(b[i]).To(BeNumerically("~", a[i], 1e-9))
	}
}

func TestLinkForce(t *testing.T) {
	g := NewWithT(t)
	s := stateOf(t, placed{"a", 0, 0}, placed{"b", 10, 0})
	g.Expect(s.AddLink(dynamo.LinkInput{SourceID: "a", TargetID: "b", Properties: &dynamo.LinkPropertiesInput{
		Strength: dynamo.Float(1), NaturalLength: dynamo.Float(50),
	}})).To(Succeed())

	NewLink().Apply(s, 0.5)

	// Compressed by 40: each end pushed outward by 1*40*0.5.
	g.Expect(s.Nodes()[0].VX).To(BeNumerically("~", -20, 1e-12))
	g.Expect(s.Nodes()[1].VX).To(BeNumerically("~", 20, 1e-12))
}

func TestCenterForce(t *testing.T) {
	g := NewWithT(t)
	s := stateOf(t, placed{"a", 10, -20}, placed{"b", 0, 0})
	s.Nodes()[1].Pin(0, 0)

	NewCenter(0, 0, 0.1).Apply(s, 1)

	g.Expect(s.Nodes()[0].VX).To(BeNumerically("~", -1, 1e-12))
	g.Expect(s.Nodes()[0].VY).To(BeNumerically("~", 2, 1e-12))
	g.Expect(s.Nodes()[1].VX).To(BeZero())
}

func TestCollisionForce(t *testing.T) {
	g := NewWithT(t)
	s := stateOf(t, placed{"a", 0, 0}, placed{"b", 6, 0}, placed{"c", 100, 0})

	NewCollision(1).Apply(s, 1)

	// Radii 5+5 overlap by 4, split evenly.
	g.Expect(s.Nodes()[0].VX).To(BeNumerically("~", -2, 1e-12))
	g.Expect(s.Nodes()[1].VX).To(BeNumerically("~", 2, 1e-12))
	g.Expect(s.Nodes()[2].VX).To(BeZero())
}

func TestClusterAnchorsAndCentroid(t *testing.T) {
	g := NewWithT(t)
	s := sim.NewState(dynamo.DefaultConfig())
	add := func(id, cat string, x, y float64) {
		g.Expect(s.AddNode(dynamo.NodeInput{ID: id, Category: cat, X: dynamo.Float(x), Y: dynamo.Float(y)})).To(Succeed())
	}
	add("s", "structural", 0, 0)
	add("p1", "misc", 0, 0)
	add("p2", "misc", 10, 0)
	add("u", "", 50, 50)

	NewCluster(0.01, CategoryAnchors(1000, 1000)).Apply(s, 1)

	n := s.Nodes()
	g.Expect(n[0].VX).To(BeNumerically("~", 2.5, 1e-12))
	g.Expect(n[0].VY).To(BeNumerically("~", 2.5, 1e-12))
	g.Expect(n[1].VX).To(BeNumerically("~", 0.05, 1e-12))
	g.Expect(n[2].VX).To(BeNumerically("~", -0.05, 1e-12))
	g.Expect([]float64{n[3].VX, n[3].VY}).To(Equal([]float64{0, 0}))
}

func TestBoundsBounce(t *testing.T) {
	g := NewWithT(t)
	s := stateOf(t, placed{"a", 1, 50}, placed{"b", 50, 99})
	s.Nodes()[0].VX = -5
	s.Nodes()[1].VY = 5
	s.Nodes()[1].VX = 3

	NewBounds(0, 0, 100, 100, 0.5).Apply(s, 1)

	g.Expect(s.Nodes()[0].VX).To(Equal(2.5))
	g.Expect(s.Nodes()[1].VY).To(Equal(-2.5))
	g.Expect(s.Nodes()[1].VX).To(Equal(3.0))
}

func TestForcesVanishAtZeroAlpha(t *testing.T) {
	g := NewWithT(t)
	s := randomState(t, 20, 4)
	for i := 0; i+1 < s.Len(); i += 2 {
		a, b := s.Nodes()[i].ID, s.Nodes()[i+1].ID
		g.Expect(s.AddLink(dynamo.LinkInput{SourceID: a, TargetID: b})).To(Succeed())
	}

	p := NewPipeline()
	p.Register(NameCharge, NewManyBody(1, dynamo.ChargeProduct))
	p.Register(NameLink, NewLink())
	p.Register(NameCenter, NewCenter(0, 0, 0.1))
	p.Register(NameCollision, NewCollision(1))
	p.Register(NameCluster, NewCluster(0.1, nil))
	p.Register("approx", NewManyBodyApprox(1, 0.5))
	p.Apply(s, 0)

	g.Expect(velocities(s)).To(HaveEach(0.0))
}

func TestStandardPipeline(t *testing.T) {
	g := NewWithT(t)
	cfg := dynamo.DefaultConfig()
	p := Standard(cfg)
	g.Expect(p.Names()).To(Equal([]string{NameCharge, NameLink, NameCenter, NameCollision}))

	cfg.CenterStrength = 0.5
	cfg.ChargeMode = dynamo.ChargeMagnitude
	p.Configure(cfg)

	f, _ := p.Get(NameCenter)
	g.Expect(f.(*Center).Strength).To(Equal(0.5))
	f, _ = p.Get(NameCharge)
	g.Expect(f.(*ManyBody).Mode).To(Equal(dynamo.ChargeMagnitude))
}

package engine_test

import (
	"errors"
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/forcelayout/internal/cooling"
	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/engine"
	"github.com/san-kum/forcelayout/internal/forces"
)

func at(id string, x, y float64) dynamo.NodeInput {
	return dynamo.NodeInput{ID: id, X: dynamo.Float(x), Y: dynamo.Float(y)}
}

func link(src, dst string) dynamo.LinkInput {
	return dynamo.LinkInput{SourceID: src, TargetID: dst}
}

func ring(n int) ([]dynamo.NodeInput, []dynamo.LinkInput) {
	nodes := make([]dynamo.NodeInput, n)
	links := make([]dynamo.LinkInput, n)
	for i := range nodes {
		nodes[i] = dynamo.NodeInput{ID: fmt.Sprintf("n%d", i)}
		links[i] = link(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", (i+1)%n))
	}
	return nodes, links
}

func distance(a, b dynamo.NodeState) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

var _ = Describe("Engine", func() {
	var (
		e     *engine.Engine
		diags []error
		cfg   dynamo.Config
	)

	BeforeEach(func() {
		diags = nil
		cfg = dynamo.DefaultConfig()
		e = engine.New(
			engine.WithLogger(log.New(GinkgoWriter)),
			engine.WithDiagnostics(func(err error) { diags = append(diags, err) }),
		)
	})

	Describe("Initialize", func() {
		It("starts idle and runs after loading", func() {
			Expect(e.Status()).To(Equal(cooling.Idle))
			Expect(e.Tick()).To(BeFalse())

			nodes, links := ring(5)
			Expect(e.Initialize(nodes, links, cfg)).To(Succeed())
			Expect(e.Status()).To(Equal(cooling.Running))
			Expect(e.Alpha()).To(Equal(1.0))
			Expect(e.Export().Links).To(HaveLen(5))
		})

		It("rejects unknown node references and keeps the previous graph", func() {
			Expect(e.Initialize([]dynamo.NodeInput{at("a", 0, 0)}, nil, cfg)).To(Succeed())
			before := e.Positions()

			err := e.Initialize([]dynamo.NodeInput{at("x", 1, 1)}, []dynamo.LinkInput{link("x", "missing")}, cfg)
			Expect(err).To(MatchError(dynamo.ErrUnknownNodeReference))
			Expect(e.Positions()).To(Equal(before))
		})

		It("rejects duplicate ids", func() {
			err := e.Initialize([]dynamo.NodeInput{at("a", 0, 0), at("a", 1, 1)}, nil, cfg)
			Expect(err).To(MatchError(dynamo.ErrDuplicateID))
			Expect(e.Len()).To(BeZero())
		})

		It("rejects invalid config", func() {
			bad := cfg
			bad.AlphaMin = 2
			err := e.Initialize([]dynamo.NodeInput{at("a", 0, 0)}, nil, bad)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
			Expect(e.Status()).To(Equal(cooling.Idle))
		})
	})

	Describe("cooling", func() {
		It("stabilizes on the first tick at or below alphaMin and fires once", func() {
			want := 0
			for a := cfg.Alpha; a > cfg.AlphaMin; want++ {
				a += (cfg.AlphaTarget - a) * cfg.AlphaDecay
			}

			stabilized := 0
			var last dynamo.Snapshot
			e.OnStabilized(func(s dynamo.Snapshot) {
				stabilized++
				last = s
			})

			nodes, links := ring(4)
			Expect(e.Initialize(nodes, links, cfg)).To(Succeed())

			ran := e.Step(10000)
			Expect(ran).To(Equal(want))
			Expect(e.TickCount()).To(Equal(want))
			Expect(e.Status()).To(Equal(cooling.Stabilized))
			Expect(stabilized).To(Equal(1))
			Expect(last.TickCount).To(Equal(want))
			Expect(last.Alpha).To(BeNumerically("<=", cfg.AlphaMin))

			Expect(e.Tick()).To(BeFalse())
			Expect(e.Step(10)).To(BeZero())
			Expect(stabilized).To(Equal(1))
		})

		It("decays alpha geometrically", func() {
			nodes, links := ring(3)
			Expect(e.Initialize(nodes, links, cfg)).To(Succeed())

			for i := 1; i <= 50; i++ {
				Expect(e.Tick()).To(BeTrue())
				Expect(e.Alpha()).To(BeNumerically("~", math.Pow(1-cfg.AlphaDecay, float64(i)), 1e-12))
			}
		})

		It("does nothing while paused", func() {
			nodes, links := ring(3)
			Expect(e.Initialize(nodes, links, cfg)).To(Succeed())
			e.Step(3)

			e.Pause()
			before := e.Positions()
			Expect(e.Tick()).To(BeFalse())
			Expect(e.TickCount()).To(Equal(3))
			Expect(e.Positions()).To(Equal(before))

			e.Resume()
			Expect(e.Tick()).To(BeTrue())
			Expect(e.TickCount()).To(Equal(4))
		})

		It("reheats on structural mutation after stabilizing", func() {
			nodes, links := ring(3)
			Expect(e.Initialize(nodes, links, cfg)).To(Succeed())
			e.Step(10000)
			Expect(e.Status()).To(Equal(cooling.Stabilized))

			Expect(e.AddNode(at("extra", 5, 5))).To(Succeed())
			Expect(e.Status()).To(Equal(cooling.Running))
			Expect(e.Alpha()).To(Equal(cfg.ReheatAlpha))
		})

		It("rejects a non-finite or negative reheat alpha", func() {
			nodes, links := ring(3)
			Expect(e.Initialize(nodes, links, cfg)).To(Succeed())
			e.Step(10000)
			Expect(e.Status()).To(Equal(cooling.Stabilized))
			alpha := e.Alpha()

			for _, a := range []float64{math.NaN(), math.Inf(1), -1} {
				Expect(e.Reheat(a)).To(MatchError(dynamo.ErrInvalidConfig))
				Expect(e.Status()).To(Equal(cooling.Stabilized))
				Expect(e.Alpha()).To(Equal(alpha))
			}

			Expect(e.Reheat(0.4)).To(Succeed())
			e.Step(5)
			for _, p := range e.Positions() {
				Expect(math.IsNaN(p.X) || math.IsNaN(p.Y)).To(BeFalse())
			}
		})

		It("restarts from the configured alpha", func() {
			Expect(e.Start()).To(MatchError(dynamo.ErrNotInitialized))

			nodes, links := ring(3)
			Expect(e.Initialize(nodes, links, cfg)).To(Succeed())
			e.Step(10000)
			Expect(e.Start()).To(Succeed())
			Expect(e.Alpha()).To(Equal(cfg.Alpha))
		})
	})

	Describe("physics", func() {
		It("converges a single spring to its natural length", func() {
			springs := forces.NewPipeline()
			springs.Register(forces.NameLink, forces.NewLink())
			e = engine.New(engine.WithPipeline(springs), engine.WithLogger(log.New(GinkgoWriter)))

			cfg.AlphaDecay = 0.01
			spring := dynamo.LinkInput{SourceID: "A", TargetID: "B", Properties: &dynamo.LinkPropertiesInput{
				Strength:      dynamo.Float(1),
				NaturalLength: dynamo.Float(50),
			}}
			Expect(e.Initialize([]dynamo.NodeInput{at("A", 0, 0), at("B", 10, 0)}, []dynamo.LinkInput{spring}, cfg)).To(Succeed())

			e.Step(100000)
			Expect(e.Status()).To(Equal(cooling.Stabilized))

			a, _ := e.Node("A")
			b, _ := e.Node("B")
			Expect(distance(a, b)).To(BeNumerically("~", 50, 0.5))
		})

		It("leaves nodes at rest when alpha is zero", func() {
			cfg.Alpha, cfg.AlphaMin, cfg.AlphaTarget = 0, 0, 0
			cfg.VelocityDecay = 1
			nodes := []dynamo.NodeInput{at("a", 0, 0), at("b", 3, 0), at("c", 0, 4)}
			Expect(e.Initialize(nodes, []dynamo.LinkInput{link("a", "b")}, cfg)).To(Succeed())
			before := e.Positions()

			Expect(e.Step(5)).To(Equal(1))
			Expect(e.Positions()).To(Equal(before))
		})

		It("never moves a pinned node", func() {
			nodes, links := ring(8)
			nodes[0].Pinned = true
			nodes[0].X, nodes[0].Y = dynamo.Float(42), dynamo.Float(-7)
			Expect(e.Initialize(nodes, links, cfg)).To(Succeed())

			var seen [][]float64
			e.OnTick(func(s dynamo.Snapshot) {
				p, _ := s.Find("n0")
				seen = append(seen, []float64{p.X, p.Y, p.VX, p.VY})
			})
			Expect(e.Step(200)).To(Equal(200))
			Expect(seen).To(HaveLen(200))
			Expect(seen).To(HaveEach(Equal([]float64{42, -7, 0, 0})))
		})

		It("spreads a ring out under repulsion", func() {
			nodes, links := ring(10)
			Expect(e.Initialize(nodes, links, cfg)).To(Succeed())
			e.Step(10000)

			pos := e.Positions()
			for i := range pos {
				for j := i + 1; j < len(pos); j++ {
					Expect(distance(pos[i], pos[j])).To(BeNumerically(">", 1))
				}
			}
		})
	})

	Describe("mutations", func() {
		BeforeEach(func() {
			nodes := []dynamo.NodeInput{at("a", 0, 0), at("b", 30, 0), at("c", 0, 30)}
			links := []dynamo.LinkInput{link("a", "b"), link("b", "c"), link("c", "a")}
			Expect(e.Initialize(nodes, links, cfg)).To(Succeed())
		})

		It("rejects links to missing nodes without changing positions", func() {
			before := e.Positions()
			Expect(e.AddLink(link("missing", "a"))).To(MatchError(dynamo.ErrUnknownNodeReference))
			Expect(e.Positions()).To(Equal(before))
			Expect(e.Export().Links).To(HaveLen(3))
		})

		It("cascades node removal to incident links", func() {
			Expect(e.RemoveNode("a")).To(Succeed())
			snap := e.Export()
			Expect(snap.Nodes).To(HaveLen(2))
			Expect(snap.Links).To(ConsistOf(dynamo.LinkState{ID: "b-c", Source: "b", Target: "c", Length: cfg.DefaultLinkDistance}))
			Expect(e.AddLink(link("a", "b"))).To(MatchError(dynamo.ErrUnknownNodeReference))
		})

		It("reports missing ids", func() {
			Expect(e.RemoveNode("zz")).To(MatchError(dynamo.ErrNodeNotFound))
			Expect(e.RemoveLink("zz")).To(MatchError(dynamo.ErrLinkNotFound))
			Expect(e.PinNode("zz", 0, 0)).To(MatchError(dynamo.ErrNodeNotFound))
			Expect(e.ApplyImpulse("zz", 1, 1)).To(MatchError(dynamo.ErrNodeNotFound))

			var me *dynamo.MutationError
			Expect(errors.As(e.RemoveNode("zz"), &me)).To(BeTrue())
			Expect(me.Op).To(Equal("removeNode"))
		})

		It("applies impulses only to unpinned nodes", func() {
			Expect(e.ApplyImpulse("a", 2, -1)).To(Succeed())
			a, _ := e.Node("a")
			Expect([]float64{a.VX, a.VY}).To(Equal([]float64{2, -1}))

			Expect(e.PinNode("b", 30, 0)).To(Succeed())
			Expect(e.ApplyImpulse("b", 5, 5)).To(Succeed())
			b, _ := e.Node("b")
			Expect([]float64{b.VX, b.VY}).To(Equal([]float64{0, 0}))
		})

		It("pins and unpins", func() {
			Expect(e.PinNode("a", 100, 100)).To(Succeed())
			a, _ := e.Node("a")
			Expect(a.Pinned).To(BeTrue())
			Expect([]float64{a.X, a.Y}).To(Equal([]float64{100, 100}))

			e.Step(20)
			a, _ = e.Node("a")
			Expect([]float64{a.X, a.Y}).To(Equal([]float64{100, 100}))

			Expect(e.UnpinNode("a")).To(Succeed())
			e.Step(5)
			a, _ = e.Node("a")
			Expect(a.Pinned).To(BeFalse())
			Expect([]float64{a.X, a.Y}).NotTo(Equal([]float64{100, 100}))
		})

		It("keeps the layout warm while dragging", func() {
			Expect(e.DragNode("a", 50, 50)).To(Succeed())
			e.Step(2000)
			Expect(e.Status()).To(Equal(cooling.Running))
			Expect(e.Alpha()).To(BeNumerically("~", cfg.NudgeAlpha, 1e-3))

			Expect(e.ReleaseNode("a")).To(Succeed())
			e.Step(10000)
			Expect(e.Status()).To(Equal(cooling.Stabilized))
		})

		It("updates nodes and links", func() {
			Expect(e.UpdateLink("a-b", dynamo.LinkUpdate{NaturalLength: dynamo.Float(80)})).To(Succeed())
			Expect(e.Export().Links[0].Length).To(Equal(80.0))

			cat := "process"
			Expect(e.UpdateNode("c", dynamo.NodeUpdate{Category: &cat})).To(Succeed())
			c, _ := e.Node("c")
			Expect(c.Category).To(Equal("process"))

			Expect(e.UpdateNode("c", dynamo.NodeUpdate{Properties: &dynamo.NodePropertiesInput{Mass: dynamo.Float(0)}})).
				To(MatchError(dynamo.ErrInvalidConfig))
		})

		It("retains the previous config on invalid SetConfig", func() {
			bad := cfg
			bad.VelocityDecay = math.NaN()
			Expect(e.SetConfig(bad)).To(MatchError(dynamo.ErrInvalidConfig))
			Expect(e.Config()).To(Equal(cfg))

			good := cfg
			good.CenterStrength = 0.5
			Expect(e.SetConfig(good)).To(Succeed())
			f, ok := e.Forces().Get(forces.NameCenter)
			Expect(ok).To(BeTrue())
			Expect(f.(*forces.Center).Strength).To(Equal(0.5))
		})

		It("lets forces be removed by name between ticks", func() {
			Expect(e.Forces().Remove(forces.NameCharge)).To(BeTrue())
			Expect(e.Forces().Names()).To(Equal([]string{forces.NameLink, forces.NameCenter, forces.NameCollision}))
			Expect(e.Step(3)).To(Equal(3))
		})
	})

	Describe("listeners", func() {
		BeforeEach(func() {
			nodes, links := ring(4)
			Expect(e.Initialize(nodes, links, cfg)).To(Succeed())
		})

		It("delivers one snapshot per tick", func() {
			var ticks []int
			e.OnTick(func(s dynamo.Snapshot) { ticks = append(ticks, s.TickCount) })
			e.Step(3)
			Expect(ticks).To(Equal([]int{1, 2, 3}))
		})

		It("isolates panicking listeners", func() {
			calls := 0
			bad := e.OnTick(func(dynamo.Snapshot) { panic("boom") })
			e.OnTick(func(dynamo.Snapshot) { calls++ })

			Expect(e.Tick()).To(BeTrue())
			Expect(calls).To(Equal(1))
			Expect(diags).To(HaveLen(1))

			var le *engine.ListenerError
			Expect(errors.As(diags[0], &le)).To(BeTrue())
			Expect(le.Event).To(Equal("tick"))
			Expect(le.ID).To(Equal(bad))
			Expect(e.TickCount()).To(Equal(1))
		})

		It("unwraps panicked errors", func() {
			sentinel := errors.New("listener broke")
			e.OnTick(func(dynamo.Snapshot) { panic(sentinel) })
			e.Tick()
			Expect(diags).To(HaveLen(1))
			Expect(diags[0]).To(MatchError(sentinel))
		})

		It("removes listeners by id", func() {
			calls := 0
			id := e.OnTick(func(dynamo.Snapshot) { calls++ })
			e.Tick()
			Expect(e.RemoveListener(id)).To(BeTrue())
			Expect(e.RemoveListener(id)).To(BeFalse())
			e.Tick()
			Expect(calls).To(Equal(1))
		})

		It("allows a listener to remove itself", func() {
			calls := 0
			var id engine.ListenerID
			id = e.OnTick(func(dynamo.Snapshot) {
				calls++
				e.RemoveListener(id)
			})
			e.Step(3)
			Expect(calls).To(Equal(1))
		})
	})
})

package automation

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	. "github.com/onsi/gomega"

	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/engine"
	"github.com/san-kum/forcelayout/internal/graphio"
)

const scenarioYAML = `
name: grow
description: settle, attach a leaf, pin it, then drop it again
steps:
  - action: step
  - action: add_node
    node: {id: leaf, category: process}
  - action: add_link
    link: {sourceId: n0, targetId: leaf}
  - action: step
    ticks: 5
  - action: pin
    id: leaf
    x: 100
    y: -50
  - action: step
    ticks: 20
  - action: remove_node
    id: leaf
  - action: pause
`

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	doc := graphio.Ring(4)
	eng := engine.New(engine.WithLogger(log.New(io.Discard)))
	if err := eng.Initialize(doc.Nodes, doc.Links, dynamo.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	return eng
}

func TestLoadAndRunScenario(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "grow.yaml")
	g.Expect(os.WriteFile(path, []byte(scenarioYAML), 0644)).To(Succeed())

	sc, err := LoadScenario(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(sc.Name).To(Equal("grow"))
	g.Expect(sc.Steps).To(HaveLen(8))
	g.Expect(sc.Steps[2].Link.SourceID).To(Equal("n0"))

	eng := newEngine(t)
	var pinned dynamo.NodeState
	eng.OnTick(func(s dynamo.Snapshot) {
		if n, ok := s.Find("leaf"); ok {
			pinned = n
		}
	})

	results, err := RunScenario(context.Background(), eng, sc, log.New(io.Discard))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(results).To(HaveLen(8))

	g.Expect(results[0].Status).To(Equal("stabilized"))
	g.Expect(results[0].Ticks).To(BeNumerically(">", 0))
	g.Expect(results[1].Status).To(Equal("running"))
	g.Expect(results[1].Nodes).To(Equal(5))
	g.Expect(results[3].Ticks).To(Equal(5))

	g.Expect(pinned.Pinned).To(BeTrue())
	g.Expect(pinned.X).To(Equal(100.0))
	g.Expect(pinned.Y).To(Equal(-50.0))

	g.Expect(results[6].Nodes).To(Equal(4))
	g.Expect(results[7].Status).To(Equal("paused"))
}

func TestRunScenarioStopsAtFailure(t *testing.T) {
	g := NewWithT(t)
	sc := &Scenario{Steps: []Step{
		{Action: ActionStep, Ticks: 3},
		{Action: ActionPin, ID: "missing"},
		{Action: ActionStep, Ticks: 3},
	}}

	results, err := RunScenario(context.Background(), newEngine(t), sc, nil)
	g.Expect(err).To(MatchError(ContainSubstring("step 2 (pin)")))
	g.Expect(err).To(MatchError(dynamo.ErrNodeNotFound))
	g.Expect(results).To(HaveLen(1))
}

func TestRunScenarioRejectsBadSteps(t *testing.T) {
	g := NewWithT(t)
	eng := newEngine(t)

	_, err := RunScenario(context.Background(), eng, &Scenario{Steps: []Step{{Action: "explode"}}}, nil)
	g.Expect(err).To(MatchError(ErrUnknownAction))

	_, err = RunScenario(context.Background(), eng, &Scenario{Steps: []Step{{Action: ActionAddNode}}}, nil)
	g.Expect(err).To(MatchError(ContainSubstring("missing node")))
}

func TestReheatStep(t *testing.T) {
	g := NewWithT(t)
	eng := newEngine(t)
	alpha := 0.6

	results, err := RunScenario(context.Background(), eng, &Scenario{Steps: []Step{
		{Action: ActionStep},
		{Action: ActionReheat, Alpha: &alpha},
	}}, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(results[1].Status).To(Equal("running"))
	g.Expect(results[1].Alpha).To(Equal(0.6))
}

func TestReheatStepRejectsNaN(t *testing.T) {
	g := NewWithT(t)
	eng := newEngine(t)

	path := filepath.Join(t.TempDir(), "nan.yaml")
	g.Expect(os.WriteFile(path, []byte("steps:\n  - action: step\n  - action: reheat\n    alpha: .nan\n"), 0644)).To(Succeed())
	scenario, err := LoadScenario(path)
	g.Expect(err).NotTo(HaveOccurred())

	_, err = RunScenario(context.Background(), eng, scenario, nil)
	g.Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
	g.Expect(err).To(MatchError(ContainSubstring("step 2 (reheat)")))
	for _, p := range eng.Positions() {
		g.Expect(math.IsNaN(p.X)).To(BeFalse())
	}
}

func TestLoadScenarioRejectsUnknownKeys(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()

	stale := filepath.Join(dir, "stale.yaml")
	g.Expect(os.WriteFile(stale, []byte("steps:\n  - action: add_link\n    link: {source_id: n0, target_id: n2}\n"), 0644)).To(Succeed())
	_, err := LoadScenario(stale)
	g.Expect(err).To(MatchError(ContainSubstring("source_id")))

	good := filepath.Join(dir, "good.yaml")
	g.Expect(os.WriteFile(good, []byte(`steps:
  - action: add_link
    link:
      sourceId: n0
      targetId: n2
      physicalProperties: {strength: 2, naturalLength: 50}
`), 0644)).To(Succeed())
	sc, err := LoadScenario(good)
	g.Expect(err).NotTo(HaveOccurred())
	l := sc.Steps[0].Link
	g.Expect(l.SourceID).To(Equal("n0"))
	g.Expect(l.TargetID).To(Equal("n2"))
	g.Expect(*l.Properties.Strength).To(Equal(2.0))
	g.Expect(*l.Properties.NaturalLength).To(Equal(50.0))
}

func TestRunScenarioCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunScenario(ctx, newEngine(t), &Scenario{Steps: []Step{{Action: ActionPause}}}, nil)
	NewWithT(t).Expect(err).To(MatchError(context.Canceled))
}

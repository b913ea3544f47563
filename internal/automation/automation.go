// Package automation replays scripted edits against a running layout.
package automation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/engine"
)

// Actions understood by RunScenario.
const (
	ActionStep       = "step"
	ActionAddNode    = "add_node"
	ActionRemoveNode = "remove_node"
	ActionAddLink    = "add_link"
	ActionRemoveLink = "remove_link"
	ActionPin        = "pin"
	ActionUnpin      = "unpin"
	ActionDrag       = "drag"
	ActionRelease    = "release"
	ActionImpulse    = "impulse"
	ActionReheat     = "reheat"
	ActionPause      = "pause"
	ActionResume     = "resume"
)

// SettleLimit bounds a step with no tick count.
const SettleLimit = 10000

var ErrUnknownAction = errors.New("automation: unknown action")

// Scenario is a scripted sequence of edits and ticks.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is one scripted action. Only the fields its action reads are used.
// A step action with zero ticks runs until the layout leaves Running.
type Step struct {
	Action string            `yaml:"action"`
	Ticks  int               `yaml:"ticks,omitempty"`
	ID     string            `yaml:"id,omitempty"`
	Node   *dynamo.NodeInput `yaml:"node,omitempty"`
	Link   *dynamo.LinkInput `yaml:"link,omitempty"`
	X      float64           `yaml:"x,omitempty"`
	Y      float64           `yaml:"y,omitempty"`
	DVX    float64           `yaml:"dvx,omitempty"`
	DVY    float64           `yaml:"dvy,omitempty"`
	Alpha  *float64          `yaml:"alpha,omitempty"`
}

// StepResult is the engine state after a step.
type StepResult struct {
	Index  int
	Action string
	Ticks  int
	Status string
	Alpha  float64
	Nodes  int
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Unknown keys are errors so a misspelt field never drops silently.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var scenario Scenario
	if err := dec.Decode(&scenario); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("automation: parse %s: %w", path, err)
	}
	return &scenario, nil
}

// RunScenario applies every step to eng in order and stops at the first
// failure, returning the results so far.
func RunScenario(ctx context.Context, eng *engine.Engine, scenario *Scenario, logger *log.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = log.Default()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		logger.Debug("scenario step", "step", i+1, "of", len(scenario.Steps), "action", step.Action)

		ticks, err := apply(eng, step)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
		results = append(results, StepResult{
			Index:  i + 1,
			Action: step.Action,
			Ticks:  ticks,
			Status: eng.Status().String(),
			Alpha:  eng.Alpha(),
			Nodes:  eng.Len(),
		})
	}
	return results, nil
}

func apply(eng *engine.Engine, s Step) (int, error) {
	switch s.Action {
	case ActionStep:
		n := s.Ticks
		if n <= 0 {
			n = SettleLimit
		}
		return eng.Step(n), nil
	case ActionAddNode:
		if s.Node == nil {
			return 0, errors.New("missing node")
		}
		return 0, eng.AddNode(*s.Node)
	case ActionRemoveNode:
		return 0, eng.RemoveNode(s.ID)
	case ActionAddLink:
		if s.Link == nil {
			return 0, errors.New("missing link")
		}
		return 0, eng.AddLink(*s.Link)
	case ActionRemoveLink:
		return 0, eng.RemoveLink(s.ID)
	case ActionPin:
		return 0, eng.PinNode(s.ID, s.X, s.Y)
	case ActionUnpin:
		return 0, eng.UnpinNode(s.ID)
	case ActionDrag:
		return 0, eng.DragNode(s.ID, s.X, s.Y)
	case ActionRelease:
		return 0, eng.ReleaseNode(s.ID)
	case ActionImpulse:
		return 0, eng.ApplyImpulse(s.ID, s.DVX, s.DVY)
	case ActionReheat:
		alpha := eng.Config().ReheatAlpha
		if s.Alpha != nil {
			alpha = *s.Alpha
		}
		return 0, eng.Reheat(alpha)
	case ActionPause:
		eng.Pause()
		return 0, nil
	case ActionResume:
		eng.Resume()
		return 0, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownAction, s.Action)
}

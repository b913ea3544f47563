package engine

import (
	"math"

	"github.com/san-kum/forcelayout/internal/dynamo"
)

// Structural mutations reheat to ReheatAlpha on success. A rejected
// mutation leaves the engine untouched.

func (e *Engine) AddNode(in dynamo.NodeInput) error {
	if err := e.state.AddNode(in); err != nil {
		return err
	}
	e.reheat(e.cfg.ReheatAlpha)
	return nil
}

// RemoveNode deletes the node and every link incident to it.
func (e *Engine) RemoveNode(id string) error {
	if err := e.state.RemoveNode(id); err != nil {
		return err
	}
	e.endDrag(id)
	e.reheat(e.cfg.ReheatAlpha)
	return nil
}

func (e *Engine) AddLink(in dynamo.LinkInput) error {
	if err := e.state.AddLink(in); err != nil {
		return err
	}
	e.reheat(e.cfg.ReheatAlpha)
	return nil
}

func (e *Engine) RemoveLink(id string) error {
	if err := e.state.RemoveLink(id); err != nil {
		return err
	}
	e.reheat(e.cfg.ReheatAlpha)
	return nil
}

func (e *Engine) UpdateNode(id string, u dynamo.NodeUpdate) error {
	if err := e.state.UpdateNode(id, u); err != nil {
		return err
	}
	e.reheat(e.cfg.ReheatAlpha)
	return nil
}

func (e *Engine) UpdateLink(id string, u dynamo.LinkUpdate) error {
	if err := e.state.UpdateLink(id, u); err != nil {
		return err
	}
	e.reheat(e.cfg.ReheatAlpha)
	return nil
}

// PinNode fixes the node at (x, y) and zeroes its velocity.
func (e *Engine) PinNode(id string, x, y float64) error {
	n, ok := e.state.Node(id)
	if !ok {
		return dynamo.Rejected("pinNode", id, dynamo.ErrNodeNotFound)
	}
	if err := checkPoint(x, y); err != nil {
		return dynamo.Rejected("pinNode", id, err)
	}
	n.Pin(x, y)
	n.X, n.Y = x, y
	n.VX, n.VY = 0, 0
	e.reheat(e.cfg.NudgeAlpha)
	return nil
}

func (e *Engine) UnpinNode(id string) error {
	n, ok := e.state.Node(id)
	if !ok {
		return dynamo.Rejected("unpinNode", id, dynamo.ErrNodeNotFound)
	}
	n.Unpin()
	e.endDrag(id)
	e.reheat(e.cfg.NudgeAlpha)
	return nil
}

// DragNode pins the node under the pointer. While any node is dragged the
// schedule targets NudgeAlpha so the layout keeps following the pointer.
func (e *Engine) DragNode(id string, x, y float64) error {
	if err := e.PinNode(id, x, y); err != nil {
		return err
	}
	if e.drags == nil {
		e.drags = make(map[string]struct{})
	}
	if _, ok := e.drags[id]; !ok {
		e.drags[id] = struct{}{}
		e.cooling.Configure(e.params())
	}
	return nil
}

// ReleaseNode ends a drag and unpins the node.
func (e *Engine) ReleaseNode(id string) error {
	return e.UnpinNode(id)
}

func (e *Engine) endDrag(id string) {
	if _, ok := e.drags[id]; !ok {
		return
	}
	delete(e.drags, id)
	e.cooling.Configure(e.params())
}

// ApplyImpulse adds (dvx, dvy) to the node's velocity. Pinned nodes ignore it.
func (e *Engine) ApplyImpulse(id string, dvx, dvy float64) error {
	i, ok := e.state.Index(id)
	if !ok {
		return dynamo.Rejected("applyImpulse", id, dynamo.ErrNodeNotFound)
	}
	if err := checkPoint(dvx, dvy); err != nil {
		return dynamo.Rejected("applyImpulse", id, err)
	}
	if e.state.Nodes()[i].Pinned() {
		return nil
	}
	e.state.Accelerate(i, dvx, dvy)
	e.reheat(e.cfg.NudgeAlpha)
	return nil
}

func checkPoint(x, y float64) error {
	for _, v := range []float64{x, y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &dynamo.InvalidConfigError{Field: "point", Value: v, Reason: "must be finite"}
		}
	}
	return nil
}

package engine

import (
	"fmt"
	"slices"

	"github.com/san-kum/forcelayout/internal/dynamo"
)

// ListenerID identifies a registered listener for removal.
type ListenerID uint64

type listener struct {
	id ListenerID
	fn func(dynamo.Snapshot)
}

type listeners struct {
	next       ListenerID
	tick       []listener
	stabilized []listener
}

func (l *listeners) add(dst *[]listener, fn func(dynamo.Snapshot)) ListenerID {
	l.next++
	*dst = append(*dst, listener{id: l.next, fn: fn})
	return l.next
}

func (l *listeners) hasTick() bool { return len(l.tick) > 0 }

// ListenerError reports a listener that panicked during dispatch.
type ListenerError struct {
	Event string
	ID    ListenerID
	Value any
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("engine: %s listener %d panicked: %v", e.Event, e.ID, e.Value)
}

func (e *ListenerError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// OnTick registers fn to receive the export after every tick.
func (e *Engine) OnTick(fn func(dynamo.Snapshot)) ListenerID {
	return e.listeners.add(&e.listeners.tick, fn)
}

// OnStabilized registers fn to run once each time the layout stabilizes.
func (e *Engine) OnStabilized(fn func(dynamo.Snapshot)) ListenerID {
	return e.listeners.add(&e.listeners.stabilized, fn)
}

// RemoveListener unregisters id and reports whether it was registered.
func (e *Engine) RemoveListener(id ListenerID) bool {
	match := func(l listener) bool { return l.id == id }
	before := len(e.listeners.tick) + len(e.listeners.stabilized)
	e.listeners.tick = slices.DeleteFunc(e.listeners.tick, match)
	e.listeners.stabilized = slices.DeleteFunc(e.listeners.stabilized, match)
	return len(e.listeners.tick)+len(e.listeners.stabilized) < before
}

func (e *Engine) emitTick(snap dynamo.Snapshot) {
	e.dispatch("tick", e.listeners.tick, snap)
}

func (e *Engine) emitStabilized(snap dynamo.Snapshot) {
	e.dispatch("stabilized", e.listeners.stabilized, snap)
}

// dispatch iterates a copy so listeners may unregister themselves.
func (e *Engine) dispatch(event string, ls []listener, snap dynamo.Snapshot) {
	for _, l := range slices.Clone(ls) {
		e.call(event, l, snap)
	}
}

func (e *Engine) call(event string, l listener, snap dynamo.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			e.diag(&ListenerError{Event: event, ID: l.id, Value: r})
		}
	}()
	l.fn(snap)
}

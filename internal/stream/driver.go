// Package stream hosts an engine behind a network API. A Driver goroutine
// owns the engine and ticks it on a timer; HTTP handlers and the file
// watcher reach the engine only through the driver's mailbox, and every
// frame is fanned out to websocket clients by a Hub.
package stream

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/engine"
)

var ErrDriverStopped = errors.New("stream: driver stopped")

// Frame is one message pushed to subscribers.
type Frame struct {
	Type   string          `json:"type"`
	Status string          `json:"status"`
	Layout dynamo.Snapshot `json:"layout"`
}

const (
	FrameTick       = "tick"
	FrameStabilized = "stabilized"
	FrameChanged    = "changed"
)

type command struct {
	fn     func(*engine.Engine) error
	done   chan error
	mutate bool
}

// Driver serializes all access to an engine on one goroutine.
type Driver struct {
	eng      *engine.Engine
	cmds     chan command
	stopped  chan struct{}
	rate     time.Duration
	perFrame int
	publish  func(Frame)
	logger   *log.Logger

	stabilized bool
}

type DriverOption func(*Driver)

// WithRate sets the frame interval. Each frame runs perFrame ticks.
func WithRate(fps, perFrame int) DriverOption {
	return func(d *Driver) {
		if fps > 0 {
			d.rate = time.Second / time.Duration(fps)
		}
		if perFrame > 0 {
			d.perFrame = perFrame
		}
	}
}

// WithPublisher receives every frame. It runs on the driver goroutine and
// must not block.
func WithPublisher(fn func(Frame)) DriverOption {
	return func(d *Driver) { d.publish = fn }
}

func WithDriverLogger(l *log.Logger) DriverOption {
	return func(d *Driver) { d.logger = l }
}

func NewDriver(eng *engine.Engine, opts ...DriverOption) *Driver {
	d := &Driver{
		eng:      eng,
		cmds:     make(chan command),
		stopped:  make(chan struct{}),
		rate:     time.Second / 60,
		perFrame: 1,
		publish:  func(Frame) {},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	eng.OnStabilized(func(dynamo.Snapshot) { d.stabilized = true })
	return d
}

// Run owns the engine until ctx is done. Commands sent after Run returns
// fail with ErrDriverStopped.
func (d *Driver) Run(ctx context.Context) error {
	defer close(d.stopped)

	ticker := time.NewTicker(d.rate)
	defer ticker.Stop()

	d.logger.Debug("driver started", "rate", d.rate, "perFrame", d.perFrame)
	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("driver stopped", "ticks", d.eng.TickCount())
			return ctx.Err()
		case c := <-d.cmds:
			err := c.fn(d.eng)
			c.done <- err
			if err == nil && c.mutate {
				d.emit(FrameChanged)
			}
		case <-ticker.C:
			d.frame()
		}
	}
}

// frame advances the engine and publishes the result. Nothing is sent
// while the layout is at rest.
func (d *Driver) frame() {
	if d.eng.Step(d.perFrame) == 0 {
		return
	}
	if d.stabilized {
		d.stabilized = false
		d.emit(FrameStabilized)
		return
	}
	d.emit(FrameTick)
}

func (d *Driver) emit(kind string) {
	d.publish(Frame{
		Type:   kind,
		Status: d.eng.Status().String(),
		Layout: d.eng.Export(),
	})
}

// Do runs fn on the driver goroutine and returns its error. A successful
// fn publishes a "changed" frame.
func (d *Driver) Do(ctx context.Context, fn func(*engine.Engine) error) error {
	return d.send(ctx, command{fn: fn, done: make(chan error, 1), mutate: true})
}

// Query runs fn on the driver goroutine without publishing a frame.
func (d *Driver) Query(ctx context.Context, fn func(*engine.Engine)) error {
	return d.send(ctx, command{
		fn:   func(e *engine.Engine) error { fn(e); return nil },
		done: make(chan error, 1),
	})
}

func (d *Driver) send(ctx context.Context, c command) error {
	select {
	case d.cmds <- c:
	case <-d.stopped:
		return ErrDriverStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Export reads a snapshot through the mailbox.
func (d *Driver) Export(ctx context.Context) (dynamo.Snapshot, error) {
	var snap dynamo.Snapshot
	err := d.Query(ctx, func(e *engine.Engine) { snap = e.Export() })
	return snap, err
}

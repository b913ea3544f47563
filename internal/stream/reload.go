package stream

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/engine"
	"github.com/san-kum/forcelayout/internal/graphio"
)

// Changes counts what Reconcile did.
type Changes struct {
	NodesAdded   int
	NodesRemoved int
	NodesUpdated int
	LinksAdded   int
	LinksRemoved int
	LinksUpdated int
}

func (c Changes) Empty() bool { return c == Changes{} }

// Reconcile mutates e until its graph matches doc. Surviving nodes keep
// their positions; only category and declared properties are refreshed. A
// link whose endpoints changed under the same id is replaced.
func Reconcile(e *engine.Engine, doc *graphio.Document) (Changes, error) {
	var ch Changes
	cur := e.Export()

	wantNodes := make(map[string]dynamo.NodeInput, len(doc.Nodes))
	for _, n := range doc.Nodes {
		wantNodes[n.ID] = n
	}
	wantLinks := make(map[string]dynamo.LinkInput, len(doc.Links))
	for _, l := range doc.Links {
		wantLinks[l.LinkID()] = l
	}

	for _, l := range cur.Links {
		w, ok := wantLinks[l.ID]
		if ok && w.SourceID == l.Source && w.TargetID == l.Target {
			continue
		}
		if err := e.RemoveLink(l.ID); err != nil {
			return ch, err
		}
		ch.LinksRemoved++
	}

	haveNodes := make(map[string]dynamo.NodeState, len(cur.Nodes))
	for _, n := range cur.Nodes {
		if _, ok := wantNodes[n.ID]; ok {
			haveNodes[n.ID] = n
			continue
		}
		if err := e.RemoveNode(n.ID); err != nil {
			return ch, err
		}
		ch.NodesRemoved++
	}

	for _, n := range doc.Nodes {
		have, ok := haveNodes[n.ID]
		if !ok {
			if err := e.AddNode(n); err != nil {
				return ch, err
			}
			ch.NodesAdded++
			continue
		}
		if have.Category == n.Category && n.Properties == nil {
			continue
		}
		cat := n.Category
		if err := e.UpdateNode(n.ID, dynamo.NodeUpdate{Category: &cat, Properties: n.Properties}); err != nil {
			return ch, err
		}
		ch.NodesUpdated++
	}

	kept := make(map[string]bool, len(cur.Links))
	for _, l := range e.Export().Links {
		kept[l.ID] = true
	}
	for _, l := range doc.Links {
		id := l.LinkID()
		if !kept[id] {
			if err := e.AddLink(l); err != nil {
				return ch, err
			}
			ch.LinksAdded++
			continue
		}
		if l.Properties == nil {
			continue
		}
		u := dynamo.LinkUpdate{Strength: l.Properties.Strength, NaturalLength: l.Properties.NaturalLength}
		if u.Strength == nil && u.NaturalLength == nil {
			continue
		}
		if err := e.UpdateLink(id, u); err != nil {
			return ch, err
		}
		ch.LinksUpdated++
	}

	return ch, nil
}

// Watcher reloads a graph document when its file changes and reconciles
// it into the driver's engine.
type Watcher struct {
	path     string
	driver   *Driver
	debounce time.Duration
	logger   *log.Logger
	onReload func(Changes, error)
}

func NewWatcher(path string, d *Driver, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		path:     path,
		driver:   d,
		debounce: 200 * time.Millisecond,
		logger:   logger,
		onReload: func(Changes, error) {},
	}
}

// WithDebounce sets the quiet period before a change is applied.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// OnReload registers fn to observe every reload attempt.
func (w *Watcher) OnReload(fn func(Changes, error)) *Watcher {
	w.onReload = fn
	return w
}

// Watch blocks until ctx is done. The containing directory is watched so
// that editors which replace the file are handled.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	w.logger.Info("watching graph", "path", w.path)

	reload := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			ch, err := w.Reload(ctx)
			w.onReload(ch, err)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "err", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Reload reads the file and reconciles it now.
func (w *Watcher) Reload(ctx context.Context) (Changes, error) {
	doc, err := graphio.Load(w.path)
	if err != nil {
		w.logger.Warn("reload failed", "path", w.path, "err", err)
		return Changes{}, err
	}

	var ch Changes
	err = w.driver.Do(ctx, func(e *engine.Engine) error {
		var err error
		ch, err = Reconcile(e, doc)
		return err
	})
	if err != nil {
		w.logger.Warn("reconcile failed", "path", w.path, "err", err)
		return ch, err
	}
	w.logger.Info("graph reloaded",
		"nodes+", ch.NodesAdded, "nodes-", ch.NodesRemoved,
		"links+", ch.LinksAdded, "links-", ch.LinksRemoved)
	return ch, nil
}

package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/onsi/gomega"

	"github.com/san-kum/forcelayout/internal/cooling"
	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/engine"
	"github.com/san-kum/forcelayout/internal/graphio"
)

func newEngine(t *testing.T, doc *graphio.Document) *engine.Engine {
	t.Helper()
	e := engine.New()
	if err := e.Initialize(doc.Nodes, doc.Links, dynamo.DefaultConfig()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return e
}

// startDriver runs d until the test ends.
func startDriver(t *testing.T, d *Driver) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestReconcile(t *testing.T) {
	g := NewWithT(t)
	e := newEngine(t, graphio.Ring(4))
	before, _ := e.Node("n0")

	doc := &graphio.Document{
		Nodes: []dynamo.NodeInput{
			{ID: "n0", Category: "structural"},
			{ID: "n1", Category: "x"},
			{ID: "n2", Category: "relationship"},
			{ID: "n9"},
		},
		Links: []dynamo.LinkInput{
			{SourceID: "n0", TargetID: "n1"},
			{SourceID: "n1", TargetID: "n2"},
			{SourceID: "n0", TargetID: "n9"},
		},
	}

	ch, err := Reconcile(e, doc)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ch).To(Equal(Changes{NodesAdded: 1, NodesRemoved: 1, NodesUpdated: 1, LinksAdded: 1, LinksRemoved: 2}))

	snap := e.Export()
	g.Expect(snap.Nodes).To(HaveLen(4))
	g.Expect(snap.Links).To(HaveLen(3))
	_, ok := snap.Find("n3")
	g.Expect(ok).To(BeFalse())
	n1, _ := snap.Find("n1")
	g.Expect(n1.Category).To(Equal("x"))
	after, _ := e.Node("n0")
	g.Expect(after.X).To(Equal(before.X))
	g.Expect(after.Y).To(Equal(before.Y))

	ch, err = Reconcile(e, doc)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ch.Empty()).To(BeTrue())
}

func TestReconcileReplacesRewiredLink(t *testing.T) {
	g := NewWithT(t)
	e := newEngine(t, &graphio.Document{
		Nodes: []dynamo.NodeInput{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Links: []dynamo.LinkInput{{ID: "e1", SourceID: "a", TargetID: "b"}},
	})

	ch, err := Reconcile(e, &graphio.Document{
		Nodes: []dynamo.NodeInput{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Links: []dynamo.LinkInput{{ID: "e1", SourceID: "a", TargetID: "c", Properties: &dynamo.LinkPropertiesInput{NaturalLength: dynamo.Float(80)}}},
	})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ch.LinksRemoved).To(Equal(1))
	g.Expect(ch.LinksAdded).To(Equal(1))

	links := e.Export().Links
	g.Expect(links).To(HaveLen(1))
	g.Expect(links[0].Target).To(Equal("c"))
	g.Expect(links[0].Length).To(Equal(80.0))
}

func TestReconcileRejectsDanglingLink(t *testing.T) {
	g := NewWithT(t)
	e := newEngine(t, graphio.Ring(3))

	_, err := Reconcile(e, &graphio.Document{
		Nodes: []dynamo.NodeInput{{ID: "n0"}},
		Links: []dynamo.LinkInput{{SourceID: "n0", TargetID: "ghost"}},
	})
	g.Expect(err).To(MatchError(dynamo.ErrUnknownNodeReference))
}

func TestDriverMailbox(t *testing.T) {
	g := NewWithT(t)
	frames := make(chan Frame, 64)
	d := NewDriver(newEngine(t, graphio.Ring(5)), WithRate(200, 1), WithPublisher(func(f Frame) {
		select {
		case frames <- f:
		default:
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	err := d.Do(ctx, func(e *engine.Engine) error { return e.PinNode("n2", 7, 8) })
	g.Expect(err).NotTo(HaveOccurred())

	snap, err := d.Export(ctx)
	g.Expect(err).NotTo(HaveOccurred())
	n2, _ := snap.Find("n2")
	g.Expect(n2.X).To(Equal(7.0))
	g.Expect(n2.Y).To(Equal(8.0))

	err = d.Do(ctx, func(e *engine.Engine) error { return e.UnpinNode("missing") })
	g.Expect(err).To(MatchError(dynamo.ErrNodeNotFound))

	g.Eventually(frames).Should(Receive(HaveField("Type", FrameChanged)))
	g.Eventually(frames).Should(Receive(HaveField("Type", FrameTick)))

	cancel()
	g.Eventually(done).Should(Receive(MatchError(context.Canceled)))

	err = d.Do(context.Background(), func(*engine.Engine) error { return nil })
	g.Expect(err).To(MatchError(ErrDriverStopped))
}

func TestDriverPublishesStabilized(t *testing.T) {
	g := NewWithT(t)
	cfg := dynamo.DefaultConfig()
	cfg.AlphaDecay = 0.5
	e := engine.New()
	doc := graphio.Ring(3)
	g.Expect(e.Initialize(doc.Nodes, doc.Links, cfg)).To(Succeed())

	frames := make(chan Frame, 64)
	d := NewDriver(e, WithRate(500, 1), WithPublisher(func(f Frame) { frames <- f }))
	startDriver(t, d)

	g.Eventually(frames, 2*time.Second).Should(Receive(And(
		HaveField("Type", FrameStabilized),
		HaveField("Status", cooling.Stabilized.String()),
	)))
}

func newServer(t *testing.T) (*httptest.Server, *Driver) {
	t.Helper()
	hub := NewHub(nil)
	d := NewDriver(newEngine(t, graphio.Ring(6)), WithRate(120, 1), WithPublisher(hub.Publish))
	startDriver(t, d)
	srv := httptest.NewServer(NewRouter(d, hub))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return srv, d
}

func do(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.Bytes()
}

func TestRouterControl(t *testing.T) {
	g := NewWithT(t)
	srv, _ := newServer(t)

	code, body := do(t, http.MethodPost, srv.URL+"/api/nodes/n0/pin", `{"x":5,"y":6}`)
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(string(body)).To(ContainSubstring(`"status":"running"`))

	code, body = do(t, http.MethodGet, srv.URL+"/api/positions", "")
	g.Expect(code).To(Equal(http.StatusOK))
	var pos []dynamo.NodeState
	g.Expect(json.Unmarshal(body, &pos)).To(Succeed())
	g.Expect(pos).To(HaveLen(6))
	g.Expect(pos[0].ID).To(Equal("n0"))
	g.Expect(pos[0].X).To(Equal(5.0))
	g.Expect(pos[0].Y).To(Equal(6.0))

	code, _ = do(t, http.MethodDelete, srv.URL+"/api/nodes/n0/pin", "")
	g.Expect(code).To(Equal(http.StatusOK))

	code, body = do(t, http.MethodPost, srv.URL+"/api/pause", "")
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(string(body)).To(ContainSubstring(`"status":"paused"`))

	code, body = do(t, http.MethodPost, srv.URL+"/api/resume", "")
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(string(body)).To(ContainSubstring(`"status":"running"`))

	code, body = do(t, http.MethodPost, srv.URL+"/api/reheat", `{"alpha":0.9}`)
	g.Expect(code).To(Equal(http.StatusOK))
	var st statusResponse
	g.Expect(json.Unmarshal(body, &st)).To(Succeed())
	g.Expect(st.Alpha).To(BeNumerically(">=", 0.9))

	code, _ = do(t, http.MethodPost, srv.URL+"/api/reheat", "")
	g.Expect(code).To(Equal(http.StatusOK))

	code, body = do(t, http.MethodPost, srv.URL+"/api/reheat", `{"alpha":-2}`)
	g.Expect(code).To(Equal(http.StatusBadRequest))
	g.Expect(string(body)).To(ContainSubstring("alpha"))

	code, body = do(t, http.MethodGet, srv.URL+"/api/export", "")
	g.Expect(code).To(Equal(http.StatusOK))
	var snap dynamo.Snapshot
	g.Expect(json.Unmarshal(body, &snap)).To(Succeed())
	g.Expect(snap.Links).To(HaveLen(6))
	g.Expect(snap.Alpha).To(BeNumerically(">", 0))
}

func TestRouterErrors(t *testing.T) {
	g := NewWithT(t)
	srv, _ := newServer(t)

	code, body := do(t, http.MethodPost, srv.URL+"/api/nodes/ghost/impulse", `{"dvx":1,"dvy":0}`)
	g.Expect(code).To(Equal(http.StatusNotFound))
	g.Expect(string(body)).To(ContainSubstring("error"))

	code, _ = do(t, http.MethodPost, srv.URL+"/api/nodes/n0/pin", `{"x":`)
	g.Expect(code).To(Equal(http.StatusBadRequest))

	code, _ = do(t, http.MethodDelete, srv.URL+"/api/nodes/ghost/pin", "")
	g.Expect(code).To(Equal(http.StatusNotFound))

	code, _ = do(t, http.MethodGet, srv.URL+"/api/nope", "")
	g.Expect(code).To(Equal(http.StatusNotFound))
}

func TestWebsocketFrames(t *testing.T) {
	g := NewWithT(t)
	srv, _ := newServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	g.Expect(err).NotTo(HaveOccurred())
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	g.Expect(err).NotTo(HaveOccurred())

	var f Frame
	g.Expect(json.Unmarshal(msg, &f)).To(Succeed())
	g.Expect(f.Type).To(BeElementOf(FrameTick, FrameChanged, FrameStabilized))
	g.Expect(f.Layout.Nodes).To(HaveLen(6))
}

func TestWatcherReloads(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "graph.json")
	write := func(doc *graphio.Document) {
		var buf bytes.Buffer
		g.Expect(graphio.Write(&buf, doc, graphio.JSON)).To(Succeed())
		g.Expect(os.WriteFile(path, buf.Bytes(), 0644)).To(Succeed())
	}

	write(graphio.Ring(3))
	doc, err := graphio.Load(path)
	g.Expect(err).NotTo(HaveOccurred())
	d := NewDriver(newEngine(t, doc), WithRate(120, 1))
	startDriver(t, d)

	reloaded := make(chan Changes, 16)
	w := NewWatcher(path, d, nil).WithDebounce(20 * time.Millisecond).OnReload(func(ch Changes, err error) {
		if err == nil {
			reloaded <- ch
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx)

	bigger := graphio.Ring(5)
	g.Eventually(func() bool {
		write(bigger)
		select {
		case <-reloaded:
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond).Should(BeTrue())

	snap, err := d.Export(context.Background())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(snap.Nodes).To(HaveLen(5))
	g.Expect(snap.Links).To(HaveLen(5))
}

func TestWatcherReloadReportsBadFile(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "graph.json")
	g.Expect(os.WriteFile(path, []byte(`{"nodes":[{"x":1}]}`), 0644)).To(Succeed())

	d := NewDriver(newEngine(t, graphio.Ring(2)))
	startDriver(t, d)

	_, err := NewWatcher(path, d, nil).Reload(context.Background())
	g.Expect(err).To(MatchError(graphio.ErrMissingNodeID))
}

package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/forcelayout/internal/cooling"
	"github.com/san-kum/forcelayout/internal/engine"
	"github.com/san-kum/forcelayout/internal/metrics"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	impulse         = 4.0
)

type TickMsg time.Time

// Model drives an engine from the Bubble Tea event loop. The engine is only
// touched from Update, so no locking is needed.
type Model struct {
	eng      *engine.Engine
	name     string
	rate     time.Duration
	perFrame int

	canvas     *Canvas
	theme      int
	categories map[string]int
	selected   int

	alphaHist  []float64
	energyHist []float64

	keys     KeyMap
	help     help.Model
	showHelp bool
}

// NewModel returns a viewer for eng. The engine should already be
// initialized. fps sets the redraw rate and perFrame the ticks per redraw.
func NewModel(eng *engine.Engine, name string, fps, perFrame int) Model {
	if fps <= 0 {
		fps = 60
	}
	if perFrame <= 0 {
		perFrame = 1
	}
	return Model{
		eng:        eng,
		name:       name,
		rate:       time.Second / time.Duration(fps),
		perFrame:   perFrame,
		canvas:     NewCanvas(width, height),
		categories: make(map[string]int),
		selected:   -1,
		alphaHist:  make([]float64, 0, historyCapacity),
		energyHist: make([]float64, 0, historyCapacity),
		keys:       DefaultKeyMap,
		help:       help.New(),
	}
}

// Run blocks until the viewer quits or ctx is done.
func Run(ctx context.Context, m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.rate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			if m.eng.Status() == cooling.Paused {
				m.eng.Resume()
			} else {
				m.eng.Pause()
			}
		case key.Matches(msg, m.keys.Reheat):
			m.eng.Reheat(m.eng.Config().ReheatAlpha)
		case key.Matches(msg, m.keys.Next):
			if n := m.eng.Len(); n > 0 {
				m.selected = (m.selected + 1) % n
			}
		case key.Matches(msg, m.keys.Pin):
			m.togglePin()
		case key.Matches(msg, m.keys.Up):
			m.push(0, -impulse)
		case key.Matches(msg, m.keys.Down):
			m.push(0, impulse)
		case key.Matches(msg, m.keys.Left):
			m.push(-impulse, 0)
		case key.Matches(msg, m.keys.Right):
			m.push(impulse, 0)
		case key.Matches(msg, m.keys.Theme):
			m.theme = (m.theme + 1) % len(Themes)
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
		}
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	case TickMsg:
		m.step()
		return m, m.tick()
	}
	return m, nil
}

// step advances the engine by up to perFrame ticks and records history
// while the layout is moving.
func (m *Model) step() {
	if m.eng.Step(m.perFrame) == 0 {
		return
	}
	snap := m.eng.Export()
	m.alphaHist = appendCapped(m.alphaHist, snap.Alpha)
	m.energyHist = appendCapped(m.energyHist, metrics.Kinetic(snap))
}

func appendCapped(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

func (m *Model) selectedID() (string, bool) {
	nodes := m.eng.Positions()
	if m.selected < 0 || m.selected >= len(nodes) {
		return "", false
	}
	return nodes[m.selected].ID, true
}

func (m *Model) togglePin() {
	id, ok := m.selectedID()
	if !ok {
		return
	}
	n, _ := m.eng.Node(id)
	if n.Pinned {
		_ = m.eng.UnpinNode(id)
		return
	}
	_ = m.eng.PinNode(id, n.X, n.Y)
}

func (m *Model) push(dvx, dvy float64) {
	if id, ok := m.selectedID(); ok {
		_ = m.eng.ApplyImpulse(id, dvx, dvy)
	}
}

func (m *Model) categoryTint(cat string, ncolors int) int {
	if cat == "" {
		return 0
	}
	i, ok := m.categories[cat]
	if !ok {
		i = len(m.categories)
		m.categories[cat] = i
	}
	return i % ncolors
}

// draw renders links, then nodes on top, into the canvas.
func (m *Model) draw() {
	m.canvas.Clear()
	snap := m.eng.Export()
	vp := Fit(snap.Nodes, m.canvas.Width*2, m.canvas.Height*4, 2)

	pos := make(map[string][2]int, len(snap.Nodes))
	for _, n := range snap.Nodes {
		x, y := vp.Project(n.X, n.Y)
		pos[n.ID] = [2]int{x, y}
	}
	for _, l := range snap.Links {
		a, okA := pos[l.Source]
		b, okB := pos[l.Target]
		if okA && okB {
			m.canvas.DrawLine(a[0], a[1], b[0], b[1])
		}
	}

	ncolors := len(Themes[m.theme].Categories)
	for i, n := range snap.Nodes {
		p := pos[n.ID]
		tint := m.categoryTint(n.Category, ncolors)
		if i == m.selected {
			tint = ncolors
		}
		m.canvas.Dot(p[0], p[1], tint)
	}
}

func (m Model) View() string {
	theme := Themes[m.theme]
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.Render(theme.palette(), lipgloss.NewStyle().Foreground(theme.Link)))

	var s strings.Builder
	s.WriteString(headerStyle.Foreground(theme.Primary).Render(strings.ToUpper(m.name)) + "\n")
	s.WriteString(StatusBadge(m.eng.Status()) + "\n\n")

	if len(m.alphaHist) > 1 {
		chart := asciigraph.Plot(m.alphaHist, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Alpha"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	energy := 0.0
	if len(m.energyHist) > 0 {
		energy = m.energyHist[len(m.energyHist)-1]
	}
	snap := m.eng.Export()
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Nodes", fmt.Sprintf("%d", len(snap.Nodes)))
	row("Links", fmt.Sprintf("%d", len(snap.Links)))
	row("Tick", fmt.Sprintf("%d", snap.TickCount))
	row("Alpha", fmt.Sprintf("%.4f", snap.Alpha))
	row("Energy", fmt.Sprintf("%.3f", energy))
	row("Spread", fmt.Sprintf("%.1f", metrics.MeanPairDistance(snap.Nodes)))
	row("Theme", theme.Name)
	if id, ok := m.selectedID(); ok {
		n, _ := m.eng.Node(id)
		sel := id
		if n.Pinned {
			sel += " (pinned)"
		}
		row("Selected", sel)
	}

	s.WriteString(helpStyle.Render(m.help.View(m.keys)))
	statsView := statsStyle.Render(s.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
}

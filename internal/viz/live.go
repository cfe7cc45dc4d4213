package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/tlmsim/internal/core"
	"github.com/san-kum/tlmsim/internal/experiment"
)

const (
	canvasWidth  = 60
	canvasHeight = 16
	frameRate    = time.Second / 30
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// LiveModel runs a model in chunks of steps between frames and plots the
// log of one node variable as it grows. Root system parameters can be tuned
// between chunks.
type LiveModel struct {
	sys           *core.System
	name          string
	start, stop   float64
	samples       int
	stepsPerFrame int
	totalSteps    int

	running  bool
	done     bool
	err      error
	showHelp bool

	nodes    []*core.Node
	selected int
	slot     int
	params   []string
	param    int
	canvas   *Canvas
}

// NewLiveModel initializes the system of exp for a live run.
func NewLiveModel(exp *experiment.Experiment, stepsPerFrame int) (LiveModel, error) {
	cfg := exp.Config()
	sys := exp.System()
	if err := sys.Initialize(cfg.Start, cfg.Stop, cfg.Samples); err != nil {
		return LiveModel{}, err
	}
	return LiveModel{
		sys:           sys,
		name:          cfg.Name,
		start:         cfg.Start,
		stop:          cfg.Stop,
		samples:       cfg.Samples,
		stepsPerFrame: max(1, stepsPerFrame),
		totalSteps:    int((cfg.Stop-cfg.Start)/sys.Timestep() + 1e-6),
		running:       true,
		nodes:         sys.AllNodes(),
		params:        sys.SystemParameters().Names(),
		canvas:        NewCanvas(canvasWidth, canvasHeight),
	}, nil
}

func (m LiveModel) Init() tea.Cmd {
	return tick()
}

// Update handles input events and advances the simulation on each tick.
func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.finish()
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab", "n":
			if len(m.nodes) > 0 {
				m.selected = (m.selected + 1) % len(m.nodes)
				m.slot = 0
			}
		case "v":
			if len(m.nodes) > 0 {
				m.slot = (m.slot + 1) % m.nodes[m.selected].NumDataVariables()
			}
		case "p":
			if len(m.params) > 0 {
				m.param = (m.param + 1) % len(m.params)
			}
		case "up", "k":
			m.adjustParam(1.1)
		case "down", "j":
			m.adjustParam(1 / 1.1)
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && !m.done {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

// advance simulates the next chunk of steps and finalizes the system after
// the last one.
func (m *LiveModel) advance() {
	taken := m.sys.Steps()
	k := min(m.stepsPerFrame, m.totalSteps-taken)
	if k > 0 {
		ts := m.sys.Timestep()
		t0 := m.start + float64(taken)*ts
		t1 := m.start + float64(taken+k)*ts
		if err := m.sys.Simulate(context.Background(), t0, t1); err != nil {
			m.err = err
			m.running = false
			m.finish()
			return
		}
	}
	if m.sys.Steps() >= m.totalSteps {
		m.finish()
	}
}

func (m *LiveModel) finish() {
	if m.done {
		return
	}
	m.done = true
	m.running = false
	if m.sys.State() == core.StateInitialized {
		if err := m.sys.Finalize(m.start, m.stop); err != nil && m.err == nil {
			m.err = err
		}
	}
}

func (m *LiveModel) reset() {
	m.err = nil
	if m.sys.State() == core.StateInitialized {
		_ = m.sys.Finalize(m.start, m.stop)
	}
	if err := m.sys.Initialize(m.start, m.stop, m.samples); err != nil {
		m.err = err
		m.done = true
		return
	}
	m.done = false
	m.running = true
}

func (m *LiveModel) adjustParam(factor float64) {
	if len(m.params) == 0 {
		return
	}
	sp := m.sys.SystemParameters()
	name := m.params[m.param]
	v, err := sp.Value(name)
	if err != nil {
		return
	}
	if v == 0 {
		v = 1
		factor = 1
	}
	if err := sp.SetValue(name, v*factor); err == nil {
		sp.Update()
	}
}

func (m LiveModel) status() string {
	switch {
	case m.err != nil:
		return "error"
	case m.done:
		return "done"
	case m.running:
		return "running"
	}
	return "paused"
}

// View renders the plot next to the stats panel.
func (m LiveModel) View() string {
	var plot string
	var node *core.Node
	if len(m.nodes) > 0 {
		node = m.nodes[m.selected]
		m.canvas.PlotSeries(node.LogSeries(m.slot))
		plot = lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Render(m.canvas.String())
	}

	var s strings.Builder
	s.WriteString(TitleStyle().Render(strings.ToUpper(m.name)) + "  " + Status(m.status()) + "\n\n")
	steps := m.sys.Steps()
	frac := 1.0
	if m.totalSteps > 0 {
		frac = float64(steps) / float64(m.totalSteps)
	}
	s.WriteString(ProgressBar(frac, 30) + "\n")
	s.WriteString(LabelStyle().Render("time  ") + ValueStyle().Render(fmt.Sprintf("%.4gs", m.sys.Time())) + "\n")
	s.WriteString(LabelStyle().Render("step  ") + ValueStyle().Render(fmt.Sprintf("%d/%d", steps, m.totalSteps)) + "\n")
	if m.err != nil {
		s.WriteString(lipgloss.NewStyle().Foreground(CurrentTheme.Error).Render(m.err.Error()) + "\n")
	}

	if node != nil {
		s.WriteString("\n" + TitleStyle().Render(node.Label()) + "\n")
		for i, d := range node.DataDescriptions() {
			line := fmt.Sprintf("%-14s %12.5g %s", d.Name, node.Data(i), d.Unit)
			if i == m.slot {
				s.WriteString(SelectedStyle().Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + ValueStyle().Render(line) + "\n")
			}
		}
	}

	s.WriteString("\n" + TitleStyle().Render("PARAMETERS") + "\n")
	if len(m.params) == 0 {
		s.WriteString(LabelStyle().Render("  (none)") + "\n")
	}
	sp := m.sys.SystemParameters()
	for i, name := range m.params {
		v, _ := sp.Value(name)
		line := fmt.Sprintf("%-10s %.4g", name, v)
		if i == m.param {
			s.WriteString(SelectedStyle().Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + LabelStyle().Render(line) + "\n")
		}
	}

	s.WriteString("\n" + KeyHint().Render("SP:Pause R:Restart Q:Quit ?:Help"))
	body := lipgloss.JoinHorizontal(lipgloss.Top, plot, PanelStyle().Render(s.String()))
	if m.showHelp {
		return PanelStyle().Render(strings.Join([]string{
			"Space     pause/resume",
			"R         restart from the start values",
			"Tab/N     next node",
			"V         next variable of the node",
			"P         next system parameter",
			"Up/Down   scale the parameter by 10%",
			"T         cycle themes",
			"Q         quit",
		}, "\n")) + "\n\n" + body
	}
	return body
}

// Err returns the error that ended the run, if any.
func (m LiveModel) Err() error { return m.err }

package viz

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/tlmsim/internal/config"
	"github.com/san-kum/tlmsim/internal/core"
	"github.com/san-kum/tlmsim/internal/experiment"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetOutput(io.Discard)
	}
	os.Exit(m.Run())
}

func TestCanvas(t *testing.T) {
	c := NewCanvas(4, 2)
	assert.Equal(t, "⠀⠀⠀⠀\n⠀⠀⠀⠀\n", c.String())

	c.Set(0, 0)
	assert.Equal(t, rune(0x2801), c.Grid[0][0])
	c.Set(100, 100)

	c.PlotSeries([]float64{0, 1, 2, 3})
	assert.NotEqual(t, rune(brailleBlank), c.Grid[1][0], "lowest value sits bottom left")
	assert.NotEqual(t, rune(brailleBlank), c.Grid[0][3], "highest value sits top right")

	c.PlotSeries(nil)
	assert.Equal(t, "⠀⠀⠀⠀\n⠀⠀⠀⠀\n", c.String())
}

func TestSparkline(t *testing.T) {
	s := Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 8)
	assert.Equal(t, "▁▂▃▄▅▆▇█", s)
	assert.Equal(t, 4, utf8.RuneCountInString(Sparkline([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 4)))
	assert.Equal(t, "───", Sparkline(nil, 3))
}

func TestTable(t *testing.T) {
	out := Table([]string{"name", "value"}, [][]string{{"a", "1"}, {"long", "22"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "a     1", lines[1])
	assert.Equal(t, "long  22", lines[2])
}

func TestThemes(t *testing.T) {
	defer SetTheme(ThemeCyberpunk.Name)

	SetTheme("ocean")
	assert.Equal(t, "ocean", CurrentTheme.Name)
	NextTheme()
	assert.Equal(t, "cyberpunk", CurrentTheme.Name)
	assert.Equal(t, ThemeCyberpunk, GetTheme("nope"))
	assert.Len(t, ThemeNames(), 3)
}

func TestPlotLogs(t *testing.T) {
	logs := []experiment.NodeLog{{
		Name:      "src.out",
		Variables: []core.DataDescription{{Name: "Value"}},
		Values:    [][]float64{{1}, {2}, {3}},
	}}

	out, err := PlotLogs(logs, "Value", 40, 5)
	require.NoError(t, err)
	assert.Contains(t, out, "Value")

	_, err = PlotLogs(logs, "Pressure", 40, 5)
	assert.Error(t, err)

	assert.Empty(t, Plot(nil, "x", 10, 5))
}

func newLive(t *testing.T, stepsPerFrame int) LiveModel {
	t.Helper()
	exp, err := experiment.New(config.GetPreset("signal_chain"), experiment.NewRegistry())
	require.NoError(t, err)
	m, err := NewLiveModel(exp, stepsPerFrame)
	require.NoError(t, err)
	return m
}

func update(m LiveModel, msg tea.Msg) LiveModel {
	next, _ := m.Update(msg)
	return next.(LiveModel)
}

func TestLiveModel_RunsToEnd(t *testing.T) {
	m := newLive(t, 3)
	assert.Equal(t, 10, m.totalSteps)
	assert.Equal(t, "running", m.status())

	tickMsg := TickMsg(time.Now())
	for k := 0; k < 3; k++ {
		m = update(m, tickMsg)
	}
	assert.Equal(t, 9, m.sys.Steps())
	assert.False(t, m.done)

	m = update(m, tickMsg)
	assert.Equal(t, 10, m.sys.Steps())
	assert.True(t, m.done)
	assert.Equal(t, "done", m.status())
	assert.Equal(t, core.StateFinalized, m.sys.State())
	assert.NoError(t, m.Err())

	view := m.View()
	assert.Contains(t, view, "SIGNAL_CHAIN")
	assert.Contains(t, view, "10/10")
}

func TestLiveModel_PauseAndRestart(t *testing.T) {
	m := newLive(t, 2)

	m = update(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.Equal(t, "paused", m.status())
	m = update(m, TickMsg(time.Now()))
	assert.Equal(t, 0, m.sys.Steps())

	m = update(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m = update(m, TickMsg(time.Now()))
	assert.Equal(t, 2, m.sys.Steps())

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	assert.Equal(t, 0, m.sys.Steps())
	assert.Equal(t, core.StateInitialized, m.sys.State())
}

func TestLiveModel_TunesParameters(t *testing.T) {
	cfg := config.GetPreset("orifice_volume")
	exp, err := experiment.New(cfg, experiment.NewRegistry())
	require.NoError(t, err)
	m, err := NewLiveModel(exp, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"Kc"}, m.params)

	m = update(m, tea.KeyMsg{Type: tea.KeyUp})
	v, err := m.sys.SystemParameters().Value("Kc")
	require.NoError(t, err)
	assert.InDelta(t, 1.1e-11, v, 1e-20)

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.True(t, m.done)
}

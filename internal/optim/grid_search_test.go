package optim

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/tlmsim/internal/config"
	"github.com/san-kum/tlmsim/internal/experiment"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetOutput(io.Discard)
	}
	os.Exit(m.Run())
}

func TestRange(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, Range(0, 1, 3))
	assert.Equal(t, []float64{2}, Range(2, 5, 1))
}

func TestGridSearch(t *testing.T) {
	g := NewGridSearch([]string{"src.y", "gain.k"}, [][]float64{{1, 2, 3}, {-1, 2}})
	g.SetWorkers(2)

	best, val, err := g.Search(context.Background(), config.GetPreset("signal_chain"),
		experiment.NewRegistry(), "gain.out:Value", true)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"src.y": 3, "gain.k": 2}, best)
	assert.InDelta(t, 6.0, val, 1e-12)

	best, val, err = g.Search(context.Background(), config.GetPreset("signal_chain"),
		experiment.NewRegistry(), "gain.out:Value", false)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"src.y": 3, "gain.k": -1}, best)
	assert.InDelta(t, -3.0, val, 1e-12)
}

func TestGridSearch_Errors(t *testing.T) {
	cfg := config.GetPreset("signal_chain")
	reg := experiment.NewRegistry()

	_, _, err := NewGridSearch([]string{"src.y"}, nil).Search(context.Background(), cfg, reg, "gain.out:Value", false)
	assert.Error(t, err)

	_, _, err = NewGridSearch([]string{"src.y"}, [][]float64{{1}}).Search(context.Background(), cfg, reg, "nope:Value", false)
	assert.ErrorIs(t, err, ErrNoResult)
}

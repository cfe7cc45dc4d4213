package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsDuplicate(t *testing.T) {
	sp := New()
	require.NoError(t, sp.Add("k", 5.0))
	err := sp.Add("k", 6.0)
	assert.ErrorIs(t, err, ErrExists)

	v, err := sp.Value("k")
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
}

func TestUpdateWritesMappedLocations(t *testing.T) {
	sp := New()
	require.NoError(t, sp.Add("k", 5.0))

	var x, y float64
	require.NoError(t, sp.MapParameter("k", &x))
	require.NoError(t, sp.MapParameter("k", &y))

	sp.Update()
	assert.Equal(t, 5.0, x)
	assert.Equal(t, 5.0, y)

	sp.UnMapParameter("k", &x)
	require.NoError(t, sp.SetValue("k", 7.0))
	sp.Update()

	assert.Equal(t, 5.0, x, "unmapped location must keep its value")
	assert.Equal(t, 7.0, y, "other mapping must still follow")
}

func TestUpdateName(t *testing.T) {
	sp := New()
	require.NoError(t, sp.Add("a", 1))
	require.NoError(t, sp.Add("b", 2))

	var a, b float64
	require.NoError(t, sp.MapParameter("a", &a))
	require.NoError(t, sp.MapParameter("b", &b))

	require.NoError(t, sp.UpdateName("a"))
	assert.Equal(t, 1.0, a)
	assert.Equal(t, 0.0, b)

	assert.ErrorIs(t, sp.UpdateName("missing"), ErrUnknown)
}

func TestMapUnknownAndNil(t *testing.T) {
	sp := New()
	var x float64
	assert.ErrorIs(t, sp.MapParameter("nope", &x), ErrUnknown)

	require.NoError(t, sp.Add("k", 1))
	assert.ErrorIs(t, sp.MapParameter("k", nil), ErrNilValue)
}

func TestRemappingMovesLocation(t *testing.T) {
	sp := New()
	require.NoError(t, sp.Add("a", 1))
	require.NoError(t, sp.Add("b", 2))

	var x float64
	require.NoError(t, sp.MapParameter("a", &x))
	require.NoError(t, sp.MapParameter("b", &x))

	assert.Equal(t, 0, sp.Mappings("a"))
	assert.Equal(t, 1, sp.Mappings("b"))

	name, ok := sp.FindOccurrence(&x)
	require.True(t, ok)
	assert.Equal(t, "b", name)
}

func TestEraseFailsWhileMapped(t *testing.T) {
	sp := New()
	require.NoError(t, sp.Add("k", 1))

	var x float64
	require.NoError(t, sp.MapParameter("k", &x))
	assert.ErrorIs(t, sp.Erase("k"), ErrMapped)

	sp.UnMapAll(&x)
	require.NoError(t, sp.Erase("k"))
	assert.Equal(t, 0, sp.Len())
	assert.ErrorIs(t, sp.Erase("k"), ErrUnknown)
}

func TestParametersSnapshot(t *testing.T) {
	sp := New()
	require.NoError(t, sp.Add("b", 2))
	require.NoError(t, sp.Add("a", 1))

	snap := sp.Parameters()
	snap["a"] = 100

	v, err := sp.Value("a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	assert.Equal(t, []string{"a", "b"}, sp.Names())
}

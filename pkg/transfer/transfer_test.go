package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liangfu/volrender/internal/models"
)

func TestOpacityOrdering(t *testing.T) {
	_, err := NewOpacityFunction([]ControlPoint{{0, 0}, {10, 1}, {10, 0.5}})
	assert.ErrorIs(t, err, ErrOrdering)

	_, err = NewOpacityFunction([]ControlPoint{{5, 0}, {1, 1}})
	assert.ErrorIs(t, err, ErrOrdering)

	_, err = NewColorFunction([]ColorPoint{{X: 2}, {X: 1}})
	assert.ErrorIs(t, err, ErrOrdering)

	_, err = NewSet(nil, []ControlPoint{{3, 0}, {2, 1}}, DefaultShading(), true)
	assert.ErrorIs(t, err, ErrOrdering)
}

func TestOpacityInterpolation(t *testing.T) {
	f, err := NewOpacityFunction([]ControlPoint{{-100, 0.2}, {0, 0.6}, {100, 0.1}})
	require.NoError(t, err)

	// On the linear segments
	for _, tc := range []struct{ v, want float64 }{
		{-100, 0.2},
		{-50, 0.4},
		{-25, 0.5},
		{0, 0.6},
		{50, 0.35},
		{100, 0.1},
	} {
		assert.InDelta(t, tc.want, f.Evaluate(tc.v), 1e-12, "v=%g", tc.v)
	}

	// Exact endpoint values outside the range
	assert.Equal(t, 0.2, f.Evaluate(-1e9))
	assert.Equal(t, 0.2, f.Evaluate(-100.0001))
	assert.Equal(t, 0.1, f.Evaluate(100.0001))
	assert.Equal(t, 0.1, f.Evaluate(1e9))
}

func TestDegenerateFunctions(t *testing.T) {
	empty, err := NewOpacityFunction(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty.Evaluate(42))

	single, err := NewOpacityFunction([]ControlPoint{{5, 0.3}})
	require.NoError(t, err)
	assert.Equal(t, 0.3, single.Evaluate(-10))
	assert.Equal(t, 0.3, single.Evaluate(5))
	assert.Equal(t, 0.3, single.Evaluate(10))

	black, err := NewColorFunction(nil)
	require.NoError(t, err)
	assert.Equal(t, models.RGB{}, black.Evaluate(1))
}

func TestColorInterpolation(t *testing.T) {
	f, err := NewColorFunction([]ColorPoint{
		{X: 0, Color: models.RGB{R: 0, G: 1, B: 0}},
		{X: 10, Color: models.RGB{R: 1, G: 0, B: 0.5}},
	})
	require.NoError(t, err)

	c := f.Evaluate(2.5)
	assert.InDelta(t, 0.25, c.R, 1e-12)
	assert.InDelta(t, 0.75, c.G, 1e-12)
	assert.InDelta(t, 0.125, c.B, 1e-12)

	assert.Equal(t, models.RGB{R: 0, G: 1, B: 0}, f.Evaluate(-3))
	assert.Equal(t, models.RGB{R: 1, G: 0, B: 0.5}, f.Evaluate(30))
}

func TestShadingValidation(t *testing.T) {
	s := DefaultShading()
	require.NoError(t, s.Validate())

	s.Diffuse = -0.1
	assert.ErrorIs(t, s.Validate(), ErrShading)

	s = DefaultShading()
	s.UnitDistance = 0
	assert.ErrorIs(t, s.Validate(), ErrShading)
}

func testSet(t *testing.T, independent bool) *Set {
	t.Helper()
	set, err := NewSet(
		[]ColorPoint{
			{X: 0, Color: models.RGB{R: 1}},
			{X: 100, Color: models.RGB{B: 1}},
		},
		[]ControlPoint{{0, 0}, {100, 1}},
		DefaultShading(),
		independent,
	)
	require.NoError(t, err)
	return set
}

func TestClassifyComponentsIndependent(t *testing.T) {
	set := testSet(t, true)

	c, a := set.ClassifyComponents([]float64{50})
	assert.InDelta(t, 0.5, a, 1e-12)
	assert.InDelta(t, 0.5, c.R, 1e-12)

	// Opacity is the mean, color the opacity-weighted mean.
	c, a = set.ClassifyComponents([]float64{0, 100})
	assert.InDelta(t, 0.5, a, 1e-12)
	assert.InDelta(t, 0.0, c.R, 1e-12)
	assert.InDelta(t, 1.0, c.B, 1e-12)

	c, a = set.ClassifyComponents([]float64{0, 0, 0})
	assert.Equal(t, 0.0, a)
	assert.Equal(t, models.RGB{}, c)

	assert.Equal(t, 0, set.GradientComponent(3))
}

func TestClassifyComponentsDependent(t *testing.T) {
	set := testSet(t, false)

	c, a := set.ClassifyComponents([]float64{100, 25})
	assert.Equal(t, models.RGB{B: 1}, c)
	assert.InDelta(t, 0.25, a, 1e-12)

	c, a = set.ClassifyComponents([]float64{255, 0, 51, 100})
	assert.InDelta(t, 1.0, c.R, 1e-12)
	assert.InDelta(t, 0.2, c.B, 1e-12)
	assert.InDelta(t, 1.0, a, 1e-12)

	assert.NoError(t, set.CheckComponents(2))
	assert.NoError(t, set.CheckComponents(4))
	assert.Error(t, set.CheckComponents(3))
	assert.Equal(t, 3, set.GradientComponent(4))
}

func TestBuiltinPresets(t *testing.T) {
	presets, err := BuiltinPresets()
	require.NoError(t, err)
	assert.Equal(t, []string{"composite-ramp", "ct-bone", "ct-skin", "jet", "mip"}, presets.Names())

	jet, err := presets.Lookup("Jet-like CT mapping")
	require.NoError(t, err)
	assert.Equal(t, "composite", jet.Blend)
	assert.Len(t, jet.Color, 8)
	assert.Len(t, jet.Opacity, 10)
	assert.Equal(t, Shading{
		Enabled:       true,
		Ambient:       0.1,
		Diffuse:       0.9,
		Specular:      0.2,
		SpecularPower: 10,
		UnitDistance:  0.8919,
	}, jet.Shading)

	// Every builtin preset must be well formed.
	for _, name := range presets.Names() {
		p, err := presets.Lookup(name)
		require.NoError(t, err)
		_, err = p.Build(true)
		assert.NoError(t, err, name)
	}

	set, err := jet.Build(true)
	require.NoError(t, err)
	c, a := set.Classify(1601)
	assert.Equal(t, models.RGB{R: 1}, c)
	assert.InDelta(t, 0.1*(3071-1601)/(3071-1600.0), a, 1e-12)
	_, a = set.Classify(-5000)
	assert.Equal(t, 0.0, a)
}

func TestPresetLookup(t *testing.T) {
	presets, err := BuiltinPresets()
	require.NoError(t, err)

	none, err := presets.Lookup(NoPreset)
	require.NoError(t, err)
	set, err := none.Build(true)
	require.NoError(t, err)
	_, a := set.Classify(1000)
	assert.Equal(t, 0.0, a)

	_, err = presets.Lookup("nonexistent")
	assert.Error(t, err)

	custom, err := ParsePresets([]byte(`
red:
  blend: composite
  shading: {enabled: false, unitDistance: 1}
  color: [[0, 1, 0, 0], [1, 1, 0, 0]]
  opacity: [[0, 1], [1, 1]]
`))
	require.NoError(t, err)
	merged := presets.Merge(custom)
	red, err := merged.Lookup("RED")
	require.NoError(t, err)
	assert.Equal(t, [][4]float64{{0, 1, 0, 0}, {1, 1, 0, 0}}, red.Color)
	assert.Len(t, merged, len(presets)+1)
}

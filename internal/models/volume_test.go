package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsSmallDimensions(t *testing.T) {
	for _, dims := range [][3]int{{1, 4, 4}, {4, 1, 4}, {4, 4, 1}, {0, 0, 0}} {
		vol := NewScalarVolume(dims[0], dims[1], dims[2])
		err := vol.Validate()
		require.Error(t, err, "dims %v", dims)
		assert.True(t, errors.Is(err, ErrLoad), "dims %v: %v", dims, err)
	}

	require.NoError(t, NewScalarVolume(2, 2, 2).Validate())
}

func TestValidateSpacingAndData(t *testing.T) {
	vol := NewScalarVolume(3, 3, 3)
	vol.Spacing[1] = 0
	assert.ErrorIs(t, vol.Validate(), ErrLoad)

	vol = NewScalarVolume(3, 3, 3)
	vol.Data = vol.Data[:10]
	assert.ErrorIs(t, vol.Validate(), ErrLoad)

	vol = NewScalarVolume(3, 3, 3)
	vol.Components = 2
	assert.ErrorIs(t, vol.Validate(), ErrLoad)
}

func TestIndexLayout(t *testing.T) {
	vol := &ScalarVolume{
		Dims:       [3]int{3, 4, 5},
		Spacing:    [3]float64{1, 1, 1},
		Components: 2,
	}
	vol.Data = make([]float64, 3*4*5*2)

	// x varies fastest, then y, then z; components are interleaved.
	assert.Equal(t, 0, vol.Index(0, 0, 0, 0))
	assert.Equal(t, 1, vol.Index(0, 0, 0, 1))
	assert.Equal(t, 2, vol.Index(1, 0, 0, 0))
	assert.Equal(t, 6, vol.Index(0, 1, 0, 0))
	assert.Equal(t, 24, vol.Index(0, 0, 1, 0))

	vol.Set(2, 3, 4, 1, 7.5)
	assert.Equal(t, 7.5, vol.At(2, 3, 4, 1))
	assert.Equal(t, 7.5, vol.Data[len(vol.Data)-1])
}

func TestBoundsAndRange(t *testing.T) {
	vol := NewScalarVolume(5, 3, 2)
	vol.Spacing = [3]float64{0.5, 2, 3}
	vol.Origin = [3]float64{1, -1, 10}
	for i := range vol.Data {
		vol.Data[i] = float64(i) - 4
	}

	b := vol.Bounds()
	assert.Equal(t, 1.0, b.Min.X)
	assert.Equal(t, 3.0, b.Max.X)
	assert.Equal(t, -1.0, b.Min.Y)
	assert.Equal(t, 3.0, b.Max.Y)
	assert.Equal(t, 13.0, b.Max.Z)
	assert.InDelta(t, 11.0/6, vol.MeanSpacing(), 1e-12)

	min, max := vol.ScalarRange(0)
	assert.Equal(t, -4.0, min)
	assert.Equal(t, float64(len(vol.Data)-5), max)
}

func TestFrameBufferImage(t *testing.T) {
	fb := NewFrameBuffer(2, 2, RGB{R: 1, G: 1, B: 1})
	fb.Set(1, 0, RGB{R: 1, G: 0, B: 0.5})

	img := fb.Image()
	assert.Equal(t, uint8(255), img.RGBAAt(0, 0).G)
	c := img.RGBAAt(1, 0)
	assert.Equal(t, uint8(255), c.R)
	assert.Equal(t, uint8(0), c.G)
	assert.Equal(t, uint8(128), c.B)
	assert.Equal(t, uint8(255), c.A)
}

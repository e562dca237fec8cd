// Package interpolation provides the sampling kernels used to resample a
// volume and to read it along rays.
package interpolation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/liangfu/volrender/internal/models"
)

// cell clamps a continuous index to [0, n-1] and returns the lower
// lattice index of the enclosing cell and the fractional offset in it.
func cell(f float64, n int) (int, float64) {
	if !(f > 0) {
		return 0, 0
	}
	if f >= float64(n-1) {
		return n - 2, 1
	}
	i := int(f)
	return i, f - float64(i)
}

// Trilinear interpolates component c of vol at the continuous index
// (fx, fy, fz). Positions outside the lattice are clamped to the nearest
// valid cell.
func Trilinear(vol *models.ScalarVolume, c int, fx, fy, fz float64) float64 {
	x, tx := cell(fx, vol.Dims[0])
	y, ty := cell(fy, vol.Dims[1])
	z, tz := cell(fz, vol.Dims[2])

	nc := vol.Components
	sx := nc
	sy := vol.Dims[0] * nc
	sz := vol.Dims[1] * sy
	base := vol.Index(x, y, z, c)
	d := vol.Data

	c00 := lerp(d[base], d[base+sx], tx)
	c10 := lerp(d[base+sy], d[base+sy+sx], tx)
	c01 := lerp(d[base+sz], d[base+sz+sx], tx)
	c11 := lerp(d[base+sz+sy], d[base+sz+sy+sx], tx)

	return lerp(lerp(c00, c10, ty), lerp(c01, c11, ty), tz)
}

// Components interpolates every component of vol at a continuous index into dst.
func Components(vol *models.ScalarVolume, fx, fy, fz float64, dst []float64) {
	for c := range dst {
		dst[c] = Trilinear(vol, c, fx, fy, fz)
	}
}

// Gradient estimates the gradient of component c at a continuous index
// by central differences one lattice step apart, in physical units.
func Gradient(vol *models.ScalarVolume, c int, fx, fy, fz float64) r3.Vec {
	return r3.Vec{
		X: (Trilinear(vol, c, fx+1, fy, fz) - Trilinear(vol, c, fx-1, fy, fz)) / (2 * vol.Spacing[0]),
		Y: (Trilinear(vol, c, fx, fy+1, fz) - Trilinear(vol, c, fx, fy-1, fz)) / (2 * vol.Spacing[1]),
		Z: (Trilinear(vol, c, fx, fy, fz+1) - Trilinear(vol, c, fx, fy, fz-1)) / (2 * vol.Spacing[2]),
	}
}

// ContinuousIndex converts a physical position into lattice coordinates.
func ContinuousIndex(vol *models.ScalarVolume, p r3.Vec) (float64, float64, float64) {
	return (p.X - vol.Origin[0]) / vol.Spacing[0],
		(p.Y - vol.Origin[1]) / vol.Spacing[1],
		(p.Z - vol.Origin[2]) / vol.Spacing[2]
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// scaledDim is the number of samples along an axis of n samples after
// scaling by factor, never fewer than two.
func scaledDim(n int, factor float64) int {
	m := int(math.Round(float64(n-1)*factor)) + 1
	if m < 2 {
		return 2
	}
	return m
}

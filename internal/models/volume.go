package models

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrLoad marks a volume that failed dimension or format validation.
var ErrLoad = errors.New("volume load error")

// ScalarVolume is a 3D grid of scalar samples
type ScalarVolume struct {
	// Data holds the samples in x-fastest order, Components values per voxel
	Data []float64

	// Dims is the number of samples along x, y and z
	Dims [3]int

	// Spacing is the physical distance between samples along each axis
	Spacing [3]float64

	// Origin is the physical position of the first sample
	Origin [3]float64

	// Components is the number of scalar values stored per voxel
	Components int
}

// NewScalarVolume allocates a zero-filled single-component volume
// with unit spacing and the origin at zero.
func NewScalarVolume(nx, ny, nz int) *ScalarVolume {
	return &ScalarVolume{
		Data:       make([]float64, nx*ny*nz),
		Dims:       [3]int{nx, ny, nz},
		Spacing:    [3]float64{1, 1, 1},
		Components: 1,
	}
}

// Validate checks the invariants every loaded volume must hold.
func (v *ScalarVolume) Validate() error {
	for axis, n := range v.Dims {
		if n < 2 {
			return fmt.Errorf("%w: dimension %d along axis %d is smaller than 2", ErrLoad, n, axis)
		}
	}
	for axis, s := range v.Spacing {
		if !(s > 0) || math.IsInf(s, 0) {
			return fmt.Errorf("%w: spacing %g along axis %d must be positive", ErrLoad, s, axis)
		}
	}
	if v.Components < 1 {
		return fmt.Errorf("%w: %d components per voxel", ErrLoad, v.Components)
	}
	if want := v.Dims[0] * v.Dims[1] * v.Dims[2] * v.Components; len(v.Data) != want {
		return fmt.Errorf("%w: expected %d samples, got %d", ErrLoad, want, len(v.Data))
	}
	return nil
}

// Index returns the offset of component c of voxel (x, y, z) in Data.
func (v *ScalarVolume) Index(x, y, z, c int) int {
	return ((z*v.Dims[1]+y)*v.Dims[0]+x)*v.Components + c
}

// At returns component c of voxel (x, y, z).
func (v *ScalarVolume) At(x, y, z, c int) float64 {
	return v.Data[v.Index(x, y, z, c)]
}

// Set stores component c of voxel (x, y, z).
func (v *ScalarVolume) Set(x, y, z, c int, value float64) {
	v.Data[v.Index(x, y, z, c)] = value
}

// Extent returns the physical length of the volume along each axis.
func (v *ScalarVolume) Extent() [3]float64 {
	var e [3]float64
	for i := range e {
		e[i] = float64(v.Dims[i]-1) * v.Spacing[i]
	}
	return e
}

// Bounds returns the physical bounding box spanned by the sample lattice.
func (v *ScalarVolume) Bounds() r3.Box {
	e := v.Extent()
	min := r3.Vec{X: v.Origin[0], Y: v.Origin[1], Z: v.Origin[2]}
	return r3.Box{
		Min: min,
		Max: r3.Add(min, r3.Vec{X: e[0], Y: e[1], Z: e[2]}),
	}
}

// MeanSpacing is the average of the three axis spacings.
func (v *ScalarVolume) MeanSpacing() float64 {
	return (v.Spacing[0] + v.Spacing[1] + v.Spacing[2]) / 3
}

// ScalarRange returns the minimum and maximum of component c.
func (v *ScalarVolume) ScalarRange(c int) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for i := c; i < len(v.Data); i += v.Components {
		if v.Data[i] < min {
			min = v.Data[i]
		}
		if v.Data[i] > max {
			max = v.Data[i]
		}
	}
	return min, max
}

// Component copies component c of every voxel into a new slice.
func (v *ScalarVolume) Component(c int) []float64 {
	out := make([]float64, 0, len(v.Data)/v.Components)
	for i := c; i < len(v.Data); i += v.Components {
		out = append(out, v.Data[i])
	}
	return out
}

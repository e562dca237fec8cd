// Package transfer maps scalar intensities to color and opacity through
// piecewise-linear transfer functions.
package transfer

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/liangfu/volrender/internal/models"
)

// ErrOrdering is returned when control point abscissas are not strictly ascending.
var ErrOrdering = errors.New("transfer function control points out of order")

// ControlPoint maps a scalar value to a single output value
type ControlPoint struct {
	X     float64
	Value float64
}

// ColorPoint maps a scalar value to an RGB color
type ColorPoint struct {
	X     float64
	Color models.RGB
}

// piecewise is one channel of a transfer function. Values outside the
// control point range clamp to the nearest endpoint.
type piecewise struct {
	xs []float64
	ys []float64
	pl interp.PiecewiseLinear
}

func newPiecewise(xs, ys []float64) (piecewise, error) {
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return piecewise{}, fmt.Errorf("%w: point %d has abscissa %g", ErrOrdering, i, x)
		}
		if i > 0 && x <= xs[i-1] {
			return piecewise{}, fmt.Errorf("%w: point %d at %g does not follow %g", ErrOrdering, i, x, xs[i-1])
		}
	}
	p := piecewise{xs: xs, ys: ys}
	if len(xs) >= 2 {
		if err := p.pl.Fit(xs, ys); err != nil {
			return piecewise{}, fmt.Errorf("%w: %v", ErrOrdering, err)
		}
	}
	return p, nil
}

func (p *piecewise) at(v float64) float64 {
	n := len(p.xs)
	switch {
	case n == 0:
		return 0
	case !(v > p.xs[0]):
		return p.ys[0]
	case v >= p.xs[n-1]:
		return p.ys[n-1]
	}
	return p.pl.Predict(v)
}

// OpacityFunction is a piecewise-linear scalar to opacity mapping
type OpacityFunction struct {
	points []ControlPoint
	fn     piecewise
}

// NewOpacityFunction builds an opacity function from points sorted by
// strictly ascending X. An empty function is fully transparent.
func NewOpacityFunction(points []ControlPoint) (*OpacityFunction, error) {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Value
	}
	fn, err := newPiecewise(xs, ys)
	if err != nil {
		return nil, fmt.Errorf("opacity function: %w", err)
	}
	return &OpacityFunction{
		points: append([]ControlPoint(nil), points...),
		fn:     fn,
	}, nil
}

// Evaluate returns the opacity at scalar value v.
func (f *OpacityFunction) Evaluate(v float64) float64 {
	return f.fn.at(v)
}

// Points returns a copy of the control points.
func (f *OpacityFunction) Points() []ControlPoint {
	return append([]ControlPoint(nil), f.points...)
}

// ColorFunction is a piecewise-linear scalar to RGB mapping
type ColorFunction struct {
	points  []ColorPoint
	r, g, b piecewise
}

// NewColorFunction builds a color function from points sorted by
// strictly ascending X. An empty function maps everything to black.
func NewColorFunction(points []ColorPoint) (*ColorFunction, error) {
	n := len(points)
	xs := make([]float64, n)
	rs, gs, bs := make([]float64, n), make([]float64, n), make([]float64, n)
	for i, p := range points {
		xs[i] = p.X
		rs[i], gs[i], bs[i] = p.Color.R, p.Color.G, p.Color.B
	}

	f := &ColorFunction{points: append([]ColorPoint(nil), points...)}
	var err error
	if f.r, err = newPiecewise(xs, rs); err != nil {
		return nil, fmt.Errorf("color function: %w", err)
	}
	// The abscissas are shared, so the remaining channels cannot fail.
	f.g, _ = newPiecewise(xs, gs)
	f.b, _ = newPiecewise(xs, bs)
	return f, nil
}

// Evaluate returns the color at scalar value v.
func (f *ColorFunction) Evaluate(v float64) models.RGB {
	return models.RGB{R: f.r.at(v), G: f.g.at(v), B: f.b.at(v)}
}

// Points returns a copy of the control points.
func (f *ColorFunction) Points() []ColorPoint {
	return append([]ColorPoint(nil), f.points...)
}

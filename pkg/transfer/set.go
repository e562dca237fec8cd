package transfer

import (
	"errors"
	"fmt"

	"github.com/liangfu/volrender/internal/models"
)

// ErrShading is returned for negative lighting coefficients or a
// non-positive opacity unit distance.
var ErrShading = errors.New("invalid shading model")

// Shading holds the lighting coefficients applied to shaded blend modes
type Shading struct {
	Enabled       bool    `yaml:"enabled"`
	Ambient       float64 `yaml:"ambient"`
	Diffuse       float64 `yaml:"diffuse"`
	Specular      float64 `yaml:"specular"`
	SpecularPower float64 `yaml:"specularPower"`

	// UnitDistance is the ray length over which the opacity function's
	// values are reached; per-sample opacity is corrected against it.
	UnitDistance float64 `yaml:"unitDistance"`
}

// DefaultShading returns an unshaded model with a unit opacity distance.
func DefaultShading() Shading {
	return Shading{
		Ambient:       0.1,
		Diffuse:       0.7,
		Specular:      0.2,
		SpecularPower: 10,
		UnitDistance:  1,
	}
}

// Validate checks that every coefficient is non-negative and the
// unit distance is positive.
func (s Shading) Validate() error {
	if s.Ambient < 0 || s.Diffuse < 0 || s.Specular < 0 || s.SpecularPower < 0 {
		return fmt.Errorf("%w: coefficients must be non-negative: %+v", ErrShading, s)
	}
	if !(s.UnitDistance > 0) {
		return fmt.Errorf("%w: unit distance %g must be positive", ErrShading, s.UnitDistance)
	}
	return nil
}

// Set classifies voxel values into color and opacity. It is immutable
// after construction and safe for concurrent use.
type Set struct {
	Color   *ColorFunction
	Opacity *OpacityFunction
	Shading Shading

	// Independent classifies each voxel component through the functions
	// separately; otherwise components jointly determine one mapping.
	Independent bool
}

// NewSet validates the control points and shading model and builds a Set.
func NewSet(color []ColorPoint, opacity []ControlPoint, shading Shading, independent bool) (*Set, error) {
	cf, err := NewColorFunction(color)
	if err != nil {
		return nil, err
	}
	of, err := NewOpacityFunction(opacity)
	if err != nil {
		return nil, err
	}
	if err := shading.Validate(); err != nil {
		return nil, err
	}
	return &Set{
		Color:       cf,
		Opacity:     of,
		Shading:     shading,
		Independent: independent,
	}, nil
}

// Classify maps a single scalar value to color and opacity.
func (s *Set) Classify(v float64) (models.RGB, float64) {
	return s.Color.Evaluate(v), s.Opacity.Evaluate(v)
}

// CheckComponents reports whether a volume with n components per voxel
// can be classified by this set.
func (s *Set) CheckComponents(n int) error {
	if n < 1 {
		return fmt.Errorf("invalid component count %d", n)
	}
	if !s.Independent && n != 1 && n != 2 && n != 4 {
		return fmt.Errorf("dependent components require 2 or 4 components per voxel, got %d", n)
	}
	return nil
}

// GradientComponent is the component whose gradient drives shading:
// the one that determines opacity.
func (s *Set) GradientComponent(n int) int {
	if s.Independent {
		return 0
	}
	return n - 1
}

// ClassifyComponents maps all components of one voxel to color and
// opacity. Independent components are classified one by one; opacity is
// their mean and color their opacity-weighted mean. Dependent pairs take
// color from the first component and opacity from the second; dependent
// quadruples carry RGB in 0..255 followed by the opacity scalar.
func (s *Set) ClassifyComponents(vals []float64) (models.RGB, float64) {
	n := len(vals)
	if n == 1 {
		return s.Classify(vals[0])
	}
	if !s.Independent {
		switch n {
		case 2:
			return s.Color.Evaluate(vals[0]), s.Opacity.Evaluate(vals[1])
		case 4:
			c := models.RGB{R: vals[0] / 255, G: vals[1] / 255, B: vals[2] / 255}
			return c, s.Opacity.Evaluate(vals[3])
		}
	}

	var sum models.RGB
	var alpha float64
	for _, v := range vals {
		c, a := s.Classify(v)
		sum = sum.Add(c.Scale(a))
		alpha += a
	}
	if alpha == 0 {
		return models.RGB{}, 0
	}
	return sum.Scale(1 / alpha), alpha / float64(n)
}

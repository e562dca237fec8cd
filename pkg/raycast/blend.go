package raycast

import (
	"fmt"
	"strings"

	"github.com/liangfu/volrender/internal/models"
)

// BlendMode selects how samples along a ray combine into a pixel
type BlendMode int

const (
	// Composite is shaded front-to-back alpha compositing.
	Composite BlendMode = iota
	// MaximumIntensity projects the sample with the largest scalar value.
	MaximumIntensity
	// UnshadedComposite is front-to-back compositing without lighting.
	UnshadedComposite
)

var blendNames = map[BlendMode]string{
	Composite:         "composite",
	MaximumIntensity:  "mip",
	UnshadedComposite: "unshaded-composite",
}

func (m BlendMode) String() string {
	if name, ok := blendNames[m]; ok {
		return name
	}
	return fmt.Sprintf("BlendMode(%d)", int(m))
}

// ParseBlendMode accepts the names printed by String. The empty string
// selects Composite.
func ParseBlendMode(name string) (BlendMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "composite":
		return Composite, nil
	case "mip", "maximum-intensity":
		return MaximumIntensity, nil
	case "unshaded-composite", "composite-ramp":
		return UnshadedComposite, nil
	}
	return 0, fmt.Errorf("unknown blend mode %q", name)
}

// Blender returns the accumulation strategy for the mode.
func (m BlendMode) Blender() Blender {
	switch m {
	case MaximumIntensity:
		return maximumIntensity{}
	case UnshadedComposite:
		return compositor{shaded: false}
	default:
		return compositor{shaded: true}
	}
}

// Sample is one classified point along a ray
type Sample struct {
	// Scalar is the value of the component that drives opacity
	Scalar float64

	// Color is the classified, possibly shaded, color
	Color models.RGB

	// Opacity is the raw transfer function opacity
	Opacity float64

	// Corrected is Opacity adjusted for the step length
	Corrected float64
}

// Accumulator folds the samples of a single ray, nearest first.
type Accumulator interface {
	// Add folds s into the ray. It returns true once further samples
	// cannot change the result.
	Add(s Sample) bool

	// Result is the premultiplied color and the opacity of the ray.
	Result() (models.RGB, float64)
}

// Blender creates per-ray accumulators for one blend mode.
type Blender interface {
	// Shaded reports whether samples should be lit before accumulation.
	Shaded() bool

	// NewAccumulator starts a ray that terminates once its opacity
	// reaches termination.
	NewAccumulator(termination float64) Accumulator
}

type compositor struct {
	shaded bool
}

func (c compositor) Shaded() bool { return c.shaded }

func (c compositor) NewAccumulator(termination float64) Accumulator {
	return &compositeAccumulator{termination: termination}
}

type compositeAccumulator struct {
	color       models.RGB
	alpha       float64
	termination float64
}

func (a *compositeAccumulator) Add(s Sample) bool {
	w := (1 - a.alpha) * s.Corrected
	a.color = a.color.Add(s.Color.Scale(w))
	a.alpha += w
	return a.alpha >= a.termination
}

func (a *compositeAccumulator) Result() (models.RGB, float64) {
	return a.color, a.alpha
}

type maximumIntensity struct{}

func (maximumIntensity) Shaded() bool { return false }

func (maximumIntensity) NewAccumulator(float64) Accumulator {
	return &mipAccumulator{}
}

// mipAccumulator keeps the first sample with the largest scalar.
type mipAccumulator struct {
	best Sample
	seen bool
}

func (a *mipAccumulator) Add(s Sample) bool {
	if !a.seen || s.Scalar > a.best.Scalar {
		a.best = s
		a.seen = true
	}
	return false
}

func (a *mipAccumulator) Result() (models.RGB, float64) {
	if !a.seen {
		return models.RGB{}, 0
	}
	return a.best.Color.Scale(a.best.Opacity), a.best.Opacity
}

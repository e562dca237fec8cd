package raycast

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/liangfu/volrender/internal/models"
	"github.com/liangfu/volrender/pkg/transfer"
)

// clipRay intersects the ray origin + t*dir, t >= 0, with box using the
// slab method and returns the parametric entry and exit distances.
func clipRay(origin, dir r3.Vec, box r3.Box) (float64, float64, bool) {
	tNear, tFar := 0.0, math.Inf(1)

	o := [3]float64{origin.X, origin.Y, origin.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	lo := [3]float64{box.Min.X, box.Min.Y, box.Min.Z}
	hi := [3]float64{box.Max.X, box.Max.Y, box.Max.Z}

	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-12 {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, 0, false
			}
			continue
		}
		t0 := (lo[i] - o[i]) / d[i]
		t1 := (hi[i] - o[i]) / d[i]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tNear = math.Max(tNear, t0)
		tFar = math.Min(tFar, t1)
		if tNear > tFar {
			return 0, 0, false
		}
	}
	return tNear, tFar, true
}

// shade lights c with a headlight: the light travels along the ray
// direction, so the light and half-angle vectors both point back at the
// viewer. Lighting is two-sided. A zero gradient leaves c unlit.
func shade(c models.RGB, gradient, view r3.Vec, s transfer.Shading) models.RGB {
	mag := r3.Norm(gradient)
	if mag < 1e-12 {
		return c
	}
	n := r3.Scale(1/mag, gradient)
	nDotL := math.Abs(r3.Dot(n, view))

	lit := c.Scale(s.Ambient + s.Diffuse*nDotL)
	spec := s.Specular * math.Pow(nDotL, s.SpecularPower)
	return clampRGB(lit.Add(models.RGB{R: spec, G: spec, B: spec}))
}

// correctOpacity rescales an opacity defined per unit distance to a
// step of length step.
func correctOpacity(opacity, step, unitDistance float64) float64 {
	if opacity <= 0 {
		return 0
	}
	if opacity >= 1 {
		return 1
	}
	return 1 - math.Pow(1-opacity, step/unitDistance)
}

func clampRGB(c models.RGB) models.RGB {
	return models.RGB{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

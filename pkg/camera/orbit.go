package camera

import (
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// DefaultSteps is the number of frames in a full turntable.
	DefaultSteps = 36

	// DefaultStepDegrees is the azimuth change between frames.
	DefaultStepDegrees = -10.0
)

// Orbit generates the deterministic turntable sequence around a volume.
// It holds no camera state of its own, so every call to Poses replays the
// same sequence.
type Orbit struct {
	bounds      r3.Box
	steps       int
	stepDegrees float64
}

// NewOrbit returns the default 36-step, -10 degree orbit around bounds.
func NewOrbit(bounds r3.Box) *Orbit {
	return &Orbit{
		bounds:      bounds,
		steps:       DefaultSteps,
		stepDegrees: DefaultStepDegrees,
	}
}

// Steps is the number of poses in the sequence.
func (o *Orbit) Steps() int {
	return o.steps
}

// Initial returns the camera in its canonical starting orientation:
// fitted to the bounds, pitched up 90 degrees, then turned 90 degrees in
// azimuth, re-fitting after each rotation.
func (o *Orbit) Initial() *Camera {
	c := New()
	c.Reset(o.bounds)
	c.Pitch(90)
	c.Reset(o.bounds)
	c.Azimuth(90)
	c.Reset(o.bounds)
	return c
}

// Each calls fn for every pose of the orbit in order. Each pose is taken
// after one azimuth step and a re-fit. Iteration stops at the first error.
func (o *Orbit) Each(fn func(index int, pose Pose) error) error {
	c := o.Initial()
	for i := 0; i < o.steps; i++ {
		c.Azimuth(o.stepDegrees)
		c.Reset(o.bounds)
		if err := fn(i, c.Pose()); err != nil {
			return err
		}
	}
	return nil
}

// Poses returns the whole sequence.
func (o *Orbit) Poses() []Pose {
	poses := make([]Pose, 0, o.steps)
	o.Each(func(_ int, p Pose) error {
		poses = append(poses, p)
		return nil
	})
	return poses
}

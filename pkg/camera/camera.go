// Package camera models a perspective camera that can be rotated around
// a volume and generates the orbit used for turntable capture.
package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultViewAngle is the vertical field of view in degrees.
const DefaultViewAngle = 30.0

// Pose is an immutable snapshot of the camera used to render one frame
type Pose struct {
	Position   r3.Vec
	FocalPoint r3.Vec
	ViewUp     r3.Vec

	// ViewAngle is the vertical field of view in degrees
	ViewAngle float64

	// Azimuth and Pitch are the accumulated rotations in degrees relative
	// to the default camera, azimuth normalised to [0, 360).
	Azimuth float64
	Pitch   float64
}

// Direction is the unit direction of projection.
func (p Pose) Direction() r3.Vec {
	return r3.Unit(r3.Sub(p.FocalPoint, p.Position))
}

// Basis returns the orthonormal right, up and forward vectors of the view.
func (p Pose) Basis() (right, up, forward r3.Vec) {
	forward = p.Direction()
	right = r3.Unit(r3.Cross(forward, p.ViewUp))
	up = r3.Cross(right, forward)
	return right, up, forward
}

// Camera is a mutable perspective camera. The zero value is not usable;
// call New.
type Camera struct {
	position   r3.Vec
	focalPoint r3.Vec
	viewUp     r3.Vec
	viewAngle  float64
	azimuth    float64
	pitch      float64
}

// New returns the default camera: at (0, 0, 1) looking at the origin
// with +y up.
func New() *Camera {
	return &Camera{
		position:  r3.Vec{Z: 1},
		viewUp:    r3.Vec{Y: 1},
		viewAngle: DefaultViewAngle,
	}
}

// Azimuth rotates the camera position about the view-up vector centred
// at the focal point.
func (c *Camera) Azimuth(degrees float64) {
	rot := r3.NewRotation(radians(degrees), c.viewUp)
	c.position = r3.Add(c.focalPoint, rot.Rotate(r3.Sub(c.position, c.focalPoint)))
	c.azimuth += degrees
}

// Pitch rotates the focal point about the camera's right axis centred
// at the camera position. The view-up vector is left unchanged.
func (c *Camera) Pitch(degrees float64) {
	right := r3.Unit(r3.Cross(r3.Sub(c.focalPoint, c.position), c.viewUp))
	rot := r3.NewRotation(radians(degrees), right)
	c.focalPoint = r3.Add(c.position, rot.Rotate(r3.Sub(c.focalPoint, c.position)))
	c.pitch += degrees
}

// Reset re-fits the camera to bounds: the focal point moves to the box
// centre and the camera backs off along its current view plane normal
// until the bounding sphere fills the view angle. A view-up vector
// parallel to the view plane normal is replaced by a perpendicular one.
func (c *Camera) Reset(bounds r3.Box) {
	vn := r3.Unit(r3.Sub(c.position, c.focalPoint))
	if math.Abs(r3.Dot(c.viewUp, vn)) > 0.999 {
		up := c.viewUp
		c.viewUp = r3.Vec{X: -up.Z, Y: up.X, Z: up.Y}
	}

	center := r3.Scale(0.5, r3.Add(bounds.Min, bounds.Max))
	radius := 0.5 * r3.Norm(r3.Sub(bounds.Max, bounds.Min))
	if radius == 0 {
		radius = 1
	}
	distance := radius / math.Sin(radians(c.viewAngle)/2)

	c.focalPoint = center
	c.position = r3.Add(center, r3.Scale(distance, vn))
}

// Pose returns a snapshot of the current camera state.
func (c *Camera) Pose() Pose {
	return Pose{
		Position:   c.position,
		FocalPoint: c.focalPoint,
		ViewUp:     c.viewUp,
		ViewAngle:  c.viewAngle,
		Azimuth:    normalizeDegrees(c.azimuth),
		Pitch:      c.pitch,
	}
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

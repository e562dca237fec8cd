// Package raycast renders a scalar volume into a frame buffer by marching
// rays through it, classifying samples with a transfer function set and
// folding them with a pluggable blend strategy.
package raycast

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/liangfu/volrender/internal/models"
	"github.com/liangfu/volrender/pkg/camera"
	"github.com/liangfu/volrender/pkg/interpolation"
	"github.com/liangfu/volrender/pkg/transfer"
)

// DefaultTermination is the accumulated opacity at which a ray stops.
const DefaultTermination = 0.99

// Options control sampling and compositing
type Options struct {
	// Blend selects the accumulation strategy
	Blend BlendMode

	// SampleDistance is the physical step along each ray. Zero selects
	// half the mean voxel spacing.
	SampleDistance float64

	// Termination is the early ray termination opacity
	Termination float64

	// Background is composited behind every ray
	Background models.RGB

	// Workers is the number of goroutines sharing the rows of a frame
	Workers int
}

// DefaultOptions returns shaded compositing over a white background.
func DefaultOptions() Options {
	return Options{
		Blend:       Composite,
		Termination: DefaultTermination,
		Background:  models.RGB{R: 1, G: 1, B: 1},
		Workers:     runtime.NumCPU(),
	}
}

// Viewport is the render window and the part of it that is captured.
type Viewport struct {
	Width  int
	Height int

	// Crop is xmin, ymin, xmax, ymax as fractions of the window with the
	// origin at the bottom left.
	Crop [4]float64
}

// FullViewport captures the whole window.
func FullViewport(width, height int) Viewport {
	return Viewport{Width: width, Height: height, Crop: [4]float64{0, 0, 1, 1}}
}

// Rect returns the captured pixel range [x0, x1) x [y0, y1) in window
// coordinates, y growing upward.
func (v Viewport) Rect() (x0, y0, x1, y1 int) {
	x0 = int(math.Round(v.Crop[0] * float64(v.Width)))
	y0 = int(math.Round(v.Crop[1] * float64(v.Height)))
	x1 = int(math.Round(v.Crop[2] * float64(v.Width)))
	y1 = int(math.Round(v.Crop[3] * float64(v.Height)))
	return x0, y0, x1, y1
}

func (v Viewport) validate() error {
	if v.Width < 1 || v.Height < 1 {
		return fmt.Errorf("invalid viewport size %dx%d", v.Width, v.Height)
	}
	x0, y0, x1, y1 := v.Rect()
	if x0 < 0 || y0 < 0 || x1 > v.Width || y1 > v.Height || x1 <= x0 || y1 <= y0 {
		return fmt.Errorf("invalid viewport crop %v for %dx%d", v.Crop, v.Width, v.Height)
	}
	return nil
}

// Renderer casts rays through a volume. It holds only options and may be
// shared between goroutines.
type Renderer struct {
	opts    Options
	blender Blender
}

// NewRenderer creates a renderer, filling unset options with defaults.
func NewRenderer(opts Options) *Renderer {
	if !(opts.Termination > 0 && opts.Termination <= 1) {
		opts.Termination = DefaultTermination
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	return &Renderer{
		opts:    opts,
		blender: opts.Blend.Blender(),
	}
}

// Options returns the effective options.
func (r *Renderer) Options() Options {
	return r.opts
}

// RenderFrame renders the captured part of the viewport as seen from
// pose. The result depends only on its inputs, not on the worker count.
func (r *Renderer) RenderFrame(vol *models.ScalarVolume, set *transfer.Set, pose camera.Pose, vp Viewport) (*models.FrameBuffer, error) {
	if err := vol.Validate(); err != nil {
		return nil, err
	}
	if err := set.CheckComponents(vol.Components); err != nil {
		return nil, err
	}
	if err := vp.validate(); err != nil {
		return nil, err
	}

	fc := r.newFrameContext(vol, set)
	x0, y0, x1, y1 := vp.Rect()
	width, height := x1-x0, y1-y0
	fb := models.NewFrameBuffer(width, height, r.opts.Background)

	right, up, forward := pose.Basis()
	tanHalf := math.Tan(pose.ViewAngle * math.Pi / 360)
	aspect := float64(vp.Width) / float64(vp.Height)

	workers := r.opts.Workers
	if workers > height {
		workers = height
	}
	rowsPerWorker := (height + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := start + rowsPerWorker
		if end > height {
			end = height
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			scratch := make([]float64, vol.Components)
			for row := start; row < end; row++ {
				// Row 0 of the frame is the top of the captured region.
				py := y1 - 1 - row
				v := (2*(float64(py)+0.5)/float64(vp.Height) - 1) * tanHalf
				for col := 0; col < width; col++ {
					px := x0 + col
					u := (2*(float64(px)+0.5)/float64(vp.Width) - 1) * tanHalf * aspect
					dir := r3.Unit(r3.Add(forward, r3.Add(r3.Scale(u, right), r3.Scale(v, up))))
					fb.Set(col, row, fc.castRay(pose.Position, dir, scratch))
				}
			}
		}(start, end)
	}
	wg.Wait()

	return fb, nil
}

// frameContext is the read-only state shared by every ray of a frame.
type frameContext struct {
	vol         *models.ScalarVolume
	set         *transfer.Set
	blender     Blender
	box         r3.Box
	step        float64
	termination float64
	background  models.RGB
	shaded      bool
	gradComp    int
}

func (r *Renderer) newFrameContext(vol *models.ScalarVolume, set *transfer.Set) *frameContext {
	step := r.opts.SampleDistance
	if !(step > 0) {
		step = vol.MeanSpacing() / 2
	}
	return &frameContext{
		vol:         vol,
		set:         set,
		blender:     r.blender,
		box:         vol.Bounds(),
		step:        step,
		termination: r.opts.Termination,
		background:  r.opts.Background,
		shaded:      r.blender.Shaded() && set.Shading.Enabled,
		gradComp:    set.GradientComponent(vol.Components),
	}
}

// castRay returns the final pixel color for one ray, background included.
func (f *frameContext) castRay(origin, dir r3.Vec, scratch []float64) models.RGB {
	tEnter, tExit, ok := clipRay(origin, dir, f.box)
	if !ok {
		return f.background
	}
	color, alpha := f.march(origin, dir, tEnter, tExit, scratch).Result()
	return clampRGB(color.Add(f.background.Scale(1 - alpha)))
}

// march samples the ray from tEnter to tExit inclusive at fixed steps.
func (f *frameContext) march(origin, dir r3.Vec, tEnter, tExit float64, scratch []float64) Accumulator {
	acc := f.blender.NewAccumulator(f.termination)
	view := r3.Scale(-1, dir)
	unit := f.set.Shading.UnitDistance

	for i := 0; ; i++ {
		t := tEnter + float64(i)*f.step
		if t > tExit {
			break
		}
		p := r3.Add(origin, r3.Scale(t, dir))
		fx, fy, fz := interpolation.ContinuousIndex(f.vol, p)
		interpolation.Components(f.vol, fx, fy, fz, scratch)

		color, opacity := f.set.ClassifyComponents(scratch)
		if f.shaded && opacity > 0 {
			g := interpolation.Gradient(f.vol, f.gradComp, fx, fy, fz)
			color = shade(color, g, view, f.set.Shading)
		}

		s := Sample{
			Scalar:    scratch[f.gradComp],
			Color:     color,
			Opacity:   opacity,
			Corrected: correctOpacity(opacity, f.step, unit),
		}
		if acc.Add(s) {
			break
		}
	}
	return acc
}

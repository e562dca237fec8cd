package models

import (
	"image"
	"image/color"
	"math"
)

// RGB is a linear color with channels in [0, 1]
type RGB struct {
	R, G, B float64
}

// Scale multiplies every channel by f.
func (c RGB) Scale(f float64) RGB {
	return RGB{c.R * f, c.G * f, c.B * f}
}

// Add returns the channel-wise sum of c and o.
func (c RGB) Add(o RGB) RGB {
	return RGB{c.R + o.R, c.G + o.G, c.B + o.B}
}

// FrameBuffer is the RGB image produced for one camera pose.
// Row 0 is the top of the image.
type FrameBuffer struct {
	Width  int
	Height int
	Pix    []RGB
}

// NewFrameBuffer allocates a frame filled with the background color.
func NewFrameBuffer(width, height int, background RGB) *FrameBuffer {
	fb := &FrameBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]RGB, width*height),
	}
	for i := range fb.Pix {
		fb.Pix[i] = background
	}
	return fb
}

// At returns the pixel at column x, row y.
func (f *FrameBuffer) At(x, y int) RGB {
	return f.Pix[y*f.Width+x]
}

// Set stores the pixel at column x, row y.
func (f *FrameBuffer) Set(x, y int, c RGB) {
	f.Pix[y*f.Width+x] = c
}

// Image converts the frame to an 8-bit RGBA image for encoding.
func (f *FrameBuffer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c := f.At(x, y)
			img.SetRGBA(x, y, color.RGBA{
				R: toByte(c.R),
				G: toByte(c.G),
				B: toByte(c.B),
				A: 255,
			})
		}
	}
	return img
}

func toByte(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// Package export writes rendered frames as a numbered image sequence.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/liangfu/volrender/internal/models"
)

// ErrExport marks a frame that could not be written.
var ErrExport = errors.New("frame export error")

// DegreesPerFrame is the azimuth spacing encoded in frame file names.
const DegreesPerFrame = 10

// Format is an image encoding
type Format string

// Supported frame encodings. PNG is the default.
const (
	PNG  Format = "png"
	JPEG Format = "jpeg" // written with quality 90 and a .jpg extension
	TIFF Format = "tiff" // deflate-compressed
	BMP  Format = "bmp"
)

// ParseFormat accepts a format name or file extension, with or without
// the leading dot.
func ParseFormat(name string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(name), ".") {
	case "", "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "tif", "tiff":
		return TIFF, nil
	case "bmp":
		return BMP, nil
	}
	return "", fmt.Errorf("unknown image format %q", name)
}

// Ext is the file extension written for the format.
func (f Format) Ext() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

// Encode writes img to w in format f.
func (f Format) Encode(w io.Writer, img image.Image) error {
	switch f {
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case BMP:
		return bmp.Encode(w, img)
	default:
		return png.Encode(w, img)
	}
}

// OutputDir derives the frame directory from the input path: frames are
// written next to the input, in its parent directory.
func OutputDir(inputPath string) string {
	return filepath.Dir(filepath.Clean(inputPath))
}

// FrameName is the file name of frame index, labelled by its azimuth
// angle in degrees: 0 -> "000.png", 35 -> "350.png".
func FrameName(index int, format Format) string {
	return fmt.Sprintf("%03d.%s", index*DegreesPerFrame, format.Ext())
}

// Exporter writes the frames of one session. Indices must strictly
// increase, so every frame is written once and names never collide.
type Exporter struct {
	dir     string
	format  Format
	last    int
	created bool
}

// NewExporter returns an exporter writing into dir.
func NewExporter(dir string, format Format) *Exporter {
	return &Exporter{dir: dir, format: format, last: -1}
}

// Dir is the directory frames are written to.
func (e *Exporter) Dir() string {
	return e.dir
}

// Export encodes fb as frame index and returns the written path.
func (e *Exporter) Export(fb *models.FrameBuffer, index int) (string, error) {
	if index <= e.last {
		return "", fmt.Errorf("%w: frame %d already follows frame %d", ErrExport, index, e.last)
	}
	if !e.created {
		if err := os.MkdirAll(e.dir, 0755); err != nil {
			return "", fmt.Errorf("%w: failed to create output directory: %v", ErrExport, err)
		}
		e.created = true
	}

	path := filepath.Join(e.dir, FrameName(index, e.format))
	if err := e.save(fb.Image(), path); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExport, path, err)
	}
	e.last = index
	return path, nil
}

func (e *Exporter) save(img image.Image, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := e.format.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

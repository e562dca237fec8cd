package models

import (
	"image"
)

// Slice is a single 2D image of a slice-directory volume source
type Slice struct {
	// Image is the decoded slice
	Image image.Image

	// Index is the number parsed from the file name, used for ordering
	Index int

	// Filename is the base name of the source file
	Filename string
}

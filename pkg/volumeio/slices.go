package volumeio

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/liangfu/volrender/internal/models"
)

var sliceExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".tif": true, ".tiff": true, ".bmp": true,
}

// LoadSliceDirectory stacks the images in dir into a volume. Slices are
// ordered by the number embedded in their file names. The scalar value
// is the 16-bit luminance of each pixel; in-plane spacing is 1 and the
// slice spacing is sliceGap.
func LoadSliceDirectory(dir string, sliceGap float64) (*models.ScalarVolume, error) {
	slices, err := readSlices(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrLoad, err)
	}

	bounds := slices[0].Image.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	vol := models.NewScalarVolume(width, height, len(slices))
	vol.Spacing = [3]float64{1, 1, sliceGap}

	for z, s := range slices {
		b := s.Image.Bounds()
		if b.Dx() != width || b.Dy() != height {
			return nil, fmt.Errorf("%w: slice %s is %dx%d, expected %dx%d",
				models.ErrLoad, s.Filename, b.Dx(), b.Dy(), width, height)
		}
		// Image rows run top to bottom; volume y runs bottom to top.
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				g := color.Gray16Model.Convert(s.Image.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				vol.Set(x, height-1-y, z, 0, float64(g.Y))
			}
		}
	}

	if err := vol.Validate(); err != nil {
		return nil, err
	}
	return vol, nil
}

func readSlices(dir string) ([]models.Slice, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var slices []models.Slice
	for _, entry := range entries {
		if entry.IsDir() || !sliceExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		img, err := loadImage(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %v", entry.Name(), err)
		}
		slices = append(slices, models.Slice{
			Image:    img,
			Index:    extractNumber(entry.Name()),
			Filename: entry.Name(),
		})
	}
	if len(slices) == 0 {
		return nil, fmt.Errorf("no slice images found in %s", dir)
	}

	sort.SliceStable(slices, func(i, j int) bool {
		if slices[i].Index != slices[j].Index {
			return slices[i].Index < slices[j].Index
		}
		return slices[i].Filename < slices[j].Filename
	})
	return slices, nil
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	return img, err
}

// extractNumber returns the digits of a file name as an integer, or 0.
func extractNumber(filename string) int {
	var digits strings.Builder
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}

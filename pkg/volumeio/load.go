package volumeio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/liangfu/volrender/internal/models"
)

// Source names where a volume comes from: a MetaImage file or a
// directory of slices. Directory takes precedence.
type Source struct {
	FileName  string
	Directory string
	SliceGap  float64
}

// Path is the input path used to derive output locations.
func (s Source) Path() string {
	if s.Directory != "" {
		return s.Directory
	}
	return s.FileName
}

// Load reads the volume described by src.
func Load(src Source) (*models.ScalarVolume, error) {
	if src.Directory != "" {
		return LoadSliceDirectory(src.Directory, src.SliceGap)
	}
	switch ext := strings.ToLower(filepath.Ext(src.FileName)); ext {
	case ".mha", ".mhd":
		return LoadMetaImage(src.FileName)
	default:
		return nil, fmt.Errorf("%w: unsupported volume file type %q (want .mha or .mhd)", models.ErrLoad, ext)
	}
}

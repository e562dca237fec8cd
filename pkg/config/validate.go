package config

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strings"

	"github.com/liangfu/volrender/pkg/interpolation"
)

// Validate checks the configuration. Missing or malformed options return
// an error wrapping ErrConfiguration. Out-of-range tunables are replaced by
// their documented defaults after a warning is logged.
func (c *Config) Validate(logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if c.Source.Directory == "" && c.Source.FileName == "" {
		return fmt.Errorf("%w: you must specify a directory of slice images or a MetaImage file", ErrConfiguration)
	}
	if c.Source.Directory != "" && c.Source.FileName != "" {
		logger.Warn("both a slice directory and a file were given, using the directory",
			"directory", c.Source.Directory, "file", c.Source.FileName)
		c.Source.FileName = ""
	}
	if c.Source.Directory != "" && !(c.Source.SliceGap > 0) {
		return fmt.Errorf("%w: slice gap must be positive, got %g", ErrConfiguration, c.Source.SliceGap)
	}

	r := &c.Render
	if !(r.FrameRate >= MinFrameRate && r.FrameRate <= MaxFrameRate) {
		logger.Warn("invalid frame rate - use a number between 0.01 and 60.0",
			"value", r.FrameRate, "default", DefaultFrameRate)
		r.FrameRate = DefaultFrameRate
	}
	if r.ReductionFactor != NoReduction && !interpolation.ValidReduction(r.ReductionFactor) {
		logger.Warn("invalid reduction factor - use a number between 0 and 1 (exclusive), using no reduction",
			"value", r.ReductionFactor, "default", NoReduction)
		r.ReductionFactor = NoReduction
	}
	if !(r.Termination > 0 && r.Termination <= 1) {
		logger.Warn("invalid termination opacity - use a number in (0, 1]",
			"value", r.Termination, "default", DefaultTermination)
		r.Termination = DefaultTermination
	}
	if !(r.SampleDistance >= 0) || math.IsInf(r.SampleDistance, 0) {
		logger.Warn("invalid sample distance, using half the mean spacing", "value", r.SampleDistance)
		r.SampleDistance = 0
	}
	if r.Width < 1 || r.Height < 1 {
		return fmt.Errorf("%w: window size %dx%d", ErrConfiguration, r.Width, r.Height)
	}
	if !(0 <= r.Crop[0] && r.Crop[0] < r.Crop[2] && r.Crop[2] <= 1) ||
		!(0 <= r.Crop[1] && r.Crop[1] < r.Crop[3] && r.Crop[3] <= 1) {
		return fmt.Errorf("%w: crop %v must be increasing fractions in [0, 1]", ErrConfiguration, r.Crop)
	}
	for _, ch := range r.Background {
		if !(ch >= 0 && ch <= 1) {
			return fmt.Errorf("%w: background %v must be in [0, 1]", ErrConfiguration, r.Background)
		}
	}

	if c.Processing.Workers < 1 {
		logger.Warn("invalid worker count", "value", c.Processing.Workers, "default", runtime.NumCPU())
		c.Processing.Workers = runtime.NumCPU()
	}

	c.Output.Format = strings.ToLower(c.Output.Format)
	switch c.Output.Format {
	case "png", "jpeg", "jpg", "tiff", "tif", "bmp":
	default:
		return fmt.Errorf("%w: unknown output format %q", ErrConfiguration, c.Output.Format)
	}

	return nil
}

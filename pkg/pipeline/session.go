// Package pipeline drives a render session: it loads and resamples the
// volume, builds the transfer functions, walks the camera orbit and
// exports one frame per pose.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/liangfu/volrender/internal/models"
	"github.com/liangfu/volrender/pkg/camera"
	"github.com/liangfu/volrender/pkg/config"
	"github.com/liangfu/volrender/pkg/export"
	"github.com/liangfu/volrender/pkg/interpolation"
	"github.com/liangfu/volrender/pkg/raycast"
	"github.com/liangfu/volrender/pkg/transfer"
	"github.com/liangfu/volrender/pkg/volumeio"
)

// Summary describes a finished session
type Summary struct {
	// Frames lists the written files in orbit order
	Frames []string

	// OutputDir is where the frames were written
	OutputDir string

	// SourceDims and RenderDims are the volume sizes before and after reduction
	SourceDims [3]int
	RenderDims [3]int

	// Reduced reports whether the volume was resampled
	Reduced bool

	// Statistics of the first component of the rendered volume
	ScalarMin    float64
	ScalarMax    float64
	ScalarMean   float64
	ScalarStdDev float64

	// Coverage is the mean fraction of pixels per frame that differ
	// from the background
	Coverage float64

	// FrameTime is the mean wall time to render one frame
	FrameTime time.Duration

	// MaxFrameTime is the wall time of the slowest frame
	MaxFrameTime time.Duration

	// SlowFrames counts frames that took longer than 1/frameRate
	SlowFrames int

	// TotalTime is the wall time of the whole session
	TotalTime time.Duration
}

// Session renders one volume around one orbit. It is not safe for
// concurrent use, but independent sessions share no state.
type Session struct {
	cfg    *config.Config
	logger *slog.Logger

	volume   *models.ScalarVolume
	set      *transfer.Set
	renderer *raycast.Renderer
	viewport raycast.Viewport
	exporter *export.Exporter

	summary Summary
}

// NewSession creates a session for a validated configuration.
func NewSession(cfg *config.Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{cfg: cfg, logger: logger}
}

// Process runs the complete pipeline
func (s *Session) Process() error {
	start := time.Now()

	src := volumeio.Source{
		FileName:  s.cfg.Source.FileName,
		Directory: s.cfg.Source.Directory,
		SliceGap:  s.cfg.Source.SliceGap,
	}
	s.logger.Info("loading volume", "source", src.Path())
	vol, err := volumeio.Load(src)
	if err != nil {
		return fmt.Errorf("failed to load volume: %w", err)
	}

	dir := s.cfg.Output.Directory
	if dir == "" {
		dir = export.OutputDir(src.Path())
	}
	if err := s.ProcessVolume(vol, dir); err != nil {
		return err
	}
	s.summary.TotalTime = time.Since(start)
	return nil
}

// ProcessVolume runs the pipeline on an already loaded volume and writes
// the frames into outputDir.
func (s *Session) ProcessVolume(vol *models.ScalarVolume, outputDir string) error {
	if err := vol.Validate(); err != nil {
		return err
	}
	if err := s.prepare(vol); err != nil {
		return err
	}

	format, err := export.ParseFormat(s.cfg.Output.Format)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}
	s.exporter = export.NewExporter(outputDir, format)
	s.summary.OutputDir = s.exporter.Dir()

	return s.renderOrbit()
}

// prepare resamples the volume and builds the transfer functions and renderer.
func (s *Session) prepare(vol *models.ScalarVolume) error {
	r := s.cfg.Render
	s.summary.SourceDims = vol.Dims

	reduced, ok := interpolation.Resample(vol, r.ReductionFactor, s.cfg.Processing.Workers)
	if ok {
		s.logger.Info("resampled volume", "factor", r.ReductionFactor, "from", vol.Dims, "to", reduced.Dims)
	}
	s.volume = reduced
	s.summary.Reduced = ok
	s.summary.RenderDims = reduced.Dims

	presets, err := transfer.BuiltinPresets()
	if err != nil {
		return err
	}
	presets = presets.Merge(s.cfg.Presets)
	preset, err := presets.Lookup(r.PresetName)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}
	if preset.Title == "" && len(preset.Color) == 0 && len(preset.Opacity) == 0 {
		s.logger.Warn("no transfer function preset selected, the volume will be transparent")
	}

	set, err := preset.Build(r.IndependentComponents)
	if err != nil {
		return fmt.Errorf("preset %q: %w", r.PresetName, err)
	}
	if err := set.CheckComponents(reduced.Components); err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}
	s.set = set

	blend, err := raycast.ParseBlendMode(preset.Blend)
	if err != nil {
		return fmt.Errorf("preset %q: %w", r.PresetName, err)
	}
	s.renderer = raycast.NewRenderer(raycast.Options{
		Blend:          blend,
		SampleDistance: r.SampleDistance,
		Termination:    r.Termination,
		Background:     models.RGB{R: r.Background[0], G: r.Background[1], B: r.Background[2]},
		Workers:        s.cfg.Processing.Workers,
	})
	s.viewport = raycast.Viewport{Width: r.Width, Height: r.Height, Crop: r.Crop}

	s.summary.ScalarMin, s.summary.ScalarMax = reduced.ScalarRange(0)
	s.summary.ScalarMean, s.summary.ScalarStdDev = stat.MeanStdDev(reduced.Component(0), nil)

	s.logger.Info("transfer functions ready",
		"preset", r.PresetName, "blend", blend, "shading", set.Shading.Enabled,
		"independentComponents", set.Independent,
		"colorPoints", len(set.Color.Points()), "opacityPoints", len(set.Opacity.Points()))
	return nil
}

// renderOrbit renders and exports every pose of the orbit in order.
func (s *Session) renderOrbit() error {
	orbit := camera.NewOrbit(s.volume.Bounds())
	budget := time.Duration(float64(time.Second) / s.cfg.Render.FrameRate)
	background := s.renderer.Options().Background

	s.summary.Frames = make([]string, 0, orbit.Steps())
	frameTimes := make([]float64, 0, orbit.Steps())
	coverage := make([]float64, 0, orbit.Steps())
	err := orbit.Each(func(i int, pose camera.Pose) error {
		start := time.Now()
		fb, err := s.renderer.RenderFrame(s.volume, s.set, pose, s.viewport)
		if err != nil {
			return fmt.Errorf("rendering frame %d: %w", i, err)
		}
		elapsed := time.Since(start)
		if elapsed > budget {
			s.summary.SlowFrames++
		}

		path, err := s.exporter.Export(fb, i)
		if err != nil {
			return err
		}
		s.summary.Frames = append(s.summary.Frames, path)
		frameTimes = append(frameTimes, elapsed.Seconds())
		coverage = append(coverage, frameCoverage(fb, background))

		if s.cfg.Output.Verbose {
			s.logger.Info("frame written", "index", i, "azimuth", pose.Azimuth, "path", path, "elapsed", elapsed)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(frameTimes) > 0 {
		s.summary.FrameTime = time.Duration(stat.Mean(frameTimes, nil) * float64(time.Second))
		s.summary.MaxFrameTime = time.Duration(floats.Max(frameTimes) * float64(time.Second))
	}
	s.summary.Coverage = stat.Mean(coverage, nil)
	return nil
}

// Summary returns the results of the last Process call.
func (s *Session) Summary() Summary {
	return s.summary
}

// Volume returns the volume being rendered, after any reduction.
func (s *Session) Volume() *models.ScalarVolume {
	return s.volume
}

func frameCoverage(fb *models.FrameBuffer, background models.RGB) float64 {
	if len(fb.Pix) == 0 {
		return 0
	}
	covered := 0
	for _, p := range fb.Pix {
		if p != background {
			covered++
		}
	}
	return float64(covered) / float64(len(fb.Pix))
}

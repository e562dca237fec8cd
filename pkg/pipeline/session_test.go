package pipeline

import (
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liangfu/volrender/internal/models"
	"github.com/liangfu/volrender/pkg/config"
	"github.com/liangfu/volrender/pkg/export"
	"github.com/liangfu/volrender/pkg/volumeio"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sphereVolume holds a dense ball of bone-like values in air.
func sphereVolume(n int) *models.ScalarVolume {
	vol := models.NewScalarVolume(n, n, n)
	c := float64(n-1) / 2
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				d := math.Sqrt(math.Pow(float64(x)-c, 2) + math.Pow(float64(y)-c, 2) + math.Pow(float64(z)-c, 2))
				v := -1000.0
				if d < c*0.8 {
					v = 1500
				}
				vol.Set(x, y, z, 0, v)
			}
		}
	}
	return vol
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Source.FileName = "unused.mha"
	cfg.Render.Width = 24
	cfg.Render.Height = 24
	cfg.Render.Crop = [4]float64{0, 0, 1, 1}
	cfg.Processing.Workers = 2
	cfg.Output.Verbose = false
	return cfg
}

func TestProcessVolumeWritesOrbit(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping full orbit render in short mode")
	}

	dir := filepath.Join(t.TempDir(), "frames")
	session := NewSession(testConfig(), quietLogger())
	require.NoError(t, session.ProcessVolume(sphereVolume(9), dir))

	summary := session.Summary()
	require.Len(t, summary.Frames, 36)
	assert.Equal(t, dir, summary.OutputDir)
	assert.False(t, summary.Reduced)
	assert.Equal(t, [3]int{9, 9, 9}, summary.RenderDims)
	assert.Equal(t, -1000.0, summary.ScalarMin)
	assert.Equal(t, 1500.0, summary.ScalarMax)
	assert.Greater(t, summary.Coverage, 0.0)
	assert.Less(t, summary.Coverage, 1.0)
	assert.GreaterOrEqual(t, summary.MaxFrameTime, summary.FrameTime)

	for i, path := range summary.Frames {
		assert.Equal(t, filepath.Join(dir, export.FrameName(i, export.PNG)), path)
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}
	assert.FileExists(t, filepath.Join(dir, "000.png"))
	assert.FileExists(t, filepath.Join(dir, "350.png"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 36)
}

func TestProcessVolumeReduction(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping full orbit render in short mode")
	}

	cfg := testConfig()
	cfg.Render.ReductionFactor = 0.5
	cfg.Render.Width, cfg.Render.Height = 8, 8
	session := NewSession(cfg, quietLogger())
	require.NoError(t, session.ProcessVolume(sphereVolume(9), t.TempDir()))

	summary := session.Summary()
	assert.True(t, summary.Reduced)
	assert.Equal(t, [3]int{9, 9, 9}, summary.SourceDims)
	assert.Equal(t, [3]int{5, 5, 5}, summary.RenderDims)
	assert.Equal(t, summary.RenderDims, session.Volume().Dims)
}

func TestProcessVolumeKeepsResolutionForInvalidReduction(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping full orbit render in short mode")
	}

	cfg := testConfig()
	cfg.Render.ReductionFactor = 1.5
	cfg.Render.Width, cfg.Render.Height = 8, 8
	require.NoError(t, cfg.Validate(quietLogger()))

	vol := sphereVolume(6)
	session := NewSession(cfg, quietLogger())
	require.NoError(t, session.ProcessVolume(vol, t.TempDir()))

	assert.False(t, session.Summary().Reduced)
	assert.Same(t, vol, session.Volume())
}

func TestProcessFromMetaImage(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	dir := filepath.Join(t.TempDir(), "ct")
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, "head.mha")
	require.NoError(t, volumeio.WriteMetaImage(path, sphereVolume(7), true))

	cfg := testConfig()
	cfg.Source.FileName = path
	cfg.Render.Width, cfg.Render.Height = 8, 8
	session := NewSession(cfg, quietLogger())
	require.NoError(t, session.Process())

	summary := session.Summary()
	assert.Equal(t, dir, summary.OutputDir)
	assert.Len(t, summary.Frames, 36)
	assert.FileExists(t, filepath.Join(dir, "180.png"))
	assert.Greater(t, summary.TotalTime, summary.FrameTime)
}

func TestProcessErrors(t *testing.T) {
	cfg := testConfig()
	cfg.Source.FileName = filepath.Join(t.TempDir(), "missing.mha")
	err := NewSession(cfg, quietLogger()).Process()
	assert.ErrorIs(t, err, models.ErrLoad)

	cfg = testConfig()
	cfg.Render.PresetName = "no-such-preset"
	err = NewSession(cfg, quietLogger()).ProcessVolume(sphereVolume(4), t.TempDir())
	assert.ErrorIs(t, err, config.ErrConfiguration)

	cfg = testConfig()
	cfg.Render.IndependentComponents = false
	vol := sphereVolume(4)
	vol.Components = 3
	vol.Data = make([]float64, 4*4*4*3)
	err = NewSession(cfg, quietLogger()).ProcessVolume(vol, t.TempDir())
	assert.ErrorIs(t, err, config.ErrConfiguration)

	bad := models.NewScalarVolume(4, 4, 1)
	err = NewSession(testConfig(), quietLogger()).ProcessVolume(bad, t.TempDir())
	assert.ErrorIs(t, err, models.ErrLoad)
}

func TestNoPresetRendersBackground(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping full orbit render in short mode")
	}

	cfg := testConfig()
	cfg.Render.PresetName = "none"
	cfg.Render.Width, cfg.Render.Height = 6, 6
	session := NewSession(cfg, quietLogger())
	require.NoError(t, session.ProcessVolume(sphereVolume(5), t.TempDir()))
	assert.Equal(t, 0.0, session.Summary().Coverage)
}

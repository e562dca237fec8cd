// Package config provides configuration loading and validation for volrender.
// It handles loading configuration from YAML files, provides default values,
// and substitutes documented defaults for out-of-range parameters.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/liangfu/volrender/pkg/transfer"
)

// ErrConfiguration marks a bad or missing option. It is always fatal.
var ErrConfiguration = errors.New("configuration error")

const (
	// DefaultFrameRate is the desired update rate used when none or an
	// invalid one is given.
	DefaultFrameRate = 10.0
	MinFrameRate     = 0.01
	MaxFrameRate     = 60.0

	// NoReduction leaves the volume at full resolution.
	NoReduction = 1.0

	// DefaultTermination is the accumulated opacity at which a ray stops.
	DefaultTermination = 0.99
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Source parameters
	Source struct {
		// FileName is a MetaImage volume (.mha or .mhd)
		FileName string `yaml:"fileName"`

		// Directory holds numbered 2D slice images
		Directory string `yaml:"directory"`

		// SliceGap is the physical distance between slices of a directory source
		SliceGap float64 `yaml:"sliceGap"`
	} `yaml:"source"`

	// Render parameters
	Render struct {
		// PresetName selects the transfer function preset, or "none"
		PresetName string `yaml:"presetName"`

		// FrameRate is the desired update rate in frames per second
		FrameRate float64 `yaml:"frameRate"`

		// ReductionFactor downsamples the volume when in (0, 1)
		ReductionFactor float64 `yaml:"reductionFactor"`

		// IndependentComponents classifies each voxel component separately
		IndependentComponents bool `yaml:"independentComponents"`

		// SampleDistance is the ray step; zero means half the mean spacing
		SampleDistance float64 `yaml:"sampleDistance"`

		// Termination is the early ray termination opacity threshold
		Termination float64 `yaml:"termination"`

		// Width and Height are the render window size in pixels
		Width  int `yaml:"width"`
		Height int `yaml:"height"`

		// Crop is the captured region of the window as
		// xmin, ymin, xmax, ymax fractions with the origin at the bottom left
		Crop [4]float64 `yaml:"crop"`

		// Background is the RGB color behind the volume
		Background [3]float64 `yaml:"background"`
	} `yaml:"render"`

	// Processing parameters
	Processing struct {
		// Workers is the number of goroutines rendering rows of a frame
		Workers int `yaml:"workers"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Directory overrides the directory derived from the input path
		Directory string `yaml:"directory"`

		// Format is the image encoding: png, jpeg, tiff or bmp
		Format string `yaml:"format"`

		// Verbose enables per-frame logging
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Presets adds or replaces named transfer function presets
	Presets map[string]transfer.Preset `yaml:"presets,omitempty"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Source.SliceGap = 1.0

	cfg.Render.PresetName = "jet"
	cfg.Render.FrameRate = DefaultFrameRate
	cfg.Render.ReductionFactor = NoReduction
	cfg.Render.IndependentComponents = true
	cfg.Render.Termination = DefaultTermination
	cfg.Render.Width = 600
	cfg.Render.Height = 600
	cfg.Render.Crop = [4]float64{0.25, 0.32, 0.75, 0.72}
	cfg.Render.Background = [3]float64{1, 1, 1}

	cfg.Processing.Workers = runtime.NumCPU()

	cfg.Output.Format = "png"
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return ReadConfig(configPath)
}

// ReadConfig loads configuration from a YAML file that must exist.
// Unknown keys are rejected like unknown command-line flags.
func ReadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: error reading config file: %v", ErrConfiguration, err)
	}

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: error parsing config file %s: %v", ErrConfiguration, configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

package transfer

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/liangfu/volrender/internal/models"
)

// NoPreset selects an empty, fully transparent transfer function set.
const NoPreset = "none"

//go:embed presets.yaml
var builtinPresets []byte

// Preset is the declarative form of a transfer function set as it
// appears in the presets table and in config files.
type Preset struct {
	Title   string       `yaml:"title"`
	Blend   string       `yaml:"blend"`
	Shading Shading      `yaml:"shading"`
	Color   [][4]float64 `yaml:"color"`
	Opacity [][2]float64 `yaml:"opacity"`
}

// Build validates the preset and turns it into a Set.
func (p Preset) Build(independent bool) (*Set, error) {
	color := make([]ColorPoint, len(p.Color))
	for i, c := range p.Color {
		color[i] = ColorPoint{X: c[0], Color: models.RGB{R: c[1], G: c[2], B: c[3]}}
	}
	opacity := make([]ControlPoint, len(p.Opacity))
	for i, o := range p.Opacity {
		opacity[i] = ControlPoint{X: o[0], Value: o[1]}
	}
	return NewSet(color, opacity, p.Shading, independent)
}

// Presets is a table of named presets
type Presets map[string]Preset

// BuiltinPresets parses the embedded presets table.
func BuiltinPresets() (Presets, error) {
	return ParsePresets(builtinPresets)
}

// ParsePresets decodes a YAML presets table.
func ParsePresets(data []byte) (Presets, error) {
	presets := make(Presets)
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("error parsing presets: %w", err)
	}
	return presets, nil
}

// Merge returns a copy of p with the entries of extra added, replacing
// presets of the same name.
func (p Presets) Merge(extra map[string]Preset) Presets {
	out := make(Presets, len(p)+len(extra))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range extra {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Lookup finds a preset by key or by title, case-insensitively.
// NoPreset and the empty name return an empty preset.
func (p Presets) Lookup(name string) (Preset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || key == NoPreset {
		return Preset{Blend: "composite", Shading: DefaultShading()}, nil
	}
	if preset, ok := p[key]; ok {
		return preset, nil
	}
	for _, preset := range p {
		if strings.EqualFold(preset.Title, name) {
			return preset, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(p.Names(), ", "))
}

// Names lists the preset keys in sorted order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Package export implements the capture-and-assembly pipeline: per-slide
// capture delegated to the out-of-process renderer over the host channel,
// artifact assembly (PDF, images, markdown outline), and batch
// accounting with partial-failure tolerance.
package export

import "github.com/vishalpatel2890/slidecore/hostchan"

// Preset is a named capture quality profile.
type Preset struct {
	Format  string `yaml:"format"`
	Quality int    `yaml:"quality"`
}

// Presets maps preset names to concrete capture options.
type Presets map[string]Preset

// DefaultPresets mirrors the host UI's quality choices.
func DefaultPresets() Presets {
	return Presets{
		"draft":    {Format: "jpeg", Quality: 60},
		"standard": {Format: "jpeg", Quality: 85},
		"high":     {Format: "png"},
	}
}

// Resolve turns a preset name into concrete capture options at request
// time. An empty or unknown name selects the lossless native path.
func (p Presets) Resolve(name string) *hostchan.CaptureOptions {
	if name == "" {
		return &hostchan.CaptureOptions{Format: "png"}
	}
	preset, ok := p[name]
	if !ok {
		return &hostchan.CaptureOptions{Format: "png"}
	}
	return &hostchan.CaptureOptions{Format: preset.Format, Quality: preset.Quality}
}

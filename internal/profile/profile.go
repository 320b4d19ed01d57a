// SPDX-License-Identifier: MIT

// Package profile defines the analysis presets that fix the STFT geometry
// for a render: sample rate, window size, hop size and the default
// frequency-bin cutoff. Profiles are immutable once chosen for a render.
package profile

import (
	"fmt"
	"sort"
	"time"

	"specgram/pkg/bitint"
)

// Profile fixes the STFT analysis geometry for one render request.
type Profile struct {
	Name       string
	SampleRate int // Hz
	WindowSize int // samples per analysis frame, power of 2
	HopSize    int // samples between consecutive frame starts
	MaxFreqBin int // default frequency-bin cutoff, <= WindowSize/2
}

// Built-in precision presets. Higher presets trade render time for
// frequency resolution.
var presets = map[string]Profile{
	"low":      {Name: "low", SampleRate: 8000, WindowSize: 1024, HopSize: 256, MaxFreqBin: 512},
	"standard": {Name: "standard", SampleRate: 16000, WindowSize: 2048, HopSize: 256, MaxFreqBin: 1024},
	"high":     {Name: "high", SampleRate: 22050, WindowSize: 4096, HopSize: 512, MaxFreqBin: 2048},
	"ultra":    {Name: "ultra", SampleRate: 44100, WindowSize: 8192, HopSize: 1024, MaxFreqBin: 4096},
}

// Catalog is a set of named profiles. The zero value is not usable;
// construct with NewCatalog.
type Catalog struct {
	profiles map[string]Profile
}

// NewCatalog returns a catalog seeded with the built-in presets.
func NewCatalog() *Catalog {
	c := &Catalog{profiles: make(map[string]Profile, len(presets))}
	for name, p := range presets {
		c.profiles[name] = p
	}
	return c
}

// Register adds or replaces a named profile. The profile is validated first.
func (c *Catalog) Register(p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("profile name must not be empty")
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	c.profiles[p.Name] = p
	return nil
}

// Lookup returns the profile registered under name.
func (c *Catalog) Lookup(name string) (Profile, error) {
	p, ok := c.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (available: %v)", name, c.Names())
	}
	return p, nil
}

// Names returns the registered profile names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.profiles))
	for name := range c.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the profile invariants: positive sample rate, a
// power-of-2 window, 0 < hop <= window, and 0 < MaxFreqBin <= WindowSize/2.
func (p Profile) Validate() error {
	if p.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", p.SampleRate)
	}
	if !bitint.IsPowerOfTwo(p.WindowSize) {
		return fmt.Errorf("window size must be a power of 2, got %d", p.WindowSize)
	}
	if p.HopSize <= 0 || p.HopSize > p.WindowSize {
		return fmt.Errorf("hop size must be in (0, %d], got %d", p.WindowSize, p.HopSize)
	}
	if p.MaxFreqBin <= 0 || p.MaxFreqBin > p.WindowSize/2 {
		return fmt.Errorf("frequency-bin cutoff must be in (0, %d], got %d", p.WindowSize/2, p.MaxFreqBin)
	}
	return nil
}

// BinWidth returns the frequency width of one FFT bin in Hz.
func (p Profile) BinWidth() float64 {
	return float64(p.SampleRate) / float64(p.WindowSize)
}

// BinsForFrequency converts a cutoff frequency in Hz to a bin count,
// clamped to [1, WindowSize/2]. Callers apply this before building a
// render request so the renderer never sees an out-of-range cutoff.
func (p Profile) BinsForFrequency(hz float64) int {
	bins := int(hz / p.BinWidth())
	if bins < 1 {
		bins = 1
	}
	if max := p.WindowSize / 2; bins > max {
		bins = max
	}
	return bins
}

// FrameCount returns the number of complete STFT frames available in
// sampleCount samples. Zero when the signal is shorter than one window.
func (p Profile) FrameCount(sampleCount int) int {
	if sampleCount < p.WindowSize {
		return 0
	}
	return (sampleCount-p.WindowSize)/p.HopSize + 1
}

// Duration returns the wall-clock length of sampleCount samples.
func (p Profile) Duration(sampleCount int) time.Duration {
	return time.Duration(float64(sampleCount) / float64(p.SampleRate) * float64(time.Second))
}

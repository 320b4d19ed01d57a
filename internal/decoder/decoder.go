// SPDX-License-Identifier: MIT

// Package decoder turns audio containers into the mono sample buffer the
// rendering engine consumes. The engine itself never parses container
// formats; everything downstream of this package sees only a Clip.
package decoder

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Clip is a decoded mono audio signal: amplitude samples normalized to
// roughly [-1, 1] plus their sample rate. Immutable once produced; the
// renderer and any concurrent readout share it read-only.
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the wall-clock length of the clip.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// Seconds returns the clip length in seconds.
func (c *Clip) Seconds() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// DecodeFunc decodes one container format into a mono clip.
type DecodeFunc func(path string) (*Clip, error)

// decoders maps a lowercase file extension (without dot) to its decoder.
var decoders = map[string]DecodeFunc{
	"wav":  DecodeWAV,
	"flac": DecodeFLAC,
}

// SupportedFormats returns the decodable file extensions.
func SupportedFormats() []string {
	return []string{"wav", "flac"}
}

// Open decodes the file at path, dispatching on its extension.
func Open(path string) (*Clip, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return nil, fmt.Errorf("cannot determine audio format of %s", path)
	}
	decode, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported audio format %q (supported: %v)", ext, SupportedFormats())
	}
	return decode(path)
}

// mixdown averages interleaved multi-channel samples into mono. Mono
// input is returned as-is.
func mixdown(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += interleaved[i*channels+ch]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

// SPDX-License-Identifier: MIT
package decoder

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

// DecodeFLAC decodes a FLAC file into a mono clip. Channels are averaged
// per audio frame while parsing, so only the mono signal is kept in
// memory.
func DecodeFLAC(path string) (*Clip, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flac file: %w", err)
	}
	defer file.Close()

	stream, err := flac.New(file)
	if err != nil {
		return nil, fmt.Errorf("parse flac stream: %w", err)
	}

	info := stream.Info
	if info == nil {
		return nil, fmt.Errorf("flac file has no stream info: %s", path)
	}

	scale := float64(int(1) << uint(info.BitsPerSample-1))
	channels := int(info.NChannels)
	samples := make([]float64, 0, int(info.NSamples))

	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse flac frame: %w", err)
		}

		for i := range frame.Subframes[0].Samples {
			sum := 0.0
			for ch := 0; ch < channels; ch++ {
				sum += float64(frame.Subframes[ch].Samples[i]) / scale
			}
			samples = append(samples, sum/float64(channels))
		}
	}

	return &Clip{
		Samples:    samples,
		SampleRate: int(info.SampleRate),
	}, nil
}

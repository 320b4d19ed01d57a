// SPDX-License-Identifier: MIT
package decoder

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// DecodeWAV decodes a WAV file into a mono clip. Multi-channel files are
// averaged down to mono; integer PCM is scaled by its bit depth into
// [-1, 1].
func DecodeWAV(path string) (*Clip, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav file: %w", err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav pcm data: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("wav file has no usable format: %s", path)
	}

	scale := float64(int(1) << uint(dec.BitDepth-1))
	samples := make([]float64, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float64(s) / scale
	}

	return &Clip{
		Samples:    mixdown(samples, buf.Format.NumChannels),
		SampleRate: buf.Format.SampleRate,
	}, nil
}

// SPDX-License-Identifier: MIT

// Package waveform reduces a sample run to per-pixel min/max/RMS
// buckets for a quick amplitude preview. This is a plain contiguous
// reduction with none of the pooling or zoom machinery of the
// spectrogram renderer.
package waveform

import "math"

// Bucket summarizes one contiguous run of samples.
type Bucket struct {
	Min float64
	Max float64
	RMS float64
}

// Buckets splits samples into n contiguous runs and summarizes each.
// Returns nil for empty input or non-positive n. When n exceeds the
// sample count, trailing buckets repeat the nearest sample.
func Buckets(samples []float64, n int) []Bucket {
	if len(samples) == 0 || n <= 0 {
		return nil
	}

	buckets := make([]Bucket, n)
	for i := range buckets {
		lo := i * len(samples) / n
		hi := (i + 1) * len(samples) / n
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(samples) {
			hi = len(samples)
			lo = hi - 1
		}

		b := Bucket{Min: samples[lo], Max: samples[lo]}
		sumSq := 0.0
		for _, s := range samples[lo:hi] {
			if s < b.Min {
				b.Min = s
			}
			if s > b.Max {
				b.Max = s
			}
			sumSq += s * s
		}
		b.RMS = math.Sqrt(sumSq / float64(hi-lo))
		buckets[i] = b
	}
	return buckets
}

// SPDX-License-Identifier: MIT

// Package spectral computes log-compressed magnitude spectra of single
// STFT frames on demand. A FrameProducer owns pre-allocated scratch
// buffers, so one producer must not be shared between goroutines; the
// sample buffer it reads is never mutated, so any number of producers
// may analyze the same signal concurrently.
package spectral

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// logNorm compresses magnitudes into roughly [0, 1]. Fixed, not
// configurable: intensity values are comparable across renders only if
// every render uses the same base.
var logNorm = math.Log1p(255)

// FrameCount returns the number of complete analysis frames that fit in
// sampleCount samples. Zero when the signal is shorter than one window;
// that is a defined degenerate case, not an error.
func FrameCount(sampleCount, windowSize, hopSize int) int {
	if sampleCount < windowSize || hopSize <= 0 {
		return 0
	}
	return (sampleCount-windowSize)/hopSize + 1
}

// FrameProducer computes normalized magnitude spectra of individual STFT
// frames. Buffers are allocated once at construction so the per-frame
// path is allocation-free.
type FrameProducer struct {
	samples    []float64
	windowSize int
	hopSize    int
	cutoff     int

	fftCalc *fourier.FFT
	window  []float64    // Hamming coefficients
	input   []float64    // windowed frame scratch
	coeffs  []complex128 // FFT output scratch
}

// NewFrameProducer builds a producer over samples for the given STFT
// geometry. cutoff is the number of frequency bins kept per frame and
// must satisfy 0 < cutoff <= windowSize/2; callers validate via the
// render package before analysis starts.
func NewFrameProducer(samples []float64, windowSize, hopSize, cutoff int) *FrameProducer {
	// Hamming window, w(i) = 0.54 - 0.46*cos(2*pi*i/(N-1)).
	window := make([]float64, windowSize)
	for i := range windowSize {
		window[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(windowSize-1))
	}

	return &FrameProducer{
		samples:    samples,
		windowSize: windowSize,
		hopSize:    hopSize,
		cutoff:     cutoff,
		fftCalc:    fourier.NewFFT(windowSize),
		window:     window,
		input:      make([]float64, windowSize),
		coeffs:     make([]complex128, windowSize/2+1),
	}
}

// FrameCount returns the number of complete frames in the sample buffer.
func (p *FrameProducer) FrameCount() int {
	return FrameCount(len(p.samples), p.windowSize, p.hopSize)
}

// Bins returns the number of magnitude bins produced per frame.
func (p *FrameProducer) Bins() int {
	return p.cutoff
}

// Magnitudes writes the normalized magnitude spectrum of frame index
// into dst, which must have length >= Bins().
//
// The frame start is clamped so the window always covers windowSize real
// samples: a window that would run past the buffer end is shifted left,
// and a negative start is shifted to 0. Shifting instead of zero-padding
// is a behavioral contract; it determines the spectral content of the
// first and last rendered columns.
//
// Values are log1p(magnitude)/log1p(255), approximately [0, 1] but not
// hard-clamped; very loud frames may exceed 1.
func (p *FrameProducer) Magnitudes(frame int, dst []float64) {
	if len(p.samples) < p.windowSize {
		for i := 0; i < p.cutoff; i++ {
			dst[i] = 0
		}
		return
	}

	start := frame * p.hopSize
	if start+p.windowSize > len(p.samples) {
		start = len(p.samples) - p.windowSize
	}
	if start < 0 {
		start = 0
	}

	for i := range p.windowSize {
		p.input[i] = p.samples[start+i] * p.window[i]
	}

	p.coeffs = p.fftCalc.Coefficients(p.coeffs, p.input)
	for i := 0; i < p.cutoff; i++ {
		dst[i] = math.Log1p(cmplx.Abs(p.coeffs[i])) / logNorm
	}
}

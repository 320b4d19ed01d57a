// SPDX-License-Identifier: MIT

/*
Package render implements the multi-resolution spectrogram renderer.

STFT frame counts routinely exceed the output raster width by orders of
magnitude, so the renderer fuses spectral analysis with a deterministic
two-axis max-pooling reduction: each output column pools a contiguous
frame range on the time axis, each output row pools a contiguous bin
range on the frequency axis. Max-pooling rather than averaging keeps
transient peak energy visible when thousands of frames collapse into one
column.

A render is one long-lived cooperative operation. It yields between
columns, never inside one: cancellation is polled once per column and a
pause blocks only the column loop, on a coarse poll that still observes
cancellation. Cancellation is a normal early exit, not an error.
*/
package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"specgram/internal/profile"
	"specgram/internal/spectral"
)

var (
	// ErrInvalidRange reports a malformed frame range or non-positive
	// raster dimensions. Always a caller bug, surfaced before any work.
	ErrInvalidRange = errors.New("render: invalid frame range or raster size")

	// ErrFrequencyOutOfRange reports a frequency-bin cutoff above the
	// profile's Nyquist bin count. Callers clamp via
	// profile.BinsForFrequency before building a request.
	ErrFrequencyOutOfRange = errors.New("render: frequency-bin cutoff exceeds window capacity")
)

// defaults for Options zero values.
const (
	defaultFlushColumns = 32
	defaultPausePoll    = 25 * time.Millisecond
)

// FrameSource supplies per-frame magnitude vectors to the renderer. The
// production implementation is spectral.FrameProducer; tests substitute
// instrumented sources.
type FrameSource interface {
	// FrameCount returns the total number of frames available.
	FrameCount() int
	// Bins returns the length of the magnitude vectors.
	Bins() int
	// Magnitudes writes frame's magnitude vector into dst (len >= Bins).
	Magnitudes(frame int, dst []float64)
}

// Request describes one render invocation: which frames of the sample
// buffer to rasterize and at what pixel resolution. Consumed entirely
// within that invocation.
type Request struct {
	Samples    []float64 // mono, roughly [-1, 1], read-only during the render
	Profile    profile.Profile
	Cutoff     int // frequency bins kept, 0 means Profile.MaxFreqBin
	FrameStart int // inclusive
	FrameEnd   int // exclusive
	Width      int // output raster width in pixels
	Height     int // output raster height in pixels
}

func (req *Request) cutoff() int {
	if req.Cutoff == 0 {
		return req.Profile.MaxFreqBin
	}
	return req.Cutoff
}

func (req *Request) validate() error {
	if req.Width <= 0 || req.Height <= 0 {
		return fmt.Errorf("%w: raster %dx%d", ErrInvalidRange, req.Width, req.Height)
	}
	if req.FrameEnd <= req.FrameStart {
		return fmt.Errorf("%w: frames [%d, %d)", ErrInvalidRange, req.FrameStart, req.FrameEnd)
	}
	if c := req.cutoff(); c <= 0 || c > req.Profile.WindowSize/2 {
		return fmt.Errorf("%w: cutoff %d, window %d", ErrFrequencyOutOfRange, c, req.Profile.WindowSize)
	}
	return nil
}

// Options carries the optional collaborators of a render. The zero value
// renders silently with no sink, no pause and default flush cadence.
type Options struct {
	// OnProgress receives deduplicated percent/ETA samples.
	OnProgress func(ProgressSample)
	// Pause suspends the column loop while true. Shared by reference
	// with the caller; toggling it is the only suspend/resume control.
	Pause *atomic.Bool
	// Sink receives the raster at intermediate flush points.
	Sink Sink
	// FlushColumns is the flush cadence in columns (default 32).
	FlushColumns int
	// PausePoll is the pause polling interval (default 25ms). Coarse on
	// purpose: pause/resume is a user-interactive control.
	PausePoll time.Duration

	now func() time.Time // test hook for ETA estimation
}

// Render rasterizes the requested frame range into dst.
//
// It returns the number of columns completed. A cancelled context is a
// normal outcome: the raster is left partially filled, the terminal
// progress sample is skipped, columnsDone < dst.Width, and err is nil.
// Validation failures (ErrInvalidRange, ErrFrequencyOutOfRange) surface
// before any pixel is written.
func Render(ctx context.Context, req Request, dst *Raster, opts Options) (columnsDone int, err error) {
	if err := req.validate(); err != nil {
		return 0, err
	}
	src := spectral.NewFrameProducer(req.Samples, req.Profile.WindowSize, req.Profile.HopSize, req.cutoff())
	return RenderSource(ctx, src, req.FrameStart, req.FrameEnd, dst, opts)
}

// RenderSource is Render with an explicit frame source. frameEnd must
// not exceed src.FrameCount().
func RenderSource(ctx context.Context, src FrameSource, frameStart, frameEnd int, dst *Raster, opts Options) (columnsDone int, err error) {
	if dst.Width <= 0 || dst.Height <= 0 || frameEnd <= frameStart || frameEnd > src.FrameCount() {
		return 0, fmt.Errorf("%w: frames [%d, %d) of %d, raster %dx%d",
			ErrInvalidRange, frameStart, frameEnd, src.FrameCount(), dst.Width, dst.Height)
	}

	if opts.FlushColumns <= 0 {
		opts.FlushColumns = defaultFlushColumns
	}
	if opts.PausePoll <= 0 {
		opts.PausePoll = defaultPausePoll
	}
	sink := opts.Sink
	if sink == nil {
		sink = NopSink{}
	}

	bins := src.Bins()
	span := frameEnd - frameStart
	mags := make([]float64, bins)
	pooled := make([]float64, bins)
	tracker := newProgressTracker(dst.Width, opts.OnProgress, opts.now)

	for x := 0; x < dst.Width; x++ {
		// Cancellation is advisory and polled: the current column always
		// completes before a cancellation request is observed.
		if ctx.Err() != nil {
			return x, nil
		}
		if !waitWhilePaused(ctx, opts.Pause, opts.PausePoll) {
			return x, nil
		}

		// Horizontal pooling window: the frame sub-range contributing to
		// column x. One frame when zoomed in, thousands when zoomed out.
		frameLo := frameStart + int(math.Floor(float64(x)/float64(dst.Width)*float64(span)))
		frameHi := frameStart + int(math.Ceil(float64(x+1)/float64(dst.Width)*float64(span)))
		if frameLo > frameEnd-1 {
			frameLo = frameEnd - 1
		}
		if frameHi > frameEnd {
			frameHi = frameEnd
		}

		if frameHi <= frameLo {
			// No frames map here. Cannot happen with a monotonic mapping,
			// but an undefined column is worse than an opaque black one.
			for y := 0; y < dst.Height; y++ {
				dst.SetGray(x, y, 0)
			}
			tracker.column(x + 1)
			continue
		}

		for i := range pooled {
			pooled[i] = 0
		}
		for f := frameLo; f < frameHi; f++ {
			src.Magnitudes(f, mags)
			for i, m := range mags {
				if m > pooled[i] {
					pooled[i] = m
				}
			}
		}

		for y := 0; y < dst.Height; y++ {
			dst.SetGray(x, y, intensityForRow(pooled, y, dst.Height))
		}

		if (x+1)%opts.FlushColumns == 0 {
			if err := sink.Flush(dst, x+1); err != nil {
				return x + 1, err
			}
		}
		tracker.column(x + 1)
	}

	if err := sink.Flush(dst, dst.Width); err != nil {
		return dst.Width, err
	}
	tracker.finish()
	return dst.Width, nil
}

// intensityForRow pools the bin sub-range for output row y by maximum
// and converts the scalar to a pixel byte. Row 0 is the highest bin.
// The scalar is clamped before truncation; the log normalization is not
// a hard bound and very loud frames can push it past 1.
func intensityForRow(pooled []float64, y, height int) uint8 {
	bins := len(pooled)
	binHi := bins - int(math.Floor(float64(y)/float64(height)*float64(bins)))
	binLo := bins - int(math.Ceil(float64(y+1)/float64(height)*float64(bins)))
	if binLo < 0 {
		binLo = 0
	}
	if binHi > bins {
		binHi = bins
	}
	if binHi <= binLo {
		return 0
	}

	peak := 0.0
	for i := binLo; i < binHi; i++ {
		if pooled[i] > peak {
			peak = pooled[i]
		}
	}

	v := math.Floor(peak * 255)
	if v > 255 {
		v = 255
	}
	if v < 0 {
		v = 0
	}
	return uint8(v)
}

// waitWhilePaused blocks while the pause flag is set, polling so a
// paused render still observes cancellation. Returns false on cancel.
func waitWhilePaused(ctx context.Context, pause *atomic.Bool, poll time.Duration) bool {
	if pause == nil {
		return true
	}
	for pause.Load() {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(poll):
		}
	}
	return true
}

// SPDX-License-Identifier: MIT
package render

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"specgram/internal/profile"
)

func newPausedFlag() *atomic.Bool {
	flag := &atomic.Bool{}
	flag.Store(true)
	return flag
}

var testProfile = profile.Profile{
	Name:       "standard",
	SampleRate: 16000,
	WindowSize: 2048,
	HopSize:    256,
	MaxFreqBin: 1024,
}

func generateTone(n int, sampleRate float64) []float64 {
	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / sampleRate
		samples[i] = math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
	}
	return samples
}

// fakeSource serves canned magnitude vectors and records which frames
// were requested.
type fakeSource struct {
	frames   [][]float64
	accessed []int
	onFrame  func(frame int) // called before serving each frame
}

func (f *fakeSource) FrameCount() int { return len(f.frames) }
func (f *fakeSource) Bins() int       { return len(f.frames[0]) }

func (f *fakeSource) Magnitudes(frame int, dst []float64) {
	if f.onFrame != nil {
		f.onFrame(frame)
	}
	f.accessed = append(f.accessed, frame)
	copy(dst, f.frames[frame])
}

func flatFrames(count, bins int, value float64) [][]float64 {
	frames := make([][]float64, count)
	for i := range frames {
		frames[i] = make([]float64, bins)
		for j := range frames[i] {
			frames[i][j] = value
		}
	}
	return frames
}

func TestRenderValidation(t *testing.T) {
	samples := make([]float64, 16000)

	tests := []struct {
		desc     string
		req      Request
		expected error
	}{
		{
			"Empty frame range",
			Request{Samples: samples, Profile: testProfile, FrameStart: 10, FrameEnd: 10, Width: 64, Height: 32},
			ErrInvalidRange,
		},
		{
			"Inverted frame range",
			Request{Samples: samples, Profile: testProfile, FrameStart: 20, FrameEnd: 10, Width: 64, Height: 32},
			ErrInvalidRange,
		},
		{
			"Zero width",
			Request{Samples: samples, Profile: testProfile, FrameStart: 0, FrameEnd: 55, Width: 0, Height: 32},
			ErrInvalidRange,
		},
		{
			"Negative height",
			Request{Samples: samples, Profile: testProfile, FrameStart: 0, FrameEnd: 55, Width: 64, Height: -1},
			ErrInvalidRange,
		},
		{
			"Cutoff past Nyquist bins",
			Request{Samples: samples, Profile: testProfile, Cutoff: 1025, FrameStart: 0, FrameEnd: 55, Width: 64, Height: 32},
			ErrFrequencyOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			dst := NewRaster(64, 32)
			if tt.req.Width > 0 && tt.req.Height > 0 {
				dst = NewRaster(tt.req.Width, tt.req.Height)
			}
			_, err := Render(context.Background(), tt.req, dst, Options{})
			if !errors.Is(err, tt.expected) {
				t.Errorf("Render error = %v, want %v", err, tt.expected)
			}
		})
	}
}

func TestRenderSilenceIsBlack(t *testing.T) {
	// 1s of silence at 16kHz, window 2048, hop 256: exactly 55 frames.
	samples := make([]float64, 16000)
	req := Request{
		Samples:    samples,
		Profile:    testProfile,
		FrameStart: 0,
		FrameEnd:   55,
		Width:      64,
		Height:     32,
	}

	dst := NewRaster(req.Width, req.Height)
	columns, err := Render(context.Background(), req, dst, Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if columns != req.Width {
		t.Fatalf("columns = %d, want %d", columns, req.Width)
	}

	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			i := 4 * (y*dst.Width + x)
			if dst.Pix[i] != 0 || dst.Pix[i+1] != 0 || dst.Pix[i+2] != 0 {
				t.Fatalf("pixel (%d,%d) = %v, want black for silence", x, y, dst.Pix[i:i+4])
			}
			if dst.Pix[i+3] != 0xFF {
				t.Fatalf("pixel (%d,%d) alpha = %d, want 255", x, y, dst.Pix[i+3])
			}
		}
	}
}

func TestRenderIdempotent(t *testing.T) {
	samples := generateTone(16000*2, 16000)
	req := Request{
		Samples:    samples,
		Profile:    testProfile,
		FrameStart: 5,
		FrameEnd:   100,
		Width:      48,
		Height:     24,
	}

	first := NewRaster(req.Width, req.Height)
	second := NewRaster(req.Width, req.Height)
	if _, err := Render(context.Background(), req, first, Options{}); err != nil {
		t.Fatalf("first render: %v", err)
	}
	if _, err := Render(context.Background(), req, second, Options{}); err != nil {
		t.Fatalf("second render: %v", err)
	}

	for i := range first.Pix {
		if first.Pix[i] != second.Pix[i] {
			t.Fatalf("rasters differ at byte %d: %d vs %d", i, first.Pix[i], second.Pix[i])
		}
	}
}

// Every pixel must derive from frames strictly within the requested
// range; no out-of-range frame index is ever read.
func TestRenderStaysInFrameRange(t *testing.T) {
	src := &fakeSource{frames: flatFrames(200, 16, 0.5)}
	dst := NewRaster(30, 8)

	const frameStart, frameEnd = 40, 160
	if _, err := RenderSource(context.Background(), src, frameStart, frameEnd, dst, Options{}); err != nil {
		t.Fatalf("RenderSource: %v", err)
	}

	if len(src.accessed) == 0 {
		t.Fatal("no frames were read")
	}
	seen := make(map[int]bool)
	for _, frame := range src.accessed {
		if frame < frameStart || frame >= frameEnd {
			t.Fatalf("read frame %d outside [%d, %d)", frame, frameStart, frameEnd)
		}
		seen[frame] = true
	}
	// Every frame in the range contributes to some column.
	for frame := frameStart; frame < frameEnd; frame++ {
		if !seen[frame] {
			t.Fatalf("frame %d in [%d, %d) never read", frame, frameStart, frameEnd)
		}
	}
}

// Widening a column's contributing frame range never decreases its
// intensity versus the narrowest single-frame case.
func TestMaxPoolingMonotonic(t *testing.T) {
	frames := flatFrames(10, 4, 0)
	for i := range frames {
		frames[i][2] = float64(i) / 10 // energy grows frame by frame
	}

	narrow := NewRaster(1, 1)
	if _, err := RenderSource(context.Background(), &fakeSource{frames: frames}, 3, 4, narrow, Options{}); err != nil {
		t.Fatalf("narrow render: %v", err)
	}

	wide := NewRaster(1, 1)
	if _, err := RenderSource(context.Background(), &fakeSource{frames: frames}, 0, 10, wide, Options{}); err != nil {
		t.Fatalf("wide render: %v", err)
	}

	if wide.Pix[0] < narrow.Pix[0] {
		t.Errorf("widening the pool decreased intensity: %d < %d", wide.Pix[0], narrow.Pix[0])
	}
}

func TestIntensityClampedAt255(t *testing.T) {
	// Magnitudes above 1 (very loud frames) must clamp, not wrap.
	src := &fakeSource{frames: flatFrames(4, 4, 1.7)}
	dst := NewRaster(4, 4)
	if _, err := RenderSource(context.Background(), src, 0, 4, dst, Options{}); err != nil {
		t.Fatalf("RenderSource: %v", err)
	}
	for i := 0; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] != 255 {
			t.Fatalf("pixel byte %d = %d, want clamped 255", i, dst.Pix[i])
		}
	}
}

func TestRenderCancellation(t *testing.T) {
	const width = 8
	ctx, cancel := context.WithCancel(context.Background())

	// One frame per column; cancel while column 3 is being computed. The
	// column in flight completes, the next cancellation check stops the
	// loop.
	src := &fakeSource{frames: flatFrames(width, 4, 0.8)}
	src.onFrame = func(frame int) {
		if frame == 3 {
			cancel()
		}
	}

	var samples []ProgressSample
	dst := NewRaster(width, 2)
	columns, err := RenderSource(ctx, src, 0, width, dst, Options{
		OnProgress: func(s ProgressSample) { samples = append(samples, s) },
	})
	if err != nil {
		t.Fatalf("cancelled render returned error: %v", err)
	}
	if columns != 4 {
		t.Fatalf("columns = %d, want 4", columns)
	}

	// Columns [0, 4) are populated, [4, 8) untouched raster defaults.
	for x := 0; x < width; x++ {
		i := 4 * x // row 0
		populated := dst.Pix[i+3] == 0xFF
		if x < columns && !populated {
			t.Errorf("column %d should be populated", x)
		}
		if x >= columns && populated {
			t.Errorf("column %d should be untouched after cancellation", x)
		}
	}

	// The terminal 100% notification is skipped on cancellation.
	for _, s := range samples {
		if s.Percent == 100 {
			t.Errorf("cancelled render emitted 100%% progress")
		}
	}
}

func TestProgressMonotonicDeduplicated(t *testing.T) {
	src := &fakeSource{frames: flatFrames(10, 4, 0.5)}
	dst := NewRaster(200, 4)

	var samples []ProgressSample
	if _, err := RenderSource(context.Background(), src, 0, 10, dst, Options{
		OnProgress: func(s ProgressSample) { samples = append(samples, s) },
	}); err != nil {
		t.Fatalf("RenderSource: %v", err)
	}

	if len(samples) == 0 {
		t.Fatal("no progress emitted")
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].Percent <= samples[i-1].Percent {
			t.Fatalf("progress not strictly increasing: %d then %d",
				samples[i-1].Percent, samples[i].Percent)
		}
	}

	last := samples[len(samples)-1]
	if last.Percent != 100 || last.ETA != 0 || !last.ETAKnown {
		t.Errorf("terminal sample = %+v, want 100%%/0/known", last)
	}

	finals := 0
	for _, s := range samples {
		if s.Percent == 100 {
			finals++
		}
		if !s.ETAKnown {
			t.Errorf("sample %+v has unknown ETA after first column", s)
		}
		if s.ETA < 0 {
			t.Errorf("sample %+v has negative ETA", s)
		}
	}
	if finals != 1 {
		t.Errorf("100%% emitted %d times, want exactly once", finals)
	}
}

func TestETAUnknownBeforeFirstColumn(t *testing.T) {
	var samples []ProgressSample
	tracker := newProgressTracker(10, func(s ProgressSample) { samples = append(samples, s) }, nil)

	tracker.column(0)
	for _, s := range samples {
		if s.ETAKnown {
			t.Errorf("ETA reported before any column completed: %+v", s)
		}
	}
}

func TestSinkFlushCadence(t *testing.T) {
	src := &fakeSource{frames: flatFrames(8, 4, 0.5)}
	dst := NewRaster(8, 4)

	var flushes []int
	sink := sinkFunc(func(r *Raster, columnsDone int) error {
		flushes = append(flushes, columnsDone)
		return nil
	})

	if _, err := RenderSource(context.Background(), src, 0, 8, dst, Options{Sink: sink, FlushColumns: 3}); err != nil {
		t.Fatalf("RenderSource: %v", err)
	}

	// Cadence flushes at columns 3 and 6, final flush at 8.
	expected := []int{3, 6, 8}
	if len(flushes) != len(expected) {
		t.Fatalf("flushes = %v, want %v", flushes, expected)
	}
	for i, columns := range expected {
		if flushes[i] != columns {
			t.Fatalf("flushes = %v, want %v", flushes, expected)
		}
	}
}

type sinkFunc func(*Raster, int) error

func (f sinkFunc) Flush(r *Raster, columnsDone int) error { return f(r, columnsDone) }

func TestRenderHotPathColumns(t *testing.T) {
	samples := generateTone(16000, 16000)
	req := Request{
		Samples:    samples,
		Profile:    testProfile,
		FrameStart: 0,
		FrameEnd:   55,
		Width:      16,
		Height:     16,
	}

	dst := NewRaster(req.Width, req.Height)
	// Renders allocate only at setup: producer, scratch vectors, tracker.
	allocs := testing.AllocsPerRun(5, func() {
		if _, err := Render(context.Background(), req, dst, Options{}); err != nil {
			t.Fatal(err)
		}
	})
	// A handful of setup allocations per render is fine; per-column or
	// per-frame allocations would blow well past this.
	if allocs > 32 {
		t.Errorf("Render allocated %.1f times, expected setup-only allocations", allocs)
	}
}

func BenchmarkRender(b *testing.B) {
	samples := generateTone(16000*10, 16000)
	req := Request{
		Samples:    samples,
		Profile:    testProfile,
		FrameStart: 0,
		FrameEnd:   testProfile.FrameCount(len(samples)),
		Width:      256,
		Height:     128,
	}
	dst := NewRaster(req.Width, req.Height)

	b.ReportAllocs()
	for b.Loop() {
		if _, err := Render(context.Background(), req, dst, Options{}); err != nil {
			b.Fatal(err)
		}
	}
}

func TestRenderPauseObservesCancel(t *testing.T) {
	src := &fakeSource{frames: flatFrames(100, 4, 0.5)}
	dst := NewRaster(100, 4)

	ctx, cancel := context.WithCancel(context.Background())

	opts := Options{PausePoll: 5 * time.Millisecond}
	opts.Pause = newPausedFlag()

	done := make(chan struct{})
	var columns int
	go func() {
		defer close(done)
		columns, _ = RenderSource(ctx, src, 0, 100, dst, opts)
	}()

	// The paused render must not finish on its own.
	select {
	case <-done:
		t.Fatal("paused render completed")
	case <-time.After(50 * time.Millisecond):
	}

	// A paused render must still be cancellable.
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("paused render did not observe cancellation")
	}
	if columns != 0 {
		t.Errorf("columns = %d, want 0 for render paused before its first column", columns)
	}
}

func TestRenderPauseResume(t *testing.T) {
	src := &fakeSource{frames: flatFrames(20, 4, 0.5)}
	dst := NewRaster(20, 4)

	opts := Options{PausePoll: 5 * time.Millisecond}
	opts.Pause = newPausedFlag()

	done := make(chan struct{})
	var columns int
	var err error
	go func() {
		defer close(done)
		columns, err = RenderSource(context.Background(), src, 0, 20, dst, opts)
	}()

	time.Sleep(20 * time.Millisecond)
	opts.Pause.Store(false)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("resumed render did not complete")
	}
	if err != nil {
		t.Fatalf("RenderSource: %v", err)
	}
	if columns != 20 {
		t.Errorf("columns = %d, want 20", columns)
	}
}

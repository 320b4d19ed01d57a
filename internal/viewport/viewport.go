// SPDX-License-Identifier: MIT

// Package viewport implements the pure coordinate algebra tying together
// pixel space, STFT-frame space and wall-clock time. Nothing here holds
// state; every function may be called at any time, in any order, by any
// goroutine. Degenerate inputs (zero frames, zero-width timelines) map
// to defined defaults rather than errors, so zoom/pan/readout code never
// has to special-case them.
package viewport

import "math"

// PixelsPerFrame converts a zoom expressed as visible seconds into the
// equivalent horizontal pixel density of the full timeline.
func PixelsPerFrame(visibleSeconds float64, viewportWidth, hopSize, sampleRate int) float64 {
	if visibleSeconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return float64(viewportWidth*hopSize) / (visibleSeconds * float64(sampleRate))
}

// VisibleSeconds is the exact algebraic inverse of PixelsPerFrame:
// composing the two returns the original value up to floating-point
// tolerance.
func VisibleSeconds(pixelsPerFrame float64, viewportWidth, hopSize, sampleRate int) float64 {
	if pixelsPerFrame <= 0 || sampleRate <= 0 {
		return 0
	}
	return float64(viewportWidth*hopSize) / (pixelsPerFrame * float64(sampleRate))
}

// TimelinePixels returns the width of the full unclamped timeline in
// pixels at the given zoom.
func TimelinePixels(totalFrames int, pixelsPerFrame float64) int {
	if totalFrames <= 0 || pixelsPerFrame <= 0 {
		return 0
	}
	return int(math.Ceil(float64(totalFrames) * pixelsPerFrame))
}

// ClampOffset restricts a pan offset to the valid range
// [0, max(0, timelinePixels - viewportWidth)].
func ClampOffset(offset float64, totalFrames int, pixelsPerFrame float64, viewportWidth int) float64 {
	maxOffset := float64(TimelinePixels(totalFrames, pixelsPerFrame) - viewportWidth)
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset < 0 {
		return 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

// FrameRange is a half-open [Start, End) range of STFT frame indices.
type FrameRange struct {
	Start int
	End   int
}

// Span returns the number of frames in the range.
func (r FrameRange) Span() int {
	return r.End - r.Start
}

// FrameRangeForWindow selects the frame range covered by the current
// viewport. A window at least as wide as the audio selects the full
// range regardless of offset; otherwise the offset's position in the
// pixel timeline is converted to seconds and then to frame indices
// (floor for the start, ceil for the end), clamped, and widened by one
// frame if the conversion collapsed the range to empty.
func FrameRangeForWindow(visibleSeconds, pixelOffset float64, viewportWidth, totalFrames int, durationSeconds float64, sampleRate, hopSize int) FrameRange {
	if totalFrames <= 0 {
		return FrameRange{}
	}
	if visibleSeconds >= durationSeconds || visibleSeconds <= 0 || durationSeconds <= 0 {
		return FrameRange{Start: 0, End: totalFrames}
	}

	ppf := PixelsPerFrame(visibleSeconds, viewportWidth, hopSize, sampleRate)
	timeline := float64(totalFrames) * ppf
	if timeline <= 0 || hopSize <= 0 {
		return FrameRange{Start: 0, End: totalFrames}
	}

	startSeconds := pixelOffset / timeline * durationSeconds
	endSeconds := startSeconds + visibleSeconds

	start := int(math.Floor(startSeconds * float64(sampleRate) / float64(hopSize)))
	end := int(math.Ceil(endSeconds * float64(sampleRate) / float64(hopSize)))

	if start < 0 {
		start = 0
	}
	if start > totalFrames-1 {
		start = totalFrames - 1
	}
	if end > totalFrames {
		end = totalFrames
	}
	if end <= start {
		end = start + 1
	}
	return FrameRange{Start: start, End: end}
}

// RecenterOffset re-derives a pan offset after a zoom change so that the
// time position at the viewport's horizontal center stays centered.
// Without this, repeated zoom in/out visibly drifts the subject away
// from where the user was looking.
func RecenterOffset(oldOffset, oldPixelsPerFrame, newPixelsPerFrame float64, viewportWidth, totalFrames int) float64 {
	oldTimeline := float64(totalFrames) * oldPixelsPerFrame
	if oldTimeline <= 0 {
		return 0
	}

	centerFraction := (oldOffset + float64(viewportWidth)/2) / oldTimeline
	newTimeline := float64(totalFrames) * newPixelsPerFrame
	newOffset := centerFraction*newTimeline - float64(viewportWidth)/2

	return ClampOffset(newOffset, totalFrames, newPixelsPerFrame, viewportWidth)
}

// PixelToTimestamp maps a cursor column within a rendered raster back to
// the half-open time interval it covers, in seconds. The mapping uses
// the frame range that was actually rendered, not the full timeline, so
// readout stays accurate for a zoomed, partially rendered view.
func PixelToTimestamp(x, rasterWidth int, rendered FrameRange, hopSize, sampleRate int) (startSec, endSec float64) {
	if rasterWidth <= 0 || sampleRate <= 0 {
		return 0, 0
	}
	span := float64(rendered.Span())
	frameLo := float64(rendered.Start) + float64(x)/float64(rasterWidth)*span
	frameHi := float64(rendered.Start) + float64(x+1)/float64(rasterWidth)*span
	secPerFrame := float64(hopSize) / float64(sampleRate)
	return frameLo * secPerFrame, frameHi * secPerFrame
}

// PixelToFrequencyBand maps a cursor row within a rendered raster to the
// frequency band it covers, in Hz. Row 0 is the highest rendered bin.
func PixelToFrequencyBand(y, rasterHeight, cutoffBins int, binWidthHz float64) (lowHz, highHz float64) {
	if rasterHeight <= 0 || cutoffBins <= 0 {
		return 0, 0
	}
	bins := float64(cutoffBins)
	binHi := bins - float64(y)/float64(rasterHeight)*bins
	binLo := bins - float64(y+1)/float64(rasterHeight)*bins
	if binLo < 0 {
		binLo = 0
	}
	return binLo * binWidthHz, binHi * binWidthHz
}

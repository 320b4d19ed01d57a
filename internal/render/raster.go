// SPDX-License-Identifier: MIT
package render

import "image"

// Raster is a caller-owned RGBA pixel buffer the renderer fills in
// place, column by column. Ownership stays with the caller; the active
// render has exclusive write access until it completes or is cancelled.
type Raster struct {
	Width  int
	Height int
	Pix    []uint8 // RGBA, 4 bytes per pixel, row-major
}

// NewRaster allocates a zeroed raster. Unwritten pixels stay at the zero
// value (transparent black), which is how a cancelled render leaves its
// unrendered columns.
func NewRaster(width, height int) *Raster {
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, 4*width*height),
	}
}

// SetGray writes a grayscale intensity at (x, y): the value duplicated
// across R, G and B with full opacity.
func (r *Raster) SetGray(x, y int, v uint8) {
	i := 4 * (y*r.Width + x)
	r.Pix[i] = v
	r.Pix[i+1] = v
	r.Pix[i+2] = v
	r.Pix[i+3] = 0xFF
}

// Image wraps the raster's pixel buffer as an *image.RGBA without
// copying. Mutating the raster mutates the returned image.
func (r *Raster) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    r.Pix,
		Stride: 4 * r.Width,
		Rect:   image.Rect(0, 0, r.Width, r.Height),
	}
}

// Sink receives the raster at intermediate points during a render so a
// render-in-progress is visibly incremental. Flush is called from the
// render goroutine; implementations decide their own delivery and rate
// limiting.
type Sink interface {
	Flush(r *Raster, columnsDone int) error
}

// NopSink discards flushes.
type NopSink struct{}

// Flush implements Sink.
func (NopSink) Flush(*Raster, int) error { return nil }

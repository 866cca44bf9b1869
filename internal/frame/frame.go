// Package frame holds the host-side frame representation: the descriptor
// describing a frame's shape, the Frame owning a pixel buffer, and the
// fixed-size Pool frames are recycled through.
package frame

import "time"

// PixelFormat identifies the pixel layout of a converted frame.
type PixelFormat int

const (
	FormatUnknown PixelFormat = iota
	// FormatRGBA is interleaved 8-bit RGBA, 4 bytes per pixel.
	FormatRGBA
	// FormatRGB is interleaved 8-bit RGB, 3 bytes per pixel.
	FormatRGB
	// FormatUYVY is packed 4:2:2 YUV, 2 bytes per pixel.
	FormatUYVY
	// FormatYUY2 is packed 4:2:2 YUV with swapped ordering, 2 bytes per pixel.
	FormatYUY2
)

// String returns the conventional format name.
func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA:
		return "RGBA"
	case FormatRGB:
		return "RGB"
	case FormatUYVY:
		return "UYVY"
	case FormatYUY2:
		return "YUY2"
	default:
		return "unknown"
	}
}

// BytesPerPixel returns the per-pixel byte width of the format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatRGBA:
		return 4
	case FormatRGB:
		return 3
	case FormatUYVY, FormatYUY2:
		return 2
	default:
		return 0
	}
}

// Linesize returns the byte length of one row of width pixels in format f.
func Linesize(width int, f PixelFormat) int {
	return width * f.BytesPerPixel()
}

// Interlacing is fixed to progressive for screen capture.
type Interlacing int

const (
	Progressive Interlacing = iota
)

// Descriptor describes the shape of a frame. Two descriptors are equal iff
// all fields match; equality drives buffer reallocation decisions.
type Descriptor struct {
	Width       int
	Height      int
	FPS         float64
	Format      PixelFormat
	Interlacing Interlacing
	TileCount   int
}

// Equal reports field-wise equality.
func (d Descriptor) Equal(o Descriptor) bool {
	return d == o
}

// Linesize returns the byte length of one row of this descriptor.
func (d Descriptor) Linesize() int {
	return Linesize(d.Width, d.Format)
}

// DataLen returns the buffer size in bytes a frame of this shape needs.
func (d Descriptor) DataLen() int {
	return d.Linesize() * d.Height
}

// Tile is the per-tile view into a frame's buffer. Screen capture uses a
// single tile; the converter fills in the dimensions of the region it
// actually produced (the crop size may be smaller than the descriptor).
type Tile struct {
	Width   int
	Height  int
	DataLen int
	Data    []byte
}

// Frame owns one contiguous pixel buffer. Exactly one owner holds a Frame
// at any instant: the pool, the hand-off queue, the in-flight consumer
// slot, or the delivery callback currently filling it. Ownership moves,
// never copies.
type Frame struct {
	Desc Descriptor
	Data []byte
	Tile Tile

	// Seq is a monotonic sequence number stamped at delivery.
	Seq uint64
	// Timestamp is when the frame was converted.
	Timestamp time.Time
	// TraceID is a unique identifier for tracing a frame across the
	// pipeline.
	TraceID string
}

// New allocates a frame shaped to desc. A zero descriptor yields an empty
// frame whose buffer is allocated lazily on first Realloc.
func New(desc Descriptor) *Frame {
	f := &Frame{}
	f.Realloc(desc)
	return f
}

// Matches reports whether the frame's buffer is shaped to desc.
func (f *Frame) Matches(desc Descriptor) bool {
	return f.Desc.Equal(desc)
}

// Realloc reshapes the frame's buffer to desc, reusing the existing
// allocation when it is large enough.
func (f *Frame) Realloc(desc Descriptor) {
	need := desc.DataLen()
	if cap(f.Data) < need {
		f.Data = make([]byte, need)
	} else {
		f.Data = f.Data[:need]
	}
	f.Desc = desc
	f.Tile = Tile{
		Width:   desc.Width,
		Height:  desc.Height,
		DataLen: need,
		Data:    f.Data,
	}
}

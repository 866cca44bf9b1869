// Package convert turns raw buffers delivered by the capture service into
// pool frames: row-by-row copy with optional cropping, stride handling and
// red/blue channel reordering. All functions are pure transformations over
// the buffers they are given.
package convert

import (
	"fmt"

	"github.com/visiona/screengrab/internal/frame"
	"github.com/visiona/screengrab/internal/pw"
)

// CodecFor maps a raw service pixel format to the host frame format it
// converts into. BGRA/BGRx land in RGBA via channel reordering.
func CodecFor(f pw.RawPixelFormat) frame.PixelFormat {
	switch f {
	case pw.FormatRGBA, pw.FormatRGBx, pw.FormatBGRA, pw.FormatBGRx:
		return frame.FormatRGBA
	case pw.FormatRGB:
		return frame.FormatRGB
	case pw.FormatUYVY:
		return frame.FormatUYVY
	case pw.FormatYUY2:
		return frame.FormatYUY2
	default:
		return frame.FormatUnknown
	}
}

// SwapsRedBlue reports whether the source format carries red/blue swapped
// relative to the destination layout and needs per-pixel reordering.
func SwapsRedBlue(f pw.RawPixelFormat) bool {
	return f == pw.FormatBGRA || f == pw.FormatBGRx
}

// Blit copies the payload of src into dst's buffer, honoring the crop
// rectangle when present and valid. The caller must have shaped dst to the
// produced size beforehand (descriptor realloc); Blit fills dst.Tile with
// the dimensions it actually wrote.
//
// Stride policy: when the service reports a zero stride, it is derived as
// chunkSize/height of the full image. This silently misreads formats with
// vertical padding, but matches what the service's own consumers do.
func Blit(dst *frame.Frame, src *pw.RawBuffer, rawFmt pw.RawFormat, crop *pw.Region) error {
	offset := src.Chunk.Offset
	chunkSize := src.Chunk.Size
	stride := src.Chunk.Stride

	width := rawFmt.Size.Width
	height := rawFmt.Size.Height
	startX, startY := 0, 0
	if crop != nil && crop.Valid() {
		width = crop.Width
		height = crop.Height
		startX = crop.X
		startY = crop.Y
	}

	if stride == 0 {
		if rawFmt.Size.Height <= 0 {
			return fmt.Errorf("convert: cannot derive stride for %dx%d image",
				rawFmt.Size.Width, rawFmt.Size.Height)
		}
		stride = chunkSize / rawFmt.Size.Height
	}

	linesize := frame.Linesize(width, dst.Desc.Format)
	skip := frame.Linesize(startX, dst.Desc.Format)

	if need := linesize * height; len(dst.Data) < need {
		return fmt.Errorf("convert: destination buffer too small: %d < %d", len(dst.Data), need)
	}
	if last := offset + skip + stride*(startY+height-1) + linesize; last > len(src.Data) {
		return fmt.Errorf("convert: source buffer too small: %d < %d", len(src.Data), last)
	}

	swap := SwapsRedBlue(rawFmt.Format)
	for i := 0; i < height; i++ {
		srcRow := src.Data[offset+skip+stride*(i+startY):][:linesize]
		dstRow := dst.Data[linesize*i:][:linesize]
		if swap {
			copyRowSwapRB(dstRow, srcRow)
		} else {
			copy(dstRow, srcRow)
		}
	}

	dst.Tile = frame.Tile{
		Width:   width,
		Height:  height,
		DataLen: linesize * height,
		Data:    dst.Data[:linesize*height],
	}
	return nil
}

// copyRowSwapRB copies one row of 4-byte pixels swapping the red and blue
// channels: out[0]=in[2], out[1]=in[1], out[2]=in[0], out[3]=in[3].
func copyRowSwapRB(dst, src []byte) {
	for i := 0; i+3 < len(src) && i+3 < len(dst); i += 4 {
		dst[i+0] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i+0]
		dst[i+3] = src[i+3]
	}
}

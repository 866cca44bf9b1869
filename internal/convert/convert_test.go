package convert

import (
	"bytes"
	"testing"

	"github.com/visiona/screengrab/internal/frame"
	"github.com/visiona/screengrab/internal/pw"
)

func TestCodecFor(t *testing.T) {
	tests := []struct {
		name string
		raw  pw.RawPixelFormat
		want frame.PixelFormat
	}{
		{name: "RGBA", raw: pw.FormatRGBA, want: frame.FormatRGBA},
		{name: "RGBx", raw: pw.FormatRGBx, want: frame.FormatRGBA},
		{name: "BGRA", raw: pw.FormatBGRA, want: frame.FormatRGBA},
		{name: "BGRx", raw: pw.FormatBGRx, want: frame.FormatRGBA},
		{name: "RGB", raw: pw.FormatRGB, want: frame.FormatRGB},
		{name: "UYVY", raw: pw.FormatUYVY, want: frame.FormatUYVY},
		{name: "YUY2", raw: pw.FormatYUY2, want: frame.FormatYUY2},
		{name: "unknown", raw: pw.FormatUnknown, want: frame.FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodecFor(tt.raw); got != tt.want {
				t.Errorf("CodecFor(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSwapsRedBlue(t *testing.T) {
	swapped := map[pw.RawPixelFormat]bool{
		pw.FormatBGRA: true,
		pw.FormatBGRx: true,
	}
	all := []pw.RawPixelFormat{
		pw.FormatUYVY, pw.FormatRGB, pw.FormatRGBA, pw.FormatRGBx,
		pw.FormatYUY2, pw.FormatBGRA, pw.FormatBGRx,
	}
	for _, f := range all {
		if got := SwapsRedBlue(f); got != swapped[f] {
			t.Errorf("SwapsRedBlue(%v) = %v, want %v", f, got, swapped[f])
		}
	}
}

// rawBuf builds a w x h 4-byte-per-pixel source where each pixel encodes its
// own coordinates: [x, y, 0xAA, 0xFF]. Makes copy errors self-describing.
func rawBuf(w, h, stride int) *pw.RawBuffer {
	data := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*stride + x*4
			data[i+0] = byte(x)
			data[i+1] = byte(y)
			data[i+2] = 0xAA
			data[i+3] = 0xFF
		}
	}
	return &pw.RawBuffer{
		Data:  data,
		Chunk: pw.Chunk{Offset: 0, Size: len(data), Stride: stride},
	}
}

func rgbaFmt(w, h int) pw.RawFormat {
	return pw.RawFormat{
		MediaType:    pw.MediaTypeVideo,
		MediaSubtype: pw.MediaSubtypeRaw,
		Format:       pw.FormatRGBA,
		Size:         pw.Rectangle{Width: w, Height: h},
	}
}

func TestBlit_FullFrame(t *testing.T) {
	const w, h = 4, 3
	src := rawBuf(w, h, w*4)
	dst := frame.New(frame.Descriptor{Width: w, Height: h, Format: frame.FormatRGBA})

	if err := Blit(dst, src, rgbaFmt(w, h), nil); err != nil {
		t.Fatalf("Blit() error = %v", err)
	}
	if !bytes.Equal(dst.Data, src.Data) {
		t.Error("Blit() output differs from source for an unswapped full copy")
	}
	if dst.Tile.Width != w || dst.Tile.Height != h || dst.Tile.DataLen != w*h*4 {
		t.Errorf("Blit() tile = %dx%d/%d bytes, want %dx%d/%d",
			dst.Tile.Width, dst.Tile.Height, dst.Tile.DataLen, w, h, w*h*4)
	}
}

func TestBlit_SwapsRedBlue(t *testing.T) {
	const w, h = 2, 2
	src := rawBuf(w, h, w*4)
	fmtBGRA := rgbaFmt(w, h)
	fmtBGRA.Format = pw.FormatBGRA
	dst := frame.New(frame.Descriptor{Width: w, Height: h, Format: frame.FormatRGBA})

	if err := Blit(dst, src, fmtBGRA, nil); err != nil {
		t.Fatalf("Blit() error = %v", err)
	}

	// Source pixel (1,0) is [1, 0, 0xAA, 0xFF]; swapped it reads
	// [0xAA, 0, 1, 0xFF].
	got := dst.Data[4:8]
	want := []byte{0xAA, 0, 1, 0xFF}
	if !bytes.Equal(got, want) {
		t.Errorf("Blit() swapped pixel = %v, want %v", got, want)
	}
}

func TestBlit_Crop(t *testing.T) {
	const w, h = 8, 6
	src := rawBuf(w, h, w*4)
	crop := &pw.Region{X: 2, Y: 1, Width: 3, Height: 4}
	dst := frame.New(frame.Descriptor{Width: crop.Width, Height: crop.Height, Format: frame.FormatRGBA})

	if err := Blit(dst, src, rgbaFmt(w, h), crop); err != nil {
		t.Fatalf("Blit() error = %v", err)
	}

	// Output pixel (0,0) must be source pixel (crop.X, crop.Y).
	if dst.Data[0] != byte(crop.X) || dst.Data[1] != byte(crop.Y) {
		t.Errorf("Blit() pixel (0,0) = (%d,%d), want source (%d,%d)",
			dst.Data[0], dst.Data[1], crop.X, crop.Y)
	}
	// And the last pixel maps to the crop's far corner.
	last := dst.Tile.DataLen - 4
	wantX, wantY := crop.X+crop.Width-1, crop.Y+crop.Height-1
	if dst.Data[last] != byte(wantX) || dst.Data[last+1] != byte(wantY) {
		t.Errorf("Blit() last pixel = (%d,%d), want source (%d,%d)",
			dst.Data[last], dst.Data[last+1], wantX, wantY)
	}
	if dst.Tile.Width != crop.Width || dst.Tile.Height != crop.Height {
		t.Errorf("Blit() tile = %dx%d, want %dx%d",
			dst.Tile.Width, dst.Tile.Height, crop.Width, crop.Height)
	}
}

func TestBlit_InvalidCropIgnored(t *testing.T) {
	const w, h = 4, 2
	src := rawBuf(w, h, w*4)
	dst := frame.New(frame.Descriptor{Width: w, Height: h, Format: frame.FormatRGBA})

	// Zero-sized crop is invalid and falls back to the full frame.
	if err := Blit(dst, src, rgbaFmt(w, h), &pw.Region{}); err != nil {
		t.Fatalf("Blit() error = %v", err)
	}
	if dst.Tile.Width != w || dst.Tile.Height != h {
		t.Errorf("Blit() with invalid crop produced %dx%d, want full %dx%d",
			dst.Tile.Width, dst.Tile.Height, w, h)
	}
}

func TestBlit_DerivesStrideFromChunk(t *testing.T) {
	const w, h = 3, 4
	// Stride carries 4 bytes of per-row padding; the buffer reports it only
	// implicitly via chunk size.
	stride := w*4 + 4
	src := rawBuf(w, h, stride)
	src.Chunk.Stride = 0

	dst := frame.New(frame.Descriptor{Width: w, Height: h, Format: frame.FormatRGBA})
	if err := Blit(dst, src, rgbaFmt(w, h), nil); err != nil {
		t.Fatalf("Blit() error = %v", err)
	}

	// Row 2, pixel 1 must still land at the right place.
	i := 2*w*4 + 4
	if dst.Data[i] != 1 || dst.Data[i+1] != 2 {
		t.Errorf("Blit() pixel (1,2) = (%d,%d), want (1,2)", dst.Data[i], dst.Data[i+1])
	}
}

func TestBlit_BufferTooSmall(t *testing.T) {
	const w, h = 4, 4
	src := rawBuf(w, h, w*4)

	dst := frame.New(frame.Descriptor{Width: 2, Height: 2, Format: frame.FormatRGBA})
	if err := Blit(dst, src, rgbaFmt(w, h), nil); err == nil {
		t.Error("Blit() with undersized destination succeeded, want error")
	}

	short := &pw.RawBuffer{
		Data:  make([]byte, w*4), // one row only
		Chunk: pw.Chunk{Size: w * 4, Stride: w * 4},
	}
	dst = frame.New(frame.Descriptor{Width: w, Height: h, Format: frame.FormatRGBA})
	if err := Blit(dst, short, rgbaFmt(w, h), nil); err == nil {
		t.Error("Blit() with undersized source succeeded, want error")
	}
}

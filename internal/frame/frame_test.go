package frame

import "testing"

func TestPixelFormat_BytesPerPixel(t *testing.T) {
	tests := []struct {
		name   string
		format PixelFormat
		want   int
	}{
		{name: "RGBA", format: FormatRGBA, want: 4},
		{name: "RGB", format: FormatRGB, want: 3},
		{name: "UYVY", format: FormatUYVY, want: 2},
		{name: "YUY2", format: FormatYUY2, want: 2},
		{name: "unknown", format: FormatUnknown, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.BytesPerPixel(); got != tt.want {
				t.Errorf("BytesPerPixel() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDescriptor_Equal(t *testing.T) {
	base := Descriptor{
		Width:       1920,
		Height:      1080,
		FPS:         30,
		Format:      FormatRGBA,
		Interlacing: Progressive,
		TileCount:   1,
	}

	tests := []struct {
		name  string
		other Descriptor
		want  bool
	}{
		{name: "identical", other: base, want: true},
		{name: "different width", other: func() Descriptor { d := base; d.Width = 1280; return d }(), want: false},
		{name: "different height", other: func() Descriptor { d := base; d.Height = 720; return d }(), want: false},
		{name: "different fps", other: func() Descriptor { d := base; d.FPS = 60; return d }(), want: false},
		{name: "different format", other: func() Descriptor { d := base; d.Format = FormatRGB; return d }(), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Equal(tt.other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDescriptor_DataLen(t *testing.T) {
	d := Descriptor{Width: 1280, Height: 720, Format: FormatRGBA}
	if got, want := d.Linesize(), 1280*4; got != want {
		t.Errorf("Linesize() = %d, want %d", got, want)
	}
	if got, want := d.DataLen(), 1280*4*720; got != want {
		t.Errorf("DataLen() = %d, want %d", got, want)
	}
}

func TestFrame_Realloc(t *testing.T) {
	big := Descriptor{Width: 1920, Height: 1080, Format: FormatRGBA}
	small := Descriptor{Width: 1280, Height: 720, Format: FormatRGBA}

	f := New(big)
	if len(f.Data) != big.DataLen() {
		t.Fatalf("New() buffer len = %d, want %d", len(f.Data), big.DataLen())
	}
	if !f.Matches(big) {
		t.Fatal("New() frame does not match its descriptor")
	}

	// Shrinking reuses the allocation.
	before := cap(f.Data)
	f.Realloc(small)
	if !f.Matches(small) {
		t.Fatal("Realloc() frame does not match new descriptor")
	}
	if len(f.Data) != small.DataLen() {
		t.Errorf("Realloc() buffer len = %d, want %d", len(f.Data), small.DataLen())
	}
	if cap(f.Data) != before {
		t.Errorf("Realloc() to smaller shape reallocated: cap %d -> %d", before, cap(f.Data))
	}

	// Growing past the capacity allocates.
	f.Realloc(big)
	if len(f.Data) != big.DataLen() {
		t.Errorf("Realloc() buffer len = %d, want %d", len(f.Data), big.DataLen())
	}
	if f.Tile.Width != big.Width || f.Tile.Height != big.Height {
		t.Errorf("Realloc() tile = %dx%d, want %dx%d",
			f.Tile.Width, f.Tile.Height, big.Width, big.Height)
	}
}

func TestFrame_ZeroDescriptor(t *testing.T) {
	f := New(Descriptor{})
	if len(f.Data) != 0 {
		t.Errorf("New(zero) buffer len = %d, want 0", len(f.Data))
	}
	d := Descriptor{Width: 4, Height: 4, Format: FormatRGB}
	f.Realloc(d)
	if len(f.Data) != d.DataLen() {
		t.Errorf("Realloc() after zero descriptor: len = %d, want %d", len(f.Data), d.DataLen())
	}
}

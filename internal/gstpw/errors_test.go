package gstpw

import (
	"testing"

	"github.com/visiona/screengrab/internal/pw"
)

func pwCapabilities() pw.Capabilities {
	return pw.Capabilities{
		Formats:     []pw.RawPixelFormat{pw.FormatRGBA, pw.FormatBGRx},
		SizeMin:     pw.Rectangle{Width: 1, Height: 1},
		SizeMax:     pw.Rectangle{Width: 3840, Height: 2160},
		SizeDefault: pw.Rectangle{Width: 1920, Height: 1080},
		RateMin:     pw.Fraction{Num: 0, Denom: 1},
		RateMax:     pw.Fraction{Num: 600, Denom: 1},
		RateDefault: pw.Fraction{Num: 30, Denom: 1},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		errMsg string
		debug  string
		want   Category
	}{
		{
			name:   "portal permission denied",
			errMsg: "Could not open portal session",
			want:   CategoryPermission,
		},
		{
			name:   "user cancelled dialog",
			errMsg: "Selection cancelled by user",
			want:   CategoryPermission,
		},
		{
			name:   "access denied in debug text",
			errMsg: "Internal error",
			debug:  "pipewiresrc0: access denied connecting to node 42",
			want:   CategoryPermission,
		},
		{
			name:   "caps negotiation failure",
			errMsg: "Could not negotiate format",
			want:   CategoryNegotiation,
		},
		{
			name:   "not-negotiated flow",
			errMsg: "streaming stopped, reason not-negotiated (-4)",
			want:   CategoryNegotiation,
		},
		{
			name:   "pipewire node vanished",
			errMsg: "PipeWire node removed",
			want:   CategoryPipeline,
		},
		{
			name:   "internal data stream error",
			errMsg: "Internal data stream error",
			want:   CategoryPipeline,
		},
		{
			name:   "unknown error",
			errMsg: "something odd happened",
			want:   CategoryUnknown,
		},
		{
			name: "empty message",
			want: CategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.errMsg, tt.debug); got != tt.want {
				t.Errorf("Classify(%q, %q) = %v, want %v", tt.errMsg, tt.debug, got, tt.want)
			}
		})
	}
}

func TestCategory_String(t *testing.T) {
	tests := []struct {
		cat  Category
		want string
	}{
		{CategoryPermission, "permission"},
		{CategoryNegotiation, "negotiation"},
		{CategoryPipeline, "pipeline"},
		{CategoryUnknown, "unknown"},
		{Category(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.cat.String(); got != tt.want {
			t.Errorf("Category(%d).String() = %q, want %q", tt.cat, got, tt.want)
		}
	}
}

func TestBuildCapsString(t *testing.T) {
	caps := pwCapabilities()
	got := buildCapsString(caps)

	want := "video/x-raw,format={ RGBA, BGRx },width=[ 1, 3840 ],height=[ 1, 2160 ],framerate=[ 0/1, 600/1 ]"
	if got != want {
		t.Errorf("buildCapsString() = %q, want %q", got, want)
	}
}

func TestParseFraction(t *testing.T) {
	tests := []struct {
		in        string
		num       int
		denom     int
		wantValid bool
	}{
		{in: "30/1", num: 30, denom: 1, wantValid: true},
		{in: "30000/1001", num: 30000, denom: 1001, wantValid: true},
		{in: " 60 / 1 ", num: 60, denom: 1, wantValid: true},
		{in: "0/1", num: 0, denom: 1, wantValid: true},
		{in: "30", wantValid: false},
		{in: "a/b", wantValid: false},
		{in: "1/0", wantValid: false},
		{in: "", wantValid: false},
	}
	for _, tt := range tests {
		num, denom, ok := parseFraction(tt.in)
		if ok != tt.wantValid {
			t.Errorf("parseFraction(%q) ok = %v, want %v", tt.in, ok, tt.wantValid)
			continue
		}
		if ok && (num != tt.num || denom != tt.denom) {
			t.Errorf("parseFraction(%q) = %d/%d, want %d/%d", tt.in, num, denom, tt.num, tt.denom)
		}
	}
}

func TestFormatFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "UYVY", want: "UYVY"},
		{name: "RGB", want: "RGB"},
		{name: "RGBA", want: "RGBA"},
		{name: "RGBx", want: "RGBx"},
		{name: "YUY2", want: "YUY2"},
		{name: "BGRA", want: "BGRA"},
		{name: "BGRx", want: "BGRx"},
	}
	for _, tt := range tests {
		if got := formatFromName(tt.name); got.String() != tt.want {
			t.Errorf("formatFromName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
	if got := formatFromName("NV12"); got.String() != "unknown" {
		t.Errorf("formatFromName(NV12) = %v, want unknown", got)
	}
}

package gstpw

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/visiona/screengrab/internal/pw"
)

// defaultSinkDepth is the appsink queue depth used until the session
// accepts buffer parameters.
const defaultSinkDepth = 4

// buildCapsString renders the advertised capability set as a GStreamer
// caps string: a format list plus size and framerate ranges. The service
// picks the concrete format from this set.
func buildCapsString(c pw.Capabilities) string {
	names := make([]string, 0, len(c.Formats))
	for _, f := range c.Formats {
		names = append(names, f.String())
	}

	return fmt.Sprintf(
		"video/x-raw,format={ %s },width=[ %d, %d ],height=[ %d, %d ],framerate=[ %d/%d, %d/%d ]",
		strings.Join(names, ", "),
		c.SizeMin.Width, c.SizeMax.Width,
		c.SizeMin.Height, c.SizeMax.Height,
		c.RateMin.Num, max(c.RateMin.Denom, 1),
		c.RateMax.Num, max(c.RateMax.Denom, 1),
	)
}

// parseCaps extracts the negotiated raw format from sample caps.
// Returns ok=false when the caps carry no parseable video structure;
// media-type validation itself is the format handler's job.
func parseCaps(caps *gst.Caps) (pw.RawFormat, bool) {
	structure := caps.GetStructureAt(0)
	if structure == nil {
		return pw.RawFormat{}, false
	}

	f := pw.RawFormat{
		MediaType:    pw.MediaTypeUnknown,
		MediaSubtype: pw.MediaSubtypeUnknown,
	}
	switch structure.Name() {
	case "video/x-raw":
		f.MediaType = pw.MediaTypeVideo
		f.MediaSubtype = pw.MediaSubtypeRaw
	case "image/jpeg":
		f.MediaType = pw.MediaTypeVideo
		f.MediaSubtype = pw.MediaSubtypeMJPEG
	}

	if v, err := structure.GetValue("format"); err == nil {
		if name, ok := v.(string); ok {
			f.Format = formatFromName(name)
		}
	}
	if v, err := structure.GetValue("width"); err == nil {
		if w, ok := v.(int); ok {
			f.Size.Width = w
		}
	}
	if v, err := structure.GetValue("height"); err == nil {
		if h, ok := v.(int); ok {
			f.Size.Height = h
		}
	}
	if v, err := structure.GetValue("framerate"); err == nil {
		// The framerate GValue is a GstFraction; render and parse it
		// rather than depending on the binding's concrete type.
		if num, denom, ok := parseFraction(fmt.Sprintf("%v", v)); ok {
			f.Framerate = pw.Fraction{Num: num, Denom: denom}
		}
	}

	if f.Size.Width == 0 || f.Size.Height == 0 {
		return pw.RawFormat{}, false
	}
	return f, true
}

// parseFraction parses a "num/denom" rendering of a GstFraction.
func parseFraction(s string) (num, denom int, ok bool) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	d, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || d == 0 {
		return 0, 0, false
	}
	return n, d, true
}

// formatFromName maps a GStreamer video format name to the contract's
// pixel format tag.
func formatFromName(name string) pw.RawPixelFormat {
	switch name {
	case "UYVY":
		return pw.FormatUYVY
	case "RGB":
		return pw.FormatRGB
	case "RGBA":
		return pw.FormatRGBA
	case "RGBx":
		return pw.FormatRGBx
	case "YUY2":
		return pw.FormatYUY2
	case "BGRA":
		return pw.FormatBGRA
	case "BGRx":
		return pw.FormatBGRx
	default:
		return pw.FormatUnknown
	}
}

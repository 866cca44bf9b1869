package screengrab

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrHelpRequested is returned by ParseOptions when the option string asks
// for usage help. Callers should print Usage() and exit without treating it
// as a failure.
var ErrHelpRequested = errors.New("screengrab: help requested")

// Options control a capture session.
type Options struct {
	// ShowCursor asks the compositor to paint the cursor into the stream.
	ShowCursor bool
	// Crop honors the compositor's crop metadata. When false, frames keep
	// the full negotiated size.
	Crop bool
	// FPS is the preferred framerate offered during negotiation. Zero
	// lets the stream pick.
	FPS uint32
	// RestoreFile persists the portal restore token between sessions so
	// the source-selection dialog is skipped on repeat runs.
	RestoreFile string
}

// DefaultOptions returns the baseline option set: cropping on, cursor
// hidden, framerate negotiated by the stream.
func DefaultOptions() Options {
	return Options{Crop: true}
}

// ParseOptions parses a colon-separated option string such as
// "cursor:fps=30:restore=/tmp/token" on top of DefaultOptions.
// An empty string yields the defaults. Unknown options are an error.
func ParseOptions(s string) (Options, error) {
	opts := DefaultOptions()
	if s == "" {
		return opts, nil
	}

	for _, tok := range strings.Split(s, ":") {
		key, val, hasVal := strings.Cut(tok, "=")
		switch {
		case key == "help":
			return opts, ErrHelpRequested
		case key == "cursor":
			opts.ShowCursor = true
		case key == "nocrop":
			opts.Crop = false
		case (key == "fps" || key == "FPS") && hasVal:
			fps, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return opts, fmt.Errorf("screengrab: invalid fps value %q: %w", val, err)
			}
			opts.FPS = uint32(fps)
		case key == "restore" && hasVal:
			opts.RestoreFile = val
		default:
			return opts, fmt.Errorf("screengrab: unknown option %q", tok)
		}
	}
	return opts, nil
}

// Usage returns the option string help text.
func Usage() string {
	return `screen capture options (colon separated):
  cursor          paint the cursor into captured frames
  nocrop          ignore compositor crop metadata
  fps=<n>         preferred framerate (default: negotiated)
  restore=<path>  persist the portal restore token at <path>
  help            show this help`
}

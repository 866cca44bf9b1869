package gstpw

import "strings"

// Category classifies stream-level errors for telemetry. A permission
// failure means re-running target selection may help; a negotiation
// failure points at the advertised capability set; pipeline failures are
// runtime faults in the capture graph.
type Category int

const (
	CategoryPermission Category = iota
	CategoryNegotiation
	CategoryPipeline
	CategoryUnknown
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryPermission:
		return "permission"
	case CategoryNegotiation:
		return "negotiation"
	case CategoryPipeline:
		return "pipeline"
	case CategoryUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Classify categorizes a stream error from its message and debug text.
// go-gst's GError does not expose the error domain, so classification is
// keyword-based.
func Classify(errMsg, debugStr string) Category {
	combined := strings.ToLower(errMsg + " " + debugStr)

	if containsAny(combined,
		"permission",
		"denied",
		"not authorized",
		"access",
		"portal",
		"cancelled by user",
	) {
		return CategoryPermission
	}

	if containsAny(combined,
		"negotiat",
		"caps",
		"format",
		"no common",
		"not-negotiated",
	) {
		return CategoryNegotiation
	}

	if containsAny(combined,
		"pipewire",
		"stream",
		"internal data",
		"flow error",
		"disconnected",
		"node",
	) {
		return CategoryPipeline
	}

	return CategoryUnknown
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

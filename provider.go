package screengrab

import "github.com/visiona/screengrab/internal/pw"

// Service is the low-level stream contract implemented by the PipeWire
// backend. The session owns the only production implementation; the alias
// exists so callers can inject a fake for tests or an alternative backend.
//
// Implementations must guarantee:
//   - Connect() installs the handler set before any callback can fire
//   - callbacks are invoked from a single event-loop thread
//   - no callback fires after Disconnect() returns
//   - QueueBuffer() returns every buffer obtained via DequeueBuffer()
type Service = pw.Service

// Handlers bundles the callbacks a Service drives. Nil entries are skipped.
type Handlers = pw.Handlers

// Target identifies what to connect to: a PipeWire node and, for portal
// sessions, the file descriptor of the portal-opened remote.
type Target = pw.Target

// RawBuffer is one buffer delivered by the stream before conversion.
type RawBuffer = pw.RawBuffer

// RawFormat is the negotiated raw video format.
type RawFormat = pw.RawFormat

// BufferParams are the buffer-pool parameters announced after format
// negotiation.
type BufferParams = pw.BufferParams

// Capabilities declares what formats, sizes and rates the consumer accepts.
type Capabilities = pw.Capabilities

// StreamState is the connection state reported by the service.
type StreamState = pw.StreamState

// Region is a crop rectangle in source pixel coordinates.
type Region = pw.Region

// Fraction is a rational number, used for framerates.
type Fraction = pw.Fraction

// Rectangle is a width/height pair.
type Rectangle = pw.Rectangle

// Chunk describes the payload layout inside a RawBuffer.
type Chunk = pw.Chunk

// RawPixelFormat identifies the wire pixel layout before conversion.
type RawPixelFormat = pw.RawPixelFormat

// Re-exported stream states.
const (
	StateUnconnected = pw.StateUnconnected
	StateConnecting  = pw.StateConnecting
	StateNegotiating = pw.StateNegotiating
	StateStreaming   = pw.StateStreaming
	StateError       = pw.StateError
	StateStopped     = pw.StateStopped
)

// Re-exported raw pixel formats.
const (
	RawUYVY = pw.FormatUYVY
	RawRGB  = pw.FormatRGB
	RawRGBA = pw.FormatRGBA
	RawRGBx = pw.FormatRGBx
	RawYUY2 = pw.FormatYUY2
	RawBGRA = pw.FormatBGRA
	RawBGRx = pw.FormatBGRx
)

// TargetSelector resolves the capture target, typically by walking the user
// through the desktop portal's source-selection dialog.
type TargetSelector interface {
	// Select returns the target to capture. restorePath, when non-empty,
	// names a file used to persist the portal restore token so repeat
	// sessions skip the dialog. showCursor asks for the cursor to be
	// painted into the stream.
	Select(restorePath string, showCursor bool) (Target, error)
}

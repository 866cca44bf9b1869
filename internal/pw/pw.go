// Package pw defines the contract between the capture session and the
// external screen-cast service (PipeWire, or a test double).
//
// The service owns its own event loop on a dedicated thread and invokes the
// registered Handlers from that thread. Handlers must never block: shared
// state is reached only through the session's pool and hand-off queue, which
// carry their own synchronization.
package pw

// StreamState models the lifecycle of a capture stream.
type StreamState int

const (
	// StateUnconnected is the initial state before Connect.
	StateUnconnected StreamState = iota
	// StateConnecting means the service is establishing the stream.
	StateConnecting
	// StateNegotiating means a format proposal is pending acceptance.
	StateNegotiating
	// StateStreaming means buffers are being delivered.
	StateStreaming
	// StateError means the service reported a stream-level error.
	StateError
	// StateStopped means the stream was shut down.
	StateStopped
)

// String returns a human-readable state name.
func (s StreamState) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateNegotiating:
		return "negotiating"
	case StateStreaming:
		return "streaming"
	case StateError:
		return "error"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// RawPixelFormat identifies the pixel layout of buffers as delivered by the
// service, before any conversion on our side.
type RawPixelFormat int

const (
	FormatUnknown RawPixelFormat = iota
	FormatUYVY
	FormatRGB
	FormatRGBA
	FormatRGBx
	FormatYUY2
	FormatBGRA
	FormatBGRx
)

// String returns the conventional format name.
func (f RawPixelFormat) String() string {
	switch f {
	case FormatUYVY:
		return "UYVY"
	case FormatRGB:
		return "RGB"
	case FormatRGBA:
		return "RGBA"
	case FormatRGBx:
		return "RGBx"
	case FormatYUY2:
		return "YUY2"
	case FormatBGRA:
		return "BGRA"
	case FormatBGRx:
		return "BGRx"
	default:
		return "unknown"
	}
}

// MediaType is the negotiated media class.
type MediaType int

const (
	MediaTypeUnknown MediaType = iota
	MediaTypeVideo
	MediaTypeAudio
)

// MediaSubtype is the negotiated media encoding class.
type MediaSubtype int

const (
	MediaSubtypeUnknown MediaSubtype = iota
	MediaSubtypeRaw
	MediaSubtypeMJPEG
)

// Fraction is a rational number, used for frame rates.
type Fraction struct {
	Num   int
	Denom int
}

// Rectangle is a width/height pair in pixels.
type Rectangle struct {
	Width  int
	Height int
}

// Region is a crop rectangle within a source image.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Valid reports whether the region describes a usable crop rectangle.
// Bounds against the source image are checked by the converter.
func (r Region) Valid() bool {
	return r.X >= 0 && r.Y >= 0 && r.Width > 0 && r.Height > 0
}

// RawFormat describes the format the service negotiated for the stream.
type RawFormat struct {
	MediaType    MediaType
	MediaSubtype MediaSubtype
	Format       RawPixelFormat
	Size         Rectangle
	// Framerate is the fixed negotiated rate; Num==0 means variable rate.
	Framerate Fraction
	// MaxFramerate is the upper bound reported for variable-rate streams.
	MaxFramerate Fraction
}

// Chunk carries the layout of a delivered buffer's payload.
type Chunk struct {
	Offset int
	Size   int
	// Stride in bytes per row; 0 means the service did not report one.
	Stride int
}

// RawBuffer is a single buffer delivered by the service. Ownership stays
// with the service: the session must return it via Service.QueueBuffer on
// every path, including early exits, or the service stalls.
type RawBuffer struct {
	Data  []byte
	Chunk Chunk
	// Crop is the video-crop metadata attached to the buffer, if any.
	Crop *Region
}

// BufferParams is the session's reply to a format proposal: the buffer
// shape it is prepared to accept.
type BufferParams struct {
	Buffers    int
	MinBuffers int
	MaxBuffers int
	Blocks     int
	Size       int
	Stride     int
	// WithCropMeta requests video-crop metadata support on buffers.
	WithCropMeta bool
}

// Capabilities is the capability set advertised to the service before
// negotiation. The service picks the concrete format.
type Capabilities struct {
	Formats     []RawPixelFormat
	SizeDefault Rectangle
	SizeMin     Rectangle
	SizeMax     Rectangle
	RateDefault Fraction
	RateMin     Fraction
	RateMax     Fraction
}

// Target identifies what to capture: a PipeWire remote and a node on it.
type Target struct {
	// FD is the file descriptor of the PipeWire remote obtained from the
	// desktop portal, or -1 to connect to the default daemon.
	FD int
	// Node is the id of the stream node to capture.
	Node uint32
}

// Handlers is the callback surface invoked from the service's event loop.
// Any handler may be nil.
type Handlers struct {
	// StateChanged reports a stream state transition. errMsg is non-empty
	// when the service attached an error description; it is informational
	// and does not imply the stream stopped.
	StateChanged func(old, next StreamState, errMsg string)
	// FormatChanged reports the format the service selected. It may fire
	// again on renegotiation.
	FormatChanged func(f RawFormat)
	// Process signals that one or more buffers are ready to dequeue.
	Process func()
	// AddBuffer and RemoveBuffer report buffer lifecycle on the service
	// side. Informational only.
	AddBuffer    func()
	RemoveBuffer func()
	// Drained signals the service flushed all pending buffers.
	Drained func()
}

// Service is the capture-side interface the session consumes.
//
// Implementations run their own event loop and call Handlers from it.
// Disconnect must stop that loop before releasing stream resources, so
// that no handler fires on partially destroyed state; after Disconnect
// returns, no handler is invoked again.
type Service interface {
	// Connect establishes the stream to target, advertising caps, and
	// registers h. Returns an error if the connection cannot be made.
	Connect(target Target, caps Capabilities, h Handlers) error

	// UpdateParams accepts a negotiated format by declaring the buffer
	// parameters the session will consume.
	UpdateParams(p BufferParams) error

	// DequeueBuffer returns the next delivered buffer, or nil when none
	// is pending. Called from the Process handler.
	DequeueBuffer() *RawBuffer

	// QueueBuffer returns ownership of b to the service. Mandatory for
	// every dequeued buffer, on error paths included.
	QueueBuffer(b *RawBuffer)

	// Disconnect stops the event loop, then tears down the stream, in
	// that order. Idempotent.
	Disconnect() error
}

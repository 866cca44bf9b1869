package screengrab

import (
	"time"

	"github.com/visiona/screengrab/internal/frame"
)

// Frame is a captured video frame. The frame returned by Grab stays valid
// until the next Grab call, which recycles it into the session's pool.
type Frame = frame.Frame

// Descriptor describes a frame's shape. Two descriptors are equal iff all
// fields match; equality drives buffer reallocation.
type Descriptor = frame.Descriptor

// PixelFormat identifies the pixel layout of converted frames.
type PixelFormat = frame.PixelFormat

// Tile is the per-tile view into a frame's buffer.
type Tile = frame.Tile

// Re-exported frame pixel formats.
const (
	FormatRGBA = frame.FormatRGBA
	FormatRGB  = frame.FormatRGB
	FormatUYVY = frame.FormatUYVY
	FormatYUY2 = frame.FormatYUY2
)

// DeviceInfo describes a discoverable capture device.
type DeviceInfo struct {
	// Name is the display name shown to the user.
	Name string
	// Dev is the device parameter string; empty, since screen capture
	// requires no parameters.
	Dev string
}

// RecoveryPolicy selects what the session does when the service reports a
// stream-level error.
type RecoveryPolicy int

const (
	// RecoverNone logs stream errors and leaves recovery to the caller.
	RecoverNone RecoveryPolicy = iota
	// RecoverReconnect tears the stream down and reconnects with
	// exponential backoff, bounded by the default retry budget.
	RecoverReconnect
)

// Stats is a snapshot of session counters. All values are cumulative since
// Init.
type Stats struct {
	// FramesCaptured counts buffers successfully converted and queued.
	FramesCaptured uint64
	// FramesGrabbed counts frames handed to the consumer via Grab.
	FramesGrabbed uint64
	// PoolDrops counts deliveries dropped because no pool frame was free.
	PoolDrops uint64
	// EmptyBuffers counts deliveries discarded for carrying no payload.
	EmptyBuffers uint64
	// QueueDrops counts frames evicted from the hand-off queue because
	// the consumer fell behind.
	QueueDrops uint64
	// Reallocs counts frame buffer reallocations after shape changes.
	Reallocs uint64
	// BytesCopied is the total pixel bytes converted.
	BytesCopied uint64
	// Reconnects counts automatic stream recoveries.
	Reconnects uint32
	// HandlerCalls counts accepted capture-handler invocations. It stops
	// moving once Done has frozen the handler surface.
	HandlerCalls uint64

	// State is the last observed stream state.
	State StreamState
	// Descriptor is the current negotiated frame shape.
	Descriptor Descriptor
	// Uptime is the time since Init.
	Uptime time.Duration
}

// Package capture implements the event handlers driven by the external
// screen-cast service's event loop: stream-state logging, format
// negotiation replies and the per-buffer delivery hot path that feeds the
// frame pool and hand-off queue.
package capture

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/visiona/screengrab/internal/convert"
	"github.com/visiona/screengrab/internal/frame"
	"github.com/visiona/screengrab/internal/pw"
	"github.com/visiona/screengrab/internal/queue"
)

const (
	// DefaultBuffers is the buffer count proposed to the service.
	DefaultBuffers = 2
	// MinBuffers and MaxBuffers bound the service's buffer allocation.
	MinBuffers = 2
	MaxBuffers = 10
	// DefaultFPS is used when the negotiated rate fields are both absent.
	DefaultFPS = 60
)

// Options are the user-configured capture options the handlers act on.
type Options struct {
	// ShowCursor makes the cursor visible in captured frames.
	ShowCursor bool
	// Crop applies the service's crop metadata to strip padding when
	// capturing a window.
	Crop bool
	// FPS is the preferred rate hint passed to the service; 0 means the
	// session default. The service may ignore it.
	FPS uint32
	// RestoreFile is the path of the target restore token, if any.
	RestoreFile string
}

// Context holds the state shared by the handlers of one capture session.
// All handlers run on the service's event-loop thread; the pool and queue
// carry their own synchronization, the descriptor and negotiated format
// are guarded by mu because Snapshot reads them from the consumer side.
type Context struct {
	Pool  *frame.Pool
	Queue *queue.Queue
	Opts  Options

	mu   sync.Mutex
	desc frame.Descriptor
	raw  pw.RawFormat

	state atomic.Int32 // pw.StreamState

	// Counters, all atomic. Delivered counts successful conversions and
	// doubles as the frame sequence number.
	Delivered    atomic.Uint64
	PoolDrops    atomic.Uint64
	EmptyBuffers atomic.Uint64
	QueueDrops   atomic.Uint64
	Reallocs     atomic.Uint64
	BytesCopied  atomic.Uint64

	// Invocations counts every accepted handler entry; Stop freezes it.
	Invocations atomic.Uint64

	// stopped rejects handler invocations after teardown began; the
	// service's loop stop already guarantees none arrive, this guards
	// against a misbehaving service firing late.
	stopped atomic.Bool
}

// NewContext creates handler state over the given pool and queue.
func NewContext(pool *frame.Pool, q *queue.Queue, opts Options) *Context {
	c := &Context{Pool: pool, Queue: q, Opts: opts}
	c.state.Store(int32(pw.StateUnconnected))
	return c
}

// Handlers bundles the context's methods into the callback surface the
// service expects, binding svc for buffer and param traffic.
func (c *Context) Handlers(svc pw.Service) pw.Handlers {
	return pw.Handlers{
		StateChanged:  c.OnStateChanged,
		FormatChanged: func(f pw.RawFormat) { c.OnFormatChanged(svc, f) },
		Process:       func() { c.OnProcess(svc) },
		AddBuffer:     c.OnAddBuffer,
		RemoveBuffer:  c.OnRemoveBuffer,
		Drained:       c.OnDrained,
	}
}

// Stop freezes the handler surface: every subsequent handler invocation
// is rejected and the invocation counter stops moving. Called at session
// teardown once the service's event loop is stopped.
func (c *Context) Stop() {
	c.stopped.Store(true)
}

// State returns the last observed stream state.
func (c *Context) State() pw.StreamState {
	return pw.StreamState(c.state.Load())
}

// Snapshot returns the current descriptor and negotiated raw format.
// Safe to call from the consumer thread.
func (c *Context) Snapshot() (frame.Descriptor, pw.RawFormat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.desc, c.raw
}

// OnStateChanged logs stream transitions. An attached error string is
// surfaced as a warning; it does not tear the session down, recovery is
// the owning lifecycle's concern.
func (c *Context) OnStateChanged(old, next pw.StreamState, errMsg string) {
	if c.stopped.Load() {
		return
	}
	c.Invocations.Add(1)
	c.state.Store(int32(next))

	slog.Info("screengrab: stream state changed", "from", old.String(), "to", next.String())
	if errMsg != "" {
		slog.Warn("screengrab: stream error", "error", errMsg)
	}
}

// OnFormatChanged validates the format the service selected and, on
// success, updates the frame descriptor and replies with the buffer
// parameters the session accepts. A mismatched media type or an unusable
// pixel format is a non-fatal early return: the proposal is dropped and
// the pipeline keeps its previous descriptor.
func (c *Context) OnFormatChanged(svc pw.Service, f pw.RawFormat) {
	if c.stopped.Load() {
		return
	}
	c.Invocations.Add(1)

	if f.MediaType != pw.MediaTypeVideo || f.MediaSubtype != pw.MediaSubtypeRaw {
		slog.Error("screengrab: negotiated format is not video/raw",
			"media_type", f.MediaType, "media_subtype", f.MediaSubtype)
		return
	}

	codec := convert.CodecFor(f.Format)
	if codec == frame.FormatUnknown {
		slog.Error("screengrab: unsupported pixel format", "format", f.Format.String())
		return
	}

	fps := float64(DefaultFPS)
	switch {
	case f.Framerate.Num != 0:
		fps = float64(f.Framerate.Num) / float64(f.Framerate.Denom)
		slog.Info("screengrab: negotiated framerate",
			"num", f.Framerate.Num, "denom", f.Framerate.Denom)
	case f.MaxFramerate.Num != 0:
		// Variable rate: the max is the best available estimate.
		fps = float64(f.MaxFramerate.Num) / float64(f.MaxFramerate.Denom)
		slog.Info("screengrab: variable framerate, using max",
			"num", f.MaxFramerate.Num, "denom", f.MaxFramerate.Denom)
	default:
		slog.Warn("screengrab: no usable framerate in proposal, using default", "fps", fps)
	}

	desc := frame.Descriptor{
		Width:       f.Size.Width,
		Height:      f.Size.Height,
		FPS:         fps,
		Format:      codec,
		Interlacing: frame.Progressive,
		TileCount:   1,
	}

	c.mu.Lock()
	c.desc = desc
	c.raw = f
	c.mu.Unlock()

	linesize := desc.Linesize()
	size := linesize * desc.Height

	slog.Info("screengrab: format negotiated",
		"format", f.Format.String(),
		"size", f.Size,
		"fps", fps,
		"buffer_bytes", size,
	)

	params := pw.BufferParams{
		Buffers:      DefaultBuffers,
		MinBuffers:   MinBuffers,
		MaxBuffers:   MaxBuffers,
		Blocks:       1,
		Size:         size,
		Stride:       linesize,
		WithCropMeta: c.Opts.Crop,
	}
	if err := svc.UpdateParams(params); err != nil {
		slog.Error("screengrab: failed to accept buffer params", "error", err)
	}
}

// OnProcess is the hot path: it drains every buffer the service has
// pending, converts each into a pool frame and hands it to the queue.
// The external buffer is returned to the service on every path, early
// exits included, so the service never stalls waiting for its buffers.
// Errors here are logged and skipped, never propagated: the event loop
// cannot unwind.
func (c *Context) OnProcess(svc pw.Service) {
	if c.stopped.Load() {
		return
	}
	c.Invocations.Add(1)

	for {
		buf := svc.DequeueBuffer()
		if buf == nil {
			return
		}
		c.processBuffer(svc, buf)
	}
}

func (c *Context) processBuffer(svc pw.Service, buf *pw.RawBuffer) {
	defer svc.QueueBuffer(buf)

	if len(buf.Data) == 0 || buf.Chunk.Size == 0 {
		c.EmptyBuffers.Add(1)
		slog.Debug("screengrab: dropping empty buffer")
		return
	}

	next, ok := c.Pool.Acquire()
	if !ok {
		c.PoolDrops.Add(1)
		slog.Debug("screengrab: dropping frame, no pool frame available")
		return
	}

	var crop *pw.Region
	if c.Opts.Crop && buf.Crop != nil && buf.Crop.Valid() {
		crop = buf.Crop
	}

	c.mu.Lock()
	if crop != nil {
		// Fold the crop size into the descriptor so the pool frame is
		// reallocated once, not on every delivery.
		c.desc.Width = crop.Width
		c.desc.Height = crop.Height
	}
	desc := c.desc
	raw := c.raw
	c.mu.Unlock()

	if !next.Matches(desc) {
		slog.Debug("screengrab: descriptor changed, reallocating frame buffer",
			"width", desc.Width, "height", desc.Height, "format", desc.Format.String())
		next.Realloc(desc)
		c.Reallocs.Add(1)
	}

	if err := convert.Blit(next, buf, raw, crop); err != nil {
		slog.Debug("screengrab: conversion failed, dropping buffer", "error", err)
		c.Pool.Release(next)
		return
	}

	next.Seq = c.Delivered.Add(1)
	next.Timestamp = time.Now()
	next.TraceID = uuid.New().String()
	c.BytesCopied.Add(uint64(next.Tile.DataLen))

	if evicted := c.Queue.Push(next); evicted != nil {
		c.QueueDrops.Add(1)
		slog.Debug("screengrab: hand-off queue full, evicted oldest frame",
			"evicted_seq", evicted.Seq)
		c.Pool.Release(evicted)
	}
}

// OnAddBuffer is informational only.
func (c *Context) OnAddBuffer() {
	if c.stopped.Load() {
		return
	}
	c.Invocations.Add(1)
	slog.Debug("screengrab: service added a buffer")
}

// OnRemoveBuffer is informational only.
func (c *Context) OnRemoveBuffer() {
	if c.stopped.Load() {
		return
	}
	c.Invocations.Add(1)
	slog.Debug("screengrab: service removed a buffer")
}

// OnDrained is informational only.
func (c *Context) OnDrained() {
	if c.stopped.Load() {
		return
	}
	c.Invocations.Add(1)
	slog.Debug("screengrab: stream drained")
}

// Package gstpw implements the capture-service contract on top of
// GStreamer's pipewiresrc element. The GStreamer streaming thread plays
// the role of the external event loop: appsink callbacks become buffer
// deliveries and bus messages become stream-state transitions.
package gstpw

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/visiona/screengrab/internal/pw"
)

// Service is a pw.Service backed by a pipewiresrc → capsfilter → appsink
// pipeline.
type Service struct {
	mu       sync.Mutex
	pipeline *gst.Pipeline
	src      *gst.Element
	filter   *gst.Element
	sink     *app.Sink
	handlers pw.Handlers

	pending  []*inflightBuffer
	inflight map[*pw.RawBuffer]*inflightBuffer
	lastCaps string
	state    pw.StreamState

	// stopped freezes every callback path before pipeline teardown, so
	// no handler fires on partially destroyed state. Connect re-arms it.
	stopped atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// inflightBuffer keeps the GStreamer buffer mapped while the session reads
// it; unmapped when the buffer is queued back.
type inflightBuffer struct {
	raw    *pw.RawBuffer
	buffer *gst.Buffer
	sample *gst.Sample
}

// New creates an unconnected service.
func New() *Service {
	return &Service{
		inflight: make(map[*pw.RawBuffer]*inflightBuffer),
		state:    pw.StateUnconnected,
	}
}

// CheckAvailable verifies the GStreamer runtime and the pipewiresrc plugin
// are present. Fail-fast validation for session construction.
func CheckAvailable() error {
	gst.Init(nil)
	elem, err := gst.NewElement("pipewiresrc")
	if err != nil {
		return fmt.Errorf("gstpw: pipewiresrc not available (install gstreamer pipewire plugin): %w", err)
	}
	elem.SetState(gst.StateNull)
	return nil
}

// Connect builds and starts the capture pipeline for target, advertising
// caps, and registers h. A service disconnected by Disconnect may be
// connected again; the callback surface is re-armed for the new pipeline.
func (s *Service) Connect(target pw.Target, caps pw.Capabilities, h pw.Handlers) error {
	s.mu.Lock()
	if s.pipeline != nil {
		s.mu.Unlock()
		return fmt.Errorf("gstpw: already connected")
	}

	gst.Init(nil)
	s.resetLocked(h)
	s.emitStateLocked(pw.StateConnecting, "")
	s.mu.Unlock()

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("gstpw: failed to create pipeline: %w", err)
	}

	src, err := gst.NewElement("pipewiresrc")
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return fmt.Errorf("gstpw: failed to create pipewiresrc: %w", err)
	}
	if target.FD >= 0 {
		src.SetProperty("fd", target.FD)
	}
	if target.Node != 0 {
		src.SetProperty("path", fmt.Sprintf("%d", target.Node))
	}
	// The session reads buffers after the streaming thread moved on, so
	// the source must not hand out live PipeWire memory.
	src.SetProperty("always-copy", true)

	filter, err := gst.NewElement("capsfilter")
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return fmt.Errorf("gstpw: failed to create capsfilter: %w", err)
	}
	filter.SetProperty("caps", gst.NewCapsFromString(buildCapsString(caps)))

	sink, err := app.NewAppSink()
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return fmt.Errorf("gstpw: failed to create appsink: %w", err)
	}
	sink.SetProperty("sync", false)
	sink.SetProperty("max-buffers", defaultSinkDepth)
	sink.SetProperty("drop", false)

	pipeline.AddMany(src, filter, sink.Element)
	if err := gst.ElementLinkMany(src, filter, sink.Element); err != nil {
		pipeline.SetState(gst.StateNull)
		return fmt.Errorf("gstpw: failed to link pipeline elements: %w", err)
	}

	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onNewSample,
	})

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.pipeline = pipeline
	s.src = src
	s.filter = filter
	s.sink = sink
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.monitorBus(ctx, pipeline)

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		cancel()
		s.wg.Wait()
		pipeline.SetState(gst.StateNull)
		s.mu.Lock()
		s.sink = nil
		s.filter = nil
		s.src = nil
		s.pipeline = nil
		s.cancel = nil
		s.mu.Unlock()
		return fmt.Errorf("gstpw: failed to start pipeline: %w", err)
	}

	slog.Info("gstpw: capture pipeline started",
		"fd", target.FD,
		"node", target.Node,
	)
	return nil
}

// UpdateParams applies the accepted buffer parameters to the sink side of
// the pipeline.
func (s *Service) UpdateParams(p pw.BufferParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sink == nil {
		return fmt.Errorf("gstpw: not connected")
	}
	s.sink.SetProperty("max-buffers", p.MaxBuffers)
	slog.Debug("gstpw: buffer params updated",
		"buffers", p.Buffers,
		"max_buffers", p.MaxBuffers,
		"size", p.Size,
		"stride", p.Stride,
		"crop_meta", p.WithCropMeta,
	)
	return nil
}

// DequeueBuffer returns the next pending buffer, or nil when none is
// waiting.
func (s *Service) DequeueBuffer() *pw.RawBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}
	ib := s.pending[0]
	s.pending = s.pending[1:]
	s.inflight[ib.raw] = ib
	return ib.raw
}

// QueueBuffer unmaps the underlying GStreamer buffer and releases it back
// to the pipeline.
func (s *Service) QueueBuffer(b *pw.RawBuffer) {
	s.mu.Lock()
	ib, ok := s.inflight[b]
	if ok {
		delete(s.inflight, b)
	}
	s.mu.Unlock()

	if ok && ib.buffer != nil {
		ib.buffer.Unmap()
	}
}

// resetLocked re-arms the callback surface for a new connection. Caller
// holds s.mu.
func (s *Service) resetLocked(h pw.Handlers) {
	s.handlers = h
	s.lastCaps = ""
	s.state = pw.StateUnconnected
	s.stopped.Store(false)
}

// Disconnect freezes the callback surface, then tears the pipeline down.
// The freeze happens first: after Disconnect returns no handler runs, so
// the session may release pool and queue safely. Idempotent until the
// next Connect.
func (s *Service) Disconnect() error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}

	// Loop stop: cancel the bus monitor and wait it out, so state-change
	// handlers cease before any resource is torn down.
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	// Detach everything under the lock, then stop the pipeline with the
	// lock released: stopping waits for the in-flight streaming-thread
	// callback, and that callback takes the lock for its buffer traffic.
	s.mu.Lock()
	leftovers := make([]*inflightBuffer, 0, len(s.inflight)+len(s.pending))
	for _, ib := range s.inflight {
		leftovers = append(leftovers, ib)
	}
	leftovers = append(leftovers, s.pending...)
	s.inflight = make(map[*pw.RawBuffer]*inflightBuffer)
	s.pending = nil
	pipeline := s.pipeline
	s.sink = nil
	s.filter = nil
	s.src = nil
	s.pipeline = nil
	s.state = pw.StateStopped
	s.mu.Unlock()

	// Stream before context before loop: the stream elements go first,
	// then the pipeline that owns them.
	if pipeline != nil {
		if err := pipeline.SetState(gst.StateNull); err != nil {
			slog.Error("gstpw: failed to stop pipeline", "error", err)
		}
	}

	// Release buffers the session never queued back. Safe once the
	// pipeline is down: no callback still reads them.
	for _, ib := range leftovers {
		if ib.buffer != nil {
			ib.buffer.Unmap()
		}
	}

	slog.Info("gstpw: capture pipeline stopped")
	return nil
}

// onNewSample runs on the GStreamer streaming thread. It surfaces caps
// changes as format negotiations and queues the sample for the Process
// handler to dequeue.
func (s *Service) onNewSample(sink *app.Sink) gst.FlowReturn {
	if s.stopped.Load() {
		return gst.FlowEOS
	}

	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("gstpw: failed to pull sample, skipping")
		return gst.FlowOK
	}

	if caps := sample.GetCaps(); caps != nil {
		str := caps.String()
		s.mu.Lock()
		changed := str != s.lastCaps
		if changed {
			s.lastCaps = str
		}
		h := s.handlers
		s.mu.Unlock()
		if changed {
			if f, ok := parseCaps(caps); ok && h.FormatChanged != nil {
				h.FormatChanged(f)
			}
		}
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("gstpw: sample without buffer, skipping")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()

	// pipewiresrc does not expose the row stride through the sample;
	// zero lets the converter derive it from the chunk size.
	ib := &inflightBuffer{
		raw: &pw.RawBuffer{
			Data:  data,
			Chunk: pw.Chunk{Offset: 0, Size: len(data), Stride: 0},
		},
		buffer: buffer,
		sample: sample,
	}

	s.mu.Lock()
	s.pending = append(s.pending, ib)
	h := s.handlers
	s.mu.Unlock()

	if h.Process != nil {
		h.Process()
	}
	return gst.FlowOK
}

// monitorBus translates pipeline bus traffic into state-change callbacks.
func (s *Service) monitorBus(ctx context.Context, pipeline *gst.Pipeline) {
	defer s.wg.Done()

	bus := pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			msg := bus.TimedPop(50 * time.Millisecond)
			if msg == nil {
				continue
			}

			switch msg.Type() {
			case gst.MessageEOS:
				slog.Info("gstpw: end of stream")
				s.emitState(pw.StateStopped, "")

			case gst.MessageError:
				gerr := msg.ParseError()
				category := Classify(gerr.Error(), gerr.DebugString())
				slog.Error("gstpw: pipeline error",
					"error", gerr.Error(),
					"debug", gerr.DebugString(),
					"category", category.String(),
				)
				s.emitState(pw.StateError, gerr.Error())

			case gst.MessageStateChanged:
				if msg.Source() == pipeline.GetName() {
					_, next := msg.ParseStateChanged()
					s.emitState(streamStateFor(next), "")
				}
			}
		}
	}
}

func (s *Service) emitState(next pw.StreamState, errMsg string) {
	if s.stopped.Load() {
		return
	}
	s.mu.Lock()
	old := s.state
	if old == next && errMsg == "" {
		s.mu.Unlock()
		return
	}
	s.state = next
	h := s.handlers
	s.mu.Unlock()

	if h.StateChanged != nil {
		h.StateChanged(old, next, errMsg)
	}
}

// emitStateLocked is emitState for callers already holding s.mu.
func (s *Service) emitStateLocked(next pw.StreamState, errMsg string) {
	old := s.state
	if old == next && errMsg == "" {
		return
	}
	s.state = next
	if s.handlers.StateChanged != nil {
		s.handlers.StateChanged(old, next, errMsg)
	}
}

// streamStateFor maps GStreamer pipeline states onto the stream lifecycle.
func streamStateFor(st gst.State) pw.StreamState {
	switch st {
	case gst.StateReady:
		return pw.StateConnecting
	case gst.StatePaused:
		return pw.StateNegotiating
	case gst.StatePlaying:
		return pw.StateStreaming
	case gst.StateNull:
		return pw.StateStopped
	default:
		return pw.StateUnconnected
	}
}

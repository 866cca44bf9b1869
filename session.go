package screengrab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/visiona/screengrab/internal/capture"
	"github.com/visiona/screengrab/internal/frame"
	"github.com/visiona/screengrab/internal/gstpw"
	"github.com/visiona/screengrab/internal/portal"
	"github.com/visiona/screengrab/internal/pw"
	"github.com/visiona/screengrab/internal/queue"
)

const (
	// PoolSize is the number of preallocated frames cycling between the
	// pool, the hand-off queue and the consumer.
	PoolSize = 3
	// QueueSize bounds the hand-off queue between the capture thread and
	// the consumer.
	QueueSize = 3
	// DefaultGrabTimeout is how long Grab waits for a frame before giving
	// up for this call.
	DefaultGrabTimeout = 500 * time.Millisecond
	// DefaultSessionFPS is the framerate offered during negotiation when
	// the options give none.
	DefaultSessionFPS = 30
	// DeviceName is the display name reported by Probe.
	DeviceName = "Screen capture PipeWire"
)

// ErrAudioNotSupported is returned by Init when the configuration asks for
// embedded audio. Screen capture is video only.
var ErrAudioNotSupported = errors.New("screengrab: audio capture not supported")

// ErrGrabTimeout is returned by Grab when no frame arrived within the grab
// timeout. Transient by nature; callers normally just grab again.
var ErrGrabTimeout = errors.New("screengrab: no frame within grab timeout")

// Config configures a capture session. The zero value plus DefaultOptions
// is a working configuration on a desktop with a screen-cast portal.
type Config struct {
	// Options are the user-facing capture options.
	Options Options
	// WantAudio requests embedded audio; Init rejects it with
	// ErrAudioNotSupported.
	WantAudio bool
	// Direct skips the portal and connects straight to the given node on
	// the local PipeWire instance. Requires compositor permission.
	Direct bool
	// Node is the node to capture in Direct mode; 0 lets the stream pick.
	Node uint32
	// Recovery selects what happens on stream errors.
	Recovery RecoveryPolicy
	// GrabTimeout overrides DefaultGrabTimeout when positive.
	GrabTimeout time.Duration

	// Service overrides the production backend; nil selects it. Used by
	// tests and alternative transports.
	Service Service
	// Selector overrides the portal target selector; nil selects it.
	Selector TargetSelector
}

// Session is one live capture session. It is not safe for concurrent use:
// one consumer calls Grab, and Done may be called once from any goroutine
// after the last Grab.
type Session struct {
	svc   Service
	cctx  *capture.Context
	pool  *frame.Pool
	queue *queue.Queue

	target      Target
	caps        Capabilities
	handlers    Handlers
	grabTimeout time.Duration

	// inFlight is the frame currently held by the consumer; the next Grab
	// or Done recycles it into the pool.
	inFlight *frame.Frame

	recovery *capture.RecoveryState
	errCh    chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	started time.Time
	grabbed atomic.Uint64
	closed  atomic.Bool
}

// Probe lists the capture devices this package provides. There is exactly
// one: the desktop itself, with the concrete target chosen interactively at
// Init time through the portal dialog.
func Probe() []DeviceInfo {
	return []DeviceInfo{{Name: DeviceName, Dev: ""}}
}

// Init establishes a capture session: it resolves the capture target,
// allocates the frame pool and hand-off queue, and connects the stream with
// the session's handlers installed. On return the stream is negotiating;
// the first Grab calls may time out until frames start flowing.
func Init(cfg Config) (*Session, error) {
	if cfg.WantAudio {
		return nil, ErrAudioNotSupported
	}

	svc := cfg.Service
	if svc == nil {
		if err := gstpw.CheckAvailable(); err != nil {
			return nil, fmt.Errorf("screengrab: backend unavailable: %w", err)
		}
		svc = gstpw.New()
	}

	target := Target{FD: -1, Node: cfg.Node}
	if !cfg.Direct {
		sel := cfg.Selector
		if sel == nil {
			sel = portal.New()
		}
		var err error
		target, err = sel.Select(cfg.Options.RestoreFile, cfg.Options.ShowCursor)
		if err != nil {
			return nil, fmt.Errorf("screengrab: target selection failed: %w", err)
		}
	}

	s := &Session{
		svc:         svc,
		pool:        frame.NewPool(PoolSize, frame.Descriptor{}),
		queue:       queue.New(QueueSize),
		target:      target,
		caps:        capabilitiesFor(cfg.Options),
		grabTimeout: cfg.GrabTimeout,
		started:     time.Now(),
	}
	if s.grabTimeout <= 0 {
		s.grabTimeout = DefaultGrabTimeout
	}

	s.cctx = capture.NewContext(s.pool, s.queue, capture.Options{
		ShowCursor:  cfg.Options.ShowCursor,
		Crop:        cfg.Options.Crop,
		FPS:         cfg.Options.FPS,
		RestoreFile: cfg.Options.RestoreFile,
	})
	s.handlers = s.cctx.Handlers(svc)

	if cfg.Recovery == RecoverReconnect {
		s.recovery = &capture.RecoveryState{}
		s.errCh = make(chan struct{}, 1)
		inner := s.handlers.StateChanged
		s.handlers.StateChanged = func(old, next pw.StreamState, errMsg string) {
			inner(old, next, errMsg)
			if next == pw.StateError {
				select {
				case s.errCh <- struct{}{}:
				default:
				}
			}
		}
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.wg.Add(1)
		go s.recoverLoop(ctx)
	}

	if err := svc.Connect(target, s.caps, s.handlers); err != nil {
		if s.cancel != nil {
			s.cancel()
			s.wg.Wait()
		}
		return nil, fmt.Errorf("screengrab: connect failed: %w", err)
	}

	slog.Info("screengrab: session initialized",
		"direct", cfg.Direct,
		"node", target.Node,
		"cursor", cfg.Options.ShowCursor,
		"crop", cfg.Options.Crop,
	)
	return s, nil
}

// capabilitiesFor builds the format offer: every format the converter can
// consume, any size up to 4K by default, and the preferred rate from the
// options when given.
func capabilitiesFor(opts Options) Capabilities {
	fps := DefaultSessionFPS
	if opts.FPS != 0 {
		fps = int(opts.FPS)
	}
	return Capabilities{
		Formats: []RawPixelFormat{
			RawRGBA, RawRGBx, RawBGRA, RawBGRx,
			RawRGB, RawUYVY, RawYUY2,
		},
		SizeDefault: Rectangle{Width: 1920, Height: 1080},
		SizeMin:     Rectangle{Width: 1, Height: 1},
		SizeMax:     Rectangle{Width: 3840, Height: 2160},
		RateDefault: Fraction{Num: fps, Denom: 1},
		RateMin:     Fraction{Num: 0, Denom: 1},
		RateMax:     Fraction{Num: 600, Denom: 1},
	}
}

// Grab returns the next captured frame in delivery order, waiting up to the
// grab timeout. The returned frame stays valid until the next Grab or Done
// call; the previously grabbed frame is recycled on entry. On timeout it
// returns ErrGrabTimeout, which callers usually treat as "try again".
func (s *Session) Grab() (*Frame, error) {
	if s.closed.Load() {
		return nil, errors.New("screengrab: session closed")
	}

	if s.inFlight != nil {
		s.pool.Release(s.inFlight)
		s.inFlight = nil
	}

	f, ok := s.queue.PopTimeout(s.grabTimeout)
	if !ok {
		return nil, ErrGrabTimeout
	}

	s.inFlight = f
	s.grabbed.Add(1)
	return f, nil
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	desc, _ := s.cctx.Snapshot()
	st := Stats{
		FramesCaptured: s.cctx.Delivered.Load(),
		FramesGrabbed:  s.grabbed.Load(),
		PoolDrops:      s.cctx.PoolDrops.Load(),
		EmptyBuffers:   s.cctx.EmptyBuffers.Load(),
		QueueDrops:     s.cctx.QueueDrops.Load(),
		Reallocs:       s.cctx.Reallocs.Load(),
		BytesCopied:    s.cctx.BytesCopied.Load(),
		HandlerCalls:   s.cctx.Invocations.Load(),
		State:          s.cctx.State(),
		Descriptor:     desc,
		Uptime:         time.Since(s.started),
	}
	if s.recovery != nil {
		st.Reconnects = s.recovery.Reconnects.Load()
	}
	return st
}

// Done tears the session down: it stops recovery, disconnects the stream,
// and recycles every outstanding frame. Idempotent; only the first call
// does work. After Done no handler runs and Grab fails.
func (s *Session) Done() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
	}

	err := s.svc.Disconnect()

	// The service's loop is stopped; freeze the handler surface so a late
	// callback cannot touch the pool or queue being recycled below.
	s.cctx.Stop()

	for _, f := range s.queue.Drain() {
		s.pool.Release(f)
	}
	if s.inFlight != nil {
		s.pool.Release(s.inFlight)
		s.inFlight = nil
	}

	st := s.Stats()
	slog.Info("screengrab: session closed",
		"frames_captured", st.FramesCaptured,
		"pool_drops", st.PoolDrops,
		"queue_drops", st.QueueDrops,
		"empty_buffers", st.EmptyBuffers,
		"reconnects", st.Reconnects,
		"uptime", st.Uptime,
	)
	if err != nil {
		return fmt.Errorf("screengrab: disconnect: %w", err)
	}
	return nil
}

// recoverLoop waits for stream errors and reconnects with backoff.
func (s *Session) recoverLoop(ctx context.Context) {
	defer s.wg.Done()
	cfg := capture.DefaultRecoveryConfig()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.errCh:
		}

		slog.Warn("screengrab: stream error, attempting recovery")
		if err := s.svc.Disconnect(); err != nil {
			slog.Warn("screengrab: disconnect before reconnect failed", "error", err)
		}

		err := capture.RunWithRecovery(ctx, func(context.Context) error {
			return s.svc.Connect(s.target, s.caps, s.handlers)
		}, cfg, s.recovery)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("screengrab: stream recovery exhausted", "error", err)
			return
		}
	}
}

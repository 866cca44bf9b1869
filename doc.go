// Package screengrab provides real-time screen and window capture on Linux
// desktops via PipeWire and the XDG Desktop Portal.
//
// It handles target selection through the portal dialog, format negotiation,
// pixel conversion to consumer-friendly formats and a fixed-size frame pool
// so steady-state capture does not allocate per frame.
//
// # Quick Start
//
// The simplest way to capture the screen:
//
//	opts, err := screengrab.ParseOptions("cursor:fps=30")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sess, err := screengrab.Init(screengrab.Config{Options: opts})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Done()
//
//	for {
//	    frame, err := sess.Grab()
//	    if err == screengrab.ErrGrabTimeout {
//	        continue // no frame yet, poll again
//	    }
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    // frame.Data holds the converted pixels, laid out per frame.Desc.
//	    processFrame(frame)
//	}
//
// Init opens the portal's source-selection dialog; pass a restore file in
// the options ("restore=/path/to/token") to skip the dialog on repeat runs.
//
// # Frame Ownership
//
// Frames cycle through a fixed pool of three buffers. The frame returned by
// Grab belongs to the caller until the next Grab or Done call, which
// recycles it. Copy the pixel data out if you need it longer.
//
// # Frame Format
//
// BGRA and BGRx sources are converted to RGBA during delivery; RGB, UYVY
// and YUY2 pass through unchanged. The current shape is in Frame.Desc; when
// the compositor reports a window resize or crop change, the descriptor
// changes and the pool buffers are reallocated once, not per frame.
//
// # Dropping Policy
//
// Capture never blocks on a slow consumer. The hand-off queue holds three
// frames; on overflow the oldest is dropped and recycled, keeping latency
// bounded. Drops are counted in Stats.
//
// # Error Handling and Recovery
//
// Stream errors are logged and surfaced through Stats.State. With
// Config.Recovery set to RecoverReconnect the session reconnects with
// exponential backoff (1s, 2s, 4s, 8s, 16s, capped at 30s, max 5 attempts).
//
// # Dependencies
//
// The production backend drives PipeWire through GStreamer's pipewiresrc
// element, so the GStreamer 1.x runtime and its PipeWire plugin must be
// installed:
//
//	# Ubuntu/Debian
//	sudo apt-get install gstreamer1.0-tools gstreamer1.0-plugins-base gstreamer1.0-pipewire
//
//	# Fedora/RHEL
//	sudo dnf install gstreamer1 gstreamer1-plugins-base pipewire-gstreamer
//
// Verify with:
//
//	gst-inspect-1.0 pipewiresrc
//
// Portal sessions additionally need a desktop portal backend running
// (xdg-desktop-portal plus the compositor's implementation).
//
// # Thread Safety
//
//   - Grab is single-consumer: call it from one goroutine
//   - Stats is safe from any goroutine
//   - Done is idempotent and safe from any goroutine after the last Grab
//
// # Limitations
//
//   - Video only; requesting audio returns ErrAudioNotSupported
//   - One stream per Session
//   - Linux with PipeWire only
package screengrab

package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	screengrab "github.com/visiona/screengrab"
)

// Version information
const version = "v0.1.0"

func main() {
	optString := flag.String("opts", "", "Capture options (colon separated, see 'help')")
	configFile := flag.String("config", "", "YAML options file (overridden by --opts)")
	direct := flag.Bool("direct", false, "Skip the portal, connect to the local PipeWire node directly")
	node := flag.Uint("node", 0, "PipeWire node id for --direct mode (0 = any)")
	reconnect := flag.Bool("reconnect", false, "Reconnect automatically on stream errors")
	outputDir := flag.String("output", "", "Directory to save captured frames (optional)")
	outputFormat := flag.String("format", "png", "Output format: png, jpeg")
	jpegQuality := flag.Int("jpeg-quality", 90, "JPEG quality (1-100, only for jpeg format)")
	maxFrames := flag.Int("max-frames", 0, "Maximum frames to capture (0 = unlimited)")
	statsInterval := flag.Int("stats-interval", 10, "Seconds between stats reports")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("screengrab %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Resolve options: config file first, then the option string on top.
	opts := screengrab.DefaultOptions()
	if *configFile != "" {
		var err error
		opts, err = screengrab.LoadOptionsFile(*configFile)
		if err != nil {
			log.Fatalf("Failed to load options file: %v", err)
		}
	}
	if *optString != "" {
		var err error
		opts, err = screengrab.ParseOptions(*optString)
		if errors.Is(err, screengrab.ErrHelpRequested) {
			fmt.Println(screengrab.Usage())
			os.Exit(0)
		}
		if err != nil {
			log.Fatalf("Invalid options: %v", err)
		}
	}

	if *outputFormat != "png" && *outputFormat != "jpeg" {
		log.Fatalf("Invalid output format: %s (must be png or jpeg)", *outputFormat)
	}
	if *outputDir != "" {
		if err := os.MkdirAll(*outputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
		slog.Info("Frame saving enabled",
			"directory", *outputDir,
			"format", *outputFormat,
			"jpeg_quality", *jpegQuality,
		)
	}

	// Print banner
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║              screengrab - PipeWire Screen Capture         ║\n")
	fmt.Printf("║                      Version %s                        ║\n", version)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Cursor:        %v\n", opts.ShowCursor)
	fmt.Printf("  Crop:          %v\n", opts.Crop)
	if opts.FPS > 0 {
		fmt.Printf("  Preferred FPS: %d\n", opts.FPS)
	} else {
		fmt.Printf("  Preferred FPS: (negotiated)\n")
	}
	if *direct {
		fmt.Printf("  Mode:          direct (node %d)\n", *node)
	} else {
		fmt.Printf("  Mode:          portal\n")
	}
	if *outputDir != "" {
		fmt.Printf("  Output Dir:    %s\n", *outputDir)
	} else {
		fmt.Printf("  Output Dir:    (none - frames not saved)\n")
	}
	if *maxFrames > 0 {
		fmt.Printf("  Max Frames:    %d\n", *maxFrames)
	} else {
		fmt.Printf("  Max Frames:    unlimited\n")
	}
	fmt.Printf("\n")

	recovery := screengrab.RecoverNone
	if *reconnect {
		recovery = screengrab.RecoverReconnect
	}

	slog.Info("Initializing capture session...")
	sess, err := screengrab.Init(screengrab.Config{
		Options:  opts,
		Direct:   *direct,
		Node:     uint32(*node),
		Recovery: recovery,
	})
	if err != nil {
		log.Fatalf("Failed to initialize capture: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	fmt.Printf("Starting frame capture...\n")
	fmt.Printf("Press Ctrl+C to stop gracefully\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n\n")

	startTime := time.Now()
	framesSaved := 0
	saveFailures := 0
	frameCount := 0

	statsTicker := time.NewTicker(time.Duration(*statsInterval) * time.Second)
	defer statsTicker.Stop()

	done := false
	for !done {
		select {
		case <-sigChan:
			fmt.Printf("\n\nReceived interrupt signal, shutting down...\n")
			done = true
			continue
		case <-statsTicker.C:
			printStats(sess.Stats(), framesSaved, saveFailures)
			continue
		default:
		}

		frame, err := sess.Grab()
		if errors.Is(err, screengrab.ErrGrabTimeout) {
			continue
		}
		if err != nil {
			slog.Error("Grab failed", "error", err)
			done = true
			continue
		}

		frameCount++
		fmt.Printf("[%s] Frame #%-6d | Seq: %-8d | %dx%d %s | Size: %6.1f KB\n",
			time.Now().Format("15:04:05"),
			frameCount,
			frame.Seq,
			frame.Desc.Width, frame.Desc.Height, frame.Desc.Format,
			float64(frame.Tile.DataLen)/1024,
		)

		if *outputDir != "" {
			if err := saveFrame(*outputDir, frame, *outputFormat, *jpegQuality); err != nil {
				slog.Error("Failed to save frame", "error", err, "seq", frame.Seq)
				saveFailures++
			} else {
				framesSaved++
			}
		}

		if *maxFrames > 0 && frameCount >= *maxFrames {
			fmt.Printf("\nReached maximum frames (%d), stopping...\n", *maxFrames)
			done = true
		}
	}

	slog.Info("Stopping capture session...")
	finalStats := sess.Stats()
	if err := sess.Done(); err != nil {
		slog.Error("Error stopping session", "error", err)
	}

	uptime := time.Since(startTime)
	fmt.Printf("\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("                     Final Statistics                      \n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("  Total Uptime:       %s\n", uptime.Round(time.Second))
	fmt.Printf("  Frames Captured:    %d frames\n", finalStats.FramesCaptured)
	fmt.Printf("  Frames Grabbed:     %d frames\n", finalStats.FramesGrabbed)
	if *outputDir != "" && finalStats.FramesCaptured > 0 {
		fmt.Printf("  Frames Saved:       %d frames\n", framesSaved)
		fmt.Printf("  Save Failures:      %d frames\n", saveFailures)
	}
	fmt.Printf("  Queue Drops:        %d frames\n", finalStats.QueueDrops)
	fmt.Printf("  Pool Drops:         %d frames\n", finalStats.PoolDrops)
	fmt.Printf("  Bytes Copied:       %.2f MB\n", float64(finalStats.BytesCopied)/1024/1024)
	fmt.Printf("  Reconnects:         %d\n", finalStats.Reconnects)
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("\n")

	slog.Info("Capture completed")
}

func printStats(stats screengrab.Stats, framesSaved, saveFailures int) {
	fmt.Printf("\n")
	fmt.Printf("╭─────────────────────────────────────────────────────────╮\n")
	fmt.Printf("│ Session Statistics (Uptime: %s)\n", stats.Uptime.Round(time.Second))
	fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
	fmt.Printf("│ State:              %s\n", stats.State)
	fmt.Printf("│ Frames Captured:    %6d frames\n", stats.FramesCaptured)
	fmt.Printf("│ Frames Grabbed:     %6d frames\n", stats.FramesGrabbed)
	if framesSaved > 0 || saveFailures > 0 {
		fmt.Printf("│ Frames Saved:       %6d frames\n", framesSaved)
		fmt.Printf("│ Save Failures:      %6d frames\n", saveFailures)
	}
	if stats.QueueDrops > 0 {
		fmt.Printf("│ Queue Drops:        %6d frames\n", stats.QueueDrops)
	}
	if stats.PoolDrops > 0 {
		fmt.Printf("│ Pool Drops:         %6d frames\n", stats.PoolDrops)
	}
	if stats.EmptyBuffers > 0 {
		fmt.Printf("│ Empty Buffers:      %6d\n", stats.EmptyBuffers)
	}
	fmt.Printf("│ Frame Size:         %dx%d %s @ %.1f fps\n",
		stats.Descriptor.Width, stats.Descriptor.Height,
		stats.Descriptor.Format, stats.Descriptor.FPS)
	fmt.Printf("│ Bytes Copied:       %6.2f MB\n", float64(stats.BytesCopied)/1024/1024)
	fmt.Printf("│ Reallocs:           %6d\n", stats.Reallocs)
	fmt.Printf("│ Reconnects:         %6d\n", stats.Reconnects)
	fmt.Printf("╰─────────────────────────────────────────────────────────╯\n")
	fmt.Printf("\n")
}

// saveFrame saves a frame to disk as PNG or JPEG. Only RGBA and RGB frames
// can be encoded; packed YUV frames are rejected. The tile carries the
// produced image size.
func saveFrame(outputDir string, frame *screengrab.Frame, format string, jpegQuality int) error {
	w, h := frame.Tile.Width, frame.Tile.Height
	data := frame.Tile.Data[:frame.Tile.DataLen]

	var img image.Image
	switch frame.Desc.Format {
	case screengrab.FormatRGBA:
		img = &image.RGBA{
			Pix:    data,
			Stride: w * 4,
			Rect:   image.Rect(0, 0, w, h),
		}
	case screengrab.FormatRGB:
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := 0; i < w*h; i++ {
			rgba.Pix[i*4+0] = data[i*3+0]
			rgba.Pix[i*4+1] = data[i*3+1]
			rgba.Pix[i*4+2] = data[i*3+2]
			rgba.Pix[i*4+3] = 255
		}
		img = rgba
	default:
		return fmt.Errorf("cannot encode %s frames", frame.Desc.Format)
	}

	filename := fmt.Sprintf("frame_%06d_%s.%s", frame.Seq, frame.Timestamp.Format("20060102_150405.000"), format)
	file, err := os.Create(filepath.Join(outputDir, filename))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	switch format {
	case "png":
		if err := png.Encode(file, img); err != nil {
			return fmt.Errorf("failed to encode PNG: %w", err)
		}
	case "jpeg":
		if err := jpeg.Encode(file, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return fmt.Errorf("failed to encode JPEG: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	return nil
}

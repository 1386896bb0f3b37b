package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"motioncanvas/internal/asset"
	"motioncanvas/internal/batch"
	"motioncanvas/internal/export"
	"motioncanvas/internal/logging"
	"motioncanvas/internal/project"
	"motioncanvas/internal/render"
	"motioncanvas/internal/system"
)

func main() {
	projectPtr := flag.String("project", "", "Path to a project file (.yaml)")
	outputPtr := flag.String("output", "", "Output path (file for video, directory for image sequences)")
	formatPtr := flag.String("format", "video", "Export format: video, image-sequence, gif")
	codecPtr := flag.String("codec", "h264", "Video codec: h264, prores")
	widthPtr := flag.Int("width", 1920, "Output width")
	heightPtr := flag.Int("height", 1080, "Output height")
	fpsPtr := flag.Float64("fps", 30, "Frame rate")
	durationPtr := flag.Float64("duration", 0, "Export duration in seconds (0: full timeline)")
	framesPtr := flag.Int("frames", 0, "Exact frame count (overrides -duration)")
	qualityPtr := flag.Float64("quality", 0.75, "Quality in [0,1] (h264 bitrate, jpeg compression)")
	imageFormatPtr := flag.String("image-format", "png", "Still image format for sequences: png, jpeg")
	baseNamePtr := flag.String("base-name", "frame", "Base name for sequence files")
	audioPtr := flag.String("audio", "", "Comma-separated audio files to mux into the video")
	assetsPtr := flag.String("assets", "", "Asset root directory (default: the project file's directory)")
	jobsPtr := flag.Int("jobs", 0, "Concurrent export jobs (0: size from CPU and memory)")
	overwritePtr := flag.Bool("overwrite", false, "Overwrite existing files in the output directory")
	jsonLogPtr := flag.Bool("json-log", false, "Emit JSON logs")
	verbosePtr := flag.Bool("verbose", false, "Enable debug logging")

	flag.Parse()

	level := slog.LevelInfo
	if *verbosePtr {
		level = slog.LevelDebug
	}
	logger := logging.New(level, *jsonLogPtr)

	if *projectPtr == "" {
		fmt.Fprintln(os.Stderr, "usage: motioncanvas -project <file.yaml> -output <path> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	doc, err := project.Load(*projectPtr)
	if err != nil {
		logger.Error("cannot load project", "path", *projectPtr, "error", err)
		os.Exit(1)
	}
	tl, err := doc.Controller(logger)
	if err != nil {
		logger.Error("cannot build timeline", "path", *projectPtr, "error", err)
		os.Exit(1)
	}

	assetRoot := *assetsPtr
	if assetRoot == "" {
		assetRoot = filepath.Dir(*projectPtr)
	}
	assets := asset.NewStore(assetRoot, logger)
	renderer := render.New(assets)
	sequences := export.NewSequenceExporter(renderer, logger)
	encoder := export.NewVideoEncoder(renderer, logger)
	confirm := func(dir string) bool { return *overwritePtr }
	coordinator := export.NewCoordinator(tl, sequences, encoder, confirm, logger)

	var audio []string
	if *audioPtr != "" {
		for _, p := range strings.Split(*audioPtr, ",") {
			if p = strings.TrimSpace(p); p != "" {
				audio = append(audio, p)
			}
		}
	}

	req := export.Request{
		Format:       export.Format(*formatPtr),
		Width:        *widthPtr,
		Height:       *heightPtr,
		FrameRate:    *fpsPtr,
		Duration:     *durationPtr,
		FrameCount:   *framesPtr,
		OutputPath:   *outputPtr,
		BaseName:     *baseNamePtr,
		Codec:        export.Codec(*codecPtr),
		IncludeAudio: len(audio) > 0,
		AudioPaths:   audio,
		ImageFormat:  export.ImageFormat(*imageFormatPtr),
		Quality:      *qualityPtr,
	}

	jobs := *jobsPtr
	if jobs <= 0 {
		jobs = batch.DefaultConcurrency
		frameBytes := int64(req.Width) * int64(req.Height) * 4
		if byResources := system.DefaultWorkers(frameBytes); byResources < jobs {
			jobs = byResources
		}
	}

	manager := batch.NewManager(batch.RunnerFunc(coordinator.Export), jobs, logger)
	manager.Enqueue(req)

	done := make(chan struct{})
	manager.Start(func() { close(done) })

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	select {
	case <-interrupt:
		logger.Warn("interrupted, cancelling exports")
		manager.CancelAll()
		<-done
	case <-done:
	}

	failed := false
	for _, job := range manager.Jobs() {
		switch job.Status {
		case batch.StatusCompleted:
			logger.Info("job completed", "job", job.ID, "output", job.Request.OutputPath)
		case batch.StatusCancelled:
			logger.Warn("job cancelled", "job", job.ID)
		default:
			logger.Error("job failed", "job", job.ID, "error", job.Err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

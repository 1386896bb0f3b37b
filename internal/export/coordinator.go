package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"motioncanvas/internal/fileutil"
	"motioncanvas/internal/system"
	"motioncanvas/internal/timeline"
)

// ConfirmFunc asks whether an export may overwrite existing files in dir.
// A nil hook means always confirm.
type ConfirmFunc func(dir string) bool

// Coordinator owns the export entry point: it validates requests, freezes
// playback, snapshots the timeline, and routes to the format-specific
// pipeline. All rendering during an export happens against the snapshot;
// the live timeline stays untouched until playback is restored.
type Coordinator struct {
	timeline  *timeline.Controller
	sequences *SequenceExporter
	encoder   *VideoEncoder
	confirm   ConfirmFunc
	logger    *slog.Logger
}

// NewCoordinator wires the coordinator to its pipelines.
func NewCoordinator(tl *timeline.Controller, sequences *SequenceExporter, encoder *VideoEncoder, confirm ConfirmFunc, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		timeline:  tl,
		sequences: sequences,
		encoder:   encoder,
		confirm:   confirm,
		logger:    logger,
	}
}

// Export runs one export request to completion. Playback is paused for the
// duration and the prior state is restored afterwards, whatever the
// outcome. Progress callbacks are throttled so callers can bind them to UI
// updates directly.
func (c *Coordinator) Export(ctx context.Context, req Request, progress ProgressFunc) error {
	if err := c.validate(req); err != nil {
		return err
	}

	state, at := c.timeline.PlaybackState()
	c.timeline.Pause()
	defer c.timeline.RestorePlayback(state, at)

	eval := c.timeline.Evaluator()
	throttled := Throttle(progress, progressMinDelta, progressMinInterval)

	c.logger.Info("export started", "format", req.Format, "output", req.OutputPath)
	var err error
	switch req.Format {
	case FormatImageSequence:
		err = c.exportSequence(ctx, eval, req, throttled)
	case FormatVideo:
		err = c.exportVideo(ctx, eval, req, throttled)
	case FormatGIF:
		err = c.exportGIF(ctx, eval, req)
	case FormatProjectFile, FormatBatchMarker:
		err = Wrap(ErrNotImplemented, string(req.Format), "not yet implemented", nil)
	default:
		err = Wrap(ErrConfiguration, "export", fmt.Sprintf("unsupported format %q", req.Format), nil)
	}
	if err != nil {
		c.logger.Error("export failed", "format", req.Format, "error", err)
		return err
	}
	c.logger.Info("export complete", "format", req.Format, "output", req.OutputPath)
	return nil
}

// validate rejects requests that can never succeed before any work starts.
func (c *Coordinator) validate(req Request) error {
	if req.Width <= 0 || req.Height <= 0 {
		return Wrap(ErrConfiguration, "export", "output dimensions must be positive", nil)
	}
	if req.OutputPath == "" {
		return Wrap(ErrConfiguration, "export", "output path is required", nil)
	}
	if req.IncludeAudio {
		for _, audio := range req.AudioPaths {
			if _, err := os.Stat(audio); err != nil {
				return Wrap(ErrConfiguration, "export", fmt.Sprintf("audio file %q is missing", audio), err)
			}
		}
	}
	if req.SourcePath != "" {
		if _, err := os.Stat(req.SourcePath); err != nil {
			return Wrap(ErrConfiguration, "export", fmt.Sprintf("source file %q is missing", req.SourcePath), err)
		}
	}
	return nil
}

func (c *Coordinator) exportSequence(ctx context.Context, eval *timeline.Evaluator, req Request, progress ProgressFunc) error {
	frameCount, err := resolveFrameCount(req, eval.Duration())
	if err != nil {
		return err
	}
	if fileutil.DirHasEntries(req.OutputPath) && c.confirm != nil && !c.confirm(req.OutputPath) {
		return Wrap(ErrCancelled, "image sequence", "overwrite declined", nil)
	}
	return c.sequences.Export(ctx, eval, SequenceConfig{
		Width:      req.Width,
		Height:     req.Height,
		FrameRate:  req.FrameRate,
		Format:     req.ImageFormat,
		Quality:    req.Quality,
		Dir:        req.OutputPath,
		BaseName:   req.BaseName,
		Start:      0,
		FrameCount: frameCount,
	}, progress)
}

func (c *Coordinator) exportVideo(ctx context.Context, eval *timeline.Evaluator, req Request, progress ProgressFunc) error {
	if !eval.HasContent() {
		if req.SourcePath == "" {
			return Wrap(ErrConfiguration, "video export", "nothing to export: the timeline is empty and no source file was given", nil)
		}
		return c.reencodeSource(ctx, req, progress)
	}
	frameCount, err := resolveFrameCount(req, eval.Duration())
	if err != nil {
		return err
	}
	var audio []string
	if req.IncludeAudio {
		audio = req.AudioPaths
	}
	return c.encoder.Encode(ctx, eval, EncodeConfig{
		Width:      req.Width,
		Height:     req.Height,
		FrameRate:  req.FrameRate,
		FrameCount: frameCount,
		Path:       req.OutputPath,
		Codec:      req.Codec,
		Quality:    req.Quality,
		AudioPaths: audio,
	}, progress)
}

// reencodeSource passes an already-encoded file through ffmpeg with the
// requested codec settings. Used when a project carries recorded footage
// but no composition of its own.
func (c *Coordinator) reencodeSource(ctx context.Context, req Request, progress ProgressFunc) error {
	ffmpegPath, err := system.FindFFmpeg()
	if err != nil {
		return Wrap(ErrConfiguration, "video export", "re-encoding a source file requires ffmpeg on PATH", err)
	}
	codecArgs, err := codecArguments(WriterConfig{Codec: req.Codec, Quality: req.Quality})
	if err != nil {
		return err
	}
	if err := fileutil.EnsureWritableDir(filepath.Dir(req.OutputPath)); err != nil {
		return classifyIOError("prepare output directory", err)
	}
	if err := runFFmpegCopy(ctx, ffmpegPath, req.SourcePath, req.OutputPath, codecArgs); err != nil {
		if ctx.Err() != nil {
			return Wrap(ErrCancelled, "video export", "", err)
		}
		return Wrap(ErrEncode, "re-encode source", "", err)
	}
	progress(1)
	return nil
}

// exportGIF is a deliberate stub. The frames render fine; the palette
// quantization and LZW stages were never built, so the operation reports
// itself honestly instead of producing a broken file.
func (c *Coordinator) exportGIF(ctx context.Context, eval *timeline.Evaluator, req Request) error {
	frameCount, err := resolveFrameCount(req, eval.Duration())
	if err != nil {
		return err
	}
	stageDir, err := os.MkdirTemp("", "gif-frames-*")
	if err != nil {
		return classifyIOError("create staging directory", err)
	}
	defer os.RemoveAll(stageDir)

	err = c.sequences.Export(ctx, eval, SequenceConfig{
		Width:      req.Width,
		Height:     req.Height,
		FrameRate:  req.FrameRate,
		Format:     ImagePNG,
		Dir:        stageDir,
		BaseName:   req.BaseName,
		Start:      0,
		FrameCount: frameCount,
	}, nil)
	if err != nil {
		return err
	}
	return Wrap(ErrNotImplemented, "gif export", "frames rendered, but GIF assembly is not implemented", nil)
}

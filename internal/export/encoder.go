package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"motioncanvas/internal/fileutil"
	"motioncanvas/internal/render"
	"motioncanvas/internal/system"
	"motioncanvas/internal/timeline"
)

// frameChannelDepth bounds how far rendering may run ahead of the
// container writer.
const frameChannelDepth = 4

// EncodeConfig describes one streaming video encode.
type EncodeConfig struct {
	Width      int
	Height     int
	FrameRate  float64
	FrameCount int

	Path    string
	Codec   Codec
	Quality float64

	AudioPaths []string
}

type writerFactory func(cfg WriterConfig) (FrameWriter, error)

// VideoEncoder renders frames and streams them into a container writer.
// Rendering and writing run concurrently; frames flow through a bounded
// channel so memory stays flat regardless of export length.
type VideoEncoder struct {
	renderer   *render.Renderer
	logger     *slog.Logger
	newWriter  writerFactory
	findFFmpeg func() (string, error)
}

// NewVideoEncoder wires the encoder to a renderer.
func NewVideoEncoder(renderer *render.Renderer, logger *slog.Logger) *VideoEncoder {
	if logger == nil {
		logger = slog.Default()
	}
	e := &VideoEncoder{renderer: renderer, logger: logger, findFFmpeg: system.FindFFmpeg}
	e.newWriter = e.defaultWriter
	return e
}

// defaultWriter prefers ffmpeg. Without it the standard codec degrades to
// a Motion-JPEG AVI; the professional codec has no in-process equivalent
// and refuses instead. The AVI container carries no audio, so any
// requested audio layers are dropped and the fallback says so.
func (e *VideoEncoder) defaultWriter(cfg WriterConfig) (FrameWriter, error) {
	ffmpegPath, err := e.findFFmpeg()
	if err != nil {
		if cfg.Codec == CodecProRes {
			return nil, Wrap(ErrConfiguration, "video encode", "the professional codec requires ffmpeg on PATH", err)
		}
		if len(cfg.AudioPaths) > 0 {
			e.logger.Warn("ffmpeg not found, falling back to motion-jpeg avi; requested audio layers will be omitted",
				"path", cfg.Path, "audio_layers", len(cfg.AudioPaths))
		} else {
			e.logger.Warn("ffmpeg not found, falling back to motion-jpeg avi", "path", cfg.Path)
		}
		return newMJPEGWriter(cfg)
	}
	return newFFmpegWriter(ffmpegPath, cfg)
}

// Encode renders cfg.FrameCount frames starting at t=0 and streams them
// into the container at cfg.Path. Partial output never survives a failure:
// the encode lands in a temporary file and is moved into place only on
// success.
func (e *VideoEncoder) Encode(ctx context.Context, eval *timeline.Evaluator, cfg EncodeConfig, progress ProgressFunc) error {
	if cfg.FrameCount <= 0 {
		return Wrap(ErrConfiguration, "video encode", "frame count must be positive", nil)
	}
	if cfg.FrameRate <= 0 {
		return Wrap(ErrConfiguration, "video encode", "frame rate must be positive", nil)
	}
	if progress == nil {
		progress = func(float64) {}
	}

	dir := filepath.Dir(cfg.Path)
	if err := fileutil.EnsureWritableDir(dir); err != nil {
		return classifyIOError("prepare output directory", err)
	}
	e.preflightDiskSpace(dir, cfg)

	tmpPath := partialPath(cfg.Path)
	writer, err := e.newWriter(WriterConfig{
		Path:       tmpPath,
		Width:      cfg.Width,
		Height:     cfg.Height,
		FrameRate:  cfg.FrameRate,
		Codec:      cfg.Codec,
		Quality:    cfg.Quality,
		AudioPaths: cfg.AudioPaths,
	})
	if err != nil {
		return err
	}

	frames := make(chan *image.RGBA, frameChannelDepth)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(frames)
		for i := 0; i < cfg.FrameCount; i++ {
			t := float64(i) / cfg.FrameRate
			buf, err := e.renderer.Render(eval.ElementsAt(t), eval.Canvas(), cfg.Width, cfg.Height, t)
			if err != nil {
				return fmt.Errorf("render frame %d: %w", i, err)
			}
			select {
			case frames <- buf:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		written := 0
		for frame := range frames {
			if err := writer.WriteFrame(frame); err != nil {
				return err
			}
			written++
			progress(float64(written) / float64(cfg.FrameCount))
		}
		return nil
	})

	encodeErr := g.Wait()
	closeErr := writer.Close()
	if encodeErr == nil {
		encodeErr = closeErr
	}
	if encodeErr != nil {
		os.Remove(tmpPath)
		if ctx.Err() != nil || errors.Is(encodeErr, context.Canceled) {
			return Wrap(ErrCancelled, "video encode", "", encodeErr)
		}
		return Wrap(ErrEncode, "video encode", "", encodeErr)
	}

	if err := fileutil.MoveFile(tmpPath, cfg.Path); err != nil {
		os.Remove(tmpPath)
		return classifyIOError("finalize video file", err)
	}
	progress(1)
	e.logger.Info("video encode complete", "path", cfg.Path, "frames", cfg.FrameCount, "codec", cfg.Codec)
	return nil
}

func (e *VideoEncoder) preflightDiskSpace(dir string, cfg EncodeConfig) {
	free, err := system.FreeSpace(dir)
	if err != nil {
		return
	}
	raw := uint64(cfg.FrameCount) * uint64(cfg.Width) * uint64(cfg.Height) * 4
	if free < raw/8 {
		e.logger.Warn("low disk space for video export",
			"dir", dir, "free_bytes", free, "estimated_bytes", raw/8)
	}
}

// partialPath hides in-flight output behind a dot name next to the final
// destination, so the rename at the end stays on one filesystem.
func partialPath(final string) string {
	dir, base := filepath.Split(final)
	return filepath.Join(dir, "."+base+".partial")
}

package export

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"motioncanvas/internal/fileutil"
	"motioncanvas/internal/render"
	"motioncanvas/internal/system"
	"motioncanvas/internal/timeline"
)

// SequenceConfig describes one image-sequence export.
type SequenceConfig struct {
	Width     int
	Height    int
	FrameRate float64

	Format  ImageFormat
	Quality float64 // [0,1], JPEG only

	Dir      string
	BaseName string

	Start float64
	End   float64
	// FrameCount, when positive, fixes the number of frames directly.
	// Callers that already resolved a count pass it through instead of
	// having it re-derived from the float end time.
	FrameCount int
}

// frameCountEpsilon absorbs float noise when deriving a frame count from a
// time range: (n-1)/fps*fps can land one ulp below the integer, and flooring
// that would drop the final frame.
const frameCountEpsilon = 1e-9

// SequenceExporter renders a time range into sequentially numbered image
// files. The sequence aborts on the first unrecoverable I/O error: a gap in
// a numbered sequence is itself a defect.
type SequenceExporter struct {
	renderer *render.Renderer
	logger   *slog.Logger
}

// NewSequenceExporter wires the exporter to a renderer.
func NewSequenceExporter(renderer *render.Renderer, logger *slog.Logger) *SequenceExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SequenceExporter{renderer: renderer, logger: logger}
}

// Export renders cfg.FrameCount frames at start + i/frameRate, or when no
// count is given, frames while the timestamp stays within [start, end]. Each
// frame is written as basename_%04d.<ext> under cfg.Dir.
// Progress is reported after every frame. The context is honored between
// frames only: a frame in progress always completes.
func (e *SequenceExporter) Export(ctx context.Context, eval *timeline.Evaluator, cfg SequenceConfig, progress ProgressFunc) error {
	if cfg.FrameRate <= 0 {
		return Wrap(ErrConfiguration, "image sequence", "frame rate must be positive", nil)
	}
	if cfg.End < cfg.Start {
		return Wrap(ErrConfiguration, "image sequence", "end time precedes start time", nil)
	}
	if cfg.BaseName == "" {
		cfg.BaseName = "frame"
	}
	if progress == nil {
		progress = func(float64) {}
	}
	ext, encode, err := frameEncoder(cfg)
	if err != nil {
		return err
	}

	if err := fileutil.EnsureWritableDir(cfg.Dir); err != nil {
		return classifyIOError("prepare output directory", err)
	}

	frameCount := cfg.FrameCount
	if frameCount <= 0 {
		frameCount = int(math.Floor((cfg.End-cfg.Start)*cfg.FrameRate+frameCountEpsilon)) + 1
	}
	e.preflightDiskSpace(cfg, frameCount)

	halfFrame := 0.5 / cfg.FrameRate
	for i := 0; i < frameCount; i++ {
		if err := ctx.Err(); err != nil {
			return Wrap(ErrCancelled, "image sequence", "", err)
		}
		t := cfg.Start + float64(i)/cfg.FrameRate
		if cfg.FrameCount <= 0 && t > cfg.End+halfFrame {
			break
		}
		buf, err := e.renderer.Render(eval.ElementsAt(t), eval.Canvas(), cfg.Width, cfg.Height, t)
		if err != nil {
			return fmt.Errorf("render frame %d: %w", i, err)
		}
		name := filepath.Join(cfg.Dir, fmt.Sprintf("%s_%04d.%s", cfg.BaseName, i, ext))
		if err := writeFrameFile(name, encode, buf); err != nil {
			return err
		}
		progress(float64(i+1) / float64(frameCount))
	}
	e.logger.Info("image sequence complete", "dir", cfg.Dir, "frames", frameCount)
	return nil
}

type frameEncodeFunc func(f *os.File, buf *image.RGBA) error

func frameEncoder(cfg SequenceConfig) (string, frameEncodeFunc, error) {
	switch cfg.Format {
	case ImagePNG, "":
		return "png", func(f *os.File, buf *image.RGBA) error {
			return png.Encode(f, buf)
		}, nil
	case ImageJPEG:
		quality := int(cfg.Quality * 100)
		if quality < 1 || quality > 100 {
			quality = 90
		}
		return "jpg", func(f *os.File, buf *image.RGBA) error {
			return jpeg.Encode(f, buf, &jpeg.Options{Quality: quality})
		}, nil
	default:
		return "", nil, Wrap(ErrConfiguration, "image sequence", fmt.Sprintf("unsupported image format %q", cfg.Format), nil)
	}
}

// preflightDiskSpace warns early when the volume looks too small for the
// sequence. Encoded frames compress, so this only logs; the hard failure
// still comes from the write itself.
func (e *SequenceExporter) preflightDiskSpace(cfg SequenceConfig, frameCount int) {
	free, err := system.FreeSpace(cfg.Dir)
	if err != nil {
		return
	}
	raw := uint64(frameCount) * uint64(cfg.Width) * uint64(cfg.Height) * 4
	if free < raw/4 {
		e.logger.Warn("low disk space for image sequence",
			"dir", cfg.Dir, "free_bytes", free, "estimated_bytes", raw/4)
	}
}

func writeFrameFile(name string, encode frameEncodeFunc, buf *image.RGBA) error {
	f, err := os.Create(name)
	if err != nil {
		return classifyIOError("create frame file", err)
	}
	if err := encode(f, buf); err != nil {
		f.Close()
		os.Remove(name)
		return classifyIOError("encode frame file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return classifyIOError("flush frame file", err)
	}
	return nil
}

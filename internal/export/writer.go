package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"
	"os/exec"

	"github.com/icza/mjpeg"
)

// FrameWriter consumes rendered frames and produces a video container.
type FrameWriter interface {
	WriteFrame(frame *image.RGBA) error
	Close() error
}

// WriterConfig carries everything a container writer needs up front.
type WriterConfig struct {
	Path      string
	Width     int
	Height    int
	FrameRate float64

	Codec   Codec
	Quality float64
	// AudioPaths are muxed in alongside the video stream; the output is
	// trimmed to the shortest stream.
	AudioPaths []string
}

// ffmpegWriter pipes raw RGBA frames into an ffmpeg child process. Frames
// never touch the disk on the way in.
type ffmpegWriter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer

	frameBytes int
	closed     bool
}

func newFFmpegWriter(ffmpegPath string, cfg WriterConfig) (*ffmpegWriter, error) {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-framerate", fmt.Sprintf("%g", cfg.FrameRate),
		"-i", "-",
	}
	for _, audio := range cfg.AudioPaths {
		args = append(args, "-i", audio)
	}
	if len(cfg.AudioPaths) > 0 {
		args = append(args, "-map", "0:v")
		for i := range cfg.AudioPaths {
			args = append(args, "-map", fmt.Sprintf("%d:a", i+1))
		}
		args = append(args, "-shortest")
	}
	codecArgs, err := codecArguments(cfg)
	if err != nil {
		return nil, err
	}
	args = append(args, codecArgs...)
	args = append(args, cfg.Path)

	cmd := exec.Command(ffmpegPath, args...)
	w := &ffmpegWriter{cmd: cmd, frameBytes: cfg.Width * cfg.Height * 4}
	cmd.Stderr = &w.stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	w.stdin = stdin
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}
	return w, nil
}

// codecArguments maps the codec family onto ffmpeg flags. The standard
// codec takes an explicit bitrate derived from Quality; the professional
// codec is profile-only and manages quality internally.
func codecArguments(cfg WriterConfig) ([]string, error) {
	switch cfg.Codec {
	case CodecH264, "":
		quality := cfg.Quality
		if quality <= 0 || quality > 1 {
			quality = 0.75
		}
		bitrate := int(math.Round(quality*100)) * 100 // kbps, 0.75 -> 7500k
		return []string{
			"-c:v", "libx264",
			"-profile:v", "high",
			"-preset", "medium",
			"-b:v", fmt.Sprintf("%dk", bitrate),
			"-pix_fmt", "yuv420p",
		}, nil
	case CodecProRes:
		return []string{
			"-c:v", "prores_ks",
			"-profile:v", "3",
			"-pix_fmt", "yuv422p10le",
		}, nil
	default:
		return nil, Wrap(ErrConfiguration, "video encode", fmt.Sprintf("unsupported codec %q", cfg.Codec), nil)
	}
}

func (w *ffmpegWriter) WriteFrame(frame *image.RGBA) error {
	if len(frame.Pix) != w.frameBytes {
		return fmt.Errorf("frame is %d bytes, writer expects %d", len(frame.Pix), w.frameBytes)
	}
	if _, err := w.stdin.Write(frame.Pix); err != nil {
		return fmt.Errorf("write frame: %w (ffmpeg: %s)", err, stderrTail(&w.stderr))
	}
	return nil
}

func (w *ffmpegWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.stdin.Close(); err != nil {
		w.cmd.Wait()
		return fmt.Errorf("close ffmpeg stdin: %w", err)
	}
	if err := w.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, stderrTail(&w.stderr))
	}
	return nil
}

// stderrTail keeps error messages readable; ffmpeg logs its banner and
// progress lines before the part that matters.
func stderrTail(buf *bytes.Buffer) string {
	const limit = 512
	s := buf.String()
	if len(s) > limit {
		s = "..." + s[len(s)-limit:]
	}
	return s
}

// mjpegWriter is the degraded fallback for hosts without ffmpeg: a
// Motion-JPEG AVI assembled in-process. Quality and size are worse than
// the standard codec, but the export still succeeds.
type mjpegWriter struct {
	avi     mjpeg.AviWriter
	quality int
}

func newMJPEGWriter(cfg WriterConfig) (*mjpegWriter, error) {
	avi, err := mjpeg.New(cfg.Path, int32(cfg.Width), int32(cfg.Height), int32(math.Round(cfg.FrameRate)))
	if err != nil {
		return nil, classifyIOError("create avi container", err)
	}
	quality := int(cfg.Quality * 100)
	if quality < 1 || quality > 100 {
		quality = 85
	}
	return &mjpegWriter{avi: avi, quality: quality}, nil
}

func (w *mjpegWriter) WriteFrame(frame *image.RGBA) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: w.quality}); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := w.avi.AddFrame(buf.Bytes()); err != nil {
		return fmt.Errorf("append frame: %w", err)
	}
	return nil
}

func (w *mjpegWriter) Close() error {
	return w.avi.Close()
}

// runFFmpegCopy re-encodes an existing file with the given codec flags.
func runFFmpegCopy(ctx context.Context, ffmpegPath, src, dst string, codecArgs []string) error {
	args := []string{"-y", "-i", src}
	args = append(args, codecArgs...)
	args = append(args, dst)
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		var buf bytes.Buffer
		buf.Write(out)
		return fmt.Errorf("ffmpeg: %w: %s", err, stderrTail(&buf))
	}
	return nil
}

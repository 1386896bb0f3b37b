package export

import (
	"math"
)

// Format selects the export strategy.
type Format string

const (
	FormatImageSequence Format = "image-sequence"
	FormatVideo         Format = "video"
	FormatGIF           Format = "gif"
	FormatProjectFile   Format = "project-file"
	FormatBatchMarker   Format = "batch"
)

// Codec selects the video codec family.
type Codec string

const (
	// CodecH264 is the standard compressed codec: bitrate plus profile.
	CodecH264 Codec = "h264"
	// CodecProRes is the high-fidelity professional codec: profile only,
	// the family manages its own internal quality.
	CodecProRes Codec = "prores"
)

// ImageFormat selects the still-image encoding for sequences.
type ImageFormat string

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"
)

// Request describes one export operation as handed over by the settings
// layer.
type Request struct {
	Format Format

	Width     int
	Height    int
	FrameRate float64

	// Duration and FrameCount are both optional; precedence when resolving
	// the effective frame count is explicit frame count, then explicit
	// duration, then the timeline's own duration.
	Duration   float64
	FrameCount int

	OutputPath string
	BaseName   string

	Codec        Codec
	IncludeAudio bool
	AudioPaths   []string

	ImageFormat ImageFormat
	// Quality in [0,1] applies to JPEG-like encodings and the standard
	// video codec's bitrate.
	Quality float64

	// SourcePath supplies an already-encoded input for pass-through
	// re-encoding when no timeline content is available.
	SourcePath string
}

// resolveFrameCount applies the precedence rule and validates the result.
func resolveFrameCount(req Request, timelineDuration float64) (int, error) {
	if req.FrameRate <= 0 {
		return 0, Wrap(ErrConfiguration, "resolve frame count", "frame rate must be positive", nil)
	}
	if req.FrameCount > 0 {
		return req.FrameCount, nil
	}
	duration := req.Duration
	if duration <= 0 {
		duration = timelineDuration
	}
	if duration <= 0 {
		return 0, Wrap(ErrConfiguration, "resolve frame count", "duration must be positive", nil)
	}
	return int(math.Round(duration * req.FrameRate)), nil
}

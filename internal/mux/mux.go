// Package mux writes timestamped encoded media samples into a
// container file, incrementally. Two container backends exist:
// fragmented MP4 (H.264 + AAC) and WebM (H.264 + Opus).
//
// Writers are not safe for concurrent use; the recorder funnels all
// sample and lifecycle calls through one serialization point.
package mux

import (
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

// Format selects the container backend.
type Format string

const (
	FormatMP4  Format = "mp4"
	FormatWebM Format = "webm"
)

// ParseFormat maps a configuration value to a Format.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "mp4", "fmp4":
		return FormatMP4, nil
	case "webm":
		return FormatWebM, nil
	default:
		return "", errors.Errorf("unknown container format %q", name)
	}
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == FormatWebM {
		return "webm"
	}
	return "mp4"
}

// Sample is one encoded media chunk. Timestamp is the presentation
// time relative to the container's session base.
type Sample struct {
	Payload   []byte
	Timestamp time.Duration
	Keyframe  bool
}

// VideoParams configures the container's video track.
type VideoParams struct {
	Width  int
	Height int
	// H.264 parameter sets, required for MP4 track setup
	SPS []byte
	PPS []byte
}

// AudioParams configures the container's audio track.
type AudioParams struct {
	SampleRate int
	Channels   int
}

// Config describes the track layout of one recording. A nil Audio
// produces a video-only container.
type Config struct {
	Video VideoParams
	Audio *AudioParams
}

// Writer appends samples to a container and finalizes it. Samples for
// a track must arrive in non-decreasing timestamp order; the writer
// does not reorder.
type Writer interface {
	WriteVideo(s Sample) error
	WriteAudio(s Sample) error
	Finalize() error
}

// NewWriter creates a container writer of the given format on top of w.
func NewWriter(format Format, w io.Writer, cfg Config, logger *slog.Logger) (Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch format {
	case FormatMP4:
		return newFMP4Writer(w, cfg, logger)
	case FormatWebM:
		return newWebMWriter(w, cfg, logger)
	default:
		return nil, errors.Errorf("unknown container format %q", format)
	}
}

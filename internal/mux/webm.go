package mux

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/at-wat/ebml-go/mkvcore"
	"github.com/at-wat/ebml-go/webm"
)

// webmWriter writes H.264 video and optional Opus audio into a WebM
// container via ebml-go block writers.
type webmWriter struct {
	logger    *slog.Logger
	video     webm.BlockWriteCloser
	audio     webm.BlockWriteCloser
	finalized bool
}

// nopWriteCloser adapts the destination to the io.WriteCloser ebml-go
// wants; closing the underlying file is the recorder's job.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func newWebMWriter(w io.Writer, cfg Config, logger *slog.Logger) (*webmWriter, error) {
	width := cfg.Video.Width
	height := cfg.Video.Height
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("webm video track needs dimensions, got %dx%d", width, height)
	}

	tracks := []webm.TrackEntry{
		{
			Name:            "Video",
			TrackNumber:     1,
			TrackUID:        1,
			CodecID:         "V_MPEG4/ISO/AVC",
			TrackType:       1,
			DefaultDuration: 33333333, // ~30fps in nanoseconds
			Video: &webm.Video{
				PixelWidth:  uint64(width),
				PixelHeight: uint64(height),
			},
		},
	}

	if cfg.Audio != nil {
		tracks = append(tracks, webm.TrackEntry{
			Name:            "Audio",
			TrackNumber:     2,
			TrackUID:        2,
			CodecID:         "A_OPUS",
			TrackType:       2,
			DefaultDuration: 20000000, // 20ms, typical Opus frame
			Audio: &webm.Audio{
				SamplingFrequency: float64(cfg.Audio.SampleRate),
				Channels:          uint64(cfg.Audio.Channels),
			},
		})
	}

	var fatalErr error
	writers, err := webm.NewSimpleBlockWriter(nopWriteCloser{w}, tracks,
		mkvcore.WithOnFatalHandler(func(err error) {
			fatalErr = err
			logger.Warn("WebM writer fatal error", "error", err)
		}))
	if err != nil {
		return nil, fmt.Errorf("create webm writer: %w", err)
	}
	if fatalErr != nil {
		return nil, fmt.Errorf("create webm writer: %w", fatalErr)
	}

	ww := &webmWriter{
		logger: logger,
		video:  writers[0],
	}
	if cfg.Audio != nil {
		ww.audio = writers[1]
	}

	logger.Debug("WebM container initialized", "width", width, "height", height, "audio", cfg.Audio != nil)
	return ww, nil
}

func (ww *webmWriter) WriteVideo(s Sample) error {
	if ww.finalized {
		return fmt.Errorf("writer finalized")
	}
	if len(s.Payload) == 0 {
		return nil
	}

	// WebM block timecodes are in milliseconds. The container keeps
	// Annex-B payloads as-is.
	_, err := ww.video.Write(s.Keyframe, s.Timestamp.Milliseconds(), s.Payload)
	if err != nil {
		return fmt.Errorf("write video block: %w", err)
	}
	return nil
}

func (ww *webmWriter) WriteAudio(s Sample) error {
	if ww.finalized {
		return fmt.Errorf("writer finalized")
	}
	if ww.audio == nil {
		return fmt.Errorf("no audio track registered")
	}
	if len(s.Payload) == 0 {
		return nil
	}

	_, err := ww.audio.Write(true, s.Timestamp.Milliseconds(), s.Payload)
	if err != nil {
		return fmt.Errorf("write audio block: %w", err)
	}
	return nil
}

// Finalize closes the block writers, which emits the container trailer.
func (ww *webmWriter) Finalize() error {
	if ww.finalized {
		return nil
	}
	ww.finalized = true

	var firstErr error
	if err := ww.video.Close(); err != nil {
		firstErr = fmt.Errorf("close video track: %w", err)
	}
	if ww.audio != nil {
		if err := ww.audio.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close audio track: %w", err)
		}
	}
	return firstErr
}

package mux

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4/seekablebuffer"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mp4"

	"github.com/avmux/avmux/internal/h264"
)

const (
	videoTimeScale = 90000
	// AAC frames carry 1024 PCM samples
	aacSamplesPerFrame = 1024
)

// fmp4Writer writes a fragmented MP4: one init segment up front, then
// one part per sample. Fragments are self-contained, so a recording
// truncated by a crash is still decodable up to the last part.
type fmp4Writer struct {
	w      io.Writer
	logger *slog.Logger

	video *fmp4Track
	audio *fmp4Track
	sps   []byte
	pps   []byte

	sequenceNumber uint32
	finalized      bool
}

type fmp4Track struct {
	id        int
	timeScale uint32
	lastDTS   int64
	hasLast   bool
	samples   uint64
}

func newFMP4Writer(w io.Writer, cfg Config, logger *slog.Logger) (*fmp4Writer, error) {
	if len(cfg.Video.SPS) == 0 || len(cfg.Video.PPS) == 0 {
		return nil, fmt.Errorf("mp4 video track needs SPS and PPS")
	}

	fw := &fmp4Writer{
		w:              w,
		logger:         logger,
		video:          &fmp4Track{id: 1, timeScale: videoTimeScale},
		sps:            cfg.Video.SPS,
		pps:            cfg.Video.PPS,
		sequenceNumber: 1,
	}

	init := &fmp4.Init{
		Tracks: []*fmp4.InitTrack{
			{
				ID:        fw.video.id,
				TimeScale: fw.video.timeScale,
				Codec: &mp4.CodecH264{
					SPS: cfg.Video.SPS,
					PPS: cfg.Video.PPS,
				},
			},
		},
	}

	if cfg.Audio != nil {
		fw.audio = &fmp4Track{id: 2, timeScale: uint32(cfg.Audio.SampleRate)}
		init.Tracks = append(init.Tracks, &fmp4.InitTrack{
			ID:        fw.audio.id,
			TimeScale: fw.audio.timeScale,
			Codec: &mp4.CodecMPEG4Audio{
				Config: mpeg4audio.AudioSpecificConfig{
					Type:         mpeg4audio.ObjectTypeAACLC,
					SampleRate:   cfg.Audio.SampleRate,
					ChannelCount: cfg.Audio.Channels,
				},
			},
		})
	}

	var buf seekablebuffer.Buffer
	if err := init.Marshal(&buf); err != nil {
		return nil, fmt.Errorf("marshal init segment: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("write init segment: %w", err)
	}

	logger.Debug("fMP4 init segment written", "size", buf.Len(), "audio", cfg.Audio != nil)
	return fw, nil
}

func (fw *fmp4Writer) WriteVideo(s Sample) error {
	if fw.finalized {
		return fmt.Errorf("writer finalized")
	}

	// MP4 samples are AVCC, not Annex-B
	payload := h264.ConvertAnnexBToAVC(s.Payload)
	if len(payload) == 0 {
		return nil
	}
	if s.Keyframe && !hasParameterSets(s.Payload) {
		payload = h264.PrependParameterSetsAVCC(payload, fw.sps, fw.pps)
	}

	dts := durationToScale(s.Timestamp, fw.video.timeScale)
	return fw.writePart(fw.video, &fmp4.Sample{
		IsNonSyncSample: !s.Keyframe,
		Payload:         payload,
	}, dts, int64(fw.video.timeScale)/30)
}

func (fw *fmp4Writer) WriteAudio(s Sample) error {
	if fw.finalized {
		return fmt.Errorf("writer finalized")
	}
	if fw.audio == nil {
		return fmt.Errorf("no audio track registered")
	}
	if len(s.Payload) == 0 {
		return nil
	}

	dts := durationToScale(s.Timestamp, fw.audio.timeScale)
	return fw.writePart(fw.audio, &fmp4.Sample{
		Payload: s.Payload,
	}, dts, aacSamplesPerFrame)
}

// writePart emits one fragment holding a single sample. The sample
// duration is derived from the DTS delta to the previous sample of the
// track, falling back to defaultDur for the first one.
func (fw *fmp4Writer) writePart(track *fmp4Track, sample *fmp4.Sample, dts, defaultDur int64) error {
	dur := defaultDur
	if track.hasLast && dts > track.lastDTS {
		dur = dts - track.lastDTS
	}
	sample.Duration = uint32(dur)

	part := &fmp4.Part{
		SequenceNumber: fw.sequenceNumber,
		Tracks: []*fmp4.PartTrack{
			{
				ID:       track.id,
				BaseTime: uint64(dts),
				Samples:  []*fmp4.Sample{sample},
			},
		},
	}

	var buf seekablebuffer.Buffer
	if err := part.Marshal(&buf); err != nil {
		return fmt.Errorf("marshal part: %w", err)
	}
	if _, err := fw.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write part: %w", err)
	}

	track.lastDTS = dts
	track.hasLast = true
	track.samples++
	fw.sequenceNumber++
	return nil
}

// Finalize marks the writer closed. Fragmented MP4 needs no trailer;
// every part already landed on disk.
func (fw *fmp4Writer) Finalize() error {
	if fw.finalized {
		return nil
	}
	fw.finalized = true

	audioSamples := uint64(0)
	if fw.audio != nil {
		audioSamples = fw.audio.samples
	}
	fw.logger.Debug("fMP4 writer finalized",
		"video_samples", fw.video.samples,
		"audio_samples", audioSamples)
	return nil
}

// hasParameterSets reports whether an Annex-B access unit already
// carries an SPS.
func hasParameterSets(annexB []byte) bool {
	for _, nalu := range h264.SplitNALUs(annexB) {
		if h264.UnitType(nalu) == h264.NALUnitTypeSPS {
			return true
		}
	}
	return false
}

// durationToScale converts a timestamp to track timescale units.
func durationToScale(d time.Duration, timeScale uint32) int64 {
	if d <= 0 {
		return 0
	}
	return int64(d) * int64(timeScale) / int64(time.Second)
}

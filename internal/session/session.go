// Package session coordinates the capture topology and the stream
// recorder behind one serialized facade. A Session is explicitly
// constructed and owned by its caller; "one active session per device"
// is the caller's invariant, not a process-wide singleton.
package session

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/avmux/avmux/internal/device"
	"github.com/avmux/avmux/internal/mux"
	"github.com/avmux/avmux/internal/recorder"
)

// StillResult is handed to a still-capture callback.
type StillResult struct {
	URL string
	Err error
}

// CodecParams carries the H.264 parameter sets the producer negotiated;
// the MP4 container needs them for track setup.
type CodecParams struct {
	SPS []byte
	PPS []byte
}

// Options configure a Session.
type Options struct {
	// Registry is required.
	Registry *device.Registry
	// OutputDir receives the recording and still files.
	OutputDir string
	// Format selects the recording container; defaults to MP4.
	Format mux.Format
	// Mode is the initial capture mode; defaults to still-image.
	Mode Mode
	// Preset is the initial quality preset; defaults to high.
	Preset Preset
	// CameraFacing selects the initial camera; defaults to back.
	CameraFacing device.Facing
	Logger       *slog.Logger
}

// Session is the facade serializing all public capture operations onto
// one ordering domain. Sample buffers arrive on the producer's own
// context through OnSampleBuffer; the recorder funnels those with the
// control path internally.
type Session struct {
	logger *slog.Logger
	reg    *device.Registry
	topo   *Topology
	rec    *recorder.Recorder

	format        mux.Format
	recordingPath string
	stillPath     string

	mu           sync.Mutex
	pendingStill func(StillResult)
}

// New builds a session and applies its initial topology.
func New(opts Options) (*Session, error) {
	if opts.Registry == nil {
		return nil, errors.New("session needs a device registry")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Format == "" {
		opts.Format = mux.FormatMP4
	}
	if opts.Mode == 0 {
		opts.Mode = ModeStillImage
	}
	if opts.Preset == 0 {
		opts.Preset = PresetHigh
	}
	if opts.CameraFacing == device.FacingNone {
		opts.CameraFacing = device.FacingBack
	}
	if opts.OutputDir == "" {
		opts.OutputDir = os.TempDir()
	}

	cam, ok := opts.Registry.Camera(opts.CameraFacing)
	if !ok {
		// Fall back to any video device
		cams := opts.Registry.Devices(device.KindVideo)
		if len(cams) == 0 {
			return nil, errors.New("no camera device registered")
		}
		cam = cams[0]
	}

	s := &Session{
		logger:        logger,
		reg:           opts.Registry,
		topo:          NewTopology(opts.Registry, logger),
		rec:           recorder.New(logger),
		format:        opts.Format,
		recordingPath: filepath.Join(opts.OutputDir, "capture."+opts.Format.Ext()),
		stillPath:     filepath.Join(opts.OutputDir, "still.jpg"),
	}

	if err := s.topo.Apply(cam.ID(), opts.Mode, opts.Preset); err != nil {
		return nil, errors.Wrap(err, "apply initial configuration")
	}
	return s, nil
}

// SetMode switches the capture mode. Rejected while a recording is
// active: the recorder's track set is fixed per recording session.
func (s *Session) SetMode(m Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rec.State() != recorder.StateIdle {
		return ErrModeChangeWhileRecording
	}
	camID, _, preset := s.topo.Current()
	return s.topo.Apply(camID, m, preset)
}

// SelectDevice switches the active camera. Permitted mid-recording:
// only the topology's input set changes, the recorder's registered
// tracks are untouched.
func (s *Session) SelectDevice(cameraID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, mode, preset := s.topo.Current()
	return s.topo.Apply(cameraID, mode, preset)
}

// SetQuality switches the quality preset. On a CapabilityError the
// prior preset remains in effect.
func (s *Session) SetQuality(p Preset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	camID, mode, _ := s.topo.Current()
	return s.topo.Apply(camID, mode, p)
}

// SetFlashMode forwards the flash setting to the topology; a no-op on
// devices without flash.
func (s *Session) SetFlashMode(m device.FlashMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topo.SetFlashMode(m)
}

// SetTorchLevel forwards the torch level to the topology; a no-op on
// devices without torch.
func (s *Session) SetTorchLevel(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topo.SetTorchLevel(level)
}

// StartRecording arms the recorder for the current mode and profiles.
// Valid in the video modes; the audio track is registered only for
// video+audio. Fails with recorder.ErrAlreadyRecording while a
// recording session is active, including during finalize.
func (s *Session) StartRecording(codec CodecParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, mode, _ := s.topo.Current()
	if mode == ModeStillImage {
		return ErrWrongMode
	}

	vp, ap := s.topo.Profiles()
	cfg := recorder.Config{
		Path:   s.recordingPath,
		Format: s.format,
		Container: mux.Config{
			Video: mux.VideoParams{
				Width:  vp.Width,
				Height: vp.Height,
				SPS:    codec.SPS,
				PPS:    codec.PPS,
			},
		},
	}
	if mode == ModeVideoAudio {
		cfg.Container.Audio = &mux.AudioParams{
			SampleRate: ap.SampleRate,
			Channels:   ap.Channels,
		}
	}

	return s.rec.Start(cfg)
}

// StopRecording finalizes the active recording. The callback fires
// exactly once with the finalized file URL or an error; stopping when
// nothing records resolves with recorder.ErrNotRecording. Downstream
// persistence is not awaited: the temp URL is reported as soon as the
// container is finalized.
func (s *Session) StopRecording(onComplete func(recorder.Result)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.Stop(onComplete)
}

// CaptureStill arms a one-shot capture of the next video sample. Valid
// only in still-image mode; in any other mode the callback is resolved
// with ErrWrongMode (the cancellation signal) and no side effects.
func (s *Session) CaptureStill(onComplete func(StillResult)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, mode, _ := s.topo.Current()
	if mode != ModeStillImage {
		if onComplete != nil {
			go onComplete(StillResult{Err: ErrWrongMode})
		}
		return ErrWrongMode
	}
	if s.pendingStill != nil {
		if onComplete != nil {
			go onComplete(StillResult{Err: ErrCaptureInProgress})
		}
		return ErrCaptureInProgress
	}

	s.pendingStill = onComplete
	return nil
}

// OnSampleBuffer is the producer-facing push interface. It runs on the
// producer's context: a pending still capture consumes video samples,
// everything else is handed to the recorder, which decides acceptance.
func (s *Session) OnSampleBuffer(track recorder.Track, payload []byte, ts time.Duration, keyframe bool) {
	if track == recorder.TrackVideo {
		s.mu.Lock()
		cb := s.pendingStill
		if cb != nil {
			s.pendingStill = nil
		}
		stillPath := s.stillPath
		s.mu.Unlock()

		if cb != nil {
			data := append([]byte(nil), payload...)
			go func() {
				if err := os.WriteFile(stillPath, data, 0o644); err != nil {
					cb(StillResult{Err: err})
					return
				}
				cb(StillResult{URL: stillPath})
			}()
		}
	}

	s.rec.Ingest(track, payload, ts, keyframe)
}

// Graph returns a snapshot of the attached inputs and outputs.
func (s *Session) Graph() GraphSnapshot {
	return s.topo.Snapshot()
}

// Current returns the active (camera, mode, preset) triple.
func (s *Session) Current() (string, Mode, Preset) {
	return s.topo.Current()
}

// Profiles returns the concrete profiles for the active configuration.
func (s *Session) Profiles() (VideoProfile, AudioProfile) {
	return s.topo.Profiles()
}

// RecorderState reports the recorder lifecycle state.
func (s *Session) RecorderState() recorder.State {
	return s.rec.State()
}

// RecordingPath returns the fixed container path of this session.
func (s *Session) RecordingPath() string {
	return s.recordingPath
}

// Registry exposes the device registry for capability queries.
func (s *Session) Registry() *device.Registry {
	return s.reg
}

// Package recorder implements the recording state machine: it accepts
// timestamped sample buffers pushed by an external producer and
// commits them, in order, to a container file.
//
// States: Idle -> Armed -> Writing -> Finalizing -> Idle. Start arms a
// fresh container writer; the first accepted buffer of any track fixes
// the session base time and moves to Writing; Stop finalizes
// asynchronously and always resolves its callback exactly once.
package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avmux/avmux/internal/mux"
)

// Track identifies the stream a sample buffer belongs to.
type Track int

const (
	TrackVideo Track = iota + 1
	TrackAudio
)

func (t Track) String() string {
	switch t {
	case TrackVideo:
		return "video"
	case TrackAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// State is the recorder lifecycle state.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateWriting
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateWriting:
		return "writing"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyRecording is returned by Start while a recording
	// session is active, including during finalize.
	ErrAlreadyRecording = errors.New("a recording session is already active")

	// ErrNotRecording is reported by Stop when no recording was armed.
	ErrNotRecording = errors.New("recorder is not writing")
)

// InitError wraps a failure to create the container or attach its
// tracks; Start aborts and the recorder stays Idle.
type InitError struct {
	Err error
}

func (e *InitError) Error() string { return fmt.Sprintf("recording writer init: %v", e.Err) }
func (e *InitError) Unwrap() error { return e.Err }

// FinalizeError wraps a failure reported while finalizing the
// container; the file may be partial or absent.
type FinalizeError struct {
	Err error
}

func (e *FinalizeError) Error() string { return fmt.Sprintf("recording finalize: %v", e.Err) }
func (e *FinalizeError) Unwrap() error { return e.Err }

// Result is handed to the Stop callback: the finalized file URL on
// success, or an error and no URL.
type Result struct {
	URL string
	Err error
}

// Config describes one recording session.
type Config struct {
	// Path is the target container file; any stale file there is
	// removed before writing.
	Path string
	// Format selects the container backend.
	Format mux.Format
	// Container carries the track layout. A nil Audio registers no
	// audio track and audio buffers are dropped.
	Container mux.Config
}

type trackState struct {
	last     time.Duration
	hasLast  bool
	accepted uint64
	dropped  uint64
	finished bool
}

// Recorder is the mux/writer state machine. The mutex is the single
// serialization point shared by the control path (Start/Stop) and the
// ingestion path, so a buffer can never race a Stop into inconsistent
// container state.
type Recorder struct {
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	sessionID string
	path      string // last-known target path, kept across sessions
	file      *os.File
	writer    mux.Writer
	baseSet   bool
	base      time.Duration
	tracks    map[Track]*trackState
	writeErr  error
}

// New creates an idle recorder.
func New(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger}
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SessionID returns the identity of the active recording session, or
// "" when idle.
func (r *Recorder) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

type openWriterFunc func(f *os.File) (mux.Writer, error)

// Start allocates a fresh container writer bound to cfg.Path and moves
// the recorder to Armed. Valid only from Idle.
func (r *Recorder) Start(cfg Config) error {
	return r.start(cfg, func(f *os.File) (mux.Writer, error) {
		return mux.NewWriter(cfg.Format, f, cfg.Container, r.logger)
	})
}

func (r *Recorder) start(cfg Config, open openWriterFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return ErrAlreadyRecording
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return &InitError{Err: err}
	}
	// Clear any stale file from a previous session at the same path
	if err := os.Remove(cfg.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &InitError{Err: err}
	}

	f, err := os.Create(cfg.Path)
	if err != nil {
		return &InitError{Err: err}
	}

	w, err := open(f)
	if err != nil {
		f.Close()
		os.Remove(cfg.Path)
		return &InitError{Err: err}
	}

	r.state = StateArmed
	r.sessionID = uuid.NewString()
	r.path = cfg.Path
	r.file = f
	r.writer = w
	r.baseSet = false
	r.base = 0
	r.writeErr = nil
	r.tracks = map[Track]*trackState{TrackVideo: {}}
	if cfg.Container.Audio != nil {
		r.tracks[TrackAudio] = &trackState{}
	}

	r.logger.Info("recording armed",
		"session", r.sessionID,
		"path", r.path,
		"format", string(cfg.Format),
		"audio", cfg.Container.Audio != nil)
	return nil
}

// Ingest accepts one sample buffer from the producer. It never returns
// an error: buffers that arrive while the recorder is not accepting,
// belong to an unregistered track, or violate per-track timestamp
// monotonicity are dropped.
func (r *Recorder) Ingest(track Track, payload []byte, ts time.Duration, keyframe bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateArmed && r.state != StateWriting {
		return
	}

	tr, ok := r.tracks[track]
	if !ok || tr.finished {
		return
	}

	if tr.hasLast && ts < tr.last {
		tr.dropped++
		r.logger.Debug("dropping out-of-order buffer",
			"track", track.String(), "ts", ts, "last", tr.last)
		return
	}

	// The first accepted buffer of any track fixes the session base
	if !r.baseSet {
		r.base = ts
		r.baseSet = true
		r.state = StateWriting
		r.logger.Debug("session base time fixed", "session", r.sessionID, "base", ts)
	}

	rel := ts - r.base
	if rel < 0 {
		// A second track may start slightly before the base; clamp
		// rather than rewind the container time base.
		rel = 0
	}

	sample := mux.Sample{Payload: payload, Timestamp: rel, Keyframe: keyframe}
	var err error
	switch track {
	case TrackVideo:
		err = r.writer.WriteVideo(sample)
	case TrackAudio:
		err = r.writer.WriteAudio(sample)
	}
	if err != nil {
		tr.dropped++
		if r.writeErr == nil {
			r.writeErr = err
		}
		r.logger.Warn("container write failed, dropping buffer",
			"track", track.String(), "error", err)
		return
	}

	tr.last = ts
	tr.hasLast = true
	tr.accepted++
}

// Stop finishes every registered track and finalizes the container
// asynchronously. onComplete fires exactly once with the file URL or
// an error, never re-entrantly from the ingestion path. Stopping an
// idle recorder is not an error: the callback resolves with
// ErrNotRecording and the last-known path.
func (r *Recorder) Stop(onComplete func(Result)) {
	r.mu.Lock()

	if r.state != StateArmed && r.state != StateWriting {
		path := r.path
		r.mu.Unlock()
		if onComplete != nil {
			go onComplete(Result{URL: path, Err: ErrNotRecording})
		}
		return
	}

	for _, tr := range r.tracks {
		tr.finished = true
	}
	r.state = StateFinalizing

	session := r.sessionID
	writer := r.writer
	file := r.file
	path := r.path
	writeErr := r.writeErr
	accepted, dropped := r.counters()

	r.mu.Unlock()

	go func() {
		err := writer.Finalize()
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err == nil {
			err = writeErr
		}

		r.mu.Lock()
		r.state = StateIdle
		r.sessionID = ""
		r.writer = nil
		r.file = nil
		r.baseSet = false
		r.tracks = nil
		r.writeErr = nil
		r.mu.Unlock()

		if err != nil {
			r.logger.Error("recording finalize failed", "session", session, "error", err)
			if onComplete != nil {
				onComplete(Result{Err: &FinalizeError{Err: err}})
			}
			return
		}

		r.logger.Info("recording finalized",
			"session", session,
			"path", path,
			"accepted", accepted,
			"dropped", dropped)
		if onComplete != nil {
			onComplete(Result{URL: path})
		}
	}()
}

// counters sums accepted/dropped buffers across tracks. Caller holds
// the mutex.
func (r *Recorder) counters() (accepted, dropped uint64) {
	for _, tr := range r.tracks {
		accepted += tr.accepted
		dropped += tr.dropped
	}
	return accepted, dropped
}

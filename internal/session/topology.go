package session

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/avmux/avmux/internal/device"
)

// Sink identifies an output attached to the session graph.
type Sink int

const (
	SinkStill Sink = iota + 1
	SinkVideo
	SinkAudio
)

func (s Sink) String() string {
	switch s {
	case SinkStill:
		return "still"
	case SinkVideo:
		return "video"
	case SinkAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// GraphSnapshot is a point-in-time copy of the attached inputs and
// outputs, sorted for comparison in tests.
type GraphSnapshot struct {
	Inputs  []string
	Outputs []Sink
}

// Topology owns the live input/output graph of a capture session. Each
// Apply computes the minimal diff between the attached sets and the
// required sets for a (device, mode, quality) triple and applies it
// inside one configuration bracket, so the graph is never observably
// partial.
type Topology struct {
	reg    *device.Registry
	logger *slog.Logger

	mu          sync.Mutex
	configuring bool
	cameraID    string
	mode        Mode
	preset      Preset
	inputs      map[string]struct{}
	outputs     map[Sink]struct{}
}

// NewTopology creates a controller with an empty graph. The caller
// applies the initial configuration.
func NewTopology(reg *device.Registry, logger *slog.Logger) *Topology {
	if logger == nil {
		logger = slog.Default()
	}
	return &Topology{
		reg:     reg,
		logger:  logger,
		inputs:  make(map[string]struct{}),
		outputs: make(map[Sink]struct{}),
	}
}

// Apply reconfigures the graph for the given camera, mode and preset.
// On a capability failure nothing changes: the prior camera, mode,
// preset and graph all stay in effect.
func (t *Topology) Apply(cameraID string, mode Mode, preset Preset) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cam, ok := t.reg.Lookup(cameraID)
	if !ok || cam.Kind() != device.KindVideo {
		return errors.Errorf("unknown camera device %q", cameraID)
	}

	profile := videoProfileFor(preset, mode)
	if !cam.SupportsResolution(profile.Width, profile.Height) {
		return &CapabilityError{DeviceID: cameraID, Preset: preset, Mode: mode}
	}

	required := map[string]struct{}{cameraID: {}}
	if mode == ModeVideoAudio {
		mic, ok := t.reg.Microphone()
		if !ok {
			return errors.New("no microphone device registered")
		}
		required[mic.ID()] = struct{}{}
	}

	requiredOut := requiredSinks(mode)

	t.beginConfiguration()
	defer t.commitConfiguration()

	for id := range t.inputs {
		if _, keep := required[id]; !keep {
			delete(t.inputs, id)
		}
	}
	for id := range required {
		t.inputs[id] = struct{}{}
	}

	for sink := range t.outputs {
		if _, keep := requiredOut[sink]; !keep {
			delete(t.outputs, sink)
		}
	}
	for sink := range requiredOut {
		t.outputs[sink] = struct{}{}
	}

	t.cameraID = cameraID
	t.mode = mode
	t.preset = preset

	t.logger.Debug("topology applied",
		"camera", cameraID,
		"mode", mode.String(),
		"preset", preset.String(),
		"inputs", len(t.inputs),
		"outputs", len(t.outputs))
	return nil
}

// requiredSinks maps a mode to its output set.
func requiredSinks(mode Mode) map[Sink]struct{} {
	switch mode {
	case ModeStillImage:
		return map[Sink]struct{}{SinkStill: {}}
	case ModeVideoAudio:
		return map[Sink]struct{}{SinkVideo: {}, SinkAudio: {}}
	default:
		return map[Sink]struct{}{SinkVideo: {}}
	}
}

// beginConfiguration opens the bracket for one atomic set of graph
// mutations. The mutex is already held; the flag exists so a snapshot
// taken mid-bracket can be detected in tests and assertions.
func (t *Topology) beginConfiguration() {
	t.configuring = true
}

func (t *Topology) commitConfiguration() {
	t.configuring = false
}

// SetFlashMode applies the flash setting to the device currently
// playing the rear-camera role. Devices without flash hardware ignore
// the request; that is not an error.
func (t *Topology) SetFlashMode(m device.FlashMode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cam, ok := t.reg.Lookup(t.cameraID)
	if !ok || cam.Facing() != device.FacingBack || !cam.HasFlash() {
		t.logger.Debug("flash not available on current device", "camera", t.cameraID)
		return
	}
	cam.SetFlashMode(m)
}

// SetTorchLevel applies the torch level to the device currently
// playing the rear-camera role, when it has a torch.
func (t *Topology) SetTorchLevel(level float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cam, ok := t.reg.Lookup(t.cameraID)
	if !ok || cam.Facing() != device.FacingBack || !cam.HasTorch() {
		t.logger.Debug("torch not available on current device", "camera", t.cameraID)
		return
	}
	cam.SetTorchLevel(level)
}

// Current returns the active (camera, mode, preset) triple.
func (t *Topology) Current() (string, Mode, Preset) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cameraID, t.mode, t.preset
}

// Profiles returns the concrete profiles for the active configuration.
func (t *Topology) Profiles() (VideoProfile, AudioProfile) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return videoProfileFor(t.preset, t.mode), audioProfileFor(t.preset)
}

// Snapshot copies the attached input and output sets.
func (t *Topology) Snapshot() GraphSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := GraphSnapshot{}
	for id := range t.inputs {
		snap.Inputs = append(snap.Inputs, id)
	}
	for sink := range t.outputs {
		snap.Outputs = append(snap.Outputs, sink)
	}
	sort.Strings(snap.Inputs)
	sort.Slice(snap.Outputs, func(i, j int) bool { return snap.Outputs[i] < snap.Outputs[j] })
	return snap
}

package session

import "github.com/pkg/errors"

// Mode is the capture mode of a session. It determines the required
// input and output sets of the topology.
type Mode int

const (
	ModeStillImage Mode = iota + 1
	ModeVideoOnly
	ModeVideoAudio
)

func (m Mode) String() string {
	switch m {
	case ModeStillImage:
		return "still"
	case ModeVideoOnly:
		return "video"
	case ModeVideoAudio:
		return "video+audio"
	default:
		return "unknown"
	}
}

// Preset selects a quality profile.
type Preset int

const (
	PresetLow Preset = iota + 1
	PresetMedium
	PresetHigh
)

func (p Preset) String() string {
	switch p {
	case PresetLow:
		return "low"
	case PresetMedium:
		return "medium"
	case PresetHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParsePreset maps a configuration value to a Preset.
func ParsePreset(name string) (Preset, error) {
	switch name {
	case "low":
		return PresetLow, nil
	case "medium":
		return PresetMedium, nil
	case "high":
		return PresetHigh, nil
	default:
		return 0, errors.Errorf("unknown quality preset %q", name)
	}
}

// VideoProfile is the concrete resolution/bitrate profile a preset
// maps to. Bitrate and keyframe interval are encoder configuration
// values carried through to the producer.
type VideoProfile struct {
	Width               int
	Height              int
	BitrateBps          int
	KeyframeIntervalSec int
}

// AudioProfile is the audio track profile a preset maps to.
type AudioProfile struct {
	SampleRate int
	Channels   int
	BitrateBps int
}

// videoProfileFor resolves the video profile for a preset. The high
// preset branches on mode: still-image capture uses the full sensor
// photo profile instead of the video profile.
func videoProfileFor(p Preset, m Mode) VideoProfile {
	switch p {
	case PresetLow:
		return VideoProfile{Width: 640, Height: 480, BitrateBps: 1_000_000, KeyframeIntervalSec: 2}
	case PresetMedium:
		return VideoProfile{Width: 1280, Height: 720, BitrateBps: 2_500_000, KeyframeIntervalSec: 2}
	default:
		if m == ModeStillImage {
			return VideoProfile{Width: 4032, Height: 3024}
		}
		return VideoProfile{Width: 1920, Height: 1080, BitrateBps: 6_000_000, KeyframeIntervalSec: 2}
	}
}

// audioProfileFor resolves the audio profile for a preset.
func audioProfileFor(p Preset) AudioProfile {
	switch p {
	case PresetLow:
		return AudioProfile{SampleRate: 44100, Channels: 1, BitrateBps: 64_000}
	case PresetMedium:
		return AudioProfile{SampleRate: 44100, Channels: 2, BitrateBps: 96_000}
	default:
		return AudioProfile{SampleRate: 48000, Channels: 2, BitrateBps: 128_000}
	}
}

// Package device enumerates capture devices and answers capability
// queries for them. The registry is built eagerly: every device a
// session may select is resolved at construction time.
package device

import "sync"

// Kind identifies the media a device produces.
type Kind int

const (
	KindVideo Kind = iota + 1
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Facing identifies which way a camera points. Audio devices report
// FacingNone.
type Facing int

const (
	FacingNone Facing = iota
	FacingFront
	FacingBack
)

func (f Facing) String() string {
	switch f {
	case FacingFront:
		return "front"
	case FacingBack:
		return "back"
	default:
		return "none"
	}
}

// FlashMode is the still-capture flash setting of a camera.
type FlashMode int

const (
	FlashOff FlashMode = iota
	FlashOn
	FlashAuto
)

// Capabilities describes what a device supports. Max dimensions bound
// which quality profiles the device can serve.
type Capabilities struct {
	HasFlash  bool
	HasTorch  bool
	MaxWidth  int
	MaxHeight int
}

// Desc describes a device to register.
type Desc struct {
	ID     string
	Name   string
	Kind   Kind
	Facing Facing
	Caps   Capabilities
}

// Device is a capture device held by the registry. Identity and
// capabilities are immutable; flash and torch state are runtime
// settings guarded by a mutex.
type Device struct {
	id     string
	name   string
	kind   Kind
	facing Facing
	caps   Capabilities

	mu         sync.Mutex
	flashMode  FlashMode
	torchLevel float64
}

func (d *Device) ID() string         { return d.id }
func (d *Device) Name() string       { return d.name }
func (d *Device) Kind() Kind         { return d.kind }
func (d *Device) Facing() Facing     { return d.facing }
func (d *Device) Caps() Capabilities { return d.caps }

// HasFlash reports whether the device carries a flash unit.
func (d *Device) HasFlash() bool { return d.caps.HasFlash }

// HasTorch reports whether the device carries a torch.
func (d *Device) HasTorch() bool { return d.caps.HasTorch }

// SupportsResolution reports whether the device sensor covers the
// given frame dimensions.
func (d *Device) SupportsResolution(width, height int) bool {
	if d.kind != KindVideo {
		return false
	}
	return width <= d.caps.MaxWidth && height <= d.caps.MaxHeight
}

// SetFlashMode stores the flash setting. The caller is responsible for
// only invoking it on devices that declare flash support.
func (d *Device) SetFlashMode(m FlashMode) {
	d.mu.Lock()
	d.flashMode = m
	d.mu.Unlock()
}

// FlashState returns the current flash setting.
func (d *Device) FlashState() FlashMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flashMode
}

// SetTorchLevel stores the torch level in [0, 1].
func (d *Device) SetTorchLevel(level float64) {
	if level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}
	d.mu.Lock()
	d.torchLevel = level
	d.mu.Unlock()
}

// TorchState returns the current torch level.
func (d *Device) TorchState() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.torchLevel
}

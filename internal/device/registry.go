package device

import (
	"github.com/pkg/errors"
)

// Registry holds the capture devices available to a session. It is
// immutable after construction.
type Registry struct {
	devices []*Device
	byID    map[string]*Device
}

// NewRegistry builds a registry from device descriptions. Every device
// is resolved up front; a registry with no video device is unusable and
// rejected here rather than at first use.
func NewRegistry(descs []Desc) (*Registry, error) {
	r := &Registry{
		byID: make(map[string]*Device, len(descs)),
	}

	hasVideo := false
	for _, desc := range descs {
		if desc.ID == "" {
			return nil, errors.New("device ID must not be empty")
		}
		if _, dup := r.byID[desc.ID]; dup {
			return nil, errors.Errorf("duplicate device ID %q", desc.ID)
		}
		if desc.Kind != KindVideo && desc.Kind != KindAudio {
			return nil, errors.Errorf("device %q has unknown kind", desc.ID)
		}
		d := &Device{
			id:     desc.ID,
			name:   desc.Name,
			kind:   desc.Kind,
			facing: desc.Facing,
			caps:   desc.Caps,
		}
		r.devices = append(r.devices, d)
		r.byID[d.id] = d
		if d.kind == KindVideo {
			hasVideo = true
		}
	}

	if !hasVideo {
		return nil, errors.New("registry needs at least one video device")
	}
	return r, nil
}

// DefaultDescs describes the stock device set: a back camera with flash
// and torch, a front camera without either, and a microphone.
func DefaultDescs() []Desc {
	return []Desc{
		{
			ID:     "camera-back",
			Name:   "Back Camera",
			Kind:   KindVideo,
			Facing: FacingBack,
			Caps:   Capabilities{HasFlash: true, HasTorch: true, MaxWidth: 4032, MaxHeight: 3024},
		},
		{
			ID:     "camera-front",
			Name:   "Front Camera",
			Kind:   KindVideo,
			Facing: FacingFront,
			Caps:   Capabilities{MaxWidth: 1920, MaxHeight: 1080},
		},
		{
			ID:   "mic-builtin",
			Name: "Built-in Microphone",
			Kind: KindAudio,
		},
	}
}

// Devices returns the registered devices of the given kind, in
// registration order.
func (r *Registry) Devices(kind Kind) []*Device {
	var out []*Device
	for _, d := range r.devices {
		if d.kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// All returns every registered device in registration order.
func (r *Registry) All() []*Device {
	out := make([]*Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// Lookup returns the device with the given ID.
func (r *Registry) Lookup(id string) (*Device, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Camera returns the first video device with the given facing.
func (r *Registry) Camera(f Facing) (*Device, bool) {
	for _, d := range r.devices {
		if d.kind == KindVideo && d.facing == f {
			return d, true
		}
	}
	return nil, false
}

// Microphone returns the first audio device.
func (r *Registry) Microphone() (*Device, bool) {
	for _, d := range r.devices {
		if d.kind == KindAudio {
			return d, true
		}
	}
	return nil, false
}

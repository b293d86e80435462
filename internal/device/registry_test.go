package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_DefaultSet(t *testing.T) {
	r, err := NewRegistry(DefaultDescs())
	require.NoError(t, err)

	cams := r.Devices(KindVideo)
	require.Len(t, cams, 2)
	mics := r.Devices(KindAudio)
	require.Len(t, mics, 1)

	back, ok := r.Camera(FacingBack)
	require.True(t, ok)
	assert.True(t, back.HasFlash())
	assert.True(t, back.HasTorch())

	front, ok := r.Camera(FacingFront)
	require.True(t, ok)
	assert.False(t, front.HasFlash())
	assert.False(t, front.HasTorch())

	_, ok = r.Microphone()
	assert.True(t, ok)
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name  string
		descs []Desc
	}{
		{
			name:  "empty registry",
			descs: nil,
		},
		{
			name: "missing ID",
			descs: []Desc{
				{Name: "cam", Kind: KindVideo},
			},
		},
		{
			name: "duplicate ID",
			descs: []Desc{
				{ID: "cam", Kind: KindVideo},
				{ID: "cam", Kind: KindVideo},
			},
		},
		{
			name: "audio only",
			descs: []Desc{
				{ID: "mic", Kind: KindAudio},
			},
		},
		{
			name: "unknown kind",
			descs: []Desc{
				{ID: "x"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.descs)
			assert.Error(t, err)
		})
	}
}

func TestDevice_SupportsResolution(t *testing.T) {
	r, err := NewRegistry(DefaultDescs())
	require.NoError(t, err)

	front, _ := r.Camera(FacingFront)
	assert.True(t, front.SupportsResolution(1920, 1080))
	assert.False(t, front.SupportsResolution(4032, 3024))

	back, _ := r.Camera(FacingBack)
	assert.True(t, back.SupportsResolution(4032, 3024))

	mic, _ := r.Microphone()
	assert.False(t, mic.SupportsResolution(640, 480))
}

func TestDevice_FlashTorchState(t *testing.T) {
	r, err := NewRegistry(DefaultDescs())
	require.NoError(t, err)
	back, _ := r.Camera(FacingBack)

	assert.Equal(t, FlashOff, back.FlashState())
	back.SetFlashMode(FlashAuto)
	assert.Equal(t, FlashAuto, back.FlashState())

	back.SetTorchLevel(0.5)
	assert.Equal(t, 0.5, back.TorchState())

	// Out-of-range levels clamp
	back.SetTorchLevel(2.0)
	assert.Equal(t, 1.0, back.TorchState())
	back.SetTorchLevel(-1)
	assert.Equal(t, 0.0, back.TorchState())
}

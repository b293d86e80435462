package mux

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal H.264 test data
var testSPS = []byte{
	0x67, 0x42, 0xc0, 0x28, 0xd9, 0x00, 0x78, 0x02,
	0x27, 0xe5, 0x84, 0x00, 0x00, 0x03, 0x00, 0x04,
	0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x60, 0xc9,
	0x20,
}

var testPPS = []byte{0x68, 0xce, 0x38, 0x80}

var testIDR = []byte{0x65, 0x88, 0x84, 0x00, 0x10}

var testPFrame = []byte{0x41, 0x9a, 0x24, 0x8c, 0x09}

// Raw AAC test frame
var testAACFrame = []byte{
	0x12, 0x10, 0x56, 0xe5, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// Opus silence frame
var testOpusFrame = []byte{0xf8, 0xff, 0xfe}

func annexBFrame(nalus ...[]byte) []byte {
	var out []byte
	for _, n := range nalus {
		out = append(out, 0x00, 0x00, 0x00, 0x01)
		out = append(out, n...)
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func videoAudioConfig() Config {
	return Config{
		Video: VideoParams{Width: 1920, Height: 1080, SPS: testSPS, PPS: testPPS},
		Audio: &AudioParams{SampleRate: 48000, Channels: 2},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("mp4")
	require.NoError(t, err)
	assert.Equal(t, FormatMP4, f)
	assert.Equal(t, "mp4", f.Ext())

	f, err = ParseFormat("webm")
	require.NoError(t, err)
	assert.Equal(t, FormatWebM, f)
	assert.Equal(t, "webm", f.Ext())

	_, err = ParseFormat("avi")
	assert.Error(t, err)
}

func TestNewWriter_BothFormats(t *testing.T) {
	for _, format := range []Format{FormatMP4, FormatWebM} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(format, &buf, videoAudioConfig(), testLogger())
			require.NoError(t, err)

			// Container header/init segment lands before any sample
			assert.Greater(t, buf.Len(), 0)

			audioPayload := testAACFrame
			if format == FormatWebM {
				audioPayload = testOpusFrame
			}

			for i := 0; i < 5; i++ {
				ts := time.Duration(i) * 33 * time.Millisecond
				err = w.WriteVideo(Sample{
					Payload:   annexBFrame(testSPS, testPPS, testIDR),
					Timestamp: ts,
					Keyframe:  i == 0,
				})
				require.NoError(t, err)

				err = w.WriteAudio(Sample{Payload: audioPayload, Timestamp: ts})
				require.NoError(t, err)
			}

			require.NoError(t, w.Finalize())
			assert.Greater(t, buf.Len(), 100)

			// Finalize is idempotent, writes after it fail
			require.NoError(t, w.Finalize())
			assert.Error(t, w.WriteVideo(Sample{Payload: testIDR}))
		})
	}
}

func TestNewWriter_VideoOnly(t *testing.T) {
	for _, format := range []Format{FormatMP4, FormatWebM} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			cfg := videoAudioConfig()
			cfg.Audio = nil

			w, err := NewWriter(format, &buf, cfg, testLogger())
			require.NoError(t, err)

			err = w.WriteVideo(Sample{
				Payload:  annexBFrame(testSPS, testPPS, testIDR),
				Keyframe: true,
			})
			require.NoError(t, err)

			// No audio track registered
			assert.Error(t, w.WriteAudio(Sample{Payload: testAACFrame}))

			require.NoError(t, w.Finalize())
		})
	}
}

func TestFMP4Writer_RequiresParameterSets(t *testing.T) {
	var buf bytes.Buffer
	cfg := videoAudioConfig()
	cfg.Video.SPS = nil
	cfg.Video.PPS = nil

	_, err := NewWriter(FormatMP4, &buf, cfg, testLogger())
	assert.Error(t, err)
}

func TestWebMWriter_RequiresDimensions(t *testing.T) {
	var buf bytes.Buffer
	cfg := videoAudioConfig()
	cfg.Video.Width = 0

	_, err := NewWriter(FormatWebM, &buf, cfg, testLogger())
	assert.Error(t, err)
}

func TestWebMWriter_EBMLHeader(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(FormatWebM, &buf, videoAudioConfig(), testLogger())
	require.NoError(t, err)
	require.NoError(t, w.Finalize())

	// EBML magic
	header := buf.Bytes()
	require.GreaterOrEqual(t, len(header), 4)
	assert.Equal(t, []byte{0x1A, 0x45, 0xDF, 0xA3}, header[:4])
}

func TestFMP4Writer_SkipsEmptyPayloads(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(FormatMP4, &buf, videoAudioConfig(), testLogger())
	require.NoError(t, err)
	initLen := buf.Len()

	require.NoError(t, w.WriteVideo(Sample{}))
	require.NoError(t, w.WriteAudio(Sample{}))
	assert.Equal(t, initLen, buf.Len())
}

func TestFMP4Writer_SampleDurationsFromDTSDelta(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(FormatMP4, &buf, videoAudioConfig(), testLogger())
	require.NoError(t, err)

	// Non-uniform deltas must not error and must keep emitting parts
	timestamps := []time.Duration{0, 33 * time.Millisecond, 100 * time.Millisecond, 101 * time.Millisecond}
	prevLen := buf.Len()
	for i, ts := range timestamps {
		err = w.WriteVideo(Sample{
			Payload:   annexBFrame(testSPS, testPPS, testIDR),
			Timestamp: ts,
			Keyframe:  i == 0,
		})
		require.NoError(t, err)
		assert.Greater(t, buf.Len(), prevLen)
		prevLen = buf.Len()
	}

	require.NoError(t, w.Finalize())
}

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avmux/avmux/config"
	"github.com/avmux/avmux/internal/device"
	"github.com/avmux/avmux/internal/h264"
	"github.com/avmux/avmux/internal/mux"
	"github.com/avmux/avmux/internal/recorder"
	"github.com/avmux/avmux/internal/session"
	"github.com/avmux/avmux/internal/util"
)

type RecordOptions struct {
	Input     string
	OutputDir string
	Format    string
	Quality   string
	Camera    string
	FPS       int
	WithAudio bool
}

// aacSilence is a canned AAC-LC frame encoding 1024 samples of silence.
var aacSilence = []byte{0x21, 0x10, 0x04, 0x60, 0x8c, 0x1c}

func NewRecordCommand() *cobra.Command {
	opts := &RecordOptions{}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record an H.264 elementary stream into a container",
		Long: `Record reads a raw Annex-B H.264 elementary stream, plays it through
a capture session at the configured frame rate and finalizes the
recording into an MP4 or WebM container.`,
		Example: `  avmux record --input clip.h264
  avmux record --input clip.h264 --format webm --quality medium
  avmux record --input clip.h264 --audio`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Input, "input", "i", "", "Annex-B H.264 input file (required)")
	flags.StringVar(&opts.OutputDir, "output-dir", config.GetOutputDir(), "Directory the recording is written to")
	flags.StringVar(&opts.Format, "format", config.GetContainerFormat(), "Container format (mp4 or webm)")
	flags.StringVarP(&opts.Quality, "quality", "q", config.GetDefaultQuality(), "Quality preset (low, medium or high)")
	flags.StringVar(&opts.Camera, "camera", config.GetCameraFacing(), "Camera facing (back or front)")
	flags.IntVar(&opts.FPS, "fps", config.GetRecordFPS(), "Frame rate the input is paced at")
	flags.BoolVar(&opts.WithAudio, "audio", false, "Mux a silent audio track alongside the video")
	cmd.MarkFlagRequired("input")

	return cmd
}

func runRecord(opts *RecordOptions) error {
	logger := util.GetLogger()

	format, err := mux.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	preset, err := session.ParsePreset(opts.Quality)
	if err != nil {
		return err
	}
	facing, err := parseFacing(opts.Camera)
	if err != nil {
		return err
	}
	if opts.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", opts.FPS)
	}

	data, err := os.ReadFile(opts.Input)
	if err != nil {
		return fmt.Errorf("failed to read input: %v", err)
	}
	codec, frames, err := parseElementaryStream(data)
	if err != nil {
		return err
	}
	logger.Info("parsed input stream", "file", opts.Input, "frames", len(frames))

	reg, err := device.NewRegistry(device.DefaultDescs())
	if err != nil {
		return err
	}

	mode := session.ModeVideoOnly
	if opts.WithAudio {
		mode = session.ModeVideoAudio
	}

	sess, err := session.New(session.Options{
		Registry:     reg,
		OutputDir:    opts.OutputDir,
		Format:       format,
		Mode:         mode,
		Preset:       preset,
		CameraFacing: facing,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	if err := sess.StartRecording(codec); err != nil {
		return err
	}

	frameDur := time.Second / time.Duration(opts.FPS)
	audioDur := audioFrameDuration(config.GetAudioSampleRate())
	nextAudio := time.Duration(0)

	for i, f := range frames {
		ts := time.Duration(i) * frameDur
		if opts.WithAudio {
			for nextAudio <= ts {
				sess.OnSampleBuffer(recorder.TrackAudio, aacSilence, nextAudio, false)
				nextAudio += audioDur
			}
		}
		sess.OnSampleBuffer(recorder.TrackVideo, f.payload, ts, f.keyframe)
	}

	done := make(chan recorder.Result, 1)
	sess.StopRecording(func(res recorder.Result) { done <- res })
	res := <-done
	if res.Err != nil {
		return fmt.Errorf("recording failed: %v", res.Err)
	}

	duration := time.Duration(len(frames)) * frameDur
	fmt.Printf("Recorded %d frames (%s) to %s\n",
		len(frames), duration.Round(time.Millisecond), color.GreenString(res.URL))
	return nil
}

type videoFrame struct {
	payload  []byte
	keyframe bool
}

// parseElementaryStream extracts the parameter sets from an Annex-B
// stream and regroups the slice NAL units into per-frame access units.
func parseElementaryStream(data []byte) (session.CodecParams, []videoFrame, error) {
	var codec session.CodecParams
	var frames []videoFrame

	for _, nalu := range h264.SplitNALUs(data) {
		switch h264.UnitType(nalu) {
		case h264.NALUnitTypeSPS:
			if codec.SPS == nil {
				codec.SPS = nalu
			}
		case h264.NALUnitTypePPS:
			if codec.PPS == nil {
				codec.PPS = nalu
			}
		case h264.NALUnitTypeSlice, h264.NALUnitTypeIDR:
			payload := append([]byte{0x00, 0x00, 0x00, 0x01}, nalu...)
			frames = append(frames, videoFrame{
				payload:  payload,
				keyframe: h264.UnitType(nalu) == h264.NALUnitTypeIDR,
			})
		}
	}

	if codec.SPS == nil || codec.PPS == nil {
		return codec, nil, fmt.Errorf("input stream carries no SPS/PPS parameter sets")
	}
	if len(frames) == 0 {
		return codec, nil, fmt.Errorf("input stream carries no video frames")
	}
	return codec, frames, nil
}

func audioFrameDuration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	// AAC frames carry 1024 samples
	return time.Second * 1024 / time.Duration(sampleRate)
}

func parseFacing(name string) (device.Facing, error) {
	switch name {
	case "back":
		return device.FacingBack, nil
	case "front":
		return device.FacingFront, nil
	default:
		return device.FacingNone, fmt.Errorf("unknown camera facing %q (want back or front)", name)
	}
}

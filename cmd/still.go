package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avmux/avmux/config"
	"github.com/avmux/avmux/internal/device"
	"github.com/avmux/avmux/internal/recorder"
	"github.com/avmux/avmux/internal/session"
	"github.com/avmux/avmux/internal/util"
)

type StillOptions struct {
	Input     string
	OutputDir string
	Quality   string
	Camera    string
	Flash     bool
}

func NewStillCommand() *cobra.Command {
	opts := &StillOptions{}

	cmd := &cobra.Command{
		Use:   "still",
		Short: "Capture a still image from an input frame",
		Long: `Still opens a capture session in still-image mode, arms a one-shot
capture and feeds it the input frame. The frame payload is persisted
as the session's still image.`,
		Example: `  avmux still --input frame.jpg
  avmux still --input frame.jpg --flash`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStill(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Input, "input", "i", "", "Frame payload to capture (required)")
	flags.StringVar(&opts.OutputDir, "output-dir", config.GetOutputDir(), "Directory the still is written to")
	flags.StringVarP(&opts.Quality, "quality", "q", config.GetDefaultQuality(), "Quality preset (low, medium or high)")
	flags.StringVar(&opts.Camera, "camera", config.GetCameraFacing(), "Camera facing (back or front)")
	flags.BoolVar(&opts.Flash, "flash", false, "Fire the flash when capturing")
	cmd.MarkFlagRequired("input")

	return cmd
}

func runStill(opts *StillOptions) error {
	preset, err := session.ParsePreset(opts.Quality)
	if err != nil {
		return err
	}
	facing, err := parseFacing(opts.Camera)
	if err != nil {
		return err
	}

	payload, err := os.ReadFile(opts.Input)
	if err != nil {
		return fmt.Errorf("failed to read input: %v", err)
	}

	reg, err := device.NewRegistry(device.DefaultDescs())
	if err != nil {
		return err
	}

	sess, err := session.New(session.Options{
		Registry:     reg,
		OutputDir:    opts.OutputDir,
		Mode:         session.ModeStillImage,
		Preset:       preset,
		CameraFacing: facing,
		Logger:       util.GetLogger(),
	})
	if err != nil {
		return err
	}

	if opts.Flash {
		sess.SetFlashMode(device.FlashOn)
	}

	done := make(chan session.StillResult, 1)
	if err := sess.CaptureStill(func(res session.StillResult) { done <- res }); err != nil {
		return err
	}
	sess.OnSampleBuffer(recorder.TrackVideo, payload, 0, true)

	select {
	case res := <-done:
		if res.Err != nil {
			return fmt.Errorf("still capture failed: %v", res.Err)
		}
		fmt.Printf("Captured still to %s\n", color.GreenString(res.URL))
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("still capture did not complete")
	}
}

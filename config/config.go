package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

var v *viper.Viper

func init() {
	v = viper.New()

	// Set default values
	v.SetDefault("output.dir", filepath.Join(xdg.Home, ".avmux", "recordings"))
	v.SetDefault("container.format", "mp4")
	v.SetDefault("record.quality", "high")
	v.SetDefault("record.fps", 30)
	v.SetDefault("camera.facing", "back")
	v.SetDefault("audio.sample_rate", 48000)
	v.SetDefault("log.level", "info")

	// Environment variables
	v.AutomaticEnv()
	v.BindEnv("output.dir", "AVMUX_OUTPUT_DIR")
	v.BindEnv("container.format", "AVMUX_CONTAINER_FORMAT")
	v.BindEnv("record.quality", "AVMUX_QUALITY")
	v.BindEnv("record.fps", "AVMUX_FPS")
	v.BindEnv("camera.facing", "AVMUX_CAMERA_FACING")
	v.BindEnv("audio.sample_rate", "AVMUX_AUDIO_SAMPLE_RATE")
	v.BindEnv("log.level", "AVMUX_LOG_LEVEL")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configPaths := []string{
		".",
		"$HOME/.avmux",
		"/etc/avmux",
	}
	for _, path := range configPaths {
		v.AddConfigPath(os.ExpandEnv(path))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Sprintf("Fatal error reading config file: %s", err))
		}
		// Config file not found; use defaults
	}
}

// GetOutputDir returns the directory recordings and stills are written to.
func GetOutputDir() string {
	return v.GetString("output.dir")
}

// GetContainerFormat returns the configured container format ("mp4" or "webm").
func GetContainerFormat() string {
	return v.GetString("container.format")
}

// GetDefaultQuality returns the default quality preset name.
func GetDefaultQuality() string {
	return v.GetString("record.quality")
}

// GetRecordFPS returns the frame rate the record command paces input samples at.
func GetRecordFPS() int {
	return v.GetInt("record.fps")
}

// GetCameraFacing returns the initially selected camera facing.
func GetCameraFacing() string {
	return v.GetString("camera.facing")
}

// GetAudioSampleRate returns the sample rate synthetic audio frames are
// paced at.
func GetAudioSampleRate() int {
	return v.GetInt("audio.sample_rate")
}

// GetLogLevel returns the configured log level name.
func GetLogLevel() string {
	return v.GetString("log.level")
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avmux/avmux/config"
	"github.com/avmux/avmux/internal/util"
	"github.com/avmux/avmux/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "avmux",
	Short: "AVMUX capture session tool",
	Long: `AVMUX manages capture sessions over a registry of camera and
microphone devices: it configures the session topology for a capture
mode and quality preset, records H.264/AAC streams into fragmented MP4
or WebM containers, and captures still images.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flag("version").Changed {
			info := version.ClientInfo()
			fmt.Printf("AVMUX version %s, build %s\n", info["Version"], info["GitCommit"])
			return nil
		}
		return cmd.Help()
	},
}

func Execute() error {
	util.InitLogger(config.GetLogLevel())
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information and exit")

	rootCmd.AddCommand(NewDevicesCommand())
	rootCmd.AddCommand(NewRecordCommand())
	rootCmd.AddCommand(NewStillCommand())
	rootCmd.AddCommand(NewVersionCommand())
}

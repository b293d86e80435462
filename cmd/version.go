package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avmux/avmux/internal/version"
)

func NewVersionCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.ClientInfo()

			if outputFormat == "json" {
				bytes, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal version info: %v", err)
				}
				fmt.Println(string(bytes))
				return nil
			}

			fmt.Printf("Version:    %s\n", info["Version"])
			fmt.Printf("Git commit: %s\n", info["GitCommit"])
			fmt.Printf("Go version: %s\n", info["GoVersion"])
			fmt.Printf("OS/Arch:    %s/%s\n", info["OS"], info["Arch"])
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (json or text)")
	return cmd
}

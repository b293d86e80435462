package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avmux/avmux/internal/device"
)

type DevicesOptions struct {
	OutputFormat string
}

type deviceInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Facing    string `json:"facing,omitempty"`
	MaxWidth  int    `json:"maxWidth,omitempty"`
	MaxHeight int    `json:"maxHeight,omitempty"`
	Flash     bool   `json:"flash"`
	Torch     bool   `json:"torch"`
}

func NewDevicesCommand() *cobra.Command {
	opts := &DevicesOptions{}

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List the available capture devices",
		Long:  "List the capture devices a session can select, with their capabilities",
		Example: `  avmux devices
  avmux devices --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevices(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.OutputFormat, "output", "o", "text", "Output format (json or text)")

	cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "text"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runDevices(opts *DevicesOptions) error {
	reg, err := device.NewRegistry(device.DefaultDescs())
	if err != nil {
		return fmt.Errorf("failed to build device registry: %v", err)
	}

	var infos []deviceInfo
	for _, d := range reg.All() {
		info := deviceInfo{
			ID:    d.ID(),
			Name:  d.Name(),
			Kind:  d.Kind().String(),
			Flash: d.HasFlash(),
			Torch: d.HasTorch(),
		}
		if d.Kind() == device.KindVideo {
			info.Facing = d.Facing().String()
			info.MaxWidth = d.Caps().MaxWidth
			info.MaxHeight = d.Caps().MaxHeight
		}
		infos = append(infos, info)
	}

	if opts.OutputFormat == "json" {
		out := map[string]interface{}{"devices": infos}
		bytes, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal devices: %v", err)
		}
		fmt.Println(string(bytes))
		return nil
	}

	columns := []TableColumn{
		{Header: "ID", Key: "id"},
		{Header: "NAME", Key: "name"},
		{Header: "KIND", Key: "kind"},
		{Header: "FACING", Key: "facing"},
		{Header: "MAX RES", Key: "res"},
		{Header: "FLASH", Key: "flash"},
	}

	var rows []map[string]string
	for _, info := range infos {
		row := map[string]string{
			"id":     info.ID,
			"name":   info.Name,
			"kind":   info.Kind,
			"facing": info.Facing,
			"flash":  "-",
		}
		if info.MaxWidth > 0 {
			row["res"] = fmt.Sprintf("%dx%d", info.MaxWidth, info.MaxHeight)
		}
		if info.Flash {
			row["flash"] = "yes"
		}
		rows = append(rows, row)
	}

	renderTable(columns, rows)
	return nil
}

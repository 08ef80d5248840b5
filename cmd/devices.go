package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/framebridge/internal/devices"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture devices matching the discovery pattern",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pattern := app.Options.DevicePattern
			list := devices.List(pattern)
			def, _ := devices.FindDefault(pattern)
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Pattern string           `json:"pattern"`
					Default string           `json:"default,omitempty"`
					Devices []devices.Device `json:"devices"`
				}{pattern, def, list})
			}

			if len(list) == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "No devices match %s\n", pattern)
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tTARGET\tCARD\tDRIVER\tCAPTURE\tSIZES")
			for _, d := range list {
				marker := ""
				if d.Path == def {
					marker = " *"
				}
				capture := fmt.Sprint(d.Capture)
				if d.Error != "" {
					capture = d.Error
				}
				var sizes []string
				for _, r := range d.Sizes() {
					sizes = append(sizes, r.String())
				}
				fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\t%s\t%s\n", d.Path, marker, d.Target, d.Card, d.Driver, capture, strings.Join(sizes, ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print devices as JSON")
	return cmd
}

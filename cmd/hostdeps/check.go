package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/divehq/hostdeps/internal/provision"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		hostDir string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show which dependencies are missing or stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.provisioner(hostDir, "")
			if err != nil {
				return err
			}
			status := p.Check(cmd.Context())

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			fmt.Fprintln(out, titleStyle.Render("Dependencies in "+a.dirs.Root))
			rows := []struct {
				name string
				need bool
				skip bool
			}{
				{"uv " + provision.UVVersion, status.UV, false},
				{"python " + provision.PythonVersion, status.Python, false},
				{"host packages", status.HostDeps, false},
				{"nodejs " + provision.NodeJSVersion, status.NodeJS, !a.info.IsWindows()},
				{"def tool packages", status.ToolDeps, false},
			}
			for _, row := range rows {
				switch {
				case row.skip:
					fmt.Fprintf(out, "  %s %s\n", mutedStyle.Render("-"), mutedStyle.Render(row.name+" (not needed on "+a.info.OS+")"))
				case row.need:
					fmt.Fprintf(out, "  %s %s %s\n", statusMark(false), row.name, warningStyle.Render("needs install"))
				default:
					fmt.Fprintf(out, "  %s %s\n", statusMark(true), row.name)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hostDir, "host-dir", "", "MCP host project containing uv.lock (default from config)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the status as JSON")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/divehq/hostdeps/internal/provision"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print the hostdeps version and pinned dependency versions",
		Args:              cobra.NoArgs,
		PersistentPreRunE: skipSetup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("hostdeps "+a.opts.version))
			fmt.Fprintf(out, "  uv      %s\n", provision.UVVersion)
			fmt.Fprintf(out, "  python  %s\n", provision.PythonVersion)
			fmt.Fprintf(out, "  nodejs  %s\n", provision.NodeJSVersion)
			digest := a.opts.digest
			if digest == "" {
				digest = mutedStyle.Render("(computed from uv.lock at runtime)")
			}
			fmt.Fprintf(out, "  uv.lock %s\n", digest)
			return nil
		},
	}
}

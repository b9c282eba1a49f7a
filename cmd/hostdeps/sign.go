package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/divehq/hostdeps/internal/codesign"
)

func newSignCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sign <dir>",
		Short: "Ad-hoc sign every native executable below a directory (macOS)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.info.IsMacOS() {
				return errors.New("signing is only supported on macOS")
			}

			res, err := codesign.NewSigner(nil, nil).SignDirectory(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %d signed, %d already signed, %d failed (of %d)\n",
				statusMark(res.Failed == 0), res.Signed, res.Skipped, res.Failed, res.Candidates)
			for _, f := range res.Failures {
				fmt.Fprintln(out, "  "+errorStyle.Render(f))
			}
			return nil
		},
	}
}

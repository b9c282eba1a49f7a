package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/divehq/hostdeps/internal/binary"
)

func newVerifyCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:               "verify <file> <sha256>",
		Short:             "Check a file against an expected SHA-256 digest",
		Args:              cobra.ExactArgs(2),
		PersistentPreRunE: skipSetup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := binary.CheckSHA256(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", statusMark(true), args[0])
			return nil
		},
	}
}

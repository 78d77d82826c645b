package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Download Dart Sass into the cache without running it",
		Long:  "install makes sure the configured release is cached and prints the path of its launcher.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			r, err := a.newRunner(s)
			if err != nil {
				return err
			}

			entry, err := r.Ensure(cmd.Context(), s.request(nil, false))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), entry.ExecutablePath)
			return nil
		},
	}
}

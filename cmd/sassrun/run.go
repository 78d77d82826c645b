package main

import (
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "run [flags] [-- sass-args...]",
		Short: "Fetch Dart Sass if needed and run it",
		Example: `  sassrun run -- input.scss output.css
  sassrun run --sass-version 1.63.6 -- --style=compressed in.scss out.css`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSass(cmd, args, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Append --watch to the sass arguments")

	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [flags] [-- sass-args...]",
		Short: "Run Dart Sass in watch mode",
		Long:  "watch is run with --watch appended to the sass arguments. It returns when sass exits or sassrun is interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSass(cmd, args, true)
		},
	}
}

func (a *app) runSass(cmd *cobra.Command, args []string, watch bool) error {
	s, err := a.load(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	// skip touches neither the platform, the cache nor the network
	if s.cfg.Skip {
		s.logger.Info("skipping sass execution")
		return nil
	}
	if s.platformErr != nil {
		return s.platformErr
	}

	r, err := a.newRunner(s)
	if err != nil {
		return err
	}

	return r.Run(cmd.Context(), s.request(args, watch))
}

package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/sassrun/internal/binary"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sassrun %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(out, "default Dart Sass %s\n", binary.DefaultVersion)
		},
	}
}

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ZebulonRouseFrantzich/sassrun/internal/binary"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or remove cached Dart Sass releases",
	}

	cmd.AddCommand(newCacheListCmd(a))
	cmd.AddCommand(newCacheCleanCmd(a))

	return cmd
}

func newCacheListCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached releases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			loc, err := s.locator()
			if err != nil {
				return err
			}
			entries, err := loc.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "table":
				return writeCacheTable(out, loc.Root, entries)
			case "yaml":
				return writeCacheYAML(out, entries)
			default:
				return fmt.Errorf("unknown format %q (want table or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or yaml")

	return cmd
}

func writeCacheTable(out io.Writer, root string, entries []binary.CachedEntry) error {
	if len(entries) == 0 {
		fmt.Fprintf(out, "No cached releases in %s\n", root)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRY\tVERSION\tPLATFORM\tINSTALLED\tVERIFIED")
	for _, e := range entries {
		if e.Receipt == nil {
			fmt.Fprintf(tw, "%s\t?\t?\t(no receipt)\t\n", e.Name)
			continue
		}
		r := e.Receipt
		fmt.Fprintf(tw, "%s\t%s\t%s-%s\t%s\t%s\n",
			e.Name, r.Version, r.OS, r.Arch, r.InstalledAt.Local().Format(time.DateTime), r.Verified)
	}
	return tw.Flush()
}

// cacheListing is the yaml shape of one entry.
type cacheListing struct {
	Name    string          `yaml:"name"`
	Path    string          `yaml:"path"`
	Receipt *binary.Receipt `yaml:"receipt,omitempty"`
}

func writeCacheYAML(out io.Writer, entries []binary.CachedEntry) error {
	listing := make([]cacheListing, 0, len(entries))
	for _, e := range entries {
		listing = append(listing, cacheListing{Name: e.Name, Path: e.Path, Receipt: e.Receipt})
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(listing); err != nil {
		return fmt.Errorf("encode cache listing: %w", err)
	}
	return enc.Close()
}

func newCacheCleanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove every cached release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			loc, err := s.locator()
			if err != nil {
				return err
			}
			removed, err := loc.Clean()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, path := range removed {
				fmt.Fprintf(out, "removed %s\n", path)
			}
			fmt.Fprintf(out, "%d cache entries removed from %s\n", len(removed), loc.Root)
			return nil
		},
	}
}

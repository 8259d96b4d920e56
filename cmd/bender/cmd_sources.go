package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/pulp-platform/bender/internal/srcs"
	"github.com/pulp-platform/bender/internal/target"
)

func newSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Emit the source file manifest for the package",
		RunE:  runSources,
	}
	cmd.Flags().StringSliceP("target", "t", nil, "Filter sources by target (-NAME removes, PKG:NAME scopes)")
	cmd.Flags().Bool("flatten", false, "Flatten the group hierarchy")
	cmd.Flags().StringSliceP("package", "p", nil, "Only include sources of the given packages")
	cmd.Flags().StringSliceP("exclude", "e", nil, "Exclude sources of the given packages")
	cmd.Flags().BoolP("no-deps", "n", false, "Only include sources of the root package")
	return cmd
}

func runSources(cmd *cobra.Command, _ []string) error {
	ws, s, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	locked, err := ensureLock(cmd.Context(), ws, s)
	if err != nil {
		return err
	}
	pkgs, err := ws.Packages(cmd.Context(), s, locked)
	if err != nil {
		return err
	}

	targets, _ := cmd.Flags().GetStringSlice("target")
	mods, err := target.ParseModifiers(targets)
	if err != nil {
		return err
	}
	only, _ := cmd.Flags().GetStringSlice("package")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	noDeps, _ := cmd.Flags().GetBool("no-deps")

	groups, err := srcs.Assemble(pkgs, ws.Manifest.Package.Name, srcs.Params{
		BaseTargets: target.NewSet(),
		Modifiers:   mods,
		Only:        only,
		Exclude:     exclude,
		NoDeps:      noDeps,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if flatten, _ := cmd.Flags().GetBool("flatten"); flatten {
		return enc.Encode(srcs.Flatten(groups))
	}
	return enc.Encode(groups)
}

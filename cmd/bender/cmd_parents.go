package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pulp-platform/bender/internal/ui"
)

func newParentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parents <package>",
		Short: "List packages calling this dependency",
		Args:  cobra.ExactArgs(1),
		RunE:  runParents,
	}
}

func runParents(cmd *cobra.Command, args []string) error {
	ws, s, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	locked, err := ensureLock(cmd.Context(), ws, s)
	if err != nil {
		return err
	}
	name := strings.ToLower(args[0])
	if _, ok := locked.Packages[name]; !ok {
		return fmt.Errorf("package %q is not a dependency of this workspace", name)
	}
	pkgs, err := ws.Packages(cmd.Context(), s, locked)
	if err != nil {
		return err
	}

	table := ui.NewTable(cmd.OutOrStdout(), "PACKAGE", "REQUIRES")
	found := false
	for _, pkg := range pkgs {
		if pkg.Manifest == nil {
			continue
		}
		if dep, ok := pkg.Manifest.Dependencies[name]; ok {
			table.Row(pkg.Name, dep.String())
			found = true
		}
	}
	if !found {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "no package depends on %q\n", name)
		return nil
	}
	return table.Flush()
}

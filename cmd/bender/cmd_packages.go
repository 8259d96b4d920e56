package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPackagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packages",
		Short: "Information about the dependency graph",
		RunE:  runPackages,
	}
	cmd.Flags().BoolP("graph", "g", false, "Print the dependencies as a tree")
	return cmd
}

func runPackages(cmd *cobra.Command, _ []string) error {
	ws, s, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	locked, err := ensureLock(cmd.Context(), ws, s)
	if err != nil {
		return err
	}
	g, err := ws.Graph(locked)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if tree, _ := cmd.Flags().GetBool("graph"); tree {
		printTree(cmd, ws.Manifest.Package.Name, g.Children(ws.Manifest.Package.Name), g.Children, "")
		return nil
	}

	order, err := g.TopoSort()
	if err != nil {
		return err
	}
	for _, name := range order {
		if name == ws.Manifest.Package.Name {
			continue
		}
		_, _ = fmt.Fprintln(out, name)
	}
	return nil
}

func printTree(cmd *cobra.Command, name string, children []string, lookup func(string) []string, indent string) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", indent, name)
	for _, c := range children {
		printTree(cmd, c, lookup(c), lookup, indent+"    ")
	}
}

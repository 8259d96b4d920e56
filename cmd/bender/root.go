package main

import (
	"github.com/spf13/cobra"

	"github.com/pulp-platform/bender/internal/diag"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bender",
		Short:   "A dependency management tool for hardware design projects",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			debug, _ := cmd.Flags().GetBool("debug")
			diag.SetDebug(debug)
		},
	}

	cmd.PersistentFlags().StringP("dir", "d", ".", "Sets a custom root working directory")
	cmd.PersistentFlags().Bool("debug", false, "Print debug information")
	cmd.PersistentFlags().Bool("local", false, "Disables fetching of remotes (e.g. for air-gapped computers)")

	cmd.AddCommand(
		newUpdateCmd(),
		newPackagesCmd(),
		newSourcesCmd(),
		newPathCmd(),
		newCheckoutCmd(),
		newParentsCmd(),
		newConfigCmd(),
	)

	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pulp-platform/bender/internal/ui"
)

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the dependencies and rewrite the lockfile",
		RunE:  runUpdate,
	}
	cmd.Flags().Bool("fetch", false, "Force fetch of remotes before resolution")
	return cmd
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	ws, s, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	s.Refetch, _ = cmd.Flags().GetBool("fetch")

	locked, err := ws.EnsureLock(cmd.Context(), s, ui.NewArbiter(), true)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Resolved %d packages.\n", len(locked.Packages))
	return nil
}

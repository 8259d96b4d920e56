package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <package>",
		Short: "Print the path to a dependency's checkout",
		Args:  cobra.ExactArgs(1),
		RunE:  runPath,
	}
}

func runPath(cmd *cobra.Command, args []string) error {
	ws, s, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	locked, err := ensureLock(cmd.Context(), ws, s)
	if err != nil {
		return err
	}
	path, err := ws.PackagePath(cmd.Context(), s, locked, strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

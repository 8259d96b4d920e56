package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pulp-platform/bender/internal/lockfile"
	"github.com/pulp-platform/bender/internal/sess"
	"github.com/pulp-platform/bender/internal/ui"
	"github.com/pulp-platform/bender/internal/workspace"
)

// loadWorkspace resolves the root package from the --dir flag and loads
// manifest, configuration, and lockfile.
func loadWorkspace(cmd *cobra.Command) (*workspace.Context, *sess.Session, error) {
	dir, _ := cmd.Flags().GetString("dir")
	ws, err := workspace.Load(dir)
	if err != nil {
		return nil, nil, err
	}
	s := ws.Session()
	s.Local, _ = cmd.Flags().GetBool("local")
	return ws, s, nil
}

// ensureLock refreshes the lockfile when stale, topping up newly added
// dependencies while keeping existing bindings forced.
func ensureLock(ctx context.Context, ws *workspace.Context, s *sess.Session) (*lockfile.Locked, error) {
	return ws.EnsureLock(ctx, s, ui.NewArbiter(), false)
}

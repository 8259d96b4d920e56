package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pulp-platform/bender/internal/lockfile"
	"github.com/pulp-platform/bender/internal/sess"
	"github.com/pulp-platform/bender/internal/ui"
	"github.com/pulp-platform/bender/internal/workspace"
)

func newCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Materialize the checkouts of all dependencies",
		RunE:  runCheckout,
	}
}

func runCheckout(cmd *cobra.Command, _ []string) error {
	ws, s, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	locked, err := ensureLock(cmd.Context(), ws, s)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(locked.Packages))
	for name := range locked.Packages {
		if !locked.Packages[name].Source.IsPath() {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	progress := ui.NewProgress(cmd.ErrOrStderr(), len(names))
	g, ctx := errgroup.WithContext(cmd.Context())
	for _, name := range names {
		pkg := locked.Packages[name]
		g.Go(func() error {
			dir, err := s.Checkout(ctx, pkg.Source.Git, pkg.Revision)
			if err != nil {
				return err
			}
			progress.Done(name + " at " + dir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return createPackageLinks(cmd.Context(), ws, s, locked)
}

// createPackageLinks materializes the workspace's package_links map as
// symlinks from the workspace into the checkout database.
func createPackageLinks(ctx context.Context, ws *workspace.Context, s *sess.Session, locked *lockfile.Locked) error {
	for linkPath, pkg := range ws.Manifest.Workspace.PackageLinks {
		dest, err := ws.PackagePath(ctx, s, locked, strings.ToLower(pkg))
		if err != nil {
			return err
		}
		if target, err := os.Readlink(linkPath); err == nil && target == dest {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(linkPath), 0o755); err != nil {
			return fmt.Errorf("creating link directory for %s: %w", linkPath, err)
		}
		_ = os.Remove(linkPath)
		if err := os.Symlink(dest, linkPath); err != nil {
			return fmt.Errorf("linking %s to package %s: %w", linkPath, pkg, err)
		}
	}
	return nil
}

package main

import (
	"github.com/spf13/cobra"
)

// NewRefreshCmd creates the refresh command.
func NewRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-query the snapshots of all admitted projects",
		Long: `Refresh re-queries the page and sitelink snapshots of every admitted
project from the replicas and rewrites the columnar cache files. No
remote edit is performed.

Examples:
  # Refresh a single project's snapshots
  sitelinkaudit refresh --allow dewiki

  # Refresh a lexicographic dbname range
  sitelinkaudit refresh --from aawiki --to dewiki`,
		Args: cobra.NoArgs,
		RunE: runRefreshCmd,
	}
}

// runRefreshCmd executes the refresh command.
func runRefreshCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	rt, cleanup, err := setupRuntime(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("refresh started", "projects", len(rt.projects))
	return rt.pipeline.Run(ctx, rt.projects, rt.pipeline.RefreshProject)
}

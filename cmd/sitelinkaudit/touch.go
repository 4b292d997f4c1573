package main

import (
	"github.com/spf13/cobra"
)

// NewTouchCmd creates the touch command.
func NewTouchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "touch",
		Short: "Null-edit pages whose local item record is stale",
		Long: `Touch diffs the snapshots of every admitted project and performs a
null edit on each page whose locally recorded item differs from, or
misses, the central sitelink. The null edit forces the project to
re-render the page against the central state. Touches are paced by the
configured delay.

Examples:
  # Touch stale pages on one project
  sitelinkaudit touch --allow dewiki

  # See what would be touched
  sitelinkaudit touch --dry-run`,
		Args: cobra.NoArgs,
		RunE: runTouchCmd,
	}
}

// runTouchCmd executes the touch command.
func runTouchCmd(cmd *cobra.Command, _ []string) error {
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

	logger.Info("touch pass started", "projects", len(rt.projects), "delay", cfg.TouchDelay)
	return rt.pipeline.Run(ctx, rt.projects, rt.pipeline.TouchProject)
}

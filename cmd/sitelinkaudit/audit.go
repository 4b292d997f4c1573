package main

import (
	"github.com/spf13/cobra"

	"github.com/wdauditor/sitelinkaudit/internal/config"
)

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run the full audit pass over all admitted projects",
		Long: `Audit snapshots each admitted project, diffs the central sitelinks
against the local page table, diagnoses every sitelink whose page is
missing, and repairs what can be repaired. Every performed edit is
recorded in the audit database.

Examples:
  # Audit everything the filters admit
  sitelinkaudit audit

  # Audit a single project without editing
  sitelinkaudit audit --allow dewiki --dry-run

  # Remediate and also null-edit the stale pages afterwards
  sitelinkaudit audit --touch

  # Re-query the snapshots first
  sitelinkaudit audit --reload`,
		Args: cobra.NoArgs,
		RunE: runAuditCmd,
	}
	cmd.Flags().Bool("touch", false, "Also run the touch pass over stale pages after remediation")
	cmd.Flags().Bool("stats", true, "Append the per-project statistics line")
	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.AuditTouch, err = cmd.Flags().GetBool("touch"); err != nil {
		return err
	}
	if cfg.AuditStats, err = cmd.Flags().GetBool("stats"); err != nil {
		return err
	}
	logger := setupLogger(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	rt, cleanup, err := setupRuntime(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer cleanup()

	if coversAllProjects(cfg) {
		if err := rt.specials.Clear(); err != nil {
			logger.Warn("cannot reset special page log", "error", err)
		}
	}

	logger.Info("audit started", "projects", len(rt.projects), "dry_run", cfg.DryRun)
	if err := rt.pipeline.Run(ctx, rt.projects, rt.pipeline.AuditProject); err != nil {
		return err
	}

	cases, err := rt.audit.CountCases(ctx)
	if err != nil {
		logger.Warn("cannot count audited cases", "error", err)
		return nil
	}
	logger.Info("audit finished", "run_id", rt.audit.RunID(), "cases", cases)
	return nil
}

// coversAllProjects reports whether a run spans the whole project range,
// in which case the special page log of the previous run is superseded
// and reset. Allow lists and range bounds mark a partial re-run, which
// appends so earlier entries are not lost.
func coversAllProjects(cfg *config.Config) bool {
	return len(cfg.Allow) == 0 && cfg.RangeMin == "" && cfg.RangeMax == ""
}

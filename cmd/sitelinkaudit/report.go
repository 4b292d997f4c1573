package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wdauditor/sitelinkaudit/internal/report"
)

// NewReportCmd creates the report command with its subcommands.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render Markdown reports from the run artifacts",
		Long: `Report renders the artifacts collected during audit runs as Markdown:
the per-project defect statistics and the list of sitelinks pointing at
special pages.`,
	}

	cmd.PersistentFlags().StringP("output", "o", "", "Write the report to the given file instead of stdout")

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Render the per-project defect statistics",
		Args:  cobra.NoArgs,
		RunE:  runStatsReportCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "special-pages",
		Short: "Render the list of special-page sitelinks",
		Args:  cobra.NoArgs,
		RunE:  runSpecialPagesReportCmd,
	})

	return cmd
}

// runStatsReportCmd executes the report stats command.
func runStatsReportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	out, closeOut, err := reportOutput(cmd)
	if err != nil {
		return err
	}
	defer closeOut()

	return report.NewStatsLog(cfg.StatsFile).WriteMarkdown(out)
}

// runSpecialPagesReportCmd executes the report special-pages command.
func runSpecialPagesReportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	out, closeOut, err := reportOutput(cmd)
	if err != nil {
		return err
	}
	defer closeOut()

	return report.NewSpecialPageLog(specialPagesPath(cfg), logger).WriteMarkdown(out)
}

// reportOutput resolves the report destination from the --output flag.
func reportOutput(cmd *cobra.Command) (io.Writer, func(), error) {
	path, err := cmd.Flags().GetString("output")
	if err != nil {
		path, err = cmd.Parent().PersistentFlags().GetString("output")
		if err != nil {
			return nil, nil, err
		}
	}
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

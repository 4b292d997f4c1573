// Package main provides the entry point for the sitelinkaudit CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wdauditor/sitelinkaudit/internal/config"
)

// NewRootCmd creates the root command for sitelinkaudit.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitelinkaudit",
		Short: "Audit and repair broken sitelinks on the central knowledge base",
		Long: `sitelinkaudit compares the sitelinks recorded on the central knowledge
base against the page tables of the client projects, diagnoses the likely
root cause of every inconsistency from the project logs, and repairs what
can be repaired: removing sitelinks to deleted or moved pages, rewriting
namespace-alias spellings, and touching pages with stale item records.`,
		Version:       buildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file path (YAML)")
	cmd.PersistentFlags().BoolP("dry-run", "n", false, "Report intended edits without performing them")
	cmd.PersistentFlags().StringSlice("allow", nil, "Only process the listed project dbnames")
	cmd.PersistentFlags().StringSlice("deny", nil, "Never process the listed project dbnames")
	cmd.PersistentFlags().String("from", "", "Only process dbnames >= this value")
	cmd.PersistentFlags().String("to", "", "Only process dbnames <= this value")
	cmd.PersistentFlags().Bool("reload", false, "Re-query snapshots even when cache files exist")
	cmd.PersistentFlags().Int("concurrency", config.DefaultProjectConcurrency, "Number of projects processed concurrently")
	cmd.PersistentFlags().Bool("log-json", false, "Emit log records as JSON lines")

	// Add subcommands
	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewRefreshCmd())
	cmd.AddCommand(NewTouchCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

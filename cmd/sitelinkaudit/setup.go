package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wdauditor/sitelinkaudit/internal/audit"
	"github.com/wdauditor/sitelinkaudit/internal/config"
	"github.com/wdauditor/sitelinkaudit/internal/log"
	"github.com/wdauditor/sitelinkaudit/internal/model"
	"github.com/wdauditor/sitelinkaudit/internal/pipeline"
	"github.com/wdauditor/sitelinkaudit/internal/report"
	"github.com/wdauditor/sitelinkaudit/internal/snapshot"
	"github.com/wdauditor/sitelinkaudit/internal/warehouse"
	"github.com/wdauditor/sitelinkaudit/internal/wiki"
)

// buildConfig creates a Config from the config file and cobra flags.
// Precedence: defaults < config file < flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	flags := cmd.Root().PersistentFlags()

	path, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	explicit := path != ""
	if !explicit {
		path = filepath.Join(config.XDGDataDir(), "config.yaml")
	}
	if explicit {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
	}
	if err := config.LoadFile(cfg, path); err != nil {
		return nil, err
	}

	if cfg.Verbose, err = flags.GetBool("verbose"); err != nil {
		return nil, err
	}
	if cfg.DryRun, err = flags.GetBool("dry-run"); err != nil {
		return nil, err
	}
	if cfg.Allow, err = flags.GetStringSlice("allow"); err != nil {
		return nil, err
	}
	if cfg.Deny, err = flags.GetStringSlice("deny"); err != nil {
		return nil, err
	}
	if cfg.RangeMin, err = flags.GetString("from"); err != nil {
		return nil, err
	}
	if cfg.RangeMax, err = flags.GetString("to"); err != nil {
		return nil, err
	}
	if cfg.Reload, err = flags.GetBool("reload"); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = flags.GetBool("log-json"); err != nil {
		return nil, err
	}
	if flags.Changed("concurrency") {
		if cfg.ProjectConcurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// setupLogger creates the structured logger with credential redaction.
func setupLogger(cfg *config.Config) *slog.Logger {
	if cfg.LogJSON {
		return log.NewJSONLogger(os.Stderr, cfg.Verbose)
	}
	return log.NewLogger(os.Stderr, cfg.Verbose)
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runtime bundles the wired pipeline, the admitted project list, the
// job-level side-effect stores, and the cleanup of every connection
// behind them. audit is nil when setupRuntime ran without it.
type runtime struct {
	pipeline *pipeline.Pipeline
	projects []*model.Project
	specials *report.SpecialPageLog
	audit    *audit.Store
}

// setupRuntime opens all backing connections and wires the pipeline.
// withAudit controls whether the audit database is opened; jobs that
// never edit skip it. The returned cleanup must run when the job ends.
func setupRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, withAudit bool) (*runtime, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*runtime, func(), error) {
		cleanup()
		return nil, nil, err
	}

	api, err := wiki.NewClient(cfg, logger)
	if err != nil {
		return fail(err)
	}

	meta, err := warehouse.OpenReplica(cfg, cfg.MetaDB, logger)
	if err != nil {
		return fail(err)
	}
	projects, err := meta.Projects(ctx)
	if closeErr := meta.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fail(fmt.Errorf("list projects: %w", err))
	}

	central, err := warehouse.OpenReplica(cfg, cfg.CentralDB, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() {
		if err := central.Close(); err != nil {
			logger.Error("cannot close central replica", "error", err)
		}
	})

	var staging snapshot.Staging
	if cfg.ToolDBName != "" {
		tmpDir, err := os.MkdirTemp("", "sitelinkaudit-staging-")
		if err != nil {
			return fail(fmt.Errorf("create staging directory: %w", err))
		}
		closers = append(closers, func() {
			if err := os.RemoveAll(tmpDir); err != nil {
				logger.Error("cannot remove staging directory", "dir", tmpDir, "error", err)
			}
		})

		toolDB, err := warehouse.OpenToolDB(ctx, cfg, tmpDir, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() {
			if err := toolDB.Close(); err != nil {
				logger.Error("cannot close tool database", "error", err)
			}
		})
		staging = toolDB
	}

	var auditStore *audit.Store
	if withAudit {
		auditStore, err = audit.Open(cfg.AuditDBDir, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() {
			if err := auditStore.Close(); err != nil {
				logger.Error("cannot close audit database", "error", err)
			}
		})
		logger.Info("audit database opened", "dir", cfg.AuditDBDir, "run_id", auditStore.RunID())
	}

	specials := report.NewSpecialPageLog(specialPagesPath(cfg), logger)
	p := pipeline.New(pipeline.Options{
		Config:  cfg,
		API:     api,
		Central: central,
		OpenReplica: func(dbname string) (pipeline.ProjectReplica, error) {
			return warehouse.OpenReplica(cfg, dbname, logger)
		},
		Staging:      staging,
		Audit:        auditStore,
		Stats:        report.NewStatsLog(cfg.StatsFile),
		SpecialPages: specials,
		Logger:       logger,
	})

	return &runtime{
		pipeline: p,
		projects: projects,
		specials: specials,
		audit:    auditStore,
	}, cleanup, nil
}

// specialPagesPath is the anomaly log next to the audit database.
func specialPagesPath(cfg *config.Config) string {
	return filepath.Join(cfg.AuditDBDir, "special_pages.tsv")
}

package pipeline

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wdauditor/sitelinkaudit/internal/audit"
	"github.com/wdauditor/sitelinkaudit/internal/classify"
	"github.com/wdauditor/sitelinkaudit/internal/config"
	"github.com/wdauditor/sitelinkaudit/internal/model"
	"github.com/wdauditor/sitelinkaudit/internal/remediate"
	"github.com/wdauditor/sitelinkaudit/internal/report"
	"github.com/wdauditor/sitelinkaudit/internal/snapshot"
)

// Client is the full remote surface the pipeline wires into its
// components.
type Client interface {
	classify.API
	remediate.Editor
	TouchPage(ctx context.Context, host, title string) error
}

// ProjectReplica is the per-project replica access: page rows for the
// snapshot and log entries for the classifier.
type ProjectReplica interface {
	snapshot.PageSource
	classify.History
	Close() error
}

// CentralReplica is the central replica access: sitelink rows for the
// snapshot and user trust signals for the classifier.
type CentralReplica interface {
	snapshot.SitelinkSource
	classify.Trust
}

// Options wires a Pipeline. Audit, Staging, Stats, and SpecialPages may
// be nil; the corresponding side effects are then skipped.
type Options struct {
	Config       *config.Config
	API          Client
	Central      CentralReplica
	OpenReplica  func(dbname string) (ProjectReplica, error)
	Staging      snapshot.Staging
	Audit        *audit.Store
	Stats        *report.StatsLog
	SpecialPages *report.SpecialPageLog
	Logger       *slog.Logger
}

// Pipeline runs audit jobs over a list of projects.
type Pipeline struct {
	cfg         *config.Config
	api         Client
	central     CentralReplica
	openReplica func(dbname string) (ProjectReplica, error)
	snapshots   *snapshot.Store
	classifier  *classify.Classifier
	driver      *remediate.Driver
	audit       *audit.Store
	stats       *report.StatsLog
	logger      *slog.Logger

	// rng backs the remediation sampling and is shared across project
	// goroutines; rngMu serializes access.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// samplePageMissing caps the remediation backlog of one project.
func (p *Pipeline) samplePageMissing(diff *snapshot.Diff) {
	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	diff.SamplePageMissing(p.cfg.MaxEditsPerProject, p.rng)
}

// New creates a Pipeline from Options.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		cfg:         opts.Config,
		api:         opts.API,
		central:     opts.Central,
		openReplica: opts.OpenReplica,
		snapshots:   snapshot.NewStore(opts.Config, opts.Staging, opts.Logger),
		driver:      remediate.NewDriver(opts.Config, opts.API, opts.Logger),
		audit:       opts.Audit,
		stats:       opts.Stats,
		logger:      opts.Logger,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	p.classifier = classify.NewClassifier(opts.Config, opts.API, opts.Central, opts.Logger)
	if opts.SpecialPages != nil {
		specials := opts.SpecialPages
		p.classifier.OnSpecialPage = func(item, dbname, title string) {
			if err := specials.Append(item, dbname, title); err != nil {
				opts.Logger.Error("cannot record special page sitelink",
					"item", item, "dbname", dbname, "title", title, "error", err)
			}
		}
	}
	return p
}

// Job is one per-project operation run over the project list.
type Job func(ctx context.Context, project *model.Project) error

// Run applies job to every admitted project. Projects failing the config
// filters are skipped silently; a project whose job fails is logged and
// skipped. Only context cancellation aborts the whole run.
func (p *Pipeline) Run(ctx context.Context, projects []*model.Project, job Job) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.ProjectConcurrency)

	for _, project := range projects {
		if !p.cfg.Allowed(project.DBName) {
			continue
		}
		project := project
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := job(ctx, project); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.Error("project failed", "dbname", project.DBName, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

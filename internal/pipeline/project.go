package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wdauditor/sitelinkaudit/internal/audit"
	"github.com/wdauditor/sitelinkaudit/internal/classify"
	"github.com/wdauditor/sitelinkaudit/internal/model"
	"github.com/wdauditor/sitelinkaudit/internal/remediate"
	"github.com/wdauditor/sitelinkaudit/internal/report"
	"github.com/wdauditor/sitelinkaudit/internal/snapshot"
)

// AuditProject runs the audit pass over one project: snapshot both
// sides, diff, and remediate the missing-page sitelinks. The statistics
// line and the touch pass over stale pages are gated by the AuditStats
// and AuditTouch job flags so remediation can run alone.
func (p *Pipeline) AuditProject(ctx context.Context, project *model.Project) error {
	p.logger.Info("auditing project", "dbname", project.DBName)

	replica, err := p.openReplica(project.DBName)
	if err != nil {
		return err
	}
	defer replica.Close() //nolint:errcheck // read-only connection

	diff, err := p.diffProject(ctx, project, replica)
	if err != nil {
		return err
	}
	if p.cfg.AuditStats {
		p.appendStats(project, diff)
	}

	p.samplePageMissing(diff)
	p.remediateDefects(ctx, project, replica, diff.PageMissing)

	if p.cfg.AuditTouch {
		p.touchDefects(ctx, project, staleDefects(diff))
	}

	p.logger.Info("project audited", "dbname", project.DBName,
		"page_missing", diff.PageMissingTotal,
		"item_differs", len(diff.LocalItemDiffers),
		"item_missing", len(diff.LocalItemMissing))
	return nil
}

// RefreshProject re-queries both snapshots of one project, regardless of
// the reload flag.
func (p *Pipeline) RefreshProject(ctx context.Context, project *model.Project) error {
	p.logger.Info("refreshing snapshots", "dbname", project.DBName)

	replica, err := p.openReplica(project.DBName)
	if err != nil {
		return err
	}
	defer replica.Close() //nolint:errcheck // read-only connection

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.snapshots.RefreshPages(ctx, project, p.api, replica)
	})
	g.Go(func() error {
		return p.snapshots.RefreshSitelinks(ctx, project, p.central)
	})
	return g.Wait()
}

// TouchProject runs only the touch pass of one project.
func (p *Pipeline) TouchProject(ctx context.Context, project *model.Project) error {
	replica, err := p.openReplica(project.DBName)
	if err != nil {
		return err
	}
	defer replica.Close() //nolint:errcheck // read-only connection

	diff, err := p.diffProject(ctx, project, replica)
	if err != nil {
		return err
	}

	p.touchDefects(ctx, project, staleDefects(diff))
	return nil
}

// staleDefects merges the two defect classes whose pages still exist but
// carry a stale local item record.
func staleDefects(diff *snapshot.Diff) []snapshot.Defect {
	stale := make([]snapshot.Defect, 0, len(diff.LocalItemDiffers)+len(diff.LocalItemMissing))
	stale = append(stale, diff.LocalItemDiffers...)
	return append(stale, diff.LocalItemMissing...)
}

// diffProject loads both snapshots, the two halves concurrently, and
// joins them.
func (p *Pipeline) diffProject(ctx context.Context, project *model.Project, replica ProjectReplica) (*snapshot.Diff, error) {
	var (
		pages []model.LocalPage
		links []model.CentralSitelink
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pages, err = p.snapshots.LoadPages(gctx, project, p.api, replica)
		return err
	})
	g.Go(func() error {
		var err error
		links, err = p.snapshots.LoadSitelinks(gctx, project, p.central)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", project.DBName, err)
	}

	return snapshot.Compare(pages, links), nil
}

func (p *Pipeline) appendStats(project *model.Project, diff *snapshot.Diff) {
	if p.stats == nil {
		return
	}
	record := report.StatRecord{
		DBName:           project.DBName,
		PageMissing:      diff.PageMissingTotal,
		LocalItemDiffers: len(diff.LocalItemDiffers),
		LocalItemMissing: len(diff.LocalItemMissing),
	}
	if err := p.stats.Append(record); err != nil {
		p.logger.Error("cannot append statistics", "dbname", project.DBName, "error", err)
	}
}

// remediateDefects diagnoses and remediates the missing-page sitelinks.
// A failing sitelink is logged and skipped; context cancellation stops
// the loop.
func (p *Pipeline) remediateDefects(ctx context.Context, project *model.Project, history classify.History, defects []snapshot.Defect) {
	for i, defect := range defects {
		if ctx.Err() != nil {
			return
		}
		sitelink := &model.Sitelink{
			Item:    defect.Item,
			Project: project,
			Page:    model.Page{Title: defect.Title},
		}
		if err := p.remediateOne(ctx, sitelink, history); err != nil {
			p.logger.Error("sitelink remediation failed",
				"item", defect.Item, "dbname", project.DBName, "title", defect.Title, "error", err)
		}
		if (i+1)%100 == 0 {
			p.logger.Info("remediation progress",
				"dbname", project.DBName, "done", i+1, "total", len(defects))
		}
	}
}

func (p *Pipeline) remediateOne(ctx context.Context, sitelink *model.Sitelink, history classify.History) error {
	finding, err := p.classifier.Diagnose(ctx, sitelink, history)
	if err != nil {
		return err
	}

	var result remediate.Result
	switch finding.Action {
	case classify.ActionRemove:
		result, err = p.driver.RemoveSitelink(ctx, sitelink, finding)
	case classify.ActionCanonicalize:
		result, err = p.driver.CanonicalizeSitelink(ctx, sitelink, finding)
	case classify.ActionNormalizeTitle:
		result, err = p.driver.NormalizeTitle(ctx, sitelink, finding)
	default:
		p.logger.Debug("no remediation", "item", sitelink.Item, "narrative", finding.Narrative)
		return nil
	}
	if err != nil {
		return err
	}

	if result.Performed && p.audit != nil {
		return p.audit.InsertCase(ctx, audit.Case{
			Item:       sitelink.Item,
			DBName:     sitelink.Project.DBName,
			Title:      result.Title,
			RevisionID: result.RevisionID,
			Reason:     result.Reason,
			Event:      finding.Event,
			Narrative:  result.Narrative,
			EvalParams: result.EvalParams,
		})
	}
	return nil
}

// touchDefects null-edits pages whose locally recorded item is stale so
// the project re-renders them against the central state. Touches are
// paced by the configured delay.
func (p *Pipeline) touchDefects(ctx context.Context, project *model.Project, defects []snapshot.Defect) {
	for i, defect := range defects {
		if i > 0 && p.cfg.TouchDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.TouchDelay):
			}
		}
		if ctx.Err() != nil {
			return
		}

		if p.cfg.DryRun {
			p.logger.Info("dry-run: would touch page",
				"dbname", project.DBName, "title", defect.Title)
			continue
		}
		if err := p.api.TouchPage(ctx, project.Hostname, defect.Title); err != nil {
			p.logger.Warn("touch failed",
				"dbname", project.DBName, "title", defect.Title, "error", err)
			continue
		}
		if (i+1)%100 == 0 {
			p.logger.Info("touch progress",
				"dbname", project.DBName, "done", i+1, "total", len(defects))
		}
	}
}

package remediate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wdauditor/sitelinkaudit/internal/classify"
	"github.com/wdauditor/sitelinkaudit/internal/config"
	"github.com/wdauditor/sitelinkaudit/internal/model"
	"github.com/wdauditor/sitelinkaudit/internal/wiki"
)

// Editor is the remote edit surface the driver consumes.
type Editor interface {
	model.NamespaceResolver
	ItemSitelink(ctx context.Context, item, siteID string) (string, bool, error)
	PageExists(ctx context.Context, host, title string) (bool, error)
	PageIsRedirect(ctx context.Context, host, title string) (bool, error)
	PageItem(ctx context.Context, host, title string) (string, error)
	LiveTitle(ctx context.Context, host, title string) (string, error)
	RemoveSitelink(ctx context.Context, item, siteID, summary string) (int64, error)
	SetSitelink(ctx context.Context, item, siteID, title, summary string) (int64, error)
}

// Result reports the outcome of one remediation. The orchestrator writes
// an audit row exactly when Performed is true: a durable record exists for
// every edit that happened and for nothing else.
type Result struct {
	// Performed reports whether an edit was made.
	Performed bool

	// NoOp reports that the remediation found nothing left to do, e.g.
	// the sitelink was already gone.
	NoOp bool

	// RevisionID is the revision created by the edit, when Performed.
	RevisionID int64

	// Reason is the reason code the edit was made under. It may be more
	// specific than the finding's, e.g. when canonicalization degrades
	// to removal.
	Reason model.Reason

	// Title is the sitelink title the edit targeted.
	Title string

	// EvalParams is the finding's evaluation detail, extended with any
	// facts discovered during remediation.
	EvalParams map[string]any

	// Narrative is the finding's trace, extended likewise.
	Narrative string
}

// Driver executes remediations.
type Driver struct {
	cfg    *config.Config
	api    Editor
	logger *slog.Logger
}

// NewDriver creates a Driver.
func NewDriver(cfg *config.Config, api Editor, logger *slog.Logger) *Driver {
	return &Driver{cfg: cfg, api: api, logger: logger}
}

// RemoveSitelink removes the sitelink named by the finding. An absent
// sitelink is a successful no-op.
func (d *Driver) RemoveSitelink(ctx context.Context, sitelink *model.Sitelink, finding *classify.Finding) (Result, error) {
	return d.remove(ctx, sitelink.Item, sitelink.Project.DBName, sitelink.Page.Title,
		finding.Reason, finding.Event, finding.EvalParams, finding.Narrative)
}

func (d *Driver) remove(ctx context.Context, item, dbname, title string, reason model.Reason, event *model.LogEvent, params map[string]any, narrative string) (Result, error) {
	summary := removalSummary(dbname, title, event, d.cfg.EditSummaryTag)
	result := Result{
		Reason:     reason,
		Title:      title,
		EvalParams: params,
		Narrative:  narrative,
	}

	if d.cfg.DryRun {
		d.logger.Info("dry-run: would remove sitelink",
			"item", item, "dbname", dbname, "title", title, "reason", reason.Code())
		return result, nil
	}

	revID, err := d.api.RemoveSitelink(ctx, item, dbname, summary)
	if err != nil {
		if wiki.IsNoSuchSitelink(err) {
			result.NoOp = true
			return result, nil
		}
		return Result{}, err
	}

	result.Performed = true
	result.RevisionID = revID
	d.logger.Info("removed sitelink",
		"item", item, "dbname", dbname, "title", title, "reason", reason.Code(), "revid", revID)
	return result, nil
}

// CanonicalizeSitelink re-points a sitelink recorded under a namespace
// alias at the canonical local spelling. The item is re-read first; a
// sitelink already stored canonically is a no-op, so running the job
// twice writes nothing the second time. When the canonical target is
// inexistent, a redirect, or connected to an item, canonicalization
// cannot work and the sitelink is removed instead under the matching
// sub-reason.
func (d *Driver) CanonicalizeSitelink(ctx context.Context, sitelink *model.Sitelink, finding *classify.Finding) (Result, error) {
	project := sitelink.Project

	current, found, err := d.api.ItemSitelink(ctx, sitelink.Item, project.DBName)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Result{NoOp: true, Reason: finding.Reason, Title: sitelink.Page.Title,
			EvalParams: finding.EvalParams, Narrative: finding.Narrative}, nil
	}

	namespaces, err := project.Namespaces(ctx, d.api)
	if err != nil {
		return Result{}, err
	}
	canonical := model.CanonicalTitle(current, namespaces)
	if canonical == current {
		// Already stored under the canonical spelling, e.g. on a re-run
		// after the first pass fixed it.
		return Result{NoOp: true, Reason: finding.Reason, Title: current,
			EvalParams: finding.EvalParams, Narrative: finding.Narrative}, nil
	}

	if result, done, err := d.removeUncanonicalizable(ctx, sitelink, finding, canonical); done || err != nil {
		return result, err
	}

	summary := canonicalizeSummary(project.DBName, d.cfg.EditSummaryTag)
	result := Result{
		Reason:     finding.Reason,
		Title:      canonical,
		EvalParams: finding.EvalParams,
		Narrative:  finding.Narrative,
	}

	if d.cfg.DryRun {
		d.logger.Info("dry-run: would canonicalize sitelink",
			"item", sitelink.Item, "dbname", project.DBName, "title", canonical)
		return result, nil
	}

	revID, err := d.api.SetSitelink(ctx, sitelink.Item, project.DBName, canonical, summary)
	if err != nil {
		return Result{}, err
	}
	result.Performed = true
	result.RevisionID = revID
	d.logger.Info("canonicalized sitelink",
		"item", sitelink.Item, "dbname", project.DBName, "title", canonical, "revid", revID)
	return result, nil
}

// removeUncanonicalizable checks whether the canonical target can carry
// the sitelink at all and removes the link when it cannot. done reports
// whether the case was handled here.
func (d *Driver) removeUncanonicalizable(ctx context.Context, sitelink *model.Sitelink, finding *classify.Finding, canonical string) (Result, bool, error) {
	project := sitelink.Project

	exists, err := d.api.PageExists(ctx, project.Hostname, canonical)
	if err != nil {
		return Result{}, false, err
	}
	if !exists {
		result, err := d.removeWithSubReason(ctx, sitelink, finding, canonical,
			model.ReasonAltTitleMissing, "inexistent")
		return result, true, err
	}

	redirect, err := d.api.PageIsRedirect(ctx, project.Hostname, canonical)
	if err != nil {
		return Result{}, false, err
	}
	if redirect {
		result, err := d.removeWithSubReason(ctx, sitelink, finding, canonical,
			model.ReasonAltTitleRedirect, "redirect")
		return result, true, err
	}

	connected, err := d.api.PageItem(ctx, project.Hostname, canonical)
	if err != nil {
		return Result{}, false, err
	}
	if connected != "" {
		result, err := d.removeWithSubReason(ctx, sitelink, finding, canonical,
			model.ReasonAltTitleConnected, "connected to "+connected)
		return result, true, err
	}

	return Result{}, false, nil
}

func (d *Driver) removeWithSubReason(ctx context.Context, sitelink *model.Sitelink, finding *classify.Finding, canonical string, reason model.Reason, cause string) (Result, error) {
	params := make(map[string]any, len(finding.EvalParams)+1)
	for k, v := range finding.EvalParams {
		params[k] = v
	}
	params["likely_reason"] = reason.Code()

	narrative := finding.Narrative + fmt.Sprintf(
		"\nuncanonicalizable sitelink: found %s for %s in %s (%s)",
		canonical, sitelink.Project.DBName, sitelink.Item, cause)

	return d.remove(ctx, sitelink.Item, sitelink.Project.DBName, canonical,
		reason, finding.Event, params, narrative)
}

// NormalizeTitle re-points the sitelink at the live spelling of a page
// that does exist. Nothing is written when the live title already matches.
func (d *Driver) NormalizeTitle(ctx context.Context, sitelink *model.Sitelink, finding *classify.Finding) (Result, error) {
	project := sitelink.Project
	title := sitelink.Page.Title

	live, err := d.api.LiveTitle(ctx, project.Hostname, title)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Reason:     finding.Reason,
		Title:      live,
		EvalParams: finding.EvalParams,
		Narrative:  finding.Narrative,
	}
	if live == title {
		result.NoOp = true
		return result, nil
	}

	if d.cfg.DryRun {
		d.logger.Info("dry-run: would normalize sitelink title",
			"item", sitelink.Item, "dbname", project.DBName, "from", title, "to", live)
		return result, nil
	}

	revID, err := d.api.SetSitelink(ctx, sitelink.Item, project.DBName, live, normalizeTitleSummary)
	if err != nil {
		return Result{}, err
	}
	result.Performed = true
	result.RevisionID = revID
	d.logger.Info("normalized sitelink title",
		"item", sitelink.Item, "dbname", project.DBName, "from", title, "to", live, "revid", revID)
	return result, nil
}

package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wdauditor/sitelinkaudit/internal/config"
	"github.com/wdauditor/sitelinkaudit/internal/model"
	"github.com/wdauditor/sitelinkaudit/internal/wiki"
)

// Action is the remediation a Finding calls for.
type Action int

const (
	// ActionNone means nothing should be edited: the sitelink is on the
	// ignore list, already gone, or unexplainable from the log.
	ActionNone Action = iota

	// ActionRemove removes the sitelink from the item.
	ActionRemove

	// ActionCanonicalize re-points the sitelink at the canonical spelling
	// of its namespace prefix, or removes it when that cannot work.
	ActionCanonicalize

	// ActionNormalizeTitle re-points the sitelink at the live title of a
	// page that does exist.
	ActionNormalizeTitle
)

// Finding is the classifier's verdict on one broken sitelink.
type Finding struct {
	// Action is the remediation to apply.
	Action Action

	// Reason is the root-cause code backing the action.
	Reason model.Reason

	// Event is the log event that explains the breakage, when one was
	// found.
	Event *model.LogEvent

	// EvalParams carries the structured evaluation detail for the audit
	// record.
	EvalParams map[string]any

	// Narrative is the human-readable evaluation trace.
	Narrative string
}

// API is the remote read surface the classifier consumes.
type API interface {
	model.NamespaceResolver
	ItemSitelink(ctx context.Context, item, siteID string) (string, bool, error)
	PageExists(ctx context.Context, host, title string) (bool, error)
	PageIsRedirect(ctx context.Context, host, title string) (bool, error)
	LogEventIDs(ctx context.Context, host, logType, action, title string) ([]int64, error)
}

// Trust resolves the central trust signals of acting users.
type Trust interface {
	User(ctx context.Context, name string) (model.User, error)
}

// Classifier diagnoses broken sitelinks.
type Classifier struct {
	cfg    *config.Config
	api    API
	trust  Trust
	logger *slog.Logger

	// OnSpecialPage is invoked for sitelinks whose existence check fails
	// on an un-queryable title, before the check degrades to "missing".
	OnSpecialPage func(item, dbname, title string)
}

// NewClassifier creates a Classifier.
func NewClassifier(cfg *config.Config, api API, trust Trust, logger *slog.Logger) *Classifier {
	return &Classifier{cfg: cfg, api: api, trust: trust, logger: logger}
}

// Diagnose classifies one sitelink whose page is missing from the local
// snapshot and decides the remediation. history is the log access of the
// sitelink's project.
func (c *Classifier) Diagnose(ctx context.Context, sitelink *model.Sitelink, history History) (*Finding, error) {
	if c.cfg.IgnoredItem(sitelink.Item) {
		return &Finding{Action: ActionNone, Narrative: "item is on the ignore list"}, nil
	}

	project := sitelink.Project
	title := sitelink.Page.Title

	// The snapshot may be stale: confirm the item still carries exactly
	// this sitelink before looking any deeper.
	liveTitle, found, err := c.api.ItemSitelink(ctx, sitelink.Item, project.DBName)
	if err != nil {
		return nil, err
	}
	if !found || liveTitle != title {
		return c.diagnoseGoneSitelink(ctx, sitelink, liveTitle, found)
	}

	// The page snapshot may be stale too: re-check existence on the wire.
	exists, err := c.api.PageExists(ctx, project.Hostname, title)
	if err != nil {
		if !wiki.IsBadTitle(err) {
			return nil, err
		}
		// Un-queryable titles (Special: pages and kin) are logged as
		// anomalies; the check degrades to "does not exist".
		c.logger.Warn("existence check failed on special title",
			"item", sitelink.Item, "dbname", project.DBName, "title", title)
		if c.OnSpecialPage != nil {
			c.OnSpecialPage(sitelink.Item, project.DBName, title)
		}
		exists = false
	}
	if exists {
		return c.findingTitleMismatch(ctx, sitelink)
	}

	namespaces, err := project.Namespaces(ctx, c.api)
	if err != nil {
		return nil, err
	}
	namespace, bare := model.ResolveTitle(title, namespaces)

	events, err := c.fetchEvents(ctx, project, history, title, namespace, bare)
	if err != nil {
		return nil, err
	}
	sitelink.Page.Events = events

	event := sitelink.Page.LatestEvent()
	if event == nil {
		return &Finding{
			Action: ActionNone,
			Narrative: fmt.Sprintf("cannot find a log timestamp for page %q on %s in %s",
				title, project.DBName, sitelink.Item),
		}, nil
	}

	actor, err := c.trust.User(ctx, event.ActorName)
	if err != nil {
		return nil, err
	}
	event.Actor = actor

	narrative := []string{
		fmt.Sprintf("%s, %s, %s, %s", sitelink.Item, project.DBName, title, event.String()),
		actor.String(),
	}
	params := actor.PayloadMap()
	params["log_action"] = event.Action
	params["log_timestamp"] = event.Timestamp

	switch {
	case event.IsMove():
		return c.findingMove(ctx, sitelink, event, namespaces, narrative, params)
	case event.IsDelete():
		return c.findingDelete(event, narrative, params), nil
	default:
		return &Finding{Action: ActionNone, Narrative: strings.Join(narrative, "\n")}, nil
	}
}

// diagnoseGoneSitelink handles sitelinks the item no longer carries under
// the recorded title. A recorded title that is merely a namespace-alias
// spelling of the live one calls for canonicalization; anything else means
// someone already fixed the link.
func (c *Classifier) diagnoseGoneSitelink(ctx context.Context, sitelink *model.Sitelink, liveTitle string, found bool) (*Finding, error) {
	project := sitelink.Project
	title := sitelink.Page.Title

	namespaces, err := project.Namespaces(ctx, c.api)
	if err != nil {
		return nil, err
	}

	for _, alt := range model.AlternativeTitles(title, namespaces) {
		if title != alt {
			continue
		}
		canonical := model.CanonicalTitle(title, namespaces)
		return &Finding{
			Action: ActionCanonicalize,
			Reason: model.ReasonAltTitle,
			EvalParams: map[string]any{
				"sitelink_with_alt_title": true,
				"alt_title":               title,
				"canonical_title":         canonical,
				"likely_reason":           model.ReasonAltTitle.Code(),
			},
			Narrative: fmt.Sprintf("item %s has sitelink %q with namespace alias for %s; normalize to %q",
				sitelink.Item, title, project.DBName, canonical),
		}, nil
	}

	narrative := fmt.Sprintf("item %s does not have a sitelink %q for %s", sitelink.Item, title, project.DBName)
	if found {
		narrative += fmt.Sprintf(" (current sitelink: %q)", liveTitle)
	}
	return &Finding{Action: ActionNone, Narrative: narrative}, nil
}

// findingTitleMismatch covers pages that do exist on the wire: the
// recorded title differs only lexically from the live one.
func (c *Classifier) findingTitleMismatch(ctx context.Context, sitelink *model.Sitelink) (*Finding, error) {
	project := sitelink.Project
	title := sitelink.Page.Title

	namespaces, err := project.Namespaces(ctx, c.api)
	if err != nil {
		return nil, err
	}
	canonical := model.CanonicalTitle(title, namespaces)

	return &Finding{
		Action: ActionNormalizeTitle,
		Reason: model.ReasonTitleMismatch,
		EvalParams: map[string]any{
			"page_exists_but_title_different": true,
			"alt_title":                       title,
			"canonical_title":                 canonical,
			"likely_reason":                   model.ReasonTitleMismatch.Code(),
		},
		Narrative: fmt.Sprintf("page %q@%s in %s does actually exist", title, project.DBName, sitelink.Item),
	}, nil
}

// findingMove classifies the move branch: the reason depends on whether
// the move left a redirect behind and whether the target is one now.
func (c *Classifier) findingMove(ctx context.Context, sitelink *model.Sitelink, event *model.LogEvent, namespaces []model.Namespace, narrative []string, params map[string]any) (*Finding, error) {
	project := sitelink.Project

	movedWithoutRedirect := event.Params.MovedWithoutRedirect()
	narrative = append(narrative, fmt.Sprintf("moved without redirect: %v", movedWithoutRedirect))

	target := event.Params.MoveTarget()
	targetNS, _ := model.ResolveTitle(target, namespaces)
	sourceNS, _ := model.ResolveTitle(sitelink.Page.Title, namespaces)
	narrative = append(narrative, fmt.Sprintf("move target: %s (%d, from %d)", target, targetNS, sourceNS))

	targetIsRedirect, err := c.api.PageIsRedirect(ctx, project.Hostname, target)
	if err != nil {
		if !wiki.IsBadTitle(err) {
			return nil, err
		}
		// Legacy log formats produce unusable targets; skip the case.
		c.logger.Warn("cannot check move target",
			"item", sitelink.Item, "dbname", project.DBName, "target", target)
		return &Finding{Action: ActionNone, Narrative: strings.Join(narrative, "\n")}, nil
	}
	narrative = append(narrative, fmt.Sprintf("move target is redirect: %v", targetIsRedirect))

	reason := model.ReasonMoveNoRedirect
	if targetIsRedirect {
		reason = model.ReasonMoveRedirectTarget
	}

	params["moved_without_redirect"] = movedWithoutRedirect
	params["move_target"] = target
	params["move_target_namespace"] = targetNS
	params["move_source_namespace"] = sourceNS
	params["target_page_is_redirect"] = targetIsRedirect
	params["likely_reason"] = reason.Code()

	return &Finding{
		Action:     ActionRemove,
		Reason:     reason,
		Event:      event,
		EvalParams: params,
		Narrative:  strings.Join(narrative, "\n"),
	}, nil
}

// findingDelete classifies the delete branch from the acting user's trust
// signals. The check order is fixed: an established, never-blocked account
// first, then the no-account and late-registration cases, then blocks.
func (c *Classifier) findingDelete(event *model.LogEvent, narrative []string, params map[string]any) *Finding {
	actor := event.Actor
	params["missed_deletion"] = true

	reason := model.ReasonNone
	switch {
	case actor.Registration != nil && *actor.Registration < event.Timestamp && len(actor.Blocks) == 0:
		reason = model.ReasonDeleteEstablishedUser
	case !actor.HasAccount():
		reason = model.ReasonDeleteNoAccount
	case actor.Registration != nil && *actor.Registration > event.Timestamp:
		reason = model.ReasonDeleteLateAccount
	case len(actor.Blocks) > 0:
		reason = model.ReasonDeleteBlockedUser
	}
	if reason != model.ReasonNone {
		params["likely_reason"] = reason.Code()
	}

	return &Finding{
		Action:     ActionRemove,
		Reason:     reason,
		Event:      event,
		EvalParams: params,
		Narrative:  strings.Join(narrative, "\n"),
	}
}

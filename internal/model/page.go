package model

// LocalPage is one row of a project's page snapshot: a page that may carry
// a locally recorded linked-item property.
type LocalPage struct {
	// Namespace is the numeric namespace id of the page.
	Namespace int

	// Title is the full local title including the namespace prefix,
	// with spaces instead of underscores.
	Title string

	// Item is the linked-item id recorded in the page's local properties,
	// or empty when the property is absent.
	Item string
}

// CentralSitelink is one row of the central sitelink snapshot: a link from
// an item to a page title on a single project.
type CentralSitelink struct {
	// Item is the central item id ("Q"-prefixed).
	Item string

	// Title is the sitelink target title in canonical spaced form.
	Title string
}

// Page is the fully resolved page view used during diagnosis of a single
// broken sitelink. Events holds the relevant move/delete history fetched
// on demand; it is never cached beyond one sitelink's processing.
type Page struct {
	// Title is the full page title as recorded in the sitelink.
	Title string

	// Namespace is the numeric namespace id resolved from Title.
	Namespace int

	// LocalItem is the item id recorded locally on the page, or empty.
	LocalItem string

	// Events are the move/delete log events mined for this page.
	Events []LogEvent
}

// LatestEvent returns the event with the maximum timestamp, or nil when
// there are none. Timestamp ties are unresolved: the first event found
// wins, which depends on fetch order and is therefore non-deterministic.
func (p *Page) LatestEvent() *LogEvent {
	var latest *LogEvent
	for i := range p.Events {
		if latest == nil || latest.Timestamp < p.Events[i].Timestamp {
			latest = &p.Events[i]
		}
	}
	return latest
}

// Sitelink is the unit of diagnosis: one centrally recorded link pairing
// an item with a page on a project.
type Sitelink struct {
	// Item is the central item id carrying the link.
	Item string

	// Project is the wiki the link points into.
	Project *Project

	// Page is the resolved target page.
	Page Page
}

package remediate

import (
	"fmt"

	"github.com/wdauditor/sitelinkaudit/internal/model"
)

// removalSummary builds the edit summary of a sitelink removal. It embeds
// the project dbname twice: once in the quoted sitelink and once as a
// hashtag that groups the edits per project in contribution lists.
func removalSummary(dbname, title string, event *model.LogEvent, tag string) string {
	return fmt.Sprintf("remove sitelink \"%s:%s\" (page does not exist on client wiki%s) #%s%s",
		dbname, title, logNarrative(event), dbname, tag)
}

// logNarrative renders the triggering log action for the edit summary, or
// an empty string when no event is known.
func logNarrative(event *model.LogEvent) string {
	if event == nil {
		return ""
	}
	when := event.Timestamp
	narrative := fmt.Sprintf("; from client wiki log: page was %sd by User:%s", event.Type, event.ActorName)
	if t, err := event.Time(); err == nil {
		return narrative + fmt.Sprintf(" on %s", t.Format("2006-01-02, 15:04:05"))
	}
	return narrative + fmt.Sprintf(" at %d", when)
}

// canonicalizeSummary builds the edit summary of a namespace-prefix
// canonicalization.
func canonicalizeSummary(dbname, tag string) string {
	return fmt.Sprintf("normalize sitelink for %s by using the canonical namespace prefix #%s%s", dbname, dbname, tag)
}

// normalizeTitleSummary is the fixed summary of a title normalization.
const normalizeTitleSummary = "Normalize sitelink title to match spelling on client wiki"

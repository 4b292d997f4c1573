package classify

import (
	"context"
	"fmt"

	"github.com/wdauditor/sitelinkaudit/internal/model"
)

// logPair is one type/action combination mined from the project log.
type logPair struct {
	logType string
	action  string
}

// relevantLogPairs are the only log entries that can explain a broken
// sitelink: deletions and moves (with or without a left-behind redirect).
var relevantLogPairs = []logPair{
	{model.LogTypeDelete, model.LogActionDelete},
	{model.LogTypeMove, model.LogActionMove},
	{model.LogTypeMove, model.LogActionMoveRedir},
}

// History fetches log entries from a project replica.
type History interface {
	LogEvents(ctx context.Context, logType, action string, namespace int, title string) ([]model.LogEvent, error)
	LogEventsByID(ctx context.Context, logType, action string, ids []int64) ([]model.LogEvent, error)
}

// fetchEvents mines the move/delete history of a page. Ordinary projects
// are scanned directly on the replica by exact title and namespace. For
// projects listed as large, candidate entry ids come from the public API
// first and only those rows are fetched from the replica, avoiding scans
// of oversized logging tables.
func (c *Classifier) fetchEvents(ctx context.Context, project *model.Project, history History, fullTitle string, namespace int, bareTitle string) ([]model.LogEvent, error) {
	apiHost, large := c.cfg.LargeWikis[project.DBName]

	var events []model.LogEvent
	for _, pair := range relevantLogPairs {
		var (
			batch []model.LogEvent
			err   error
		)
		if large {
			ids, idErr := c.api.LogEventIDs(ctx, apiHost, pair.logType, pair.action, fullTitle)
			if idErr != nil {
				return nil, fmt.Errorf("resolve %s/%s entry ids on %s: %w", pair.logType, pair.action, project.DBName, idErr)
			}
			batch, err = history.LogEventsByID(ctx, pair.logType, pair.action, ids)
		} else {
			batch, err = history.LogEvents(ctx, pair.logType, pair.action, namespace, bareTitle)
		}
		if err != nil {
			return nil, fmt.Errorf("fetch %s/%s history on %s: %w", pair.logType, pair.action, project.DBName, err)
		}
		events = append(events, batch...)
	}
	return events, nil
}

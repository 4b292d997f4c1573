// Package audit persists a durable record of every sitelink edit the
// pipeline performs. Each case is keyed by the revision id of the edit
// and carries the triggering log event, the evaluation narrative, and the
// structured evaluation parameters. Failed edits produce no rows: the
// audit trail records what happened, not what was attempted.
package audit

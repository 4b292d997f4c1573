// Package classify assigns a root-cause reason to each broken sitelink.
//
// The classifier walks a fixed decision path: confirm the item still
// carries the sitelink, re-check page existence on the live project, mine
// the project's move/delete log for the most recent relevant event, and
// read the acting user's central trust signals. The outcome is a Finding
// naming a reason code from the closed taxonomy and the remediation the
// orchestrator should apply. The classifier itself never edits anything.
package classify

// Package report renders the run artifacts meant for humans: the
// per-project defect statistics and the list of sitelinks pointing at
// special pages. Both keep an append-only TSV log as the durable form
// and render Markdown summaries from it on demand.
package report

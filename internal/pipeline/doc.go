// Package pipeline orchestrates the audit run: per project it refreshes
// the snapshots, diffs them, diagnoses and remediates missing-page
// sitelinks, touches pages with stale local item records, and appends
// the defect statistics. Projects are processed under a bounded degree
// of concurrency; a failing project is logged and skipped, never
// aborting the run.
package pipeline

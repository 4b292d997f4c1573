// Package remediate executes the edits a classification calls for:
// sitelink removal, canonicalization of namespace-alias spellings, and
// title normalization. Every operation returns an explicit Result the
// orchestrator pattern-matches to decide whether an audit row is due;
// there are no post-edit callbacks. Removal is idempotent: a sitelink
// that is already gone is reported as a no-op, not an error.
package remediate

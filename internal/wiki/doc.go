// Package wiki is the HTTP client for the MediaWiki action API. It serves
// two roles: read-only checks against individual client projects (page
// existence, redirect status, live titles, log-event ids, namespaces) and
// authenticated sitelink edits against the central knowledge base.
//
// Read requests are retried with exponential backoff on transport errors.
// Write requests are never retried; a failed edit surfaces to the caller,
// which logs and skips it for the rest of the run.
package wiki

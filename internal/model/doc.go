// Package model defines the core data types of the sitelink audit pipeline:
// projects and their namespace tables, local pages and centrally recorded
// sitelinks, historical log events with their acting users, and the closed
// taxonomy of likely-reason codes assigned by the classifier.
//
// Types in this package are plain values without I/O. Lazy namespace
// resolution on Project is the only stateful behavior; it is driven through
// an injected resolver so the package stays free of network dependencies.
package model

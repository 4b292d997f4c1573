// Package main provides the entry point for the sitelinkaudit CLI.
//
// sitelinkaudit diagnoses and repairs broken sitelinks on a central
// knowledge base: sitelinks pointing at pages that were deleted or moved
// away on their client projects, sitelinks recorded under namespace
// aliases, and pages whose locally rendered item record went stale.
//
// Usage:
//
//	sitelinkaudit audit
//	sitelinkaudit refresh --allow dewiki
//	sitelinkaudit touch
//	sitelinkaudit report stats
//
// See --help for all available options.
package main

// main is the entry point for sitelinkaudit.
func main() {
	Execute()
}

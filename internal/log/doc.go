// Package log provides the structured logger of the sitelink audit
// pipeline, built on top of the standard slog package.
//
// The pipeline logs database DSNs, API request parameters, and config
// values, any of which may carry replica or bot-password credentials.
// The RedactHandler masks such values before they reach the underlying
// handler, so a shared or archived log never leaks a password:
//
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//	logger.Info("connecting",
//	    "dsn", "s123:hunter2@tcp(host:3306)/dewiki_p", // password masked
//	    "dbname", "dewiki",
//	)
//
// Use NewLogger for human-readable output and NewJSONLogger when the
// output is collected by a log aggregator.
package log

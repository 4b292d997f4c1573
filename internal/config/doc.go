// Package config holds the runtime configuration of the sitelink audit
// pipeline. One Config value is built from defaults, an optional YAML file,
// and CLI flags, then threaded explicitly into every component constructor.
// There is no package-level mutable state.
package config

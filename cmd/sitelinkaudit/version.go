package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information set at build time via ldflags. When unset, the
// fields are filled from the embedded build info of the binary.
var (
	version = ""
	commit  = ""
	date    = ""
)

// buildDetails is the resolved version triple shown by the version
// command.
type buildDetails struct {
	version string
	commit  string
	date    string
}

// resolveBuildDetails merges the ldflags values with the binary's
// embedded build info. ldflags win; missing pieces fall back to build
// info, then to placeholders.
func resolveBuildDetails() buildDetails {
	d := buildDetails{version: version, commit: commit, date: date}

	if info, ok := debug.ReadBuildInfo(); ok {
		if d.version == "" {
			d.version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if d.commit == "" {
					d.commit = shortRevision(s.Value)
				}
			case "vcs.time":
				if d.date == "" {
					d.date = s.Value
				}
			}
		}
	}

	if d.version == "" {
		d.version = "(devel)"
	}
	if d.commit == "" {
		d.commit = "unknown"
	}
	if d.date == "" {
		d.date = "unknown"
	}
	return d
}

// shortRevision abbreviates a VCS revision to 12 characters.
func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// buildVersion returns the version string shown by --version.
func buildVersion() string {
	return resolveBuildDetails().version
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of sitelinkaudit.`,
		Run: func(cmd *cobra.Command, _ []string) {
			d := resolveBuildDetails()
			fmt.Fprintf(cmd.OutOrStdout(), "sitelinkaudit %s (commit %s, built %s)\n", d.version, d.commit, d.date)
		},
	}
}

package main

import (
	"testing"

	"github.com/wdauditor/sitelinkaudit/internal/config"
)

// TestNewAuditCmdFlags tests the job-flag defaults of the audit command.
func TestNewAuditCmdFlags(t *testing.T) {
	t.Parallel()

	cmd := NewAuditCmd()

	touch, err := cmd.Flags().GetBool("touch")
	if err != nil {
		t.Fatal(err)
	}
	if touch {
		t.Error("touch must default to false")
	}

	stats, err := cmd.Flags().GetBool("stats")
	if err != nil {
		t.Fatal(err)
	}
	if !stats {
		t.Error("stats must default to true")
	}
}

// TestCoversAllProjects tests when an audit run supersedes the special
// page log of the previous run.
func TestCoversAllProjects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   bool
	}{
		{"unfiltered", func(*config.Config) {}, true},
		{"deny list only", func(c *config.Config) { c.Deny = []string{"dewiki"} }, true},
		{"allow list", func(c *config.Config) { c.Allow = []string{"dewiki"} }, false},
		{"lower bound", func(c *config.Config) { c.RangeMin = "enwiki" }, false},
		{"upper bound", func(c *config.Config) { c.RangeMax = "enwiki" }, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			tt.mutate(cfg)
			if got := coversAllProjects(cfg); got != tt.want {
				t.Errorf("coversAllProjects() = %v, want %v", got, tt.want)
			}
		})
	}
}

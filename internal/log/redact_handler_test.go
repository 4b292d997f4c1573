package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestRedactHandler_MasksCredentialKeys tests that credential keys are masked.
func TestRedactHandler_MasksCredentialKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantMask bool
	}{
		{
			name:     "password key is masked",
			key:      "password",
			value:    "hunter2",
			wantMask: true,
		},
		{
			name:     "db_password key is masked",
			key:      "db_password",
			value:    "replica-pass",
			wantMask: true,
		},
		{
			name:     "api_password key is masked",
			key:      "api_password",
			value:    "botpassword@suffix",
			wantMask: true,
		},
		{
			name:     "Lgpassword key (mixed case) is masked",
			key:      "Lgpassword",
			value:    "botpassword",
			wantMask: true,
		},
		{
			name:     "csrf_token key is masked",
			key:      "csrf_token",
			value:    "abc123+\\",
			wantMask: true,
		},
		{
			name:     "keyword inside key is masked",
			key:      "tool_db_password",
			value:    "hunter2",
			wantMask: true,
		},
		{
			name:     "dbname key is not masked",
			key:      "dbname",
			value:    "dewiki",
			wantMask: false,
		},
		{
			name:     "cache_key key is not masked",
			key:      "cache_key",
			value:    "dewiki-pages",
			wantMask: false,
		},
		{
			name:     "qid key is not masked",
			key:      "qid",
			value:    "Q42",
			wantMask: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(NewRedactHandler(slog.NewTextHandler(&buf, nil)))
			logger.Info("test", tt.key, tt.value)

			output := buf.String()
			gotMask := strings.Contains(output, MaskValue)
			if gotMask != tt.wantMask {
				t.Errorf("masked = %v, want %v (output: %s)", gotMask, tt.wantMask, output)
			}
			if tt.wantMask && strings.Contains(output, tt.value) {
				t.Errorf("value %q leaked into output: %s", tt.value, output)
			}
		})
	}
}

// TestRedactHandler_MasksDSNPassword tests that only the password part of a
// mysql DSN is replaced.
func TestRedactHandler_MasksDSNPassword(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewRedactHandler(slog.NewTextHandler(&buf, nil)))
	logger.Info("connecting", "dsn", "s123:hunter2@tcp(dewiki.example:3306)/dewiki_p")

	output := buf.String()
	if strings.Contains(output, "hunter2") {
		t.Errorf("DSN password leaked: %s", output)
	}
	if !strings.Contains(output, "s123") || !strings.Contains(output, "dewiki_p") {
		t.Errorf("non-secret DSN parts must survive: %s", output)
	}
}

// TestRedactHandler_MasksGroupAttrs tests recursive masking inside groups.
func TestRedactHandler_MasksGroupAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewRedactHandler(slog.NewTextHandler(&buf, nil)))
	logger.Info("login", slog.Group("api",
		slog.String("user", "AuditBot"),
		slog.String("password", "hunter2"),
	))

	output := buf.String()
	if strings.Contains(output, "hunter2") {
		t.Errorf("grouped password leaked: %s", output)
	}
	if !strings.Contains(output, "AuditBot") {
		t.Errorf("non-secret group member must survive: %s", output)
	}
}

// TestNewLogger_Level tests the verbose flag.
func TestNewLogger_Level(t *testing.T) {
	t.Parallel()

	var quiet bytes.Buffer
	NewLogger(&quiet, false).Debug("hidden")
	if quiet.Len() != 0 {
		t.Errorf("debug must be suppressed without verbose: %s", quiet.String())
	}

	var verbose bytes.Buffer
	NewLogger(&verbose, true).Debug("visible")
	if !strings.Contains(verbose.String(), "visible") {
		t.Errorf("debug must appear with verbose: %s", verbose.String())
	}
}

// TestNewJSONLogger tests that JSON output is produced and masked.
func TestNewJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewJSONLogger(&buf, false).Info("test", "password", "hunter2")

	output := buf.String()
	if !strings.HasPrefix(output, "{") {
		t.Errorf("expected JSON output: %s", output)
	}
	if strings.Contains(output, "hunter2") {
		t.Errorf("password leaked: %s", output)
	}
}

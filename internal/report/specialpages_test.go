package report

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func newTestSpecialPageLog(t *testing.T) *SpecialPageLog {
	t.Helper()
	return NewSpecialPageLog(filepath.Join(t.TempDir(), "special_pages.tsv"), slog.New(slog.DiscardHandler))
}

// TestSpecialPageLog_AppendAndEntries tests the TSV roundtrip.
func TestSpecialPageLog_AppendAndEntries(t *testing.T) {
	t.Parallel()

	log := newTestSpecialPageLog(t)
	if err := log.Append("Q42", "dewiki", "Spezial:Suche"); err != nil {
		t.Fatalf("Append() = %v", err)
	}
	if err := log.Append("Q7", "frwiki", "Sp\u00e9cial:Recherche"); err != nil {
		t.Fatalf("Append() = %v", err)
	}

	entries, err := log.Entries()
	if err != nil {
		t.Fatalf("Entries() = %v", err)
	}
	want := []SpecialPageEntry{
		{Item: "Q42", DBName: "dewiki", Title: "Spezial:Suche"},
		{Item: "Q7", DBName: "frwiki", Title: "Sp\u00e9cial:Recherche"},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

// TestSpecialPageLog_Clear tests truncation before a re-audit.
func TestSpecialPageLog_Clear(t *testing.T) {
	t.Parallel()

	log := newTestSpecialPageLog(t)
	if err := log.Append("Q42", "dewiki", "Spezial:Suche"); err != nil {
		t.Fatalf("Append() = %v", err)
	}
	if err := log.Clear(); err != nil {
		t.Fatalf("Clear() = %v", err)
	}

	entries, err := log.Entries()
	if err != nil {
		t.Fatalf("Entries() = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries after Clear() = %v, want none", entries)
	}
}

// TestSpecialPageLog_WriteMarkdown tests the rendered anomaly report.
func TestSpecialPageLog_WriteMarkdown(t *testing.T) {
	t.Parallel()

	log := newTestSpecialPageLog(t)
	if err := log.Append("Q42", "dewiki", "Spezial:Suche"); err != nil {
		t.Fatalf("Append() = %v", err)
	}

	var buf bytes.Buffer
	if err := log.WriteMarkdown(&buf); err != nil {
		t.Fatalf("WriteMarkdown() = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"# Special Pages as Sitelinks", "Q42", "dewiki", "Spezial:Suche"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

// TestSpecialPageLog_EmptyReport tests the report without entries.
func TestSpecialPageLog_EmptyReport(t *testing.T) {
	t.Parallel()

	log := newTestSpecialPageLog(t)

	var buf bytes.Buffer
	if err := log.WriteMarkdown(&buf); err != nil {
		t.Fatalf("WriteMarkdown() = %v", err)
	}
	if !strings.Contains(buf.String(), "No special page sitelinks recorded.") {
		t.Errorf("report = %q", buf.String())
	}
}

package report

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/markdown"
)

// SpecialPageEntry is one sitelink pointing at a special page. These
// cannot be remediated automatically and are reported for manual review.
type SpecialPageEntry struct {
	Item   string
	DBName string
	Title  string
}

// SpecialPageLog is the append-only anomaly log of special-page sitelinks.
type SpecialPageLog struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewSpecialPageLog creates a SpecialPageLog backed by path.
func NewSpecialPageLog(path string, logger *slog.Logger) *SpecialPageLog {
	return &SpecialPageLog{path: path, logger: logger}
}

// Append records one anomaly.
func (l *SpecialPageLog) Append(item, dbname, title string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("create anomaly log directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open anomaly log: %w", err)
	}
	defer f.Close() //nolint:errcheck // error captured from the write path

	if _, err := fmt.Fprintf(f, "%s\t%s\t%s\n", item, dbname, title); err != nil {
		return fmt.Errorf("append anomaly: %w", err)
	}
	l.logger.Info("special page sitelink recorded", "item", item, "dbname", dbname, "title", title)
	return f.Close()
}

// Clear truncates the log. It runs before a full re-audit so the report
// only lists anomalies that still exist.
func (l *SpecialPageLog) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("create anomaly log directory: %w", err)
	}
	if err := os.WriteFile(l.path, nil, 0o640); err != nil {
		return fmt.Errorf("clear anomaly log: %w", err)
	}
	l.logger.Info("special page log cleared")
	return nil
}

// Entries reads back all recorded anomalies. A missing file yields none.
func (l *SpecialPageLog) Entries() ([]SpecialPageEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open anomaly log: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	var entries []SpecialPageEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != 3 {
			continue
		}
		entries = append(entries, SpecialPageEntry{Item: fields[0], DBName: fields[1], Title: fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read anomaly log: %w", err)
	}
	return entries, nil
}

// WriteMarkdown renders the anomaly list as a Markdown report.
func (l *SpecialPageLog) WriteMarkdown(w io.Writer) error {
	entries, err := l.Entries()
	if err != nil {
		return err
	}

	md := markdown.NewMarkdown(w)
	md.H1("Special Pages as Sitelinks")
	md.PlainText("")
	md.PlainTextf("List of sitelinks pointing at special pages. Update: %s",
		time.Now().Format("2006-01-02 15:04 (MST)"))
	md.PlainText("")

	if len(entries) == 0 {
		md.PlainText("No special page sitelinks recorded.")
		return md.Build()
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.Item, e.DBName, e.Title}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Item", "Project", "Page title"},
		Rows:   rows,
	})
	return md.Build()
}

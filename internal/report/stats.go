package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
)

// StatRecord is one per-project defect count line.
type StatRecord struct {
	// DBName is the project the counts belong to.
	DBName string

	// PageMissing counts sitelinks whose page is gone from the project.
	PageMissing int

	// LocalItemDiffers counts pages connected to a different item than
	// the one carrying the sitelink.
	LocalItemDiffers int

	// LocalItemMissing counts pages that exist but carry no item at all.
	LocalItemMissing int
}

// StatsLog is the append-only TSV statistics file. One line per audited
// project per run.
type StatsLog struct {
	path string
	mu   sync.Mutex
}

// NewStatsLog creates a StatsLog backed by path.
func NewStatsLog(path string) *StatsLog {
	return &StatsLog{path: path}
}

// Append writes one project's counts.
func (s *StatsLog) Append(record StatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create statistics directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open statistics file: %w", err)
	}
	defer f.Close() //nolint:errcheck // error captured from the write path

	line := fmt.Sprintf("%s\t%d\t%d\t%d\n",
		record.DBName, record.PageMissing, record.LocalItemDiffers, record.LocalItemMissing)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append statistics line: %w", err)
	}
	return f.Close()
}

// Records reads back all lines. A missing file yields no records.
func (s *StatsLog) Records() ([]StatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open statistics file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	var records []StatRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != 4 {
			continue
		}
		record := StatRecord{DBName: fields[0]}
		if record.PageMissing, err = strconv.Atoi(fields[1]); err != nil {
			continue
		}
		if record.LocalItemDiffers, err = strconv.Atoi(fields[2]); err != nil {
			continue
		}
		if record.LocalItemMissing, err = strconv.Atoi(fields[3]); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read statistics file: %w", err)
	}
	return records, nil
}

// WriteMarkdown renders the statistics as a Markdown report.
func (s *StatsLog) WriteMarkdown(w io.Writer) error {
	records, err := s.Records()
	if err != nil {
		return err
	}

	md := markdown.NewMarkdown(w)
	md.H1("Sitelink Audit Statistics")
	md.PlainText("")
	md.PlainTextf("Generated: %s", time.Now().Format("2006-01-02 15:04 (MST)"))
	md.PlainText("")

	if len(records) == 0 {
		md.PlainText("No projects audited yet.")
		return md.Build()
	}

	var totalMissing, totalDiffers, totalNoItem int
	rows := make([][]string, 0, len(records)+1)
	for _, r := range records {
		totalMissing += r.PageMissing
		totalDiffers += r.LocalItemDiffers
		totalNoItem += r.LocalItemMissing
		rows = append(rows, []string{
			r.DBName,
			humanize.Comma(int64(r.PageMissing)),
			humanize.Comma(int64(r.LocalItemDiffers)),
			humanize.Comma(int64(r.LocalItemMissing)),
		})
	}
	rows = append(rows, []string{
		"**Total**",
		"**" + humanize.Comma(int64(totalMissing)) + "**",
		"**" + humanize.Comma(int64(totalDiffers)) + "**",
		"**" + humanize.Comma(int64(totalNoItem)) + "**",
	})

	md.Table(markdown.TableSet{
		Header: []string{"Project", "Page missing", "Item differs", "Item missing"},
		Rows:   rows,
	})
	return md.Build()
}

package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/wdauditor/sitelinkaudit/internal/config"
	"github.com/wdauditor/sitelinkaudit/internal/model"
)

// Staging table names in the tool database.
const (
	stagingPagesTable     = "pages"
	stagingSitelinksTable = "sitelinks"
)

// ToolDB mirrors snapshot chunks into staging tables of the tool database.
// Each refresh truncates the target table and bulk-loads TSV chunks via
// LOAD DATA LOCAL INFILE.
type ToolDB struct {
	db     *sql.DB
	tmpDir string
	logger *slog.Logger
}

// OpenToolDB connects to the tool database and ensures the staging schema
// exists. TSV chunk files are written under tmpDir and removed after each
// load.
func OpenToolDB(ctx context.Context, cfg *config.Config, tmpDir string, logger *slog.Logger) (*ToolDB, error) {
	c := mysql.NewConfig()
	c.User = cfg.DBUser
	c.Passwd = cfg.DBPassword
	c.Net = "tcp"
	c.Addr = cfg.ToolDBAddr
	c.DBName = cfg.ToolDBName
	c.AllowAllFiles = false

	db, err := sql.Open("mysql", c.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open tool database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	t := &ToolDB{db: db, tmpDir: tmpDir, logger: logger}
	if err := t.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("tool database connection established", "addr", cfg.ToolDBAddr)
	return t, nil
}

// Close closes the tool database connection.
func (t *ToolDB) Close() error {
	t.logger.Debug("tool database connection closed")
	return t.db.Close()
}

// ensureSchema creates the staging tables when missing. The schema matches
// the snapshot columns; binary columns keep titles byte-exact.
func (t *ToolDB) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id INT(11) NOT NULL AUTO_INCREMENT,
			ns_numerical INT(11) NOT NULL,
			full_page_title VARBINARY(255) NOT NULL,
			qid VARBINARY(10) NOT NULL,
			PRIMARY KEY (id)
		) DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
		`CREATE INDEX IF NOT EXISTS title ON pages (full_page_title)`,
		`CREATE TABLE IF NOT EXISTS sitelinks (
			id INT(11) NOT NULL AUTO_INCREMENT,
			sitelink VARBINARY(255) NOT NULL,
			qid_sitelink VARBINARY(10) NOT NULL,
			PRIMARY KEY (id)
		) DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
		`CREATE INDEX IF NOT EXISTS sitelink ON sitelinks (sitelink)`,
	}

	for _, stmt := range statements {
		if _, err := t.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create staging table: %w", err)
		}
	}
	return nil
}

// ClearPages truncates the pages staging table before a refresh.
func (t *ToolDB) ClearPages(ctx context.Context) error {
	return t.clearTable(ctx, stagingPagesTable)
}

// ClearSitelinks truncates the sitelinks staging table before a refresh.
func (t *ToolDB) ClearSitelinks(ctx context.Context) error {
	return t.clearTable(ctx, stagingSitelinksTable)
}

func (t *ToolDB) clearTable(ctx context.Context, table string) error {
	if _, err := t.db.ExecContext(ctx, "TRUNCATE TABLE "+table); err != nil {
		return fmt.Errorf("clear staging table %s: %w", table, err)
	}
	t.logger.Info("cleared staging table", "table", table)
	return nil
}

// StagePages bulk-loads one chunk of page rows into the pages table.
func (t *ToolDB) StagePages(ctx context.Context, pages []model.LocalPage) error {
	lines := make([]string, len(pages))
	for i, p := range pages {
		lines[i] = stagingTSVLine(strconv.Itoa(p.Namespace), p.Title, p.Item)
	}
	return t.loadTSV(ctx, stagingPagesTable, "(@id, ns_numerical, full_page_title, qid)", lines)
}

// StageSitelinks bulk-loads one chunk of sitelink rows into the sitelinks
// table.
func (t *ToolDB) StageSitelinks(ctx context.Context, links []model.CentralSitelink) error {
	lines := make([]string, len(links))
	for i, l := range links {
		lines[i] = stagingTSVLine(l.Title, l.Item)
	}
	return t.loadTSV(ctx, stagingSitelinksTable, "(@id, sitelink, qid_sitelink)", lines)
}

// loadTSV writes the lines to a temporary TSV file and bulk-loads it. The
// file is removed afterwards regardless of outcome.
func (t *ToolDB) loadTSV(ctx context.Context, table, columns string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	path := filepath.Join(t.tmpDir, "staging_"+table+".tsv")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		return fmt.Errorf("write staging chunk for %s: %w", table, err)
	}
	defer os.Remove(path)

	mysql.RegisterLocalFile(path)
	defer mysql.DeregisterLocalFile(path)

	query := fmt.Sprintf(`LOAD DATA LOCAL INFILE '%s'
	INTO TABLE %s
	FIELDS TERMINATED BY '\t'
	LINES TERMINATED BY '\n'
	%s`, path, table, columns)

	if _, err := t.db.ExecContext(ctx, "SET sql_mode='NO_BACKSLASH_ESCAPES'"); err != nil {
		return fmt.Errorf("prepare staging load for %s: %w", table, err)
	}
	if _, err := t.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("bulk-load staging chunk into %s: %w", table, err)
	}

	t.logger.Info("staged snapshot chunk", "table", table, "rows", len(lines))
	return nil
}

// stagingTSVLine renders one staging row. The leading empty field feeds the
// discarded @id column, mirroring the loaded column lists above.
func stagingTSVLine(fields ...string) string {
	return "\t" + strings.Join(fields, "\t")
}

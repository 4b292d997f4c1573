package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/wdauditor/sitelinkaudit/internal/model"
)

// Case is one audited sitelink edit.
type Case struct {
	// Item is the central item id the edit touched.
	Item string

	// DBName is the project of the sitelink.
	DBName string

	// Title is the sitelink title the edit targeted.
	Title string

	// RevisionID is the revision created by the edit. It keys the case.
	RevisionID int64

	// Reason is the root-cause code the edit was made under.
	Reason model.Reason

	// Event is the triggering log event, when one is known.
	Event *model.LogEvent

	// Narrative is the evaluation trace.
	Narrative string

	// EvalParams is the structured evaluation detail.
	EvalParams map[string]any
}

// Store is the SQLite-backed audit store. One writer at a time; each
// insert runs in its own transaction.
type Store struct {
	db     *sql.DB
	runID  string
	logger *slog.Logger
}

// Open opens or creates the audit database under dbDir. Every Open starts
// a new run: rows written through the returned store share one run id.
func Open(dbDir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}
	dbPath := filepath.Join(dbDir, "audit.db")

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	// SQLite supports one writer; WAL lets readers coexist with it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Store{db: db, runID: uuid.NewString(), logger: logger}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit tables: %w", err)
	}
	return s, nil
}

// Close closes the audit database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunID returns the id shared by all rows of this run.
func (s *Store) RunID() string {
	return s.runID
}

func (s *Store) createTables() error {
	schema := `
	-- One row per performed sitelink edit, keyed by revision id.
	CREATE TABLE IF NOT EXISTS sitelink_case (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		qid TEXT NOT NULL,
		dbname TEXT NOT NULL,
		page_title TEXT NOT NULL,
		revid INTEGER NOT NULL,
		reason TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_case_revid ON sitelink_case(revid);
	CREATE INDEX IF NOT EXISTS idx_case_qid ON sitelink_case(qid);
	CREATE INDEX IF NOT EXISTS idx_case_dbname ON sitelink_case(dbname);

	-- The triggering log event of a case, serialized as JSON.
	CREATE TABLE IF NOT EXISTS sitelink_logevent (
		case_id INTEGER NOT NULL,
		logevent TEXT NOT NULL,
		FOREIGN KEY (case_id) REFERENCES sitelink_case (id)
	);

	-- The human-readable evaluation trace of a case.
	CREATE TABLE IF NOT EXISTS sitelink_narrative (
		case_id INTEGER NOT NULL,
		narrative TEXT NOT NULL,
		FOREIGN KEY (case_id) REFERENCES sitelink_case (id)
	);

	-- The structured evaluation parameters of a case, one row per key.
	CREATE TABLE IF NOT EXISTS sitelink_params (
		case_id INTEGER NOT NULL,
		p_key TEXT NOT NULL,
		p_value TEXT,
		p_dtype TEXT NOT NULL,
		FOREIGN KEY (case_id) REFERENCES sitelink_case (id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertCase writes one audited edit atomically: the case row and its
// event, narrative, and parameter rows commit together or not at all.
func (s *Store) InsertCase(ctx context.Context, c Case) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx,
		`INSERT INTO sitelink_case (run_id, qid, dbname, page_title, revid, reason) VALUES (?, ?, ?, ?, ?, ?)`,
		s.runID, c.Item, c.DBName, c.Title, c.RevisionID, c.Reason.Code())
	if err != nil {
		return fmt.Errorf("insert audit case: %w", err)
	}
	caseID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("resolve audit case id: %w", err)
	}

	if c.Event != nil {
		payload, err := json.Marshal(c.Event.PayloadMap())
		if err != nil {
			return fmt.Errorf("encode audit log event: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sitelink_logevent (case_id, logevent) VALUES (?, ?)`,
			caseID, string(payload)); err != nil {
			return fmt.Errorf("insert audit log event: %w", err)
		}
	}

	if c.Narrative != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sitelink_narrative (case_id, narrative) VALUES (?, ?)`,
			caseID, c.Narrative); err != nil {
			return fmt.Errorf("insert audit narrative: %w", err)
		}
	}

	for key, value := range c.EvalParams {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sitelink_params (case_id, p_key, p_value, p_dtype) VALUES (?, ?, ?, ?)`,
			caseID, key, fmt.Sprint(value), fmt.Sprintf("%T", value)); err != nil {
			return fmt.Errorf("insert audit param %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit case: %w", err)
	}

	s.logger.Info("audit case recorded",
		"item", c.Item, "dbname", c.DBName, "revid", c.RevisionID, "reason", c.Reason.Code())
	return nil
}

// CountCases returns the number of audited edits of this run.
func (s *Store) CountCases(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sitelink_case WHERE run_id = ?`, s.runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count audit cases: %w", err)
	}
	return count, nil
}

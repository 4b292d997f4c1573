package audit

import (
	"context"
	"log/slog"
	"testing"

	"github.com/wdauditor/sitelinkaudit/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(t.TempDir(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	})
	return store
}

// TestOpen_CreatesSchema tests that a fresh store is immediately usable.
func TestOpen_CreatesSchema(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if store.RunID() == "" {
		t.Error("RunID() must not be empty")
	}

	count, err := store.CountCases(context.Background())
	if err != nil {
		t.Fatalf("CountCases() = %v", err)
	}
	if count != 0 {
		t.Errorf("CountCases() = %d, want 0", count)
	}
}

// TestInsertCase tests the full case write: case row, log event,
// narrative, and parameters commit together.
func TestInsertCase(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	c := Case{
		Item:       "Q42",
		DBName:     "dewiki",
		Title:      "Douglas Adams",
		RevisionID: 123456,
		Reason:     model.ReasonDeleteEstablishedUser,
		Event: &model.LogEvent{
			ID:        99,
			Timestamp: 20230505120000,
			Type:      model.LogTypeDelete,
			Action:    model.LogActionDelete,
			ActorName: "Alice",
		},
		Narrative: "page was deleted",
		EvalParams: map[string]any{
			"missed_deletion": true,
			"likely_reason":   model.ReasonDeleteEstablishedUser.Code(),
		},
	}
	if err := store.InsertCase(ctx, c); err != nil {
		t.Fatalf("InsertCase() = %v", err)
	}

	count, err := store.CountCases(ctx)
	if err != nil {
		t.Fatalf("CountCases() = %v", err)
	}
	if count != 1 {
		t.Fatalf("CountCases() = %d, want 1", count)
	}

	var reason string
	var revid int64
	err = store.db.QueryRowContext(ctx,
		`SELECT reason, revid FROM sitelink_case WHERE qid = ?`, "Q42").Scan(&reason, &revid)
	if err != nil {
		t.Fatalf("query case row: %v", err)
	}
	if reason != c.Reason.Code() || revid != c.RevisionID {
		t.Errorf("case row = (%q, %d), want (%q, %d)", reason, revid, c.Reason.Code(), c.RevisionID)
	}

	var events, narratives, params int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sitelink_logevent`).Scan(&events); err != nil {
		t.Fatalf("count log events: %v", err)
	}
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sitelink_narrative`).Scan(&narratives); err != nil {
		t.Fatalf("count narratives: %v", err)
	}
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sitelink_params`).Scan(&params); err != nil {
		t.Fatalf("count params: %v", err)
	}
	if events != 1 || narratives != 1 || params != 2 {
		t.Errorf("child rows = (%d, %d, %d), want (1, 1, 2)", events, narratives, params)
	}

	var dtype string
	err = store.db.QueryRowContext(ctx,
		`SELECT p_dtype FROM sitelink_params WHERE p_key = ?`, "missed_deletion").Scan(&dtype)
	if err != nil {
		t.Fatalf("query param row: %v", err)
	}
	if dtype != "bool" {
		t.Errorf("p_dtype = %q, want %q", dtype, "bool")
	}
}

// TestInsertCase_WithoutEvent tests that event-less cases write no
// log event row.
func TestInsertCase_WithoutEvent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	c := Case{
		Item:       "Q7",
		DBName:     "frwiki",
		Title:      "Discussion:Accueil",
		RevisionID: 222,
		Reason:     model.ReasonAltTitle,
	}
	if err := store.InsertCase(ctx, c); err != nil {
		t.Fatalf("InsertCase() = %v", err)
	}

	var events int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sitelink_logevent`).Scan(&events); err != nil {
		t.Fatalf("count log events: %v", err)
	}
	if events != 0 {
		t.Errorf("log events = %d, want 0", events)
	}
}

// TestCountCases_ScopedToRun tests that counts only cover the current run.
func TestCountCases_ScopedToRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	first, err := Open(dir, logger)
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	c := Case{Item: "Q1", DBName: "enwiki", Title: "Foo", RevisionID: 1, Reason: model.ReasonMoveNoRedirect}
	if err := first.InsertCase(ctx, c); err != nil {
		t.Fatalf("InsertCase() = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	second, err := Open(dir, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	if second.RunID() == first.RunID() {
		t.Error("reopen must start a new run")
	}
	count, err := second.CountCases(ctx)
	if err != nil {
		t.Fatalf("CountCases() = %v", err)
	}
	if count != 0 {
		t.Errorf("CountCases() = %d, want 0 for the new run", count)
	}
}

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/wdauditor/sitelinkaudit/internal/audit"
	"github.com/wdauditor/sitelinkaudit/internal/config"
	"github.com/wdauditor/sitelinkaudit/internal/model"
	"github.com/wdauditor/sitelinkaudit/internal/report"
	"github.com/wdauditor/sitelinkaudit/internal/warehouse"
)

var testNamespaces = []model.Namespace{
	{ID: 0, Local: "", Canonical: ""},
	{ID: 1, Local: "Diskussion", Canonical: "Talk"},
}

// fakeClient scripts the remote surface for a full project pass.
type fakeClient struct {
	sitelinks map[string]string // item -> live sitelink title
	existing  map[string]bool   // title -> page exists

	removed []string // items whose sitelink was removed
	touched []string // titles touched
}

func (f *fakeClient) Namespaces(context.Context, string) ([]model.Namespace, error) {
	return testNamespaces, nil
}

func (f *fakeClient) ItemSitelink(_ context.Context, item, _ string) (string, bool, error) {
	title, ok := f.sitelinks[item]
	return title, ok, nil
}

func (f *fakeClient) PageExists(_ context.Context, _, title string) (bool, error) {
	return f.existing[title], nil
}

func (f *fakeClient) PageIsRedirect(context.Context, string, string) (bool, error) {
	return false, nil
}

func (f *fakeClient) PageItem(context.Context, string, string) (string, error) {
	return "", nil
}

func (f *fakeClient) LiveTitle(_ context.Context, _, title string) (string, error) {
	return title, nil
}

func (f *fakeClient) LogEventIDs(context.Context, string, string, string, string) ([]int64, error) {
	return nil, nil
}

func (f *fakeClient) RemoveSitelink(_ context.Context, item, _, _ string) (int64, error) {
	f.removed = append(f.removed, item)
	return int64(5000 + len(f.removed)), nil
}

func (f *fakeClient) SetSitelink(_ context.Context, _, _, _, _ string) (int64, error) {
	return 6000, nil
}

func (f *fakeClient) TouchPage(_ context.Context, _, title string) error {
	f.touched = append(f.touched, title)
	return nil
}

// fakeReplica serves the project side: page rows and log history.
type fakeReplica struct {
	pages  []warehouse.PageRow
	events map[string][]model.LogEvent // "type/action" -> events
	closed bool
}

func (f *fakeReplica) PageRows(_ context.Context, _ string, _ int, flush func([]warehouse.PageRow) error) error {
	return flush(f.pages)
}

func (f *fakeReplica) LogEvents(_ context.Context, logType, action string, _ int, _ string) ([]model.LogEvent, error) {
	return f.events[logType+"/"+action], nil
}

func (f *fakeReplica) LogEventsByID(context.Context, string, string, []int64) ([]model.LogEvent, error) {
	return nil, nil
}

func (f *fakeReplica) Close() error {
	f.closed = true
	return nil
}

// fakeCentral serves the central side: sitelink rows and trust signals.
type fakeCentral struct {
	links []warehouse.SitelinkRow
	users map[string]model.User
}

func (f *fakeCentral) SitelinkRows(_ context.Context, _ string, _ int, flush func([]warehouse.SitelinkRow) error) error {
	return flush(f.links)
}

func (f *fakeCentral) User(_ context.Context, name string) (model.User, error) {
	return f.users[name], nil
}

func int64ptr(v int64) *int64 { return &v }

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.CacheDir = t.TempDir()
	cfg.TouchDelay = 0
	cfg.EditSummaryTag = " #sitelinkaudit"
	return cfg
}

// TestAuditProject runs the full pass over one scripted project: one
// consistent link, one removable missing page, and two touchable stale
// pages. The touch pass is enabled explicitly.
func TestAuditProject(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	cfg.AuditTouch = true
	logger := slog.New(slog.DiscardHandler)

	api := &fakeClient{
		sitelinks: map[string]string{"Q1": "Keep", "Q2": "Stale", "Q3": "NoItem", "Q4": "Gone"},
		existing:  map[string]bool{"Keep": true, "Stale": true, "NoItem": true},
	}
	replica := &fakeReplica{
		pages: []warehouse.PageRow{
			{Namespace: 0, Title: "Keep", Item: "Q1"},
			{Namespace: 0, Title: "Stale", Item: "Q9"},
			{Namespace: 0, Title: "NoItem", Item: ""},
		},
		events: map[string][]model.LogEvent{
			"delete/delete": {{
				ID:        77,
				Timestamp: 20230505120000,
				Type:      model.LogTypeDelete,
				Action:    model.LogActionDelete,
				ActorName: "Alice",
			}},
		},
	}
	central := &fakeCentral{
		links: []warehouse.SitelinkRow{
			{Item: "Q1", Title: "Keep"},
			{Item: "Q2", Title: "Stale"},
			{Item: "Q3", Title: "NoItem"},
			{Item: "Q4", Title: "Gone"},
		},
		users: map[string]model.User{
			"Alice": {ID: int64ptr(12), Name: "Alice", Registration: int64ptr(20200101000000), EditCount: 500},
		},
	}

	auditStore, err := audit.Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("audit.Open() = %v", err)
	}
	defer auditStore.Close()
	stats := report.NewStatsLog(filepath.Join(t.TempDir(), "stat.tsv"))

	p := New(Options{
		Config:  cfg,
		API:     api,
		Central: central,
		OpenReplica: func(string) (ProjectReplica, error) {
			return replica, nil
		},
		Audit:  auditStore,
		Stats:  stats,
		Logger: logger,
	})

	project := model.NewProjectWithNamespaces("exwiki", "ex.example.org", testNamespaces)
	if err := p.AuditProject(context.Background(), project); err != nil {
		t.Fatalf("AuditProject() = %v", err)
	}

	if len(api.removed) != 1 || api.removed[0] != "Q4" {
		t.Errorf("removed = %v, want [Q4]", api.removed)
	}
	if len(api.touched) != 2 {
		t.Errorf("touched = %v, want the two stale pages", api.touched)
	}
	if !replica.closed {
		t.Error("replica must be closed after the pass")
	}

	count, err := auditStore.CountCases(context.Background())
	if err != nil {
		t.Fatalf("CountCases() = %v", err)
	}
	if count != 1 {
		t.Errorf("audit cases = %d, want 1", count)
	}

	records, err := stats.Records()
	if err != nil {
		t.Fatalf("Records() = %v", err)
	}
	want := report.StatRecord{DBName: "exwiki", PageMissing: 1, LocalItemDiffers: 1, LocalItemMissing: 1}
	if len(records) != 1 || records[0] != want {
		t.Errorf("stats = %v, want [%+v]", records, want)
	}
}

// TestAuditProject_JobFlags tests the default audit job shape: stale
// pages are remediated but never touched, and disabling the statistics
// flag suppresses the stats line.
func TestAuditProject_JobFlags(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	cfg.AuditStats = false
	logger := slog.New(slog.DiscardHandler)

	api := &fakeClient{
		sitelinks: map[string]string{"Q2": "Stale", "Q4": "Gone"},
		existing:  map[string]bool{"Stale": true},
	}
	replica := &fakeReplica{
		pages: []warehouse.PageRow{
			{Namespace: 0, Title: "Stale", Item: "Q9"},
		},
		events: map[string][]model.LogEvent{
			"delete/delete": {{
				Timestamp: 20230505120000,
				Type:      model.LogTypeDelete,
				Action:    model.LogActionDelete,
				ActorName: "Alice",
			}},
		},
	}
	central := &fakeCentral{
		links: []warehouse.SitelinkRow{
			{Item: "Q2", Title: "Stale"},
			{Item: "Q4", Title: "Gone"},
		},
		users: map[string]model.User{
			"Alice": {ID: int64ptr(12), Name: "Alice", Registration: int64ptr(20200101000000), EditCount: 500},
		},
	}
	stats := report.NewStatsLog(filepath.Join(t.TempDir(), "stat.tsv"))

	p := New(Options{
		Config:  cfg,
		API:     api,
		Central: central,
		OpenReplica: func(string) (ProjectReplica, error) {
			return replica, nil
		},
		Stats:  stats,
		Logger: logger,
	})

	project := model.NewProjectWithNamespaces("exwiki", "ex.example.org", testNamespaces)
	if err := p.AuditProject(context.Background(), project); err != nil {
		t.Fatalf("AuditProject() = %v", err)
	}

	if len(api.removed) != 1 || api.removed[0] != "Q4" {
		t.Errorf("removed = %v, want [Q4]", api.removed)
	}
	if len(api.touched) != 0 {
		t.Errorf("touched = %v, want no touches without the touch flag", api.touched)
	}

	records, err := stats.Records()
	if err != nil {
		t.Fatalf("Records() = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("stats = %v, want none with stats disabled", records)
	}
}

// TestAuditProject_DryRun tests that nothing is edited or audited.
func TestAuditProject_DryRun(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	cfg.DryRun = true
	logger := slog.New(slog.DiscardHandler)

	api := &fakeClient{
		sitelinks: map[string]string{"Q4": "Gone"},
		existing:  map[string]bool{},
	}
	replica := &fakeReplica{
		events: map[string][]model.LogEvent{
			"delete/delete": {{
				Timestamp: 20230505120000,
				Type:      model.LogTypeDelete,
				Action:    model.LogActionDelete,
				ActorName: "Alice",
			}},
		},
	}
	central := &fakeCentral{
		links: []warehouse.SitelinkRow{{Item: "Q4", Title: "Gone"}},
		users: map[string]model.User{
			"Alice": {ID: int64ptr(12), Name: "Alice", Registration: int64ptr(20200101000000)},
		},
	}

	p := New(Options{
		Config:  cfg,
		API:     api,
		Central: central,
		OpenReplica: func(string) (ProjectReplica, error) {
			return replica, nil
		},
		Logger: logger,
	})

	project := model.NewProjectWithNamespaces("exwiki", "ex.example.org", testNamespaces)
	if err := p.AuditProject(context.Background(), project); err != nil {
		t.Fatalf("AuditProject() = %v", err)
	}
	if len(api.removed) != 0 || len(api.touched) != 0 {
		t.Errorf("dry-run edited: removed %v touched %v", api.removed, api.touched)
	}
}

// TestRun tests project filtering and failure isolation.
func TestRun(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	cfg.Deny = []string{"denywiki"}

	p := New(Options{
		Config: cfg,
		Logger: slog.New(slog.DiscardHandler),
	})

	projects := []*model.Project{
		model.NewProject("awiki", "a.example.org"),
		model.NewProject("denywiki", "deny.example.org"),
		model.NewProject("bwiki", "b.example.org"),
	}

	var ran []string
	err := p.Run(context.Background(), projects, func(_ context.Context, project *model.Project) error {
		ran = append(ran, project.DBName)
		if project.DBName == "awiki" {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if len(ran) != 2 || ran[0] != "awiki" || ran[1] != "bwiki" {
		t.Errorf("ran = %v, want [awiki bwiki]", ran)
	}
}

// TestRun_ContextCanceled tests that cancellation stops the run.
func TestRun_ContextCanceled(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	p := New(Options{Config: cfg, Logger: slog.New(slog.DiscardHandler)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx, []*model.Project{model.NewProject("awiki", "a.example.org")},
		func(context.Context, *model.Project) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

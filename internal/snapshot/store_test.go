package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/wdauditor/sitelinkaudit/internal/config"
	"github.com/wdauditor/sitelinkaudit/internal/model"
	"github.com/wdauditor/sitelinkaudit/internal/warehouse"
)

var testNamespaces = []model.Namespace{
	{ID: 0, Local: "", Canonical: ""},
	{ID: 1, Local: "Diskussion", Canonical: "Talk"},
	{ID: 4, Local: "LexiWiki", Canonical: "Project", Aliases: []string{"LW"}},
}

// fakePageSource yields configured chunks, optionally failing mid-stream.
type fakePageSource struct {
	chunks   [][]warehouse.PageRow
	failFrom int // 1-based chunk index to fail before; 0 = never
	calls    int
}

func (f *fakePageSource) PageRows(_ context.Context, _ string, _ int, flush func([]warehouse.PageRow) error) error {
	f.calls++
	for i, chunk := range f.chunks {
		if f.failFrom > 0 && i+1 == f.failFrom {
			return errors.New("connection lost during chunking")
		}
		if err := flush(chunk); err != nil {
			return err
		}
	}
	return nil
}

// fakeSitelinkSource yields one chunk of sitelink rows.
type fakeSitelinkSource struct {
	rows  []warehouse.SitelinkRow
	calls int
}

func (f *fakeSitelinkSource) SitelinkRows(_ context.Context, _ string, _ int, flush func([]warehouse.SitelinkRow) error) error {
	f.calls++
	return flush(f.rows)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := config.NewConfig()
	cfg.CacheDir = t.TempDir()
	return NewStore(cfg, nil, slog.New(slog.DiscardHandler))
}

func testProject() *model.Project {
	return model.NewProjectWithNamespaces("exwiki", "ex.example.org", testNamespaces)
}

// TestLoadPages_RefreshAndReuse tests that the first load queries the
// warehouse and the second is served from the cache file alone.
func TestLoadPages_RefreshAndReuse(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	src := &fakePageSource{chunks: [][]warehouse.PageRow{
		{
			{Namespace: 0, Title: "Village_pump", Item: "Q16503"},
			{Namespace: 4, Title: "About", Item: ""},
		},
		{
			{Namespace: 1, Title: "Village_pump", Item: ""},
		},
	}}

	pages, err := store.LoadPages(context.Background(), testProject(), nil, src)
	if err != nil {
		t.Fatalf("LoadPages() = %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}

	// Underscores tidied, non-main namespaces prefixed with local names.
	want := []model.LocalPage{
		{Namespace: 0, Title: "Village pump", Item: "Q16503"},
		{Namespace: 4, Title: "LexiWiki:About", Item: ""},
		{Namespace: 1, Title: "Diskussion:Village pump", Item: ""},
	}
	for i, w := range want {
		if pages[i] != w {
			t.Errorf("page[%d] = %+v, want %+v", i, pages[i], w)
		}
	}

	if _, err := store.LoadPages(context.Background(), testProject(), nil, src); err != nil {
		t.Fatalf("second LoadPages() = %v", err)
	}
	if src.calls != 1 {
		t.Errorf("warehouse queried %d times, want 1 (cache must be reused)", src.calls)
	}
}

// TestLoadPages_ReloadForcesRequery tests the process-wide reload flag.
func TestLoadPages_ReloadForcesRequery(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	store.cfg.Reload = true
	src := &fakePageSource{chunks: [][]warehouse.PageRow{
		{{Namespace: 0, Title: "Foo", Item: "Q1"}},
	}}

	for i := 0; i < 2; i++ {
		if _, err := store.LoadPages(context.Background(), testProject(), nil, src); err != nil {
			t.Fatalf("LoadPages() = %v", err)
		}
	}
	if src.calls != 2 {
		t.Errorf("warehouse queried %d times, want 2 with reload", src.calls)
	}
}

// TestRefreshPages_PartialFileRemoved tests that a mid-stream failure
// leaves no half-written cache behind.
func TestRefreshPages_PartialFileRemoved(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	src := &fakePageSource{
		chunks: [][]warehouse.PageRow{
			{{Namespace: 0, Title: "Foo", Item: "Q1"}},
			{{Namespace: 0, Title: "Bar", Item: "Q2"}},
		},
		failFrom: 2,
	}

	err := store.RefreshPages(context.Background(), testProject(), nil, src)
	if err == nil {
		t.Fatal("expected mid-stream failure to surface")
	}
	if _, statErr := os.Stat(store.PagesPath("exwiki")); !os.IsNotExist(statErr) {
		t.Error("partial cache file must be removed after a failed refresh")
	}
}

// TestLoadSitelinks tests the sitelink snapshot round trip.
func TestLoadSitelinks(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	src := &fakeSitelinkSource{rows: []warehouse.SitelinkRow{
		{Item: "Q1", Title: "Village pump"},
		{Item: "Q2", Title: "Diskussion:Foo"},
	}}

	links, err := store.LoadSitelinks(context.Background(), testProject(), src)
	if err != nil {
		t.Fatalf("LoadSitelinks() = %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("got %d sitelinks, want 2", len(links))
	}
	if links[0] != (model.CentralSitelink{Item: "Q1", Title: "Village pump"}) {
		t.Errorf("unexpected first sitelink: %+v", links[0])
	}

	if _, err := store.LoadSitelinks(context.Background(), testProject(), src); err != nil {
		t.Fatalf("second LoadSitelinks() = %v", err)
	}
	if src.calls != 1 {
		t.Errorf("warehouse queried %d times, want 1", src.calls)
	}
}

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/parquet-go/parquet-go"

	"github.com/wdauditor/sitelinkaudit/internal/config"
	"github.com/wdauditor/sitelinkaudit/internal/model"
	"github.com/wdauditor/sitelinkaudit/internal/warehouse"
)

// pageQueryConstraints restricts the page snapshot on projects where the
// full page table is known to be dominated by rows the audit never links:
// items on the central wiki itself, files on the media commons.
var pageQueryConstraints = map[string]string{
	"wikidatawiki": " WHERE page_namespace!=0",
	"commonswiki":  " WHERE page_namespace!=6",
}

// PageSource streams raw page rows of one project replica.
type PageSource interface {
	PageRows(ctx context.Context, constraint string, chunkSize int, flush func([]warehouse.PageRow) error) error
}

// SitelinkSource streams raw sitelink rows from the central replica.
type SitelinkSource interface {
	SitelinkRows(ctx context.Context, siteID string, chunkSize int, flush func([]warehouse.SitelinkRow) error) error
}

// Staging mirrors snapshot chunks into the tool database. Optional.
type Staging interface {
	ClearPages(ctx context.Context) error
	ClearSitelinks(ctx context.Context) error
	StagePages(ctx context.Context, pages []model.LocalPage) error
	StageSitelinks(ctx context.Context, links []model.CentralSitelink) error
}

// Store loads and refreshes per-project snapshots.
type Store struct {
	cfg     *config.Config
	logger  *slog.Logger
	staging Staging
}

// NewStore creates a snapshot store. staging may be nil, in which case no
// tool-database mirroring happens.
func NewStore(cfg *config.Config, staging Staging, logger *slog.Logger) *Store {
	return &Store{cfg: cfg, staging: staging, logger: logger}
}

// PagesPath returns the page cache file of a project.
func (s *Store) PagesPath(dbname string) string {
	return filepath.Join(s.cfg.CacheDir, "pages", dbname+".parquet")
}

// SitelinksPath returns the sitelink cache file of a project.
func (s *Store) SitelinksPath(dbname string) string {
	return filepath.Join(s.cfg.CacheDir, "sitelinks", dbname+".parquet")
}

// LoadPages returns the page snapshot of a project, refreshing the cache
// first when the reload flag is set or no cache file exists. Beyond file
// existence no staleness check is performed.
func (s *Store) LoadPages(ctx context.Context, project *model.Project, resolver model.NamespaceResolver, src PageSource) ([]model.LocalPage, error) {
	path := s.PagesPath(project.DBName)
	if s.cfg.Reload || !fileExists(path) {
		if err := s.RefreshPages(ctx, project, resolver, src); err != nil {
			return nil, err
		}
	}

	rows, err := parquet.ReadFile[pageRow](path)
	if err != nil {
		return nil, fmt.Errorf("read page cache of %s: %w", project.DBName, err)
	}

	pages := make([]model.LocalPage, len(rows))
	for i, r := range rows {
		pages[i] = r.toModel()
	}
	return pages, nil
}

// LoadSitelinks returns the sitelink snapshot of a project, refreshing the
// cache under the same policy as LoadPages.
func (s *Store) LoadSitelinks(ctx context.Context, project *model.Project, src SitelinkSource) ([]model.CentralSitelink, error) {
	path := s.SitelinksPath(project.DBName)
	if s.cfg.Reload || !fileExists(path) {
		if err := s.RefreshSitelinks(ctx, project, src); err != nil {
			return nil, err
		}
	}

	rows, err := parquet.ReadFile[sitelinkRow](path)
	if err != nil {
		return nil, fmt.Errorf("read sitelink cache of %s: %w", project.DBName, err)
	}

	links := make([]model.CentralSitelink, len(rows))
	for i, r := range rows {
		links[i] = r.toModel()
	}
	return links, nil
}

// RefreshPages re-queries the project's page table and rewrites the cache
// file. Titles are tidied and prefixed with the local namespace name, so
// cached rows compare directly against sitelink titles.
func (s *Store) RefreshPages(ctx context.Context, project *model.Project, resolver model.NamespaceResolver, src PageSource) (err error) {
	namespaces, err := project.Namespaces(ctx, resolver)
	if err != nil {
		return fmt.Errorf("resolve namespaces of %s: %w", project.DBName, err)
	}

	path := s.PagesPath(project.DBName)
	file, err := createCacheFile(path)
	if err != nil {
		return err
	}

	if s.staging != nil {
		if err := s.staging.ClearPages(ctx); err != nil {
			return abortRefresh(file, path, err)
		}
	}

	pw := parquet.NewGenericWriter[pageRow](file)
	streamErr := src.PageRows(ctx, pageQueryConstraints[project.DBName], s.cfg.ChunkSize, func(chunk []warehouse.PageRow) error {
		rows := make([]pageRow, len(chunk))
		pages := make([]model.LocalPage, len(chunk))
		for i, raw := range chunk {
			title := model.TidyTitle(raw.Title)
			if raw.Namespace != 0 {
				if name := model.NamespaceName(raw.Namespace, namespaces); name != "" {
					title = name + ":" + title
				}
			}
			rows[i] = pageRow{
				Namespace: int32(raw.Namespace),
				Title:     title,
				Item:      raw.Item,
			}
			pages[i] = rows[i].toModel()
		}
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("write page chunk of %s: %w", project.DBName, err)
		}
		if s.staging != nil {
			if err := s.staging.StagePages(ctx, pages); err != nil {
				return err
			}
		}
		return nil
	})
	if streamErr != nil {
		_ = pw.Close()
		return abortRefresh(file, path, streamErr)
	}
	if err := pw.Close(); err != nil {
		return abortRefresh(file, path, fmt.Errorf("finalize page cache of %s: %w", project.DBName, err))
	}
	if err := file.Close(); err != nil {
		return removePartial(path, fmt.Errorf("close page cache of %s: %w", project.DBName, err))
	}

	s.logCacheWritten("pages", project.DBName, path)
	return nil
}

// RefreshSitelinks re-queries the central sitelink rows of the project and
// rewrites the cache file.
func (s *Store) RefreshSitelinks(ctx context.Context, project *model.Project, src SitelinkSource) error {
	path := s.SitelinksPath(project.DBName)
	file, err := createCacheFile(path)
	if err != nil {
		return err
	}

	if s.staging != nil {
		if err := s.staging.ClearSitelinks(ctx); err != nil {
			return abortRefresh(file, path, err)
		}
	}

	pw := parquet.NewGenericWriter[sitelinkRow](file)
	streamErr := src.SitelinkRows(ctx, project.DBName, s.cfg.ChunkSize, func(chunk []warehouse.SitelinkRow) error {
		rows := make([]sitelinkRow, len(chunk))
		links := make([]model.CentralSitelink, len(chunk))
		for i, raw := range chunk {
			rows[i] = sitelinkRow{Item: raw.Item, Title: raw.Title}
			links[i] = rows[i].toModel()
		}
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("write sitelink chunk of %s: %w", project.DBName, err)
		}
		if s.staging != nil {
			if err := s.staging.StageSitelinks(ctx, links); err != nil {
				return err
			}
		}
		return nil
	})
	if streamErr != nil {
		_ = pw.Close()
		return abortRefresh(file, path, streamErr)
	}
	if err := pw.Close(); err != nil {
		return abortRefresh(file, path, fmt.Errorf("finalize sitelink cache of %s: %w", project.DBName, err))
	}
	if err := file.Close(); err != nil {
		return removePartial(path, fmt.Errorf("close sitelink cache of %s: %w", project.DBName, err))
	}

	s.logCacheWritten("sitelinks", project.DBName, path)
	return nil
}

func (s *Store) logCacheWritten(kind, dbname, path string) {
	size := "unknown"
	if info, err := os.Stat(path); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	s.logger.Info("snapshot cache written", "kind", kind, "dbname", dbname, "size", size)
}

// createCacheFile creates the cache file, making parent directories as
// needed.
func createCacheFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create cache file %s: %w", path, err)
	}
	return file, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// abortRefresh discards a half-written cache file. A partial file must
// never survive: the next load would mistake it for a complete snapshot.
func abortRefresh(file *os.File, path string, err error) error {
	_ = file.Close()
	return removePartial(path, err)
}

func removePartial(path string, err error) error {
	if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		return fmt.Errorf("remove partial cache %s after %v: %w", path, err, rmErr)
	}
	return err
}

package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. They mirror the operational settings the
// audit bot has been running with in production.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitelinkaudit"

	// DefaultChunkSize bounds how many snapshot rows are buffered in
	// memory before being flushed to the columnar cache. One million rows
	// keeps the resident set of the largest projects around a few hundred
	// megabytes.
	DefaultChunkSize = 1_000_000

	// DefaultMaxEditsPerProject caps how many missing-page sitelinks are
	// diagnosed and remediated per project per run. The full defect count
	// is still reported; the cap only bounds remote edit volume.
	DefaultMaxEditsPerProject = 1000

	// DefaultTouchDelay is the politeness delay between null edits during
	// a touch pass.
	DefaultTouchDelay = 2 * time.Second

	// DefaultProjectConcurrency processes projects strictly one at a
	// time. Snapshot refreshes within a project still run in parallel.
	DefaultProjectConcurrency = 1

	// DefaultRepoHost is the host of the central knowledge base API.
	DefaultRepoHost = "www.wikidata.org"

	// DefaultCentralDB is the dbname of the central replica that stores
	// sitelinks, user accounts, and block logs.
	DefaultCentralDB = "wikidatawiki"

	// DefaultMetaDB is the dbname of the replica carrying the project
	// directory table.
	DefaultMetaDB = "meta"

	// DefaultReplicaAddr is the address pattern of per-project replicas;
	// %s is replaced with the project dbname.
	DefaultReplicaAddr = "%s.analytics.db.svc.wikimedia.cloud:3306"

	// DefaultToolDBAddr is the address of the tool database used for
	// snapshot staging.
	DefaultToolDBAddr = "tools.db.svc.wikimedia.cloud:3306"

	// DefaultUserAgent identifies the tool in API requests.
	DefaultUserAgent = "sitelinkaudit/1.0 (+https://github.com/wdauditor/sitelinkaudit)"
)

// Config holds all options of the audit pipeline. It is populated once at
// startup and passed by value into component constructors; components must
// not mutate it.
type Config struct {
	// ReplicaAddr is the per-project replica address pattern. %s is
	// substituted with the project dbname.
	ReplicaAddr string

	// ReplicaDatabaseSuffix is appended to the dbname to form the
	// replica's database name (conventionally "_p").
	ReplicaDatabaseSuffix string

	// CentralDB is the dbname of the central replica.
	CentralDB string

	// MetaDB is the dbname of the replica with the project directory.
	MetaDB string

	// ToolDBAddr and ToolDBName locate the tool database for snapshot
	// staging. Staging is skipped when ToolDBName is empty.
	ToolDBAddr string
	ToolDBName string

	// DBUser and DBPassword are the replica/tool-database credentials.
	DBUser     string
	DBPassword string

	// RepoHost is the host of the central knowledge base API.
	RepoHost string

	// APIUser and APIPassword are the bot-password credentials used for
	// remote edits. Empty credentials put the pipeline into a read-only
	// mode where every edit fails with a resolution error.
	APIUser     string
	APIPassword string

	// UserAgent identifies the tool in HTTP requests.
	UserAgent string

	// CacheDir is the directory holding columnar snapshot caches.
	CacheDir string

	// AuditDBDir is the directory holding the audit SQLite database.
	AuditDBDir string

	// StatsFile is the TSV file that per-project defect counts are
	// appended to.
	StatsFile string

	// Reload forces snapshot re-querying even when cache files exist.
	// When false, an existing cache file is reused unconditionally: file
	// existence is the only staleness check performed.
	Reload bool

	// ChunkSize bounds rows per snapshot flush.
	ChunkSize int

	// MaxEditsPerProject caps missing-page remediations per project.
	MaxEditsPerProject int

	// TouchDelay is the politeness delay between null edits.
	TouchDelay time.Duration

	// AuditStats controls whether the audit job appends the per-project
	// statistics line. On by default.
	AuditStats bool

	// AuditTouch controls whether the audit job runs the touch pass over
	// stale pages after remediation. Off by default: touching thousands
	// of pages under the politeness delay dominates a run, so it is an
	// explicit opt-in (or the dedicated touch job).
	AuditTouch bool

	// ProjectConcurrency bounds how many projects run concurrently.
	ProjectConcurrency int

	// EditSummaryTag is appended to every edit summary (including its
	// leading space), e.g. " #sitelinkaudit". May be empty.
	EditSummaryTag string

	// DryRun reports intended edits without performing them.
	DryRun bool

	// Verbose enables debug-level logging.
	Verbose bool

	// LogJSON switches log output from key=value text to JSON lines for
	// ingestion by the job scheduler.
	LogJSON bool

	// LargeWikis maps dbnames of projects whose logging tables are too
	// large for direct scans to the host whose public API is used to
	// resolve candidate log-event ids first.
	LargeWikis map[string]string

	// IgnoreItems lists item ids that are never diagnosed, e.g. items
	// representing special pages.
	IgnoreItems []string

	// SkipProjects lists dbnames excluded from every job until a known
	// issue is resolved.
	SkipProjects []string

	// Allow, Deny, RangeMin, and RangeMax filter the project list. An
	// empty Allow list admits all projects not otherwise excluded; the
	// range bounds compare dbnames lexicographically.
	Allow    []string
	Deny     []string
	RangeMin string
	RangeMax string
}

// NewConfig returns a Config with production defaults. Credentials and
// filters are left empty and come from the config file or CLI flags.
func NewConfig() *Config {
	return &Config{
		ReplicaAddr:           DefaultReplicaAddr,
		ReplicaDatabaseSuffix: "_p",
		CentralDB:             DefaultCentralDB,
		MetaDB:                DefaultMetaDB,
		ToolDBAddr:            DefaultToolDBAddr,
		RepoHost:              DefaultRepoHost,
		UserAgent:             DefaultUserAgent,
		CacheDir:              XDGCacheDir(),
		AuditDBDir:            XDGDataDir(),
		StatsFile:             filepath.Join(XDGDataDir(), "stat.tsv"),
		ChunkSize:             DefaultChunkSize,
		MaxEditsPerProject:    DefaultMaxEditsPerProject,
		TouchDelay:            DefaultTouchDelay,
		AuditStats:            true,
		ProjectConcurrency:    DefaultProjectConcurrency,
	}
}

// XDGDataDir returns the XDG data directory for sitelinkaudit.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for sitelinkaudit.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.MaxEditsPerProject <= 0 {
		return ErrInvalidEditCap
	}
	if c.ProjectConcurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.TouchDelay < 0 {
		return ErrInvalidTouchDelay
	}
	if c.RangeMin != "" && c.RangeMax != "" && c.RangeMin > c.RangeMax {
		return ErrInvalidRange
	}
	if c.CacheDir == "" {
		return ErrNoCacheDir
	}
	return nil
}

// Allowed reports whether a project dbname passes the allow/deny-list and
// lexicographic range filters.
func (c *Config) Allowed(dbname string) bool {
	if len(c.Allow) > 0 && !contains(c.Allow, dbname) {
		return false
	}
	if contains(c.Deny, dbname) {
		return false
	}
	if contains(c.SkipProjects, dbname) {
		return false
	}
	if c.RangeMin != "" && dbname < c.RangeMin {
		return false
	}
	if c.RangeMax != "" && dbname > c.RangeMax {
		return false
	}
	return true
}

// IgnoredItem reports whether an item id is on the ignore list.
func (c *Config) IgnoredItem(item string) bool {
	return contains(c.IgnoreItems, item)
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

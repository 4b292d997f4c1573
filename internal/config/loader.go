package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML representation of the configuration. Every field
// is optional; zero values leave the corresponding Config field untouched so
// defaults and CLI flags survive a sparse file.
type File struct {
	ReplicaAddr        string            `yaml:"replica_addr"`
	CentralDB          string            `yaml:"central_db"`
	MetaDB             string            `yaml:"meta_db"`
	ToolDBAddr         string            `yaml:"tool_db_addr"`
	ToolDBName         string            `yaml:"tool_db_name"`
	DBUser             string            `yaml:"db_user"`
	DBPassword         string            `yaml:"db_password"`
	RepoHost           string            `yaml:"repo_host"`
	APIUser            string            `yaml:"api_user"`
	APIPassword        string            `yaml:"api_password"`
	UserAgent          string            `yaml:"user_agent"`
	CacheDir           string            `yaml:"cache_dir"`
	AuditDBDir         string            `yaml:"audit_db_dir"`
	StatsFile          string            `yaml:"stats_file"`
	ChunkSize          int               `yaml:"chunk_size"`
	MaxEditsPerProject int               `yaml:"max_edits_per_project"`
	ProjectConcurrency int               `yaml:"project_concurrency"`
	TouchDelay         string            `yaml:"touch_delay"`
	EditSummaryTag     string            `yaml:"edit_summary_tag"`
	LargeWikis         map[string]string `yaml:"large_wikis"`
	IgnoreItems        []string          `yaml:"ignore_items"`
	SkipProjects       []string          `yaml:"skip_projects"`
}

// LoadFile reads a YAML configuration file and applies it on top of c. A
// missing file is not an error; a malformed one is.
func LoadFile(c *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return f.apply(c)
}

func (f *File) apply(c *Config) error {
	setString(&c.ReplicaAddr, f.ReplicaAddr)
	setString(&c.CentralDB, f.CentralDB)
	setString(&c.MetaDB, f.MetaDB)
	setString(&c.ToolDBAddr, f.ToolDBAddr)
	setString(&c.ToolDBName, f.ToolDBName)
	setString(&c.DBUser, f.DBUser)
	setString(&c.DBPassword, f.DBPassword)
	setString(&c.RepoHost, f.RepoHost)
	setString(&c.APIUser, f.APIUser)
	setString(&c.APIPassword, f.APIPassword)
	setString(&c.UserAgent, f.UserAgent)
	setString(&c.CacheDir, f.CacheDir)
	setString(&c.AuditDBDir, f.AuditDBDir)
	setString(&c.StatsFile, f.StatsFile)
	setString(&c.EditSummaryTag, f.EditSummaryTag)

	if f.ChunkSize != 0 {
		c.ChunkSize = f.ChunkSize
	}
	if f.MaxEditsPerProject != 0 {
		c.MaxEditsPerProject = f.MaxEditsPerProject
	}
	if f.ProjectConcurrency != 0 {
		c.ProjectConcurrency = f.ProjectConcurrency
	}
	if f.TouchDelay != "" {
		d, err := time.ParseDuration(f.TouchDelay)
		if err != nil {
			return fmt.Errorf("parse touch_delay: %w", err)
		}
		c.TouchDelay = d
	}
	if len(f.LargeWikis) > 0 {
		c.LargeWikis = f.LargeWikis
	}
	if len(f.IgnoreItems) > 0 {
		c.IgnoreItems = f.IgnoreItems
	}
	if len(f.SkipProjects) > 0 {
		c.SkipProjects = f.SkipProjects
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

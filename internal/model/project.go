package model

import (
	"context"
	"fmt"
)

// NamespaceResolver fetches the namespace table of a project, usually from
// the project's public API. It is injected into Project.Namespaces so that
// the model package carries no network code.
type NamespaceResolver interface {
	// Namespaces returns the ordered namespace table for the given host.
	Namespaces(ctx context.Context, host string) ([]Namespace, error)
}

// Project identifies one wiki in the federated network. The namespace table
// is loaded lazily: construction never triggers a network call, and the
// first successful call to Namespaces resolves the table exactly once.
type Project struct {
	// DBName is the short database-style identifier, e.g. "exwiki".
	DBName string

	// Hostname is the public host serving the project's API.
	Hostname string

	// namespaces and resolved form an explicit two-state value:
	// unresolved (resolved == false) or resolved with the cached table.
	namespaces []Namespace
	resolved   bool
}

// NewProject returns a Project with an unresolved namespace table.
func NewProject(dbname, hostname string) *Project {
	return &Project{DBName: dbname, Hostname: hostname}
}

// NewProjectWithNamespaces returns a Project whose namespace table is
// already resolved. Used by tests and by callers that obtained the table
// elsewhere.
func NewProjectWithNamespaces(dbname, hostname string, namespaces []Namespace) *Project {
	return &Project{
		DBName:     dbname,
		Hostname:   hostname,
		namespaces: namespaces,
		resolved:   true,
	}
}

// Namespaces returns the project's namespace table, resolving it through r
// on first use. Resolution is idempotent: once a call succeeds, subsequent
// calls return the cached table without touching r. A failed resolution
// leaves the project unresolved so a later call may retry.
//
// Project is not safe for concurrent use; the pipeline processes each
// project within a single task.
func (p *Project) Namespaces(ctx context.Context, r NamespaceResolver) ([]Namespace, error) {
	if p.resolved {
		return p.namespaces, nil
	}

	namespaces, err := r.Namespaces(ctx, p.Hostname)
	if err != nil {
		return nil, fmt.Errorf("resolve namespaces for %s: %w", p.DBName, err)
	}

	p.namespaces = namespaces
	p.resolved = true
	return p.namespaces, nil
}

package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MainNamespaceID is the numeric id of the main (article) namespace.
const MainNamespaceID = 0

// Namespace describes one namespace of a project: its numeric id, the
// project-local name, the project-independent canonical name, and any
// additional aliases the project accepts.
type Namespace struct {
	// ID is the numeric namespace id.
	ID int

	// Local is the namespace name in the project's language.
	Local string

	// Canonical is the project-independent English name.
	Canonical string

	// Aliases are additional accepted prefixes.
	Aliases []string
}

// matches reports whether prefix names this namespace under any accepted
// spelling.
func (n Namespace) matches(prefix string) bool {
	if prefix == n.Local || prefix == n.Canonical {
		return true
	}
	for _, alias := range n.Aliases {
		if prefix == alias {
			return true
		}
	}
	return false
}

// TidyTitle converts a raw title into the canonical spaced, NFC-composed
// form the central platform stores. Replicas deliver underscored titles
// and occasionally decomposed unicode.
func TidyTitle(title string) string {
	return norm.NFC.String(strings.ReplaceAll(title, "_", " "))
}

// ResolveTitle splits a full page title into its numeric namespace and the
// bare title. Only the first colon is considered; a prefix matching no
// namespace leaves the whole title in the main namespace.
func ResolveTitle(title string, namespaces []Namespace) (int, string) {
	prefix, rest, found := strings.Cut(title, ":")
	if !found {
		return MainNamespaceID, title
	}

	for _, ns := range namespaces {
		if ns.ID == MainNamespaceID {
			continue
		}
		if ns.matches(prefix) {
			return ns.ID, rest
		}
	}
	return MainNamespaceID, title
}

// CanonicalTitle rewrites the title to use the project-local namespace
// name. Titles in the main namespace and titles with unknown prefixes are
// returned unchanged.
func CanonicalTitle(title string, namespaces []Namespace) string {
	ns, bare := ResolveTitle(title, namespaces)
	if ns == MainNamespaceID {
		return title
	}

	for _, namespace := range namespaces {
		if namespace.ID == ns {
			return namespace.Local + ":" + bare
		}
	}
	return title
}

// AlternativeTitles enumerates the non-local spellings of a title: the
// canonical namespace name and every alias, each prefixed to the bare
// title. Main-namespace titles have no alternatives.
func AlternativeTitles(title string, namespaces []Namespace) []string {
	ns, bare := ResolveTitle(title, namespaces)
	if ns == MainNamespaceID {
		return nil
	}

	var titles []string
	for _, namespace := range namespaces {
		if namespace.ID != ns {
			continue
		}
		titles = append(titles, namespace.Canonical+":"+bare)
		for _, alias := range namespace.Aliases {
			titles = append(titles, alias+":"+bare)
		}
	}
	return titles
}

// NamespaceName returns the project-local name of a namespace, or the
// empty string when the id is unknown. The empty string doubles as the
// main namespace's name.
func NamespaceName(id int, namespaces []Namespace) string {
	for _, ns := range namespaces {
		if ns.ID == id {
			return ns.Local
		}
	}
	return ""
}

package wiki

import (
	"errors"
	"fmt"
)

// Sentinel errors of the wiki client.
var (
	// ErrNoCredentials is returned when an edit is attempted without
	// configured bot credentials.
	ErrNoCredentials = errors.New("no api credentials configured")

	// ErrNoSuchSitelink is returned when a sitelink removal targets a
	// sitelink the item no longer carries. Callers treat this as an
	// idempotent no-op.
	ErrNoSuchSitelink = errors.New("item has no such sitelink")

	// ErrUnknownSite is returned when a dbname cannot be resolved to a
	// site known to the central knowledge base.
	ErrUnknownSite = errors.New("unknown site")

	// ErrBadTitle is returned when the remote API rejects a title as
	// malformed or un-queryable, e.g. certain Special: pages.
	ErrBadTitle = errors.New("title cannot be queried")
)

// APIError is a structured error response from the action API.
type APIError struct {
	// Code is the machine-readable error code.
	Code string

	// Info is the human-readable error description.
	Info string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Info)
}

// editPolicyCodes are API error codes caused by the wiki's edit policy
// rather than by this tool: protection, blocks, blacklists, conflicts.
// Such failures are logged and skipped, never retried within a run.
var editPolicyCodes = map[string]bool{
	"protectedpage":            true,
	"protectedtitle":           true,
	"cascadeprotected":         true,
	"titleblacklist-forbidden": true,
	"editconflict":             true,
	"blocked":                  true,
	"autoblocked":              true,
	"readonly":                 true,
}

// IsEditPolicy reports whether the error is an edit-policy rejection.
func IsEditPolicy(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return editPolicyCodes[apiErr.Code]
}

// IsNoSuchSitelink reports whether the error means the sitelink was
// already absent.
func IsNoSuchSitelink(err error) bool {
	if errors.Is(err, ErrNoSuchSitelink) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "no-such-sitelink"
}

// isBadToken reports whether the error is a stale-session token rejection.
// The client reacts by dropping the cached session and retrying the edit
// once.
func isBadToken(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "badtoken"
}

// IsBadTitle reports whether the error means the title cannot be queried
// at all. Existence checks degrade to "does not exist" on such titles
// after logging the anomaly.
func IsBadTitle(err error) bool {
	if errors.Is(err, ErrBadTitle) {
		return true
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == "invalidtitle" || apiErr.Code == "badtitle"
}

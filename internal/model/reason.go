package model

// Reason is the closed taxonomy of likely root causes for a broken
// sitelink. The classifier assigns exactly one reason per diagnosed
// sitelink; modeling the codes as an enumeration instead of free-form
// strings keeps the classifier exhaustively testable.
type Reason int

const (
	// ReasonNone means no qualifying log event was found; the case is
	// reported but not remediated.
	ReasonNone Reason = iota

	// ReasonMoveNoRedirect (1A) marks a page moved away without leaving
	// a redirect, where the move target is not a redirect either.
	ReasonMoveNoRedirect

	// ReasonMoveRedirectTarget (1B) marks a page moved away without a
	// redirect whose move target is itself a redirect.
	ReasonMoveRedirectTarget

	// ReasonDeleteNoAccount (2A-a) marks a deletion by an actor with no
	// central account at all.
	ReasonDeleteNoAccount

	// ReasonDeleteLateAccount (2A-b) marks a deletion by an actor whose
	// central account was only registered after the deletion.
	ReasonDeleteLateAccount

	// ReasonDeleteBlockedUser (2B) marks a deletion by an actor with at
	// least one block on record.
	ReasonDeleteBlockedUser

	// ReasonDeleteEstablishedUser is the joined 2C/3A/4A/4B bucket: a
	// deletion by an established, never-blocked editor. The available
	// signals cannot separate the sub-cases, so they are reported as one
	// code.
	ReasonDeleteEstablishedUser

	// ReasonAltTitle (5A) marks a sitelink recorded with a namespace
	// alias instead of the canonical prefix; remediation canonicalizes.
	ReasonAltTitle

	// ReasonAltTitleMissing (5A-1) refines 5A: the canonical target does
	// not exist, so the sitelink is removed instead.
	ReasonAltTitleMissing

	// ReasonAltTitleRedirect (5A-2) refines 5A: the canonical target is
	// a redirect, so the sitelink is removed instead.
	ReasonAltTitleRedirect

	// ReasonAltTitleConnected (5A-3) refines 5A: the canonical target is
	// already linked to another item, so the sitelink is removed instead.
	ReasonAltTitleConnected

	// ReasonTitleMismatch (5B) marks a page that exists on the project
	// under a lexically different live title; remediation re-points the
	// sitelink at the live title.
	ReasonTitleMismatch
)

// Code returns the reason code used in audit records and edit summaries.
func (r Reason) Code() string {
	switch r {
	case ReasonMoveNoRedirect:
		return "1A"
	case ReasonMoveRedirectTarget:
		return "1B"
	case ReasonDeleteNoAccount:
		return "2A-a"
	case ReasonDeleteLateAccount:
		return "2A-b"
	case ReasonDeleteBlockedUser:
		return "2B"
	case ReasonDeleteEstablishedUser:
		return "2C, 3A, 4A, 4B"
	case ReasonAltTitle:
		return "5A"
	case ReasonAltTitleMissing:
		return "5A-1"
	case ReasonAltTitleRedirect:
		return "5A-2"
	case ReasonAltTitleConnected:
		return "5A-3"
	case ReasonTitleMismatch:
		return "5B"
	default:
		return "none"
	}
}

// String returns the reason code.
func (r Reason) String() string {
	return r.Code()
}

package model

import "testing"

// TestReasonCodes tests the full code mapping of the reason taxonomy.
func TestReasonCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reason Reason
		want   string
	}{
		{ReasonNone, "none"},
		{ReasonMoveNoRedirect, "1A"},
		{ReasonMoveRedirectTarget, "1B"},
		{ReasonDeleteNoAccount, "2A-a"},
		{ReasonDeleteLateAccount, "2A-b"},
		{ReasonDeleteBlockedUser, "2B"},
		{ReasonDeleteEstablishedUser, "2C, 3A, 4A, 4B"},
		{ReasonAltTitle, "5A"},
		{ReasonAltTitleMissing, "5A-1"},
		{ReasonAltTitleRedirect, "5A-2"},
		{ReasonAltTitleConnected, "5A-3"},
		{ReasonTitleMismatch, "5B"},
	}

	for _, tt := range tests {
		if got := tt.reason.Code(); got != tt.want {
			t.Errorf("Code(%d) = %q, want %q", int(tt.reason), got, tt.want)
		}
	}
}

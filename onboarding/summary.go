package onboarding

import "time"

// RunMeta identifies one onboarding run.
type RunMeta struct {
	RunID               string
	DelegatedAdminID    string
	ManagementAccountID string
	Region              string
	StartedAt           time.Time
	FinishedAt          time.Time
}

// Summary is the flat record the reporter renders. All figures are copied from the
// reconciliation result and the submission outcome, nothing is re-derived.
type Summary struct {
	RunMeta

	DirectoryCount int
	RegistryCount  int
	Requested      int
	Attempted      int
	Succeeded      int
	Failed         []Failure

	InviteRan    bool
	Invited      int
	InviteFailed []Failure
}

// NewSummary builds the summary of a completed run.
func NewSummary(meta RunMeta, result ReconciliationResult, outcome SubmissionOutcome) Summary {
	return Summary{
		RunMeta:        meta,
		DirectoryCount: result.DirectoryCount,
		RegistryCount:  result.RegistryCount,
		Requested:      len(result.OnboardSet),
		Attempted:      outcome.Attempted,
		Succeeded:      outcome.Succeeded,
		Failed:         append([]Failure(nil), outcome.Failed...),
	}
}

// WithInvitations returns a copy of the summary that includes the outcome of the invite pass.
func (s Summary) WithInvitations(outcome SubmissionOutcome) Summary {
	s.InviteRan = true
	s.Invited = outcome.Succeeded
	s.InviteFailed = append([]Failure(nil), outcome.Failed...)

	return s
}

// HasFailures reports whether any account failed to be created or invited.
func (s Summary) HasFailures() bool {
	return len(s.Failed) > 0 || len(s.InviteFailed) > 0
}

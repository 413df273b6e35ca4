package onboarding_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cloudsecops/orgonboard/onboarding"
)

func Test_ProbeResult_AsError(t *testing.T) {
	cause := errors.New("RequestTimeout")

	testCases := []struct {
		name      string
		result    onboarding.ProbeResult
		wantNil   bool
		wantCause error
		wantText  string
	}{
		{name: "enabled", result: onboarding.ProbeResult{State: onboarding.ProbeEnabled}, wantNil: true},
		{name: "disabled", result: onboarding.ProbeResult{State: onboarding.ProbeDisabled}, wantText: "probe disabled"},
		{
			name:      "indeterminate",
			result:    onboarding.ProbeResult{State: onboarding.ProbeIndeterminate, Err: cause},
			wantCause: cause,
			wantText:  "probe indeterminate",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.result.AsError()

			if tc.wantNil {
				assert.NoError(t, err)
				assert.True(t, tc.result.Usable())
				return
			}

			assert.False(t, tc.result.Usable())
			assert.ErrorIs(t, err, onboarding.ErrAggregationServiceDisabled)
			assert.ErrorContains(t, err, tc.wantText)
			if tc.wantCause != nil {
				assert.ErrorIs(t, err, tc.wantCause)
			}
		})
	}
}

func Test_Summary_CopiesFigures(t *testing.T) {
	// arrange
	meta := onboarding.RunMeta{RunID: "r1", DelegatedAdminID: "999999999999", StartedAt: time.Unix(0, 0)}
	result := onboarding.ReconciliationResult{
		DirectoryCount: 120,
		RegistryCount:  1,
		OnboardSet:     make([]onboarding.Account, 119),
	}
	outcome := onboarding.SubmissionOutcome{
		Attempted: 119,
		Succeeded: 118,
		Failed:    []onboarding.Failure{{AccountID: "1", Reason: "x"}},
	}

	// act
	summary := onboarding.NewSummary(meta, result, outcome)
	outcome.Failed[0].Reason = "mutated"

	// assert
	assert.Equal(t, "r1", summary.RunID)
	assert.Equal(t, 120, summary.DirectoryCount)
	assert.Equal(t, 1, summary.RegistryCount)
	assert.Equal(t, 119, summary.Requested)
	assert.Equal(t, 119, summary.Attempted)
	assert.Equal(t, 118, summary.Succeeded)
	assert.Equal(t, "x", summary.Failed[0].Reason)
	assert.True(t, summary.HasFailures())
	assert.False(t, summary.InviteRan)
}

func Test_Summary_WithInvitations(t *testing.T) {
	summary := onboarding.Summary{Succeeded: 2}

	invited := summary.WithInvitations(onboarding.SubmissionOutcome{Attempted: 2, Succeeded: 1, Failed: []onboarding.Failure{{AccountID: "2"}}})

	assert.False(t, summary.InviteRan, "the receiver is not modified")
	assert.True(t, invited.InviteRan)
	assert.Equal(t, 1, invited.Invited)
	assert.True(t, invited.HasFailures())
}

func Test_ParseAccountStatus(t *testing.T) {
	assert.Equal(t, onboarding.StatusActive, onboarding.ParseAccountStatus("ACTIVE"))
	assert.Equal(t, onboarding.StatusSuspended, onboarding.ParseAccountStatus("SUSPENDED"))
	assert.Equal(t, onboarding.StatusOther, onboarding.ParseAccountStatus("PENDING_CLOSURE"))
}

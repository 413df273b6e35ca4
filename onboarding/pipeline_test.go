package onboarding_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsecops/orgonboard/onboarding"
	"github.com/cloudsecops/orgonboard/testutil/fakes"
	"github.com/cloudsecops/orgonboard/testutil/spies"
)

const delegatedAdmin = "999999999999"

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestPipeline(
	t *testing.T,
	directory onboarding.DirectoryReader,
	registry *fakes.Registry,
	options ...onboarding.PipelineOption,
) *onboarding.Pipeline {

	t.Helper()

	submitter, err := onboarding.NewSubmitter(registry, onboarding.WithPacing(0))
	require.NoError(t, err)

	options = append([]onboarding.PipelineOption{onboarding.WithClock(func() time.Time { return fixedNow })}, options...)

	pipeline, err := onboarding.NewPipeline(registry, directory, registry, submitter, options...)
	require.NoError(t, err)

	return pipeline
}

func meta() onboarding.RunMeta {
	return onboarding.RunMeta{DelegatedAdminID: delegatedAdmin, Region: "us-east-1"}
}

func Test_Pipeline_OnboardsMissingAccounts(t *testing.T) {
	// arrange
	accounts := append(fakes.ActiveAccounts(5),
		fakes.ActiveAccount(delegatedAdmin),
		fakes.SuspendedAccount("555555555555"),
	)
	registry := fakes.NewRegistry(accounts[0].ID, accounts[1].ID)
	pipeline := newTestPipeline(t, fakes.Directory{Accounts: accounts}, registry)

	// act
	summary, err := pipeline.Run(context.Background(), meta())

	// assert
	require.NoError(t, err)
	assert.Equal(t, 6, summary.DirectoryCount, "suspended accounts are not listed by the directory")
	assert.Equal(t, 2, summary.RegistryCount)
	assert.Equal(t, 3, summary.Requested)
	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Empty(t, summary.Failed)
	assert.False(t, registry.Knows(delegatedAdmin), "the delegated administrator never onboards itself")
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, fixedNow, summary.StartedAt)
	assert.Equal(t, fixedNow, summary.FinishedAt)
	assert.Equal(t, "us-east-1", summary.Region)
}

func Test_Pipeline_SecondRunIsANoOp(t *testing.T) {
	// arrange
	directory := fakes.Directory{Accounts: fakes.ActiveAccounts(119)}
	registry := fakes.NewRegistry()
	pipeline := newTestPipeline(t, directory, registry)

	// act
	first, err := pipeline.Run(context.Background(), meta())
	require.NoError(t, err)
	second, err := pipeline.Run(context.Background(), meta())
	require.NoError(t, err)

	// assert
	assert.Equal(t, 119, first.Succeeded)
	assert.Equal(t, 3, registry.CreateCalls(), "only the first run issues bulk calls")
	assert.Equal(t, 0, second.Requested)
	assert.Equal(t, 0, second.Attempted)
	assert.Equal(t, 119, second.RegistryCount)
}

func Test_Pipeline_RetriesOnlyFailedAccountsOnNextRun(t *testing.T) {
	// arrange
	accounts := fakes.ActiveAccounts(4)
	registry := fakes.NewRegistry().RejectAccount(accounts[2].ID, "AccountAlreadyPending")
	pipeline := newTestPipeline(t, fakes.Directory{Accounts: accounts}, registry)

	// act
	first, err := pipeline.Run(context.Background(), meta())
	require.NoError(t, err)
	second, err := pipeline.Run(context.Background(), meta())
	require.NoError(t, err)

	// assert
	assert.Equal(t, []onboarding.Failure{{AccountID: accounts[2].ID, Reason: "AccountAlreadyPending"}}, first.Failed)
	assert.Equal(t, 1, second.Requested)
	assert.True(t, second.HasFailures())
}

func Test_Pipeline_AbortsOnFatalPreconditions(t *testing.T) {
	directoryErr := errors.New("AccessDeniedException")
	registryErr := errors.New("connection refused")

	testCases := []struct {
		name      string
		directory fakes.Directory
		registry  *fakes.Registry
		want      error
		wantCause error
	}{
		{
			name:      "directory unavailable",
			directory: fakes.Directory{Err: directoryErr},
			registry:  fakes.NewRegistry(),
			want:      onboarding.ErrDirectoryUnavailable,
			wantCause: directoryErr,
		},
		{
			name:      "registry unavailable",
			directory: fakes.Directory{Accounts: fakes.ActiveAccounts(3)},
			registry:  fakes.NewRegistry().FailListing(registryErr),
			want:      onboarding.ErrRegistryUnavailable,
			wantCause: registryErr,
		},
		{
			name:      "service disabled",
			directory: fakes.Directory{Accounts: fakes.ActiveAccounts(3)},
			registry:  fakes.NewRegistry().WithProbe(onboarding.ProbeResult{State: onboarding.ProbeDisabled}),
			want:      onboarding.ErrAggregationServiceDisabled,
		},
		{
			name:      "probe indeterminate",
			directory: fakes.Directory{Accounts: fakes.ActiveAccounts(3)},
			registry:  fakes.NewRegistry().WithProbe(onboarding.ProbeResult{State: onboarding.ProbeIndeterminate, Err: registryErr}),
			want:      onboarding.ErrAggregationServiceDisabled,
			wantCause: registryErr,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			pipeline := newTestPipeline(t, tc.directory, tc.registry)

			// act
			summary, err := pipeline.Run(context.Background(), meta())

			// assert
			assert.ErrorIs(t, err, tc.want)
			if tc.wantCause != nil {
				assert.ErrorIs(t, err, tc.wantCause)
			}
			assert.Equal(t, onboarding.Summary{}, summary)
			assert.Zero(t, tc.registry.CreateCalls(), "nothing is submitted after a fatal error")
		})
	}
}

func Test_Pipeline_DoesNotDoubleWrapSentinels(t *testing.T) {
	wrapped := errors.Join(onboarding.ErrDirectoryUnavailable, errors.New("paging failed"))
	pipeline := newTestPipeline(t, fakes.Directory{Err: wrapped}, fakes.NewRegistry())

	_, err := pipeline.Run(context.Background(), meta())

	assert.Same(t, wrapped, err)
}

func Test_Pipeline_RequiresDelegatedAdmin(t *testing.T) {
	pipeline := newTestPipeline(t, fakes.Directory{}, fakes.NewRegistry())

	_, err := pipeline.Run(context.Background(), onboarding.RunMeta{})

	assert.ErrorIs(t, err, onboarding.ErrEmptyDelegatedAdmin)
}

func Test_Pipeline_KeepsGivenRunID(t *testing.T) {
	pipeline := newTestPipeline(t, fakes.Directory{}, fakes.NewRegistry())
	m := meta()
	m.RunID = "fixed-run"

	summary, err := pipeline.Run(context.Background(), m)

	require.NoError(t, err)
	assert.Equal(t, "fixed-run", summary.RunID)
}

func Test_Pipeline_InvitesOnlyCreatedAccounts(t *testing.T) {
	// arrange
	accounts := fakes.ActiveAccounts(5)
	registry := fakes.NewRegistry().RejectAccount(accounts[1].ID, "InvalidInput")
	invites := fakes.NewMemberCreator(fakes.Response{Rejected: []onboarding.Failure{{AccountID: accounts[4].ID, Reason: "EmailBounced"}}})
	inviter, err := onboarding.NewInviter(invites, onboarding.WithPacing(0))
	require.NoError(t, err)

	pipeline := newTestPipeline(t, fakes.Directory{Accounts: accounts}, registry, onboarding.WithInviter(inviter))

	// act
	summary, err := pipeline.Run(context.Background(), meta())

	// assert
	require.NoError(t, err)
	require.Len(t, invites.Invites(), 1)
	assert.Equal(t, []string{accounts[0].ID, accounts[2].ID, accounts[3].ID, accounts[4].ID}, invites.Invites()[0])
	assert.True(t, summary.InviteRan)
	assert.Equal(t, 3, summary.Invited)
	assert.Equal(t, []onboarding.Failure{{AccountID: accounts[4].ID, Reason: "EmailBounced"}}, summary.InviteFailed)
	assert.Equal(t, 4, summary.Succeeded, "the invite pass never changes the submission figures")
}

func Test_Pipeline_WithoutInviter_NoInvitePass(t *testing.T) {
	pipeline := newTestPipeline(t, fakes.Directory{Accounts: fakes.ActiveAccounts(2)}, fakes.NewRegistry())

	summary, err := pipeline.Run(context.Background(), meta())

	require.NoError(t, err)
	assert.False(t, summary.InviteRan)
}

func Test_Pipeline_WithBatchSize(t *testing.T) {
	creator := fakes.NewMemberCreator()
	submitter, err := onboarding.NewSubmitter(creator, onboarding.WithPacing(0))
	require.NoError(t, err)
	registry := fakes.NewRegistry()

	pipeline, err := onboarding.NewPipeline(registry, fakes.Directory{Accounts: fakes.ActiveAccounts(25)}, registry, submitter,
		onboarding.WithBatchSize(10))
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background(), meta())

	require.NoError(t, err)
	require.Len(t, creator.Calls(), 3)
	assert.Len(t, creator.Calls()[2], 5)
}

func Test_NewPipeline_Validation(t *testing.T) {
	registry := fakes.NewRegistry()
	directory := fakes.Directory{}
	submitter, err := onboarding.NewSubmitter(registry)
	require.NoError(t, err)

	_, err = onboarding.NewPipeline(nil, directory, registry, submitter)
	assert.ErrorIs(t, err, onboarding.ErrNilCapabilityProber)

	_, err = onboarding.NewPipeline(registry, nil, registry, submitter)
	assert.ErrorIs(t, err, onboarding.ErrNilDirectoryReader)

	_, err = onboarding.NewPipeline(registry, directory, nil, submitter)
	assert.ErrorIs(t, err, onboarding.ErrNilRegistryReader)

	_, err = onboarding.NewPipeline(registry, directory, registry, onboarding.Submitter{})
	assert.ErrorIs(t, err, onboarding.ErrNilSubmitter)

	_, err = onboarding.NewPipeline(registry, directory, registry, submitter, onboarding.WithBatchSize(51))
	assert.ErrorIs(t, err, onboarding.ErrInvalidBatchSize)

	_, err = onboarding.NewPipeline(registry, directory, registry, submitter, onboarding.WithBatchSize(0))
	assert.ErrorIs(t, err, onboarding.ErrInvalidBatchSize)

	_, err = onboarding.NewPipeline(registry, directory, registry, submitter, onboarding.WithInviter(onboarding.Inviter{}))
	assert.ErrorIs(t, err, onboarding.ErrNilMemberInviter)
}

func Test_Pipeline_Observability(t *testing.T) {
	// arrange
	accounts := fakes.ActiveAccounts(3)
	registry := fakes.NewRegistry().RejectAccount(accounts[0].ID, "x")
	logHandler := spies.NewLogHandlerSpy(false)
	metrics := spies.NewMetricsCollectorSpy()
	tracing := spies.NewTracingCollectorSpy()

	pipeline := newTestPipeline(t, fakes.Directory{Accounts: accounts}, registry,
		onboarding.WithRunLogger(slog.New(logHandler)),
		onboarding.WithRunMetrics(metrics),
		onboarding.WithRunTracing(tracing),
	)

	// act
	_, err := pipeline.Run(context.Background(), meta())

	// assert
	require.NoError(t, err)
	assert.True(t, logHandler.HasLog(slog.LevelInfo, "onboarding run started"))
	assert.True(t, logHandler.HasLogWithAttr(slog.LevelInfo, "onboarding set reconciled", "count", "3"))
	assert.True(t, logHandler.HasLog(slog.LevelInfo, "onboarding run completed"))
	assert.InDelta(t, 3, metrics.SumValuesForMetric(onboarding.MetricOnboardSetSize), 0.001)

	runSpans := tracing.SpanRecordsForName("onboarding.run")
	require.Len(t, runSpans, 1)
	assert.Equal(t, onboarding.StatusPartial, runSpans[0].Status)
	assert.Equal(t, "1", runSpans[0].EndAttributes["failed_count"])
}

func Test_Pipeline_LogsAbort(t *testing.T) {
	logHandler := spies.NewLogHandlerSpy(false)
	tracing := spies.NewTracingCollectorSpy()
	pipeline := newTestPipeline(t, fakes.Directory{Err: errors.New("denied")}, fakes.NewRegistry(),
		onboarding.WithRunLogger(slog.New(logHandler)),
		onboarding.WithRunTracing(tracing),
	)

	_, err := pipeline.Run(context.Background(), meta())

	require.Error(t, err)
	assert.True(t, logHandler.HasLog(slog.LevelError, "onboarding run aborted"))
	assert.Equal(t, onboarding.StatusError, tracing.SpanRecordsForName("onboarding.run")[0].Status)
}

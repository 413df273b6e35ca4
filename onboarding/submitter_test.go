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

func requestsFor(n int) []onboarding.OnboardRequest {
	result := onboarding.Reconcile(fakes.ActiveAccounts(n), nil, "")
	return result.OnboardRequests()
}

func newTestSubmitter(t *testing.T, creator onboarding.MemberCreator, options ...onboarding.Option) (onboarding.Submitter, *fakes.SleepRecorder) {
	t.Helper()

	sleeper := &fakes.SleepRecorder{}
	options = append([]onboarding.Option{onboarding.WithSleeper(sleeper.Sleep)}, options...)

	submitter, err := onboarding.NewSubmitter(creator, options...)
	require.NoError(t, err)

	return submitter, sleeper
}

func Test_Submitter_AllAccepted(t *testing.T) {
	// arrange
	creator := fakes.NewMemberCreator()
	submitter, _ := newTestSubmitter(t, creator)
	requests := requestsFor(120)

	// act
	outcome := submitter.Submit(context.Background(), onboarding.Batch(requests, onboarding.MaxBatchSize))

	// assert
	assert.Equal(t, 120, outcome.Attempted)
	assert.Equal(t, 120, outcome.Succeeded)
	assert.Empty(t, outcome.Failed)
	assert.True(t, outcome.Balanced())
	require.Len(t, creator.Calls(), 3)
	assert.Equal(t, requests[:50], creator.Calls()[0])
	assert.Equal(t, requests[100:], creator.Calls()[2])
}

func Test_Submitter_ScenarioC_UnprocessedWithinAcceptedBatch(t *testing.T) {
	// arrange
	requests := requestsFor(70)
	rejected := []onboarding.Failure{
		{AccountID: requests[3].AccountID, Reason: "InvalidInput: email mismatch"},
		{AccountID: requests[17].AccountID, Reason: "AccountIdNotFound"},
		{AccountID: requests[42].AccountID, Reason: "some free text"},
	}
	creator := fakes.NewMemberCreator(fakes.Response{Rejected: rejected})
	submitter, _ := newTestSubmitter(t, creator)

	// act
	outcome := submitter.Submit(context.Background(), onboarding.Batch(requests, onboarding.MaxBatchSize))

	// assert
	assert.Equal(t, 70, outcome.Attempted)
	assert.Equal(t, 47+20, outcome.Succeeded, "47 from the first batch, 20 from the second")
	assert.Equal(t, rejected, outcome.Failed, "reasons are kept verbatim and in order")
	assert.Len(t, creator.Calls(), 2, "the run proceeds to the remaining batches")
	assert.True(t, outcome.Balanced())
}

func Test_Submitter_ScenarioD_CallLevelFailure(t *testing.T) {
	// arrange
	requests := requestsFor(120)
	callErr := errors.New("dial tcp: connection reset by peer")
	creator := fakes.NewMemberCreator(
		fakes.Response{},
		fakes.Response{Err: callErr},
		fakes.Response{},
	)
	submitter, _ := newTestSubmitter(t, creator)

	// act
	outcome := submitter.Submit(context.Background(), onboarding.Batch(requests, onboarding.MaxBatchSize))

	// assert
	assert.Len(t, creator.Calls(), 3, "subsequent batches are still attempted")
	assert.Equal(t, 120, outcome.Attempted)
	assert.Equal(t, 70, outcome.Succeeded)
	require.Len(t, outcome.Failed, 50)

	for i, failure := range outcome.Failed {
		assert.Equal(t, requests[50+i].AccountID, failure.AccountID)
		assert.Equal(t, callErr.Error(), failure.Reason)
	}
	assert.True(t, outcome.Balanced())
}

func Test_Submitter_NoBatches_NoCalls(t *testing.T) {
	creator := fakes.NewMemberCreator()
	submitter, sleeper := newTestSubmitter(t, creator)

	outcome := submitter.Submit(context.Background(), onboarding.Batch([]onboarding.OnboardRequest{}, 50))

	assert.Equal(t, onboarding.SubmissionOutcome{}, outcome)
	assert.Empty(t, creator.Calls())
	assert.Empty(t, sleeper.Delays())
}

func Test_Submitter_PacesBetweenBatches_RegardlessOfResult(t *testing.T) {
	// arrange
	creator := fakes.NewMemberCreator(
		fakes.Response{Err: errors.New("throttled")},
		fakes.Response{},
		fakes.Response{Err: errors.New("throttled")},
	)
	submitter, sleeper := newTestSubmitter(t, creator, onboarding.WithPacing(300*time.Millisecond))

	// act
	submitter.Submit(context.Background(), onboarding.Batch(requestsFor(4), 1))

	// assert
	assert.Equal(t,
		[]time.Duration{300 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond},
		sleeper.Delays(),
		"one fixed delay between each pair of consecutive batches",
	)
}

func Test_Submitter_DefaultPacing(t *testing.T) {
	submitter, sleeper := newTestSubmitter(t, fakes.NewMemberCreator())

	submitter.Submit(context.Background(), onboarding.Batch(requestsFor(2), 1))

	assert.Equal(t, []time.Duration{250 * time.Millisecond}, sleeper.Delays())
}

func Test_Submitter_ZeroPacing_NeverSleeps(t *testing.T) {
	submitter, sleeper := newTestSubmitter(t, fakes.NewMemberCreator(), onboarding.WithPacing(0))

	submitter.Submit(context.Background(), onboarding.Batch(requestsFor(5), 1))

	assert.Empty(t, sleeper.Delays())
}

func Test_Submitter_IgnoresStrayAndDuplicateRejections(t *testing.T) {
	// arrange
	requests := requestsFor(3)
	creator := fakes.NewMemberCreator(fakes.Response{Rejected: []onboarding.Failure{
		{AccountID: "999999999999", Reason: "not in batch"},
		{AccountID: requests[1].AccountID, Reason: "first"},
		{AccountID: requests[1].AccountID, Reason: "second"},
	}})
	logHandler := spies.NewLogHandlerSpy(false)
	submitter, _ := newTestSubmitter(t, creator, onboarding.WithLogger(slog.New(logHandler)))

	// act
	outcome := submitter.Submit(context.Background(), onboarding.Batch(requests, 50))

	// assert
	assert.Equal(t, 3, outcome.Attempted)
	assert.Equal(t, 2, outcome.Succeeded)
	assert.Equal(t, []onboarding.Failure{{AccountID: requests[1].AccountID, Reason: "first"}}, outcome.Failed)
	assert.True(t, outcome.Balanced())
	assert.True(t, logHandler.HasLogWithAttr(slog.LevelWarn,
		"service rejected an account that was not part of the batch", "account_id", "999999999999"))
}

func Test_Submitter_AccountingIdentity_MixedOutcomes(t *testing.T) {
	requests := requestsFor(237)
	creator := fakes.NewMemberCreator(
		fakes.Response{Rejected: []onboarding.Failure{{AccountID: requests[0].AccountID, Reason: "x"}}},
		fakes.Response{Err: errors.New("boom")},
		fakes.Response{},
		fakes.Response{Rejected: []onboarding.Failure{{AccountID: requests[151].AccountID, Reason: "y"}, {AccountID: requests[152].AccountID, Reason: "z"}}},
		fakes.Response{Err: errors.New("boom again")},
	)
	submitter, _ := newTestSubmitter(t, creator)

	outcome := submitter.Submit(context.Background(), onboarding.Batch(requests, onboarding.MaxBatchSize))

	assert.Equal(t, len(requests), outcome.Attempted)
	assert.Equal(t, outcome.Attempted, outcome.Succeeded+len(outcome.Failed))
	assert.Equal(t, 1+50+2+37, len(outcome.Failed))
}

func Test_Submitter_NeverSubmitsAnAccountTwice(t *testing.T) {
	requests := requestsFor(160)
	creator := fakes.NewMemberCreator(fakes.Response{Err: errors.New("boom")})
	submitter, _ := newTestSubmitter(t, creator)

	submitter.Submit(context.Background(), onboarding.Batch(requests, onboarding.MaxBatchSize))

	submitted := creator.SubmittedIDs()
	seen := make(map[string]int, len(submitted))
	for _, id := range submitted {
		seen[id]++
	}

	assert.Len(t, submitted, 160)
	for id, count := range seen {
		assert.Equal(t, 1, count, "account %s submitted more than once", id)
	}
}

func Test_NewSubmitter_InvalidOptions(t *testing.T) {
	creator := fakes.NewMemberCreator()

	_, err := onboarding.NewSubmitter(nil)
	assert.ErrorIs(t, err, onboarding.ErrNilMemberCreator)

	_, err = onboarding.NewSubmitter(creator, onboarding.WithPacing(-time.Second))
	assert.ErrorIs(t, err, onboarding.ErrNegativePacing)

	_, err = onboarding.NewSubmitter(creator, onboarding.WithSleeper(nil))
	assert.ErrorIs(t, err, onboarding.ErrNilSleeper)
}

func Test_Submitter_RecordsMetricsPerBatch(t *testing.T) {
	// arrange
	requests := requestsFor(101)
	creator := fakes.NewMemberCreator(
		fakes.Response{},
		fakes.Response{Rejected: []onboarding.Failure{{AccountID: requests[60].AccountID, Reason: "x"}}},
		fakes.Response{Err: errors.New("boom")},
	)
	metrics := spies.NewMetricsCollectorSpy()
	submitter, _ := newTestSubmitter(t, creator, onboarding.WithMetrics(metrics))

	// act
	submitter.Submit(context.Background(), onboarding.Batch(requests, onboarding.MaxBatchSize))

	// assert
	assert.Equal(t, 3, metrics.CountCounterRecordsForMetric(onboarding.MetricBatches, ""))
	assert.Equal(t, 1, metrics.CountCounterRecordsForMetric(onboarding.MetricBatches, onboarding.StatusSuccess))
	assert.Equal(t, 1, metrics.CountCounterRecordsForMetric(onboarding.MetricBatches, onboarding.StatusPartial))
	assert.Equal(t, 1, metrics.CountCounterRecordsForMetric(onboarding.MetricBatches, onboarding.StatusError))
	assert.InDelta(t, 99, metrics.SumValuesForMetric(onboarding.MetricAccountsSucceeded), 0.001)
	assert.InDelta(t, 2, metrics.SumValuesForMetric(onboarding.MetricAccountsFailed), 0.001)
	assert.True(t, metrics.HasDurationRecord(onboarding.MetricBatchDuration))
}

func Test_Submitter_TracesEveryBatch(t *testing.T) {
	creator := fakes.NewMemberCreator(fakes.Response{}, fakes.Response{Err: errors.New("boom")})
	tracing := spies.NewTracingCollectorSpy()
	submitter, _ := newTestSubmitter(t, creator, onboarding.WithTracing(tracing))

	submitter.Submit(context.Background(), onboarding.Batch(requestsFor(60), onboarding.MaxBatchSize))

	spans := tracing.SpanRecordsForName("onboarding.submit_batch")
	require.Len(t, spans, 2)
	assert.Equal(t, "0", spans[0].StartAttributes["batch_index"])
	assert.Equal(t, "50", spans[0].StartAttributes["batch_size"])
	assert.Equal(t, onboarding.StatusSuccess, spans[0].Status)
	assert.Equal(t, "10", spans[1].StartAttributes["batch_size"])
	assert.Equal(t, onboarding.StatusError, spans[1].Status)
	assert.Equal(t, "10", spans[1].EndAttributes["failed_count"])
}

func Test_Submitter_LogsCallLevelFailures(t *testing.T) {
	creator := fakes.NewMemberCreator(fakes.Response{Err: errors.New("AccessDenied")})
	logHandler := spies.NewLogHandlerSpy(false)
	contextual := spies.NewContextualLoggerSpy()
	submitter, _ := newTestSubmitter(t, creator,
		onboarding.WithLogger(slog.New(logHandler)),
		onboarding.WithContextualLogger(contextual),
	)

	submitter.Submit(context.Background(), onboarding.Batch(requestsFor(2), 50))

	assert.True(t, logHandler.HasLogWithAttr(slog.LevelError,
		"bulk call failed, all accounts of the batch recorded as failed", "error", "AccessDenied"))
	assert.Len(t, contextual.GetRecords("error"), 1)
}

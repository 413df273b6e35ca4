package onboarding

import (
	"context"
	"iter"
	"time"
)

const defaultPacing = 250 * time.Millisecond

const (
	operationCreateMembers = "create_members"
	operationInviteMembers = "invite_members"
)

// MemberCreator issues one bulk onboard call against the aggregation service.
// The returned failures are accounts rejected inside an otherwise accepted call.
// A non-nil error means the call failed as a whole.
type MemberCreator interface {
	CreateMembers(ctx context.Context, requests []OnboardRequest) ([]Failure, error)
}

// Sleeper blocks for the pacing delay between two batches.
type Sleeper func(d time.Duration)

// batchRunner holds what Submitter and Inviter share: pacing and observability.
type batchRunner struct {
	operation        string
	pacing           time.Duration
	sleep            Sleeper
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

func newBatchRunner(operation string, options []Option) (batchRunner, error) {
	runner := batchRunner{
		operation: operation,
		pacing:    defaultPacing,
		sleep:     time.Sleep,
	}

	for _, option := range options {
		if err := option(&runner); err != nil {
			return batchRunner{}, err
		}
	}

	return runner, nil
}

// Submitter onboards batches one after another and keeps the books on what happened.
// It never aborts a run, never resubmits a failed account, and never submits two batches concurrently.
type Submitter struct {
	creator MemberCreator
	runner  batchRunner
}

// NewSubmitter creates a Submitter that sends batches to creator.
func NewSubmitter(creator MemberCreator, options ...Option) (Submitter, error) {
	if creator == nil {
		return Submitter{}, ErrNilMemberCreator
	}

	runner, err := newBatchRunner(operationCreateMembers, options)
	if err != nil {
		return Submitter{}, err
	}

	return Submitter{creator: creator, runner: runner}, nil
}

// Submit processes every batch in order and returns the accumulated outcome.
//
// Accounts rejected inside an accepted call are recorded with the reason the service gave.
// When a call fails as a whole, every account of that batch is recorded with the call error.
// Between two batches the Submitter waits for the fixed pacing delay, whatever the previous result.
func (s Submitter) Submit(ctx context.Context, batches iter.Seq[[]OnboardRequest]) SubmissionOutcome {
	return runBatches(ctx, &s.runner, batches, requestIDs, s.creator.CreateMembers)
}

func requestIDs(batch []OnboardRequest) []string {
	ids := make([]string, len(batch))
	for i, request := range batch {
		ids[i] = request.AccountID
	}

	return ids
}

func runBatches[T any](
	ctx context.Context,
	runner *batchRunner,
	batches iter.Seq[[]T],
	idsOf func([]T) []string,
	call func(context.Context, []T) ([]Failure, error),
) SubmissionOutcome {

	var total SubmissionOutcome
	index := 0

	for batch := range batches {
		if index > 0 && runner.pacing > 0 {
			runner.sleep(runner.pacing)
		}

		ids := idsOf(batch)
		batchCtx, span := runner.startBatchSpan(ctx, index, len(ids))

		start := time.Now()
		rejected, err := call(batchCtx, batch)
		duration := time.Since(start)

		var outcome SubmissionOutcome
		if err != nil {
			outcome = batchFailure(ids, err)
			runner.logBatchError(batchCtx, index, len(ids), err)
			runner.recordBatch(batchCtx, StatusError, outcome, duration)
			runner.finishBatchSpan(span, StatusError, outcome)
		} else {
			var stray []Failure
			outcome, stray = batchOutcome(ids, rejected)
			runner.logStray(batchCtx, index, stray)

			status := StatusSuccess
			if len(outcome.Failed) > 0 {
				status = StatusPartial
			}

			runner.logBatch(batchCtx, index, outcome, duration)
			runner.recordBatch(batchCtx, status, outcome, duration)
			runner.finishBatchSpan(span, status, outcome)
		}

		total = total.Add(outcome)
		index++
	}

	return total
}

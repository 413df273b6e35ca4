package onboarding

import (
	"context"
	"iter"
)

// MemberInviter issues one bulk invitation call against the aggregation service.
// It follows the same contract as MemberCreator.
type MemberInviter interface {
	InviteMembers(ctx context.Context, accountIDs []string) ([]Failure, error)
}

// Inviter sends invitations to accounts that were created as members.
//
// It is an explicit, opt-in pass that runs after submission and never touches the submission outcome.
// Invitation delivery is not guaranteed; failures are reported, not retried.
type Inviter struct {
	inviter MemberInviter
	runner  batchRunner
}

// NewInviter creates an Inviter that sends batches to inviter.
func NewInviter(inviter MemberInviter, options ...Option) (Inviter, error) {
	if inviter == nil {
		return Inviter{}, ErrNilMemberInviter
	}

	runner, err := newBatchRunner(operationInviteMembers, options)
	if err != nil {
		return Inviter{}, err
	}

	return Inviter{inviter: inviter, runner: runner}, nil
}

// Invite batches accountIDs by MaxBatchSize and invites them one batch after another.
func (i Inviter) Invite(ctx context.Context, accountIDs []string) SubmissionOutcome {
	return i.InviteBatches(ctx, Batch(accountIDs, MaxBatchSize))
}

// InviteBatches invites pre-built batches with the same accounting rules as Submitter.Submit.
func (i Inviter) InviteBatches(ctx context.Context, batches iter.Seq[[]string]) SubmissionOutcome {
	return runBatches(ctx, &i.runner, batches, identity, i.inviter.InviteMembers)
}

func identity(ids []string) []string {
	return ids
}

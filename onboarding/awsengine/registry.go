package awsengine

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/securityhub"
	"github.com/aws/aws-sdk-go-v2/service/securityhub/types"

	"github.com/cloudsecops/orgonboard/onboarding"
)

const (
	logMsgMembersListed = "security hub members listed"
	logMsgProbe         = "security hub probe finished"
)

// Registry talks to Security Hub in the delegated administrator account.
// It implements onboarding.RegistryReader, onboarding.MemberCreator, onboarding.MemberInviter
// and onboarding.CapabilityProber.
type Registry struct {
	client   SecurityHubAPI
	settings settings
}

// NewRegistry creates a Registry on top of a Security Hub client.
// The client must carry the delegated administrator's credentials, see AssumeRole.
func NewRegistry(client SecurityHubAPI, options ...Option) (*Registry, error) {
	if client == nil {
		return nil, ErrNilSecurityHubClient
	}

	s, err := newSettings(options)
	if err != nil {
		return nil, err
	}

	return &Registry{client: client, settings: s}, nil
}

// ListKnownAccounts returns the ids of all members, associated or not.
// Any error wraps onboarding.ErrRegistryUnavailable.
func (r *Registry) ListKnownAccounts(ctx context.Context) (map[string]struct{}, error) {
	paginator := securityhub.NewListMembersPaginator(
		r.client,
		&securityhub.ListMembersInput{OnlyAssociated: aws.Bool(false)},
		func(o *securityhub.ListMembersPaginatorOptions) {
			o.Limit = r.settings.pageSize
		},
	)

	known := make(map[string]struct{})
	pages := 0

	for paginator.HasMorePages() {
		var page *securityhub.ListMembersOutput

		err := retryOnThrottle(ctx, operationListMembers, &r.settings, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("%w: list members (page %d): %w", onboarding.ErrRegistryUnavailable, pages+1, err)
		}

		pages++
		for _, member := range page.Members {
			if id := aws.ToString(member.AccountId); id != "" {
				known[id] = struct{}{}
			}
		}
	}

	if r.settings.logger != nil {
		r.settings.logger.Debug(logMsgMembersListed, "pages", pages, "known", len(known))
	}

	return known, nil
}

// CreateMembers issues one CreateMembers call for up to onboarding.MaxBatchSize accounts.
// Unprocessed accounts are returned as failures with the reason Security Hub gave.
func (r *Registry) CreateMembers(ctx context.Context, requests []onboarding.OnboardRequest) ([]onboarding.Failure, error) {
	if len(requests) > onboarding.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d accounts", ErrBatchTooLarge, len(requests))
	}

	details := make([]types.AccountDetails, len(requests))
	for i, request := range requests {
		details[i] = types.AccountDetails{
			AccountId: aws.String(request.AccountID),
			Email:     aws.String(request.Email),
		}
	}

	var output *securityhub.CreateMembersOutput

	err := retryOnThrottle(ctx, operationCreateMembers, &r.settings, func(ctx context.Context) error {
		var err error
		output, err = r.client.CreateMembers(ctx, &securityhub.CreateMembersInput{AccountDetails: details})
		return err
	})
	if err != nil {
		return nil, err
	}

	return toFailures(output.UnprocessedAccounts), nil
}

// InviteMembers issues one InviteMembers call for up to onboarding.MaxBatchSize accounts.
func (r *Registry) InviteMembers(ctx context.Context, accountIDs []string) ([]onboarding.Failure, error) {
	if len(accountIDs) > onboarding.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d accounts", ErrBatchTooLarge, len(accountIDs))
	}

	var output *securityhub.InviteMembersOutput

	err := retryOnThrottle(ctx, operationInviteMembers, &r.settings, func(ctx context.Context) error {
		var err error
		output, err = r.client.InviteMembers(ctx, &securityhub.InviteMembersInput{AccountIds: accountIDs})
		return err
	})
	if err != nil {
		return nil, err
	}

	return toFailures(output.UnprocessedAccounts), nil
}

// Probe checks with GetAdministratorAccount that Security Hub is enabled. Throttling is retried
// like every other call. Only the access and not-found error codes mean disabled; every other
// error, including throttling that outlasts the retries, is indeterminate.
func (r *Registry) Probe(ctx context.Context) onboarding.ProbeResult {
	result := onboarding.ProbeResult{State: onboarding.ProbeEnabled}

	err := retryOnThrottle(ctx, operationGetAdminAccount, &r.settings, func(ctx context.Context) error {
		_, err := r.client.GetAdministratorAccount(ctx, &securityhub.GetAdministratorAccountInput{})
		return err
	})
	if err != nil {
		result = onboarding.ProbeResult{State: onboarding.ProbeIndeterminate, Err: err}
		if _, ok := disabledCodes[ErrorCode(err)]; ok {
			result.State = onboarding.ProbeDisabled
		}
	}

	if r.settings.logger != nil {
		r.settings.logger.Debug(logMsgProbe, "state", result.State.String())
	}

	return result
}

func toFailures(unprocessed []types.Result) []onboarding.Failure {
	if len(unprocessed) == 0 {
		return nil
	}

	failures := make([]onboarding.Failure, 0, len(unprocessed))
	for _, result := range unprocessed {
		reason := aws.ToString(result.ProcessingResult)
		if reason == "" {
			reason = unprocessedWithoutReason
		}

		failures = append(failures, onboarding.Failure{
			AccountID: aws.ToString(result.AccountId),
			Reason:    reason,
		})
	}

	return failures
}

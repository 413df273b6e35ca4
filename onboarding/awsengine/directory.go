package awsengine

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/organizations/types"

	"github.com/cloudsecops/orgonboard/onboarding"
)

const logMsgAccountsListed = "organization accounts listed"

// DirectoryReader lists the accounts of an AWS organization.
// It must run with credentials of the management account (or a delegated Organizations administrator).
type DirectoryReader struct {
	client   OrganizationsAPI
	settings settings
}

// NewDirectoryReader creates a DirectoryReader on top of an Organizations client.
func NewDirectoryReader(client OrganizationsAPI, options ...Option) (*DirectoryReader, error) {
	if client == nil {
		return nil, ErrNilOrganizationsClient
	}

	s, err := newSettings(options)
	if err != nil {
		return nil, err
	}

	return &DirectoryReader{client: client, settings: s}, nil
}

// ListActiveAccounts drains every page of ListAccounts and keeps the ACTIVE accounts, in listing order.
// Any error wraps onboarding.ErrDirectoryUnavailable.
func (d *DirectoryReader) ListActiveAccounts(ctx context.Context) ([]onboarding.Account, error) {
	paginator := organizations.NewListAccountsPaginator(
		d.client,
		&organizations.ListAccountsInput{},
		func(o *organizations.ListAccountsPaginatorOptions) {
			o.Limit = d.settings.pageSize
		},
	)

	var active []onboarding.Account
	listed, pages := 0, 0

	for paginator.HasMorePages() {
		var page *organizations.ListAccountsOutput

		err := retryOnThrottle(ctx, operationListAccounts, &d.settings, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("%w: list accounts (page %d): %w", onboarding.ErrDirectoryUnavailable, pages+1, err)
		}

		pages++
		for _, raw := range page.Accounts {
			listed++

			account := toAccount(raw)
			if account.Active() {
				active = append(active, account)
			}
		}
	}

	if d.settings.logger != nil {
		d.settings.logger.Debug(logMsgAccountsListed, "pages", pages, "listed", listed, "active", len(active))
	}

	return active, nil
}

func toAccount(raw types.Account) onboarding.Account {
	return onboarding.Account{
		ID:          aws.ToString(raw.Id),
		Email:       aws.ToString(raw.Email),
		DisplayName: aws.ToString(raw.Name),
		Status:      onboarding.ParseAccountStatus(string(raw.Status)),
	}
}

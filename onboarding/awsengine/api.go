package awsengine

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/securityhub"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// OrganizationsAPI is the subset of the AWS Organizations client used by DirectoryReader.
type OrganizationsAPI interface {
	organizations.ListAccountsAPIClient
}

// SecurityHubAPI is the subset of the Security Hub client used by Registry.
type SecurityHubAPI interface {
	securityhub.ListMembersAPIClient
	CreateMembers(ctx context.Context, params *securityhub.CreateMembersInput, optFns ...func(*securityhub.Options)) (*securityhub.CreateMembersOutput, error)
	InviteMembers(ctx context.Context, params *securityhub.InviteMembersInput, optFns ...func(*securityhub.Options)) (*securityhub.InviteMembersOutput, error)
	GetAdministratorAccount(ctx context.Context, params *securityhub.GetAdministratorAccountInput, optFns ...func(*securityhub.Options)) (*securityhub.GetAdministratorAccountOutput, error)
}

// STSAPI is the subset of the STS client used for credential elevation and caller identity.
type STSAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

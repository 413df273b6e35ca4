package fakes

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/aws/aws-sdk-go-v2/service/securityhub"
	hubtypes "github.com/aws/aws-sdk-go-v2/service/securityhub/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/aws/smithy-go"
)

// APIError builds a smithy API error with the given code, as the SDK returns it.
func APIError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code + " (fake)", Fault: smithy.FaultClient}
}

// errorQueue hands out scripted errors one call at a time; nil entries mean success.
type errorQueue []error

func (q *errorQueue) pop() error {
	if len(*q) == 0 {
		return nil
	}

	err := (*q)[0]
	*q = (*q)[1:]

	return err
}

func pageIndex(token *string) int {
	index, err := strconv.Atoi(aws.ToString(token))
	if err != nil {
		return 0
	}

	return index
}

func nextToken(index, pages int) *string {
	if index+1 >= pages {
		return nil
	}

	return aws.String(strconv.Itoa(index + 1))
}

// OrganizationsClient serves ListAccounts from fixed pages.
type OrganizationsClient struct {
	mu     sync.Mutex
	pages  [][]orgtypes.Account
	errs   errorQueue
	inputs []organizations.ListAccountsInput
}

// NewOrganizationsClient creates a client that serves the given pages in order.
func NewOrganizationsClient(pages ...[]orgtypes.Account) *OrganizationsClient {
	return &OrganizationsClient{pages: pages}
}

// FailCalls scripts the errors of the next calls; nil entries let a call through.
func (c *OrganizationsClient) FailCalls(errs ...error) *OrganizationsClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, errs...)

	return c
}

// ListAccounts implements organizations.ListAccountsAPIClient.
func (c *OrganizationsClient) ListAccounts(
	_ context.Context,
	params *organizations.ListAccountsInput,
	_ ...func(*organizations.Options),
) (*organizations.ListAccountsOutput, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.inputs = append(c.inputs, *params)
	if err := c.errs.pop(); err != nil {
		return nil, err
	}

	if len(c.pages) == 0 {
		return &organizations.ListAccountsOutput{}, nil
	}

	index := pageIndex(params.NextToken)

	return &organizations.ListAccountsOutput{
		Accounts:  c.pages[index],
		NextToken: nextToken(index, len(c.pages)),
	}, nil
}

// Inputs returns every ListAccounts input received.
func (c *OrganizationsClient) Inputs() []organizations.ListAccountsInput {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]organizations.ListAccountsInput(nil), c.inputs...)
}

// OrgAccount builds an Organizations account entry.
func OrgAccount(id string, status orgtypes.AccountStatus) orgtypes.Account {
	return orgtypes.Account{
		Id:     aws.String(id),
		Email:  aws.String("aws+" + id + "@example.com"),
		Name:   aws.String("account-" + id),
		Status: status,
	}
}

// SecurityHubClient is a scripted Security Hub.
type SecurityHubClient struct {
	mu sync.Mutex

	memberPages [][]string
	listErrs    errorQueue
	listInputs  []securityhub.ListMembersInput

	createUnprocessed [][]hubtypes.Result
	createErrs        errorQueue
	createInputs      []securityhub.CreateMembersInput

	inviteUnprocessed [][]hubtypes.Result
	inviteErrs        errorQueue
	inviteInputs      []securityhub.InviteMembersInput

	probeErrs  errorQueue
	probeCalls int
}

// NewSecurityHubClient creates a client that lists the given member id pages.
func NewSecurityHubClient(memberPages ...[]string) *SecurityHubClient {
	return &SecurityHubClient{memberPages: memberPages}
}

// FailListing scripts the errors of the next ListMembers calls.
func (c *SecurityHubClient) FailListing(errs ...error) *SecurityHubClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listErrs = append(c.listErrs, errs...)

	return c
}

// FailCreates scripts the errors of the next CreateMembers calls.
func (c *SecurityHubClient) FailCreates(errs ...error) *SecurityHubClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createErrs = append(c.createErrs, errs...)

	return c
}

// FailInvites scripts the errors of the next InviteMembers calls.
func (c *SecurityHubClient) FailInvites(errs ...error) *SecurityHubClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inviteErrs = append(c.inviteErrs, errs...)

	return c
}

// UnprocessCreates scripts the unprocessed accounts of the next successful CreateMembers calls.
func (c *SecurityHubClient) UnprocessCreates(results ...[]hubtypes.Result) *SecurityHubClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createUnprocessed = append(c.createUnprocessed, results...)

	return c
}

// UnprocessInvites scripts the unprocessed accounts of the next successful InviteMembers calls.
func (c *SecurityHubClient) UnprocessInvites(results ...[]hubtypes.Result) *SecurityHubClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inviteUnprocessed = append(c.inviteUnprocessed, results...)

	return c
}

// FailProbe scripts the errors of the next GetAdministratorAccount calls.
func (c *SecurityHubClient) FailProbe(errs ...error) *SecurityHubClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probeErrs = append(c.probeErrs, errs...)

	return c
}

// ListMembers implements securityhub.ListMembersAPIClient.
func (c *SecurityHubClient) ListMembers(
	_ context.Context,
	params *securityhub.ListMembersInput,
	_ ...func(*securityhub.Options),
) (*securityhub.ListMembersOutput, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.listInputs = append(c.listInputs, *params)
	if err := c.listErrs.pop(); err != nil {
		return nil, err
	}

	if len(c.memberPages) == 0 {
		return &securityhub.ListMembersOutput{}, nil
	}

	index := pageIndex(params.NextToken)
	members := make([]hubtypes.Member, len(c.memberPages[index]))
	for i, id := range c.memberPages[index] {
		members[i] = hubtypes.Member{AccountId: aws.String(id)}
	}

	return &securityhub.ListMembersOutput{
		Members:   members,
		NextToken: nextToken(index, len(c.memberPages)),
	}, nil
}

// CreateMembers records the input and answers from the script.
func (c *SecurityHubClient) CreateMembers(
	_ context.Context,
	params *securityhub.CreateMembersInput,
	_ ...func(*securityhub.Options),
) (*securityhub.CreateMembersOutput, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.createInputs = append(c.createInputs, *params)
	if err := c.createErrs.pop(); err != nil {
		return nil, err
	}

	var unprocessed []hubtypes.Result
	if len(c.createUnprocessed) > 0 {
		unprocessed = c.createUnprocessed[0]
		c.createUnprocessed = c.createUnprocessed[1:]
	}

	return &securityhub.CreateMembersOutput{UnprocessedAccounts: unprocessed}, nil
}

// InviteMembers records the input and answers from the script.
func (c *SecurityHubClient) InviteMembers(
	_ context.Context,
	params *securityhub.InviteMembersInput,
	_ ...func(*securityhub.Options),
) (*securityhub.InviteMembersOutput, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.inviteInputs = append(c.inviteInputs, *params)
	if err := c.inviteErrs.pop(); err != nil {
		return nil, err
	}

	var unprocessed []hubtypes.Result
	if len(c.inviteUnprocessed) > 0 {
		unprocessed = c.inviteUnprocessed[0]
		c.inviteUnprocessed = c.inviteUnprocessed[1:]
	}

	return &securityhub.InviteMembersOutput{UnprocessedAccounts: unprocessed}, nil
}

// GetAdministratorAccount answers the capability probe.
func (c *SecurityHubClient) GetAdministratorAccount(
	_ context.Context,
	_ *securityhub.GetAdministratorAccountInput,
	_ ...func(*securityhub.Options),
) (*securityhub.GetAdministratorAccountOutput, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.probeCalls++
	if err := c.probeErrs.pop(); err != nil {
		return nil, err
	}

	return &securityhub.GetAdministratorAccountOutput{}, nil
}

// ListInputs returns every ListMembers input received.
func (c *SecurityHubClient) ListInputs() []securityhub.ListMembersInput {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]securityhub.ListMembersInput(nil), c.listInputs...)
}

// CreateInputs returns every CreateMembers input received.
func (c *SecurityHubClient) CreateInputs() []securityhub.CreateMembersInput {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]securityhub.CreateMembersInput(nil), c.createInputs...)
}

// InviteInputs returns every InviteMembers input received.
func (c *SecurityHubClient) InviteInputs() []securityhub.InviteMembersInput {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]securityhub.InviteMembersInput(nil), c.inviteInputs...)
}

// ProbeCalls returns how often GetAdministratorAccount was called.
func (c *SecurityHubClient) ProbeCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.probeCalls
}

// Unprocessed builds a Security Hub unprocessed account entry.
func Unprocessed(accountID, reason string) hubtypes.Result {
	return hubtypes.Result{AccountId: aws.String(accountID), ProcessingResult: aws.String(reason)}
}

// STSClient answers AssumeRole and GetCallerIdentity.
type STSClient struct {
	mu          sync.Mutex
	Account     string
	AssumeErr   error
	Expiration  time.Time
	assumeCalls []sts.AssumeRoleInput
}

// AssumeRole implements stscreds.AssumeRoleAPIClient.
func (c *STSClient) AssumeRole(_ context.Context, params *sts.AssumeRoleInput, _ ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.assumeCalls = append(c.assumeCalls, *params)
	if c.AssumeErr != nil {
		return nil, c.AssumeErr
	}

	return &sts.AssumeRoleOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String("ASIAFAKE"),
			SecretAccessKey: aws.String("secret"),
			SessionToken:    aws.String("token"),
			Expiration:      aws.Time(c.Expiration),
		},
	}, nil
}

// GetCallerIdentity returns the configured account.
func (c *STSClient) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{Account: aws.String(c.Account)}, nil
}

// AssumeCalls returns every AssumeRole input received.
func (c *STSClient) AssumeCalls() []sts.AssumeRoleInput {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]sts.AssumeRoleInput(nil), c.assumeCalls...)
}

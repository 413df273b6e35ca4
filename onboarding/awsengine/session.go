package awsengine

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/cloudsecops/orgonboard/onboarding"
)

// DefaultSessionName is the role session name used when none is configured.
const DefaultSessionName = "SecurityHubDelegatedAdmin"

// LoadBaseConfig loads the ambient AWS configuration for region with the SDK retryer disabled.
// Throttling is retried by this package instead, see WithMaxAttempts.
func LoadBaseConfig(ctx context.Context, region string, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
	loadOptions := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}

	cfg, err := config.LoadDefaultConfig(ctx, append(loadOptions, optFns...)...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}

	return cfg, nil
}

// Session holds short-lived credentials of an assumed role.
// It is scoped to one run and never persisted.
type Session struct {
	config    aws.Config
	cache     *aws.CredentialsCache
	roleARN   string
	expiresAt time.Time
}

// AssumeRole elevates into roleName of accountID using the credentials of base.
// The credentials are retrieved eagerly, so a denied AssumeRole surfaces here and
// wraps onboarding.ErrCredentialElevationFailed.
func AssumeRole(ctx context.Context, base aws.Config, accountID, roleName, sessionName string) (*Session, error) {
	return assumeRole(ctx, sts.NewFromConfig(base), base, accountID, roleName, sessionName)
}

func assumeRole(
	ctx context.Context,
	client stscreds.AssumeRoleAPIClient,
	base aws.Config,
	accountID, roleName, sessionName string,
) (*Session, error) {

	if client == nil {
		return nil, ErrNilSTSClient
	}

	roleARN, err := RoleARN(accountID, roleName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", onboarding.ErrCredentialElevationFailed, err)
	}

	if sessionName == "" {
		sessionName = DefaultSessionName
	}

	provider := stscreds.NewAssumeRoleProvider(client, roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = sessionName
	})
	cache := aws.NewCredentialsCache(provider)

	credentials, err := cache.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: assume %s: %w", onboarding.ErrCredentialElevationFailed, roleARN, err)
	}

	scoped := base.Copy()
	scoped.Credentials = cache

	return &Session{
		config:    scoped,
		cache:     cache,
		roleARN:   roleARN,
		expiresAt: credentials.Expires,
	}, nil
}

// Config returns a copy of the AWS configuration that signs with the assumed role.
func (s *Session) Config() aws.Config {
	return s.config.Copy()
}

// RoleARN returns the ARN of the assumed role.
func (s *Session) RoleARN() string {
	return s.roleARN
}

// ExpiresAt returns when the first retrieved credentials expire.
func (s *Session) ExpiresAt() time.Time {
	return s.expiresAt
}

// Close drops the cached credentials.
func (s *Session) Close() {
	s.cache.Invalidate()
}

// RoleARN builds arn:aws:iam::<accountID>:role/<roleName>.
func RoleARN(accountID, roleName string) (string, error) {
	if !validAccountID(accountID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountID, accountID)
	}

	if roleName == "" {
		return "", ErrEmptyRoleName
	}

	return arn.ARN{
		Partition: "aws",
		Service:   "iam",
		AccountID: accountID,
		Resource:  "role/" + roleName,
	}.String(), nil
}

// CallerAccountID returns the account id behind the client's credentials.
func CallerAccountID(ctx context.Context, client STSAPI) (string, error) {
	if client == nil {
		return "", ErrNilSTSClient
	}

	output, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("%s: %w", operationGetCallerID, err)
	}

	return aws.ToString(output.Account), nil
}

func validAccountID(id string) bool {
	if len(id) != 12 {
		return false
	}

	for _, c := range id {
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}

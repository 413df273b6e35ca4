// Package awsengine connects the onboarding pipeline to AWS.
//
// It provides the DirectoryReader backed by AWS Organizations, the Registry backed by
// Security Hub (member listing, bulk member creation, invitations and the capability probe),
// and credential elevation into the delegated administrator account through STS.
//
// All remote calls go through narrow interfaces (OrganizationsAPI, SecurityHubAPI, STSAPI)
// that the SDK clients satisfy, so tests can use in-memory fakes.
//
// Throttling is handled by a single bounded policy: the SDK retryer is disabled
// (see LoadBaseConfig) and throttling errors are retried with exponential backoff.
// Every other error fails fast.
//
// Example:
//
//	base, err := awsengine.LoadBaseConfig(ctx, "us-east-1")
//	directory, err := awsengine.NewDirectoryReader(organizations.NewFromConfig(base))
//	session, err := awsengine.AssumeRole(ctx, base, adminID, "CrossAccount-SecurityOps", "SecurityHubDelegatedAdmin")
//	defer session.Close()
//	registry, err := awsengine.NewRegistry(securityhub.NewFromConfig(session.Config()))
package awsengine
